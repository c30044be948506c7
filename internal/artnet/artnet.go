package artnet

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/Haba1234/go-artnet"
	"github.com/Haba1234/go-artnet/packet"

	"artnet2fshdr/internal/logger"
)

const maxPacketSize = 1024

// Receiver listens for ArtDMX packets addressed to one universe.
type Receiver struct {
	logger logger.Logger
	ip     net.IP
	port   int
	addr   artnet.Address
	conn   *net.UDPConn
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewReceiver resolves the listen address for an art-net Receiver.
func NewReceiver(log logger.Logger, cfg ReceiverConf) (*Receiver, error) {
	var ip net.IP
	if cfg.Network != "" {
		found, err := FindArtNetIP(cfg.Network)
		if err != nil {
			return nil, fmt.Errorf("failed to find the art-net IP: %w", err)
		}
		if len(found) == 0 {
			return nil, fmt.Errorf("failed to find the art-net IP: no interface in %s", cfg.Network)
		}
		ip = found
	} else {
		ip = net.ParseIP(cfg.Listen)
		if ip == nil {
			return nil, fmt.Errorf("invalid art-net listen address %q", cfg.Listen)
		}
	}

	r := &Receiver{
		logger: log,
		ip:     ip,
		port:   cfg.Port,
		addr:   NewAddress(cfg.Net, cfg.SubNet, cfg.Universe),
	}
	log.With(logger.Fields{"module": "art-net"}).Infof("Using ArtNet IP %s:%d, address %s", ip.String(), cfg.Port, r.addr.String())

	return r, nil
}

// Start the Receiver. Frames are delivered in arrival order; the receive loop
// blocks while frames is full.
func (r *Receiver) Start(ctx context.Context, frames chan<- Frame) error {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: r.ip, Port: r.port})
	if err != nil {
		return fmt.Errorf("failed to listen for art-net: %w", err)
	}

	r.ctx, r.cancel = context.WithCancel(ctx)
	r.conn = conn
	r.wg.Add(1)
	go r.recvBackground(frames)
	return nil
}

// LocalAddr returns the bound UDP address.
func (r *Receiver) LocalAddr() net.Addr {
	if r.conn == nil {
		return nil
	}
	return r.conn.LocalAddr()
}

// Stop the Receiver.
func (r *Receiver) Stop() {
	if r.conn == nil {
		return
	}
	r.cancel()
	_ = r.conn.Close()
	r.wg.Wait()
}

func (r *Receiver) recvBackground(frames chan<- Frame) {
	defer r.wg.Done()
	log := r.logger.With(logger.Fields{"module": "art-net"})
	buf := make([]byte, maxPacketSize)

	for {
		n, from, err := r.conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) || r.ctx.Err() != nil {
				return
			}
			log.Errorf("read error: %v", err)
			continue
		}

		frame, ok, err := r.decode(buf[:n])
		if err != nil {
			log.Debugf("discarded packet from %v: %v", from, err)
			continue
		}
		if !ok {
			continue
		}

		select {
		case <-r.ctx.Done():
			return
		case frames <- frame:
		}
	}
}

// decode returns the frame carried by b when it is an ArtDMX packet for the
// receiver's address.
func (r *Receiver) decode(b []byte) (Frame, bool, error) {
	p, err := packet.Unmarshal(b)
	if err != nil {
		return Frame{}, false, err
	}

	dmx, ok := p.(*packet.ArtDMXPacket)
	if !ok {
		return Frame{}, false, nil
	}
	if dmx.Net != r.addr.Net || dmx.SubUni != r.addr.SubUni {
		return Frame{}, false, nil
	}

	length := int(dmx.Length)
	if length <= 0 || length > len(dmx.Data) {
		length = len(dmx.Data)
	}
	data := make([]byte, length)
	copy(data, dmx.Data[:length])

	return Frame{
		Address:  artnet.Address{Net: dmx.Net, SubUni: dmx.SubUni},
		Sequence: dmx.Sequence,
		Data:     data,
	}, true, nil
}
