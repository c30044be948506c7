package artnet

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/Haba1234/go-artnet"
	"github.com/Haba1234/go-artnet/packet"

	"artnet2fshdr/internal/logger"
)

// Emitter periodically sends random DMX frames, used to exercise the bridge
// without a lighting desk.
type Emitter struct {
	logger   logger.Logger
	cfg      EmitterConf
	addr     artnet.Address
	conn     *net.UDPConn
	rnd      *rand.Rand
	sequence uint8
	state    Universe
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewEmitter конструктор.
func NewEmitter(log logger.Logger, cfg EmitterConf) *Emitter {
	return &Emitter{
		logger: log,
		cfg:    cfg,
		addr:   NewAddress(cfg.Net, cfg.SubNet, cfg.Universe),
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Start the Emitter.
func (e *Emitter) Start(ctx context.Context) error {
	target, err := net.ResolveUDPAddr("udp4", e.cfg.Target)
	if err != nil {
		return fmt.Errorf("failed to resolve emitter target: %w", err)
	}
	conn, err := net.DialUDP("udp4", nil, target)
	if err != nil {
		return fmt.Errorf("failed to dial emitter target: %w", err)
	}
	e.conn = conn

	ctx, e.cancel = context.WithCancel(ctx)
	e.wg.Add(1)
	go e.sendBackground(ctx)
	return nil
}

// Stop the Emitter.
func (e *Emitter) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
	if e.conn != nil {
		_ = e.conn.Close()
	}
}

func (e *Emitter) sendBackground(ctx context.Context) {
	defer e.wg.Done()
	log := e.logger.With(logger.Fields{"module": "emitter"})
	t := time.NewTicker(e.cfg.Interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			e.fill(uint8(e.rnd.Intn(256)))
			if err := e.send(); err != nil {
				log.Errorf("send failed: %v", err)
				continue
			}
			log.Debugf("DMX. Отправка на %s, адрес %s", e.cfg.Target, e.addr.String())
		}
	}
}

// fill sets the first cfg.Channels channels to v.
func (e *Emitter) fill(v uint8) {
	for i := 0; i < e.cfg.Channels && i < len(e.state); i++ {
		e.state[i] = v
	}
}

func (e *Emitter) send() error {
	e.sequence++
	if e.sequence == 0 {
		e.sequence = 1
	}
	b, err := EncodeDMX(e.addr, e.sequence, e.state)
	if err != nil {
		return err
	}
	_, err = e.conn.Write(b)
	return err
}

// EncodeDMX marshals a full-universe ArtDMX packet.
func EncodeDMX(addr artnet.Address, sequence uint8, data Universe) ([]byte, error) {
	p := packet.NewArtDMXPacket()
	p.Sequence = sequence
	p.SubUni = addr.SubUni
	p.Net = addr.Net
	p.Length = uint16(len(data))
	p.Data = data
	return p.MarshalBinary()
}
