package artnet

import (
	"time"

	"github.com/Haba1234/go-artnet"
)

// Universe wraps the 512 byte array for convenience.
type Universe [512]byte

// Frame is one ArtDMX packet for the configured address.
type Frame struct {
	Address  artnet.Address // Address: Net и SubUni (subnet << 4 | universe).
	Sequence uint8          // Sequence: порядковый номер пакета, 0 - не используется.
	Data     []byte         // Data: значения каналов, не более 512.
}

// ReceiverConf holds the listener settings.
type ReceiverConf struct {
	Listen   string // Listen - IP для приёма.
	Network  string // Network - CIDR, из которого выбирается IP, если задан.
	Port     int    // Port - UDP порт.
	Net      uint8  // Net - Art-Net net.
	SubNet   uint8  // SubNet - Art-Net subnet.
	Universe uint8  // Universe - Art-Net universe.
}

// EmitterConf holds the random traffic generator settings.
type EmitterConf struct {
	Target   string        // Target - host:port получателя.
	Interval time.Duration // Interval - период отправки.
	Channels int           // Channels - сколько каналов заполнять.
	Net      uint8         // Net - Art-Net net.
	SubNet   uint8         // SubNet - Art-Net subnet.
	Universe uint8         // Universe - Art-Net universe.
}

// NewAddress builds the Art-Net port address of a net/subnet/universe triple.
func NewAddress(net, subNet, universe uint8) artnet.Address {
	return artnet.Address{
		Net:    net,
		SubUni: subNet<<4 | universe&0x0f,
	}
}
