package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"artnet2fshdr/internal/artnet"
	"artnet2fshdr/internal/bridge"
	"artnet2fshdr/internal/clientmqtt"
	"artnet2fshdr/internal/config"
	"artnet2fshdr/internal/detector"
	"artnet2fshdr/internal/device"
	"artnet2fshdr/internal/httpapi"
	"artnet2fshdr/internal/liveedit"
	"artnet2fshdr/internal/logger"
	"artnet2fshdr/internal/metrics"
	"artnet2fshdr/internal/schema"
)

var (
	configFile string
	emitRandom bool
	subNet     uint
	universe   uint
	netID      uint
)

func init() {
	flag.StringVar(&configFile, "config", "configs/conf.toml", "Path to configuration file")
	flag.BoolVar(&emitRandom, "emitRandom", false, "Emit random Art-Net data")
	flag.UintVar(&subNet, "subNet", 0, "Art-Net subnet")
	flag.UintVar(&universe, "universe", 0, "Art-Net universe")
	flag.UintVar(&netID, "net", 0, "Art-Net net")
}

func main() {
	flag.Parse()
	cfg, err := config.NewConfig(configFile)
	if err != nil {
		fmt.Printf("configuration file read error: %v\n", err)
		os.Exit(1)
	}
	if err = applyFlags(cfg); err != nil {
		fmt.Printf("invalid flags: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		fmt.Printf("failed to create a logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.With(logger.Fields{"module": "logger"}).Debug("newLogger created ok")

	channels, err := cfg.LoadSchema()
	if err != nil {
		log.With(logger.Fields{"module": "schema"}).Errorf("invalid channel table: %v", err)
		os.Exit(1)
	}
	printChannels(log, channels)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer cancel()

	if cfg.LiveEdit.URL != "" {
		le := liveedit.NewClient(log, cfg.LiveEdit.URL, cfg.LiveEdit.Timeout.Duration)
		if _, err = le.FetchData(ctx); err != nil {
			log.With(logger.Fields{"module": "liveedit"}).Errorf("%v", err)
			os.Exit(1)
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	obs := metrics.NewPromObs(reg)

	fsHDR := device.NewClient(log, device.Conf{
		Host:    cfg.Device.Host,
		Port:    cfg.Device.Port,
		Timeout: cfg.Device.Timeout.Duration,
	})
	log.With(logger.Fields{"module": "device"}).Debug("NewClient created ok")

	opts := []bridge.Option{
		bridge.WithObserver(obs),
		bridge.WithSchemaMissLogging(cfg.Dispatch.LogSchemaMiss),
		bridge.WithSink(fsHDR, bridge.QueueConf{
			Workers:   cfg.Device.Workers,
			QueueSize: cfg.Device.QueueSize,
			Timeout:   cfg.Device.Timeout.Duration,
		}),
	}

	var mirror *clientmqtt.ClientMQTT
	if cfg.MQTT.Enabled {
		mirror = clientmqtt.NewClient(log, ConvertConfigClientMQTT(cfg.MQTT))
		if err = mirror.Start(ctx); err != nil {
			log.With(logger.Fields{"module": "mqtt"}).Errorf("failed to start MQTT service: %v", err)
			os.Exit(1)
		}
		opts = append(opts, bridge.WithSink(mirror, bridge.QueueConf{
			Workers:   1,
			QueueSize: cfg.Device.QueueSize,
			Timeout:   cfg.Device.Timeout.Duration,
		}))
	}

	baseline := detector.New()
	b := bridge.NewBridge(log, channels, baseline, opts...)

	receiver, err := artnet.NewReceiver(log, artnet.ReceiverConf{
		Listen:   cfg.ArtNet.Listen,
		Network:  cfg.ArtNet.Network,
		Port:     cfg.ArtNet.Port,
		Net:      cfg.ArtNet.Net,
		SubNet:   cfg.ArtNet.SubNet,
		Universe: cfg.ArtNet.Universe,
	})
	if err != nil {
		log.With(logger.Fields{"module": "art-net"}).Errorf("error while creating a new receiver art-net. %v", err)
		os.Exit(1)
	}
	log.With(logger.Fields{"module": "art-net"}).Debug("NewReceiver created ok")

	// Канал для передачи кадров DMX.
	frames := make(chan artnet.Frame, 10)

	b.Start(ctx, frames)

	if err = receiver.Start(ctx, frames); err != nil {
		log.Error("failed to start art-net service:", err.Error())
		cancel()
	}

	var emitter *artnet.Emitter
	if cfg.ArtNet.EmitRandom {
		emitter = artnet.NewEmitter(log, artnet.EmitterConf{
			Target:   cfg.ArtNet.EmitTarget,
			Interval: cfg.ArtNet.EmitInterval.Duration,
			Channels: cfg.ArtNet.EmitChannels,
			Net:      cfg.ArtNet.Net,
			SubNet:   cfg.ArtNet.SubNet,
			Universe: cfg.ArtNet.Universe,
		})
		if err = emitter.Start(ctx); err != nil {
			log.Error("failed to start random emitter:", err.Error())
			cancel()
		}
	}

	var status *httpapi.Server
	if cfg.Metrics.Addr != "" {
		status = httpapi.NewServer(log, cfg.Metrics.Addr, channels, baseline, obs.Gatherer())
		status.Start()
	}

	log.Info("Running...")
	<-ctx.Done()

	if emitter != nil {
		emitter.Stop()
	}
	receiver.Stop()
	b.Stop()

	if mirror != nil {
		if err := mirror.Stop(); err != nil {
			log.Error("failed to stop MQTT service:", err.Error())
		}
	}

	if status != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := status.Stop(shutdownCtx); err != nil {
			log.Error("failed to stop status server:", err.Error())
		}
		shutdownCancel()
	}

	close(frames)

	log.Info("shutdown complete")
}

// applyFlags переносит явно заданные флаги командной строки в конфигурацию.
func applyFlags(cfg *config.Config) error {
	if subNet > 15 || universe > 15 || netID > 127 {
		return fmt.Errorf("address out of range: net=%d subNet=%d universe=%d", netID, subNet, universe)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "emitRandom":
			cfg.ArtNet.EmitRandom = emitRandom
		case "subNet":
			cfg.ArtNet.SubNet = uint8(subNet)
		case "universe":
			cfg.ArtNet.Universe = uint8(universe)
		case "net":
			cfg.ArtNet.Net = uint8(netID)
		}
	})
	return cfg.Validate()
}

// ConvertConfigClientMQTT преобразует структуры.
func ConvertConfigClientMQTT(cfg config.MQTTConf) clientmqtt.MQTTConf {
	return clientmqtt.MQTTConf{
		ClientID:    cfg.ClientID,
		Schema:      "tcp",
		Host:        cfg.Host,
		Port:        cfg.Port,
		User:        cfg.User,
		Password:    cfg.Password,
		Qos:         cfg.Qos,
		TopicPrefix: cfg.TopicPrefix,
	}
}

func printChannels(log *logger.Log, s *schema.Schema) {
	l := log.With(logger.Fields{"module": "schema"})
	l.Debug("Channels")
	for _, ch := range s.Definitions() {
		l.Debugf("%3d %-14s %8v %8v %8v %s", ch.Index, ch.Name, ch.Min, ch.Center, ch.Max, ch.ParameterID)
	}
}
