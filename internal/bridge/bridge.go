// Package bridge turns changed DMX channels into parameter-set requests and
// fans them out to the configured sinks.
package bridge

import (
	"context"
	"sync"
	"time"

	"artnet2fshdr/internal/artnet"
	"artnet2fshdr/internal/detector"
	"artnet2fshdr/internal/logger"
	"artnet2fshdr/internal/scaling"
	"artnet2fshdr/internal/schema"
)

// QueueConf sizes the outbound queue of one sink.
type QueueConf struct {
	Workers   int           // Workers - параллельные отправки, 1 - строго по порядку каналов.
	QueueSize int           // QueueSize - длина буфера каждого обработчика.
	Timeout   time.Duration // Timeout - таймаут одного запроса, 0 - без таймаута.
}

// Bridge detects channel changes and dispatches scaled values.
type Bridge struct {
	log      logger.Logger
	schema   *schema.Schema
	detector *detector.Detector
	observer Observer
	logMiss  bool
	queues   []*queue

	ctx      context.Context
	cancel   context.CancelFunc
	loopWg   sync.WaitGroup
	sendWg   sync.WaitGroup
	stopOnce sync.Once
}

// Option configures a Bridge.
type Option func(b *Bridge)

// WithObserver sets the activity observer.
func WithObserver(o Observer) Option {
	return func(b *Bridge) {
		if o != nil {
			b.observer = o
		}
	}
}

// WithSchemaMissLogging logs unmapped channels at debug level.
func WithSchemaMissLogging(enabled bool) Option {
	return func(b *Bridge) {
		b.logMiss = enabled
	}
}

// WithSink adds a destination with its own queue.
func WithSink(s Sink, cfg QueueConf) Option {
	return func(b *Bridge) {
		b.queues = append(b.queues, newQueue(s, cfg))
	}
}

// NewBridge конструктор.
func NewBridge(log logger.Logger, s *schema.Schema, d *detector.Detector, opts ...Option) *Bridge {
	b := &Bridge{
		log:      log,
		schema:   s,
		detector: d,
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Dispatch converts one delta into a request. It reports false for channels
// the schema does not map.
func (b *Bridge) Dispatch(delta detector.Delta) (Request, bool) {
	def, ok := b.schema.Lookup(delta.Index)
	if !ok {
		b.observer.SchemaMiss()
		if b.logMiss {
			b.log.With(logger.Fields{"module": "bridge"}).Debugf("channel %d=%d is not mapped", delta.Index, delta.Value)
		}
		return Request{}, false
	}

	return Request{
		Channel:     def.Index,
		Name:        def.Name,
		ParameterID: def.ParameterID,
		Raw:         delta.Value,
		Value:       scaling.Scale(def, delta.Value),
	}, true
}

// HandleFrame runs change detection on frame and enqueues a request per
// mapped change, in channel order. It never waits on the network.
func (b *Bridge) HandleFrame(frame []byte) []Request {
	b.observer.FrameReceived()

	deltas := b.detector.DetectChanges(frame)
	if len(deltas) == 0 {
		return nil
	}
	b.observer.DeltaDetected(len(deltas))

	var reqs []Request
	for _, d := range deltas {
		req, ok := b.Dispatch(d)
		if !ok {
			continue
		}
		reqs = append(reqs, req)
		for _, q := range b.queues {
			if !q.enqueue(req) {
				b.observer.RequestDropped(q.sink.Name())
				b.log.With(logger.Fields{"module": "bridge", "sink": q.sink.Name()}).
					Warnf("queue full, dropped %s=%s", req.ParameterID, scaling.FormatValue(req.Value))
			}
		}
	}
	return reqs
}

// Start consumes frames in arrival order until ctx is done or frames is
// closed, and starts the sink workers.
func (b *Bridge) Start(ctx context.Context, frames <-chan artnet.Frame) {
	b.ctx, b.cancel = context.WithCancel(ctx)

	for _, q := range b.queues {
		for _, lane := range q.lanes {
			b.sendWg.Add(1)
			go b.sendBackground(q, lane)
		}
	}

	b.loopWg.Add(1)
	go b.dataProcessing(frames)
}

// Stop aborts in-flight requests and waits for all goroutines to exit.
// Only the first call has an effect.
func (b *Bridge) Stop() {
	if b.cancel == nil {
		return
	}
	b.stopOnce.Do(func() {
		b.cancel()
		b.loopWg.Wait()
		for _, q := range b.queues {
			q.close()
		}
		b.sendWg.Wait()
	})
}

func (b *Bridge) dataProcessing(frames <-chan artnet.Frame) {
	defer b.loopWg.Done()
	for {
		select {
		case <-b.ctx.Done():
			return
		case f, ok := <-frames:
			if !ok {
				return
			}
			b.HandleFrame(f.Data)
		}
	}
}

func (b *Bridge) sendBackground(q *queue, lane <-chan Request) {
	defer b.sendWg.Done()
	log := b.log.With(logger.Fields{"module": "bridge", "sink": q.sink.Name()})

	for req := range lane {
		if b.ctx.Err() != nil {
			continue
		}

		err := q.send(b.ctx, req)
		switch {
		case err == nil:
			b.observer.RequestSent(q.sink.Name())
		case b.ctx.Err() != nil:
			// shutting down
		default:
			b.observer.RequestFailed(q.sink.Name())
			log.Errorf("channel %d: set %s=%s failed: %v",
				req.Channel, req.ParameterID, scaling.FormatValue(req.Value), err)
		}
	}
}
