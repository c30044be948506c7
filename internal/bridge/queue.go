package bridge

import (
	"context"

	"github.com/cespare/xxhash/v2"
)

// queue holds the outbound requests of one sink. Every worker owns a lane;
// a parameter always lands on the same lane, so updates to it are sent in
// the order they were queued. With a single lane the whole sink is FIFO.
type queue struct {
	sink  Sink
	lanes []chan Request
	conf  QueueConf
}

func newQueue(s Sink, cfg QueueConf) *queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	lanes := make([]chan Request, cfg.Workers)
	for i := range lanes {
		lanes[i] = make(chan Request, cfg.QueueSize)
	}
	return &queue{
		sink:  s,
		lanes: lanes,
		conf:  cfg,
	}
}

// lane returns the lane index for a parameter id.
func (q *queue) lane(paramID string) int {
	if len(q.lanes) == 1 {
		return 0
	}
	return int(xxhash.Sum64String(paramID) % uint64(len(q.lanes)))
}

// enqueue reports false when the request's lane is full.
func (q *queue) enqueue(req Request) bool {
	select {
	case q.lanes[q.lane(req.ParameterID)] <- req:
		return true
	default:
		return false
	}
}

func (q *queue) close() {
	for _, ch := range q.lanes {
		close(ch)
	}
}

func (q *queue) send(ctx context.Context, req Request) error {
	if q.conf.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.conf.Timeout)
		defer cancel()
	}
	return q.sink.Send(ctx, req)
}
