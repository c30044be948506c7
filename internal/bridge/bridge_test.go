package bridge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"artnet2fshdr/internal/artnet"
	"artnet2fshdr/internal/config"
	"artnet2fshdr/internal/detector"
	"artnet2fshdr/internal/logger"
	"artnet2fshdr/internal/schema"
)

type fakeSink struct {
	name string
	err  error
	got  chan Request
}

func newFakeSink(name string, err error) *fakeSink {
	return &fakeSink{name: name, err: err, got: make(chan Request, 64)}
}

func (f *fakeSink) Name() string { return f.name }

func (f *fakeSink) Send(_ context.Context, req Request) error {
	f.got <- req
	return f.err
}

type recordingSink struct {
	mu   sync.Mutex
	reqs []Request
}

func (r *recordingSink) Name() string { return "device" }

func (r *recordingSink) Send(_ context.Context, req Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reqs = append(r.reqs, req)
	return nil
}

func (r *recordingSink) sent() []Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Request, len(r.reqs))
	copy(out, r.reqs)
	return out
}

type countingObserver struct {
	mu      sync.Mutex
	frames  int
	deltas  int
	misses  int
	sent    int
	failed  int
	dropped int
}

func (o *countingObserver) add(field *int, n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	*field += n
}

func (o *countingObserver) FrameReceived()        { o.add(&o.frames, 1) }
func (o *countingObserver) DeltaDetected(n int)   { o.add(&o.deltas, n) }
func (o *countingObserver) SchemaMiss()           { o.add(&o.misses, 1) }
func (o *countingObserver) RequestSent(string)    { o.add(&o.sent, 1) }
func (o *countingObserver) RequestFailed(string)  { o.add(&o.failed, 1) }
func (o *countingObserver) RequestDropped(string) { o.add(&o.dropped, 1) }

func (o *countingObserver) snapshot() (sent, failed int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sent, o.failed
}

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.New([]schema.ChannelDefinition{
		{Index: 1, Name: "Red Gain", ParameterID: "eParamID_TV_Vid1RedGain", Min: 0, Center: 1000, Max: 3000},
		{Index: 5, Name: "Master Lift", ParameterID: "eParamID_TV_Vid1MasterLift", Min: -1000, Center: 0, Max: 1000},
	})
	require.NoError(t, err)
	return s
}

func newTestLogger() (*logger.Log, *test.Hook) {
	l, hook := test.NewNullLogger()
	l.SetLevel(logrus.DebugLevel)
	return logger.New(l), hook
}

func receive(t *testing.T, ch <-chan Request) Request {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("no request received")
		return Request{}
	}
}

func TestDispatch(t *testing.T) {
	log, _ := newTestLogger()
	b := NewBridge(log, testSchema(t), detector.New())

	tests := []struct {
		delta detector.Delta
		want  float64
	}{
		{detector.Delta{Index: 1, Value: 0}, 0},
		{detector.Delta{Index: 1, Value: 127}, 1000},
		{detector.Delta{Index: 1, Value: 255}, 3000},
		{detector.Delta{Index: 5, Value: 0}, -1000},
		{detector.Delta{Index: 5, Value: 127}, 0},
	}

	for _, tt := range tests {
		req, ok := b.Dispatch(tt.delta)
		require.True(t, ok)
		assert.Equal(t, tt.want, req.Value)
		assert.Equal(t, tt.delta.Value, req.Raw)
		assert.Equal(t, tt.delta.Index, req.Channel)
	}

	req, ok := b.Dispatch(detector.Delta{Index: 1, Value: 63})
	require.True(t, ok)
	assert.Equal(t, "eParamID_TV_Vid1RedGain", req.ParameterID)
	assert.Equal(t, "Red Gain", req.Name)
	assert.InDelta(t, 496.06, req.Value, 0.01)

	req, ok = b.Dispatch(detector.Delta{Index: 5, Value: 191})
	require.True(t, ok)
	assert.InDelta(t, 503.94, req.Value, 0.01)
}

func TestDispatchSchemaMissIsSilent(t *testing.T) {
	log, hook := newTestLogger()
	obs := &countingObserver{}
	b := NewBridge(log, testSchema(t), detector.New(), WithObserver(obs))

	_, ok := b.Dispatch(detector.Delta{Index: 300, Value: 10})
	assert.False(t, ok)
	assert.Equal(t, 1, obs.misses)
	assert.Empty(t, hook.AllEntries())
}

func TestDispatchSchemaMissLogging(t *testing.T) {
	log, hook := newTestLogger()
	b := NewBridge(log, testSchema(t), detector.New(), WithSchemaMissLogging(true))

	_, ok := b.Dispatch(detector.Delta{Index: 300, Value: 10})
	assert.False(t, ok)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.DebugLevel, hook.LastEntry().Level)
	assert.Contains(t, hook.LastEntry().Message, "300")
}

func TestHandleFrame(t *testing.T) {
	log, _ := newTestLogger()
	b := NewBridge(log, testSchema(t), detector.New())

	frame := make([]byte, 8)
	frame[5], frame[1], frame[3] = 200, 10, 127

	reqs := b.HandleFrame(frame)
	require.Len(t, reqs, 2, "only mapped channels produce requests")
	assert.Equal(t, 1, reqs[0].Channel)
	assert.Equal(t, 5, reqs[1].Channel)

	assert.Empty(t, b.HandleFrame(frame), "identical frame")

	frame[5] = 127
	reqs = b.HandleFrame(frame)
	require.Len(t, reqs, 1)
	assert.Equal(t, 0.0, reqs[0].Value)
}

func TestBridgeSendsInDeltaOrder(t *testing.T) {
	log, _ := newTestLogger()
	sink := newFakeSink("device", nil)
	obs := &countingObserver{}
	b := NewBridge(log, testSchema(t), detector.New(),
		WithObserver(obs),
		WithSink(sink, QueueConf{Workers: 1, QueueSize: 8, Timeout: time.Second}))

	frames := make(chan artnet.Frame, 1)
	b.Start(context.Background(), frames)
	defer b.Stop()

	frames <- artnet.Frame{Data: []byte{0, 255, 0, 0, 0, 0}}

	first := receive(t, sink.got)
	second := receive(t, sink.got)
	assert.Equal(t, "eParamID_TV_Vid1RedGain", first.ParameterID)
	assert.Equal(t, 3000.0, first.Value)
	assert.Equal(t, "eParamID_TV_Vid1MasterLift", second.ParameterID)
	assert.Equal(t, -1000.0, second.Value)

	assert.Eventually(t, func() bool {
		sent, _ := obs.snapshot()
		return sent == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestBridgeFanOut(t *testing.T) {
	log, _ := newTestLogger()
	device := newFakeSink("device", nil)
	mirror := newFakeSink("mqtt", nil)
	b := NewBridge(log, testSchema(t), detector.New(),
		WithSink(device, QueueConf{Workers: 2, QueueSize: 8}),
		WithSink(mirror, QueueConf{Workers: 1, QueueSize: 8}))

	frames := make(chan artnet.Frame)
	b.Start(context.Background(), frames)
	defer b.Stop()

	frames <- artnet.Frame{Data: []byte{0, 127}}

	assert.Equal(t, 1000.0, receive(t, device.got).Value)
	assert.Equal(t, 1000.0, receive(t, mirror.got).Value)
}

func TestBridgeSendFailureIsLoggedAndBaselineKept(t *testing.T) {
	log, hook := newTestLogger()
	sink := newFakeSink("device", errors.New("connection refused"))
	obs := &countingObserver{}
	d := detector.New()
	b := NewBridge(log, testSchema(t), d,
		WithObserver(obs),
		WithSink(sink, QueueConf{Workers: 1, QueueSize: 8}))

	frames := make(chan artnet.Frame)
	b.Start(context.Background(), frames)

	frames <- artnet.Frame{Data: []byte{0, 63}}
	receive(t, sink.got)

	assert.Eventually(t, func() bool {
		_, failed := obs.snapshot()
		return failed == 1
	}, 2*time.Second, 10*time.Millisecond)
	b.Stop()

	var found bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.ErrorLevel {
			found = true
			assert.Contains(t, e.Message, "eParamID_TV_Vid1RedGain")
			assert.Contains(t, e.Message, "496.063")
			assert.Contains(t, e.Message, "connection refused")
		}
	}
	assert.True(t, found, "failure must be logged")

	assert.Equal(t, uint8(63), d.Snapshot()[1])
	assert.Empty(t, d.DetectChanges([]byte{0, 63}))
}

func TestBridgeDropsWhenQueueFull(t *testing.T) {
	log, hook := newTestLogger()
	sink := newFakeSink("device", nil)
	obs := &countingObserver{}
	b := NewBridge(log, testSchema(t), detector.New(),
		WithObserver(obs),
		WithSink(sink, QueueConf{Workers: 1, QueueSize: 1}))

	// workers are not started, so the second request finds the queue full
	reqs := b.HandleFrame([]byte{0, 10, 0, 0, 0, 20})
	require.Len(t, reqs, 2)
	assert.Equal(t, 1, obs.dropped)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestBridgeStopsWhenFramesClosed(t *testing.T) {
	log, _ := newTestLogger()
	b := NewBridge(log, testSchema(t), detector.New())

	frames := make(chan artnet.Frame)
	b.Start(context.Background(), frames)
	close(frames)

	done := make(chan struct{})
	go func() {
		b.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}

func TestBridgeIssuesInDeltaOrderWithDefaultWorkers(t *testing.T) {
	const rounds = 50

	log, _ := newTestLogger()
	sink := &recordingSink{}
	channels := schema.Default()
	b := NewBridge(log, channels, detector.New(),
		WithSink(sink, QueueConf{
			Workers:   config.Default().Device.Workers,
			QueueSize: rounds * channels.Len(),
		}))

	b.Start(context.Background(), make(chan artnet.Frame))
	defer b.Stop()

	frame := make([]byte, channels.Len())
	for r := 0; r < rounds; r++ {
		for i := range frame {
			frame[i] = uint8(r)
		}
		require.Len(t, b.HandleFrame(frame), channels.Len())
	}

	assert.Eventually(t, func() bool {
		return len(sink.sent()) == rounds*channels.Len()
	}, 2*time.Second, 10*time.Millisecond)

	sent := sink.sent()
	for r := 0; r < rounds; r++ {
		for i := 0; i < channels.Len(); i++ {
			req := sent[r*channels.Len()+i]
			require.Equal(t, i, req.Channel, "round %d", r)
			require.Equal(t, uint8(r), req.Raw, "round %d", r)
		}
	}
}

func TestBridgeKeepsParameterOrderAcrossWorkers(t *testing.T) {
	const rounds = 100

	log, _ := newTestLogger()
	sink := &recordingSink{}
	b := NewBridge(log, testSchema(t), detector.New(),
		WithSink(sink, QueueConf{Workers: 4, QueueSize: 2 * rounds}))

	b.Start(context.Background(), make(chan artnet.Frame))
	defer b.Stop()

	frame := make([]byte, 6)
	for r := 1; r <= rounds; r++ {
		frame[1], frame[5] = uint8(r), uint8(r)
		b.HandleFrame(frame)
	}

	assert.Eventually(t, func() bool {
		return len(sink.sent()) == 2*rounds
	}, 2*time.Second, 10*time.Millisecond)

	last := map[string]uint8{}
	for _, req := range sink.sent() {
		require.Greater(t, req.Raw, last[req.ParameterID], "%s sent out of order", req.ParameterID)
		last[req.ParameterID] = req.Raw
	}
	assert.Equal(t, uint8(rounds), last["eParamID_TV_Vid1RedGain"])
	assert.Equal(t, uint8(rounds), last["eParamID_TV_Vid1MasterLift"])
}

func TestBridgeStopTwice(t *testing.T) {
	log, _ := newTestLogger()
	b := NewBridge(log, testSchema(t), detector.New(),
		WithSink(newFakeSink("device", nil), QueueConf{Workers: 2}))

	b.Start(context.Background(), make(chan artnet.Frame))
	b.Stop()
	assert.NotPanics(t, b.Stop)
}
