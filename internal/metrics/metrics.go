// Package metrics exports bridge activity as Prometheus counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"artnet2fshdr/internal/bridge"
)

// PromObs implements bridge.Observer.
type PromObs struct {
	frames   prometheus.Counter
	deltas   prometheus.Counter
	misses   prometheus.Counter
	sent     *prometheus.CounterVec
	failed   *prometheus.CounterVec
	dropped  *prometheus.CounterVec
	registry prometheus.Gatherer
}

// NewPromObs registers the bridge collectors on reg.
func NewPromObs(reg *prometheus.Registry) *PromObs {
	p := &PromObs{
		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "artnet2fshdr_frames_total",
			Help: "Art-Net frames processed for the configured universe.",
		}),
		deltas: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "artnet2fshdr_channel_changes_total",
			Help: "Channel value changes detected against the baseline.",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "artnet2fshdr_schema_misses_total",
			Help: "Changed channels with no channel definition.",
		}),
		sent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "artnet2fshdr_requests_sent_total",
			Help: "Parameter requests accepted by a sink.",
		}, []string{"sink"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "artnet2fshdr_requests_failed_total",
			Help: "Parameter requests that failed in a sink.",
		}, []string{"sink"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "artnet2fshdr_requests_dropped_total",
			Help: "Parameter requests dropped because the sink queue was full.",
		}, []string{"sink"}),
		registry: reg,
	}

	reg.MustRegister(p.frames, p.deltas, p.misses, p.sent, p.failed, p.dropped)
	return p
}

// Gatherer returns the registry the collectors live in.
func (p *PromObs) Gatherer() prometheus.Gatherer {
	return p.registry
}

func (p *PromObs) FrameReceived()             { p.frames.Inc() }
func (p *PromObs) DeltaDetected(n int)        { p.deltas.Add(float64(n)) }
func (p *PromObs) SchemaMiss()                { p.misses.Inc() }
func (p *PromObs) RequestSent(sink string)    { p.sent.WithLabelValues(sink).Inc() }
func (p *PromObs) RequestFailed(sink string)  { p.failed.WithLabelValues(sink).Inc() }
func (p *PromObs) RequestDropped(sink string) { p.dropped.WithLabelValues(sink).Inc() }

var _ bridge.Observer = (*PromObs)(nil)
