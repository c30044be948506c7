// Package detector tracks the last value seen on every DMX channel and
// reports which channels changed in a new frame.
package detector

import "sync"

// Delta is a channel whose raw value differs from the baseline.
type Delta struct {
	Index int   // Index - номер канала.
	Value uint8 // Value - новое значение (0-255).
}

// Detector owns the baseline of last observed channel values.
type Detector struct {
	mu       sync.Mutex
	baseline map[int]uint8
}

// New returns a Detector with an empty baseline.
func New() *Detector {
	return &Detector{baseline: make(map[int]uint8)}
}

// DetectChanges compares frame against the baseline and returns the changed
// channels in ascending index order. Channels beyond len(frame) keep their
// previous baseline value.
func (d *Detector) DetectChanges(frame []byte) []Delta {
	d.mu.Lock()
	defer d.mu.Unlock()

	var deltas []Delta
	for i, v := range frame {
		if old, ok := d.baseline[i]; ok && old == v {
			continue
		}
		d.baseline[i] = v
		deltas = append(deltas, Delta{Index: i, Value: v})
	}
	return deltas
}

// Snapshot returns a copy of the baseline.
func (d *Detector) Snapshot() map[int]uint8 {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make(map[int]uint8, len(d.baseline))
	for k, v := range d.baseline {
		out[k] = v
	}
	return out
}
