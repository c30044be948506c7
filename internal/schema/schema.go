// Package schema holds the static channel table that maps DMX channels to
// FS-HDR parameters.
package schema

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// MaxChannels is the number of DMX channels in one universe.
const MaxChannels = 512

// ErrInvalidDefinition is returned when a channel definition cannot be scaled.
var ErrInvalidDefinition = errors.New("invalid channel definition")

// ChannelDefinition describes one mapped DMX channel.
type ChannelDefinition struct {
	Index       int     `toml:"index" yaml:"index" json:"index"`    // Index - номер канала в кадре (0-511).
	Name        string  `toml:"name" yaml:"name" json:"name"`       // Name - отображаемое имя.
	ParameterID string  `toml:"param" yaml:"param" json:"param"`    // ParameterID - eParamID устройства.
	Min         float64 `toml:"min" yaml:"min" json:"min"`          // Min - значение при 0.
	Center      float64 `toml:"center" yaml:"center" json:"center"` // Center - значение при 127.
	Max         float64 `toml:"max" yaml:"max" json:"max"`          // Max - значение при 255.
}

// Validate checks that the definition forms two ordered scaling segments.
func (d ChannelDefinition) Validate() error {
	if d.Index < 0 || d.Index >= MaxChannels {
		return fmt.Errorf("%w: channel %d out of range 0-%d", ErrInvalidDefinition, d.Index, MaxChannels-1)
	}
	if d.ParameterID == "" {
		return fmt.Errorf("%w: channel %d has no parameter id", ErrInvalidDefinition, d.Index)
	}
	for _, v := range []float64{d.Min, d.Center, d.Max} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: channel %d (%s) has a non-finite bound", ErrInvalidDefinition, d.Index, d.ParameterID)
		}
	}
	if d.Min > d.Center || d.Center > d.Max {
		return fmt.Errorf("%w: channel %d (%s) requires min <= center <= max, got %v/%v/%v",
			ErrInvalidDefinition, d.Index, d.ParameterID, d.Min, d.Center, d.Max)
	}
	return nil
}

// Schema is an immutable, index-addressed channel table.
type Schema struct {
	defs    []ChannelDefinition
	byIndex map[int]ChannelDefinition
}

// New validates defs and builds a Schema. The input slice is copied.
func New(defs []ChannelDefinition) (*Schema, error) {
	s := &Schema{
		defs:    make([]ChannelDefinition, 0, len(defs)),
		byIndex: make(map[int]ChannelDefinition, len(defs)),
	}
	for _, d := range defs {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if prev, ok := s.byIndex[d.Index]; ok {
			return nil, fmt.Errorf("%w: channel %d assigned to both %s and %s",
				ErrInvalidDefinition, d.Index, prev.ParameterID, d.ParameterID)
		}
		s.byIndex[d.Index] = d
		s.defs = append(s.defs, d)
	}
	sort.Slice(s.defs, func(i, j int) bool { return s.defs[i].Index < s.defs[j].Index })
	return s, nil
}

// Lookup returns the definition for a channel. A miss is the normal signal to
// skip the channel.
func (s *Schema) Lookup(index int) (ChannelDefinition, bool) {
	d, ok := s.byIndex[index]
	return d, ok
}

// Definitions returns a copy of the table ordered by channel index.
func (s *Schema) Definitions() []ChannelDefinition {
	out := make([]ChannelDefinition, len(s.defs))
	copy(out, s.defs)
	return out
}

// Len returns the number of mapped channels.
func (s *Schema) Len() int {
	return len(s.defs)
}
