// Package scaling converts raw DMX bytes into device parameter values.
package scaling

import (
	"math"
	"strconv"

	"artnet2fshdr/internal/schema"
)

// Midpoint is the raw DMX value that maps to a channel's center.
const Midpoint = 127

// Scale maps raw onto [d.Min, d.Max] in two linear segments that meet at
// d.Center for raw == Midpoint. The upper segment reaches d.Max one step
// before 255 and stays there.
func Scale(d schema.ChannelDefinition, raw uint8) float64 {
	switch {
	case raw == Midpoint:
		return d.Center
	case raw < Midpoint:
		percentage := float64(raw) / Midpoint
		return d.Min + (d.Center-d.Min)*percentage
	default:
		percentage := math.Min(float64(raw-Midpoint)/Midpoint, 1)
		if percentage == 1 {
			return d.Max
		}
		return d.Center + (d.Max-d.Center)*percentage
	}
}

// FormatValue renders a scaled value for the query string: decimal, at most
// three fractional digits, no trailing zeros.
func FormatValue(v float64) string {
	r := math.Round(v*1000) / 1000
	if r == 0 {
		// avoid "-0"
		r = 0
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}
