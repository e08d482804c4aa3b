package domain

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // zone data for hosts without a system tz database
)

// Layouts of the upstream local timestamps. Month, day and hour may carry a
// leading zero or not.
const (
	OutageLayout     = "1/2/2006 3:04 PM"
	GenerationLayout = "1/2/2006 3:04:05 PM"
)

// DefaultTimezone is the zone both upstreams report local time in.
const DefaultTimezone = "America/Puerto_Rico"

// probeWindow brackets a wall time so offsets on both sides of a nearby
// transition are considered.
const probeWindow = 24 * 60 * 60

// TimeResolver maps naive local timestamps to Unix epochs in one zone.
type TimeResolver struct {
	loc *time.Location
}

// NewTimeResolver creates a resolver for loc.
func NewTimeResolver(loc *time.Location) *TimeResolver {
	return &TimeResolver{loc: loc}
}

// LoadTimeResolver creates a resolver for an IANA zone name.
func LoadTimeResolver(name string) (*TimeResolver, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return NewTimeResolver(loc), nil
}

// Location returns the zone the resolver interprets timestamps in.
func (r *TimeResolver) Location() *time.Location {
	return r.loc
}

// Resolve parses text with layout as wall-clock time in the resolver's zone
// and returns whole Unix seconds. A wall time that maps to no instant (DST
// gap) or to two instants (DST overlap) is an error.
func (r *TimeResolver) Resolve(text, layout string) (int64, error) {
	naive, err := time.Parse(layout, strings.TrimSpace(text))
	if err != nil {
		return 0, fmt.Errorf("%w: parse %q: %v", ErrTimeResolution, text, err)
	}

	candidates := r.candidates(naive.Unix())
	switch len(candidates) {
	case 1:
		return candidates[0], nil
	case 0:
		return 0, fmt.Errorf("%w: %q does not exist in %s", ErrTimeResolution, text, r.loc)
	default:
		return 0, fmt.Errorf("%w: %q is ambiguous in %s", ErrTimeResolution, text, r.loc)
	}
}

// candidates returns every instant whose wall clock in r.loc equals wall,
// where wall is the naive time expressed as seconds since the epoch.
func (r *TimeResolver) candidates(wall int64) []int64 {
	var out []int64
	seen := make(map[int]bool, 2)
	for _, probe := range []int64{wall - probeWindow, wall, wall + probeWindow} {
		_, offset := time.Unix(probe, 0).In(r.loc).Zone()
		if seen[offset] {
			continue
		}
		seen[offset] = true

		instant := wall - int64(offset)
		if _, got := time.Unix(instant, 0).In(r.loc).Zone(); got == offset {
			out = append(out, instant)
		}
	}
	return out
}
