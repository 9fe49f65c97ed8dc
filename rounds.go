package passhash

import (
	"fmt"
	"math"
	"math/rand"
)

// CostShape describes how a scheme's rounds parameter scales its work.
type CostShape int

const (
	// CostLinear means cost is proportional to the rounds value.
	CostLinear CostShape = iota
	// CostLog2 means the rounds value is the base-2 logarithm of the
	// iteration count, as bcrypt uses.
	CostLog2
)

// RoundsPolicy bounds and normalizes a scheme's cost parameter. The hard
// range (Min..Max) gates what the scheme will accept at all; the desired
// range (MinDesired..MaxDesired, defaulting to the hard range) drives
// NeedsUpdate without failing old hashes.
type RoundsPolicy struct {
	Min     int
	Max     int
	Default int
	Shape   CostShape

	// MinDesired and MaxDesired narrow the range considered current.
	// Zero means "use the hard bound".
	MinDesired int
	MaxDesired int
}

// Validate returns ErrInvalidSetting when rounds falls outside the hard range.
func (p RoundsPolicy) Validate(rounds int) error {
	if rounds < p.Min || rounds > p.Max {
		return fmt.Errorf("%w: rounds %d outside range %d..%d",
			ErrInvalidSetting, rounds, p.Min, p.Max)
	}
	return nil
}

// Clip forces rounds into the hard range, reporting whether it moved.
// Used only in relaxed mode; strict paths call Validate instead.
func (p RoundsPolicy) Clip(rounds int) (int, bool) {
	switch {
	case rounds < p.Min:
		return p.Min, true
	case rounds > p.Max:
		return p.Max, true
	}
	return rounds, false
}

func (p RoundsPolicy) desired() (lo, hi int) {
	lo, hi = p.Min, p.Max
	if p.MinDesired != 0 {
		lo = p.MinDesired
	}
	if p.MaxDesired != 0 {
		hi = p.MaxDesired
	}
	return lo, hi
}

// NeedsUpdate reports whether a stored rounds value falls outside the
// currently desired range. Such hashes still verify; callers rehash them
// opportunistically.
func (p RoundsPolicy) NeedsUpdate(rounds int) bool {
	lo, hi := p.desired()
	return rounds < lo || rounds > hi
}

// VarySpec requests random jitter around the default rounds value when
// generating hashes, to spread the cost of mass rehashing. Exactly one of
// Amount or Percent should be set.
type VarySpec struct {
	// Amount jitters by an absolute rounds count.
	Amount int
	// Percent jitters by a fraction of the effective iteration count,
	// 0 < Percent <= 1. For log2 cost a fraction below 0.5 cannot move the
	// value at all (less than one full step) and exactly 0.5 moves it by
	// exactly one step.
	Percent float64
}

// Vary returns a rounds value jittered around Default per spec, clipped to
// the hard range. Linear cost jitters symmetrically; log2 cost jitters
// downward only, since stepping up doubles the work.
func (p RoundsPolicy) Vary(spec VarySpec) int {
	delta := spec.Amount
	if spec.Percent > 0 {
		if p.Shape == CostLog2 {
			if spec.Percent >= 1 {
				delta = p.Default - p.Min
			} else {
				delta = int(math.Log2(1 / (1 - spec.Percent)))
			}
		} else {
			delta = int(spec.Percent * float64(p.Default))
		}
	}
	if delta <= 0 {
		return p.Default
	}
	lo := p.Default - delta
	hi := p.Default
	if p.Shape == CostLinear {
		hi = p.Default + delta
	}
	if lo < p.Min {
		lo = p.Min
	}
	if hi > p.Max {
		hi = p.Max
	}
	if hi <= lo {
		return lo
	}
	return lo + rand.Intn(hi-lo+1)
}
