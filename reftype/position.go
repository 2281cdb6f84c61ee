package reftype

import "fmt"

// Position is the tagged union `number | "start" | "end"` from the spec:
// either a non-negative numeric index into the sequence, or one of the
// sentinels denoting the position immediately before/after it.
type Position struct {
	sentinel   Sentinel
	isSentinel bool
	value      int64
}

// At returns a numeric Position.
func At(value int64) Position {
	return Position{value: value}
}

// AtSentinel returns a sentinel Position ("start" or "end").
func AtSentinel(s Sentinel) Position {
	return Position{sentinel: s, isSentinel: true}
}

// Start is shorthand for AtSentinel(SentinelStart).
func Start() Position { return AtSentinel(SentinelStart) }

// End is shorthand for AtSentinel(SentinelEnd).
func End() Position { return AtSentinel(SentinelEnd) }

func (p Position) IsSentinel() bool { return p.isSentinel }

// Sentinel panics if !IsSentinel(); callers are expected to branch on IsSentinel first.
func (p Position) Sentinel() Sentinel {
	if !p.isSentinel {
		panic("Position is not a sentinel")
	}
	return p.sentinel
}

// Value panics if IsSentinel(); callers are expected to branch on IsSentinel first.
func (p Position) Value() int64 {
	if p.isSentinel {
		panic("Position is a sentinel")
	}
	return p.value
}

func (p Position) String() string {
	if p.isSentinel {
		return p.sentinel.String()
	}
	return fmt.Sprintf("%d", p.value)
}
