// Package reftype holds the small value types shared by the interval core
// and its merge-tree collaborator: sides, sliding preferences, the
// reference-type bitset, stickiness, interval types, and tagged positions.
package reftype

// Side indicates which side of a character position an endpoint logically sits at.
type Side int

const (
	Before Side = iota
	After
)

func (s Side) String() string {
	if s == After {
		return "After"
	}
	return "Before"
}

// SlidingPreference is the direction a reference slides when its anchoring segment is removed.
type SlidingPreference int

const (
	Forward SlidingPreference = iota
	Backward
)

func (p SlidingPreference) String() string {
	if p == Backward {
		return "Backward"
	}
	return "Forward"
}

// ReferenceType is a bitset of flags carried by a PositionReference.
// SlideOnRemove and StayOnRemove are mutually exclusive at any moment; that
// invariant is enforced by the construction-site code paths in this module,
// not by the type itself (see DESIGN.md).
type ReferenceType uint

const (
	RangeBegin ReferenceType = 1 << iota
	RangeEnd
	SlideOnRemove
	StayOnRemove
	Transient
)

func (r ReferenceType) Has(flag ReferenceType) bool {
	return r&flag != 0
}

func (r ReferenceType) With(flag ReferenceType) ReferenceType {
	return r | flag
}

func (r ReferenceType) Without(flag ReferenceType) ReferenceType {
	return r &^ flag
}

// Stickiness indicates whether an interval's start, end, both, or neither
// "sticks" to content inserted exactly at that boundary.
type Stickiness int

const (
	StickinessNone Stickiness = iota
	StickinessStart
	StickinessEnd
	StickinessFull
)

func (s Stickiness) String() string {
	switch s {
	case StickinessStart:
		return "Start"
	case StickinessEnd:
		return "End"
	case StickinessFull:
		return "Full"
	default:
		return "None"
	}
}

// IntervalType distinguishes transient intervals (never acked, never slide)
// from the persistent kind. Nest and Simple are legacy tags: every
// non-transient interval in this core behaves as SlideOnRemove once acked.
type IntervalType int

const (
	IntervalTransient     IntervalType = iota // never acked, endpoints detach instead of sliding
	IntervalSlideOnRemove                     // the only kind created going forward
	IntervalNest                              // legacy
	IntervalSimple                            // legacy
)

func (t IntervalType) String() string {
	switch t {
	case IntervalTransient:
		return "Transient"
	case IntervalSlideOnRemove:
		return "SlideOnRemove"
	case IntervalNest:
		return "Nest"
	default:
		return "Simple"
	}
}

// Sentinel names the two virtual positions outside the sequence proper.
type Sentinel int

const (
	SentinelStart Sentinel = iota
	SentinelEnd
)

func (s Sentinel) String() string {
	if s == SentinelEnd {
		return "end"
	}
	return "start"
}
