package interval

import (
	"strings"

	"github.com/google/uuid"

	"github.com/samthor/ivrope/reftype"
	"github.com/samthor/ivrope/segtree"
)

const (
	intervalIDKey           = "intervalId"
	referenceRangeLabelsKey = "referenceRangeLabels"
)

// Interval is an immutable-by-convention labeled half-open range anchored to
// two PositionReferences. Every mutation goes through Modify, which returns
// a new value sharing the same id.
type Interval struct {
	client segtree.Client

	id    string
	label string

	start, end         *segtree.PositionReference
	intervalType       reftype.IntervalType
	startSide, endSide reftype.Side

	properties map[string]any
	changes    *propertyChangeManager
}

func newInterval(client segtree.Client, id, label string, start, end *segtree.PositionReference, intervalType reftype.IntervalType, props map[string]any, startSide, endSide reftype.Side) *Interval {
	return &Interval{
		client:       client,
		id:           id,
		label:        label,
		start:        start,
		end:          end,
		intervalType: intervalType,
		startSide:    startSide,
		endSide:      endSide,
		properties:   stripReserved(props),
		changes:      newPropertyChangeManager(),
	}
}

func stripReserved(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		if k == intervalIDKey || k == referenceRangeLabelsKey {
			continue
		}
		out[k] = v
	}
	return out
}

func (i *Interval) GetIntervalId() string { return i.id }
func (i *Interval) Label() string         { return i.label }
func (i *Interval) IntervalType() reftype.IntervalType { return i.intervalType }
func (i *Interval) StartSide() reftype.Side { return i.startSide }
func (i *Interval) EndSide() reftype.Side   { return i.endSide }
func (i *Interval) Start() *segtree.PositionReference { return i.start }
func (i *Interval) End() *segtree.PositionReference   { return i.end }

// Stickiness is the derived property from the current endpoint sides, not a
// stored field, recomputed fresh on every call.
func (i *Interval) Stickiness() reftype.Stickiness {
	startPos, endPos := i.endpointPositions()
	return i.client.ComputeStickinessFromSide(startPos, i.startSide, endPos, i.endSide)
}

// endpointPositions resolves each endpoint to a tagged Position: the
// sentinel it anchors to, else its numeric session-space position.
func (i *Interval) endpointPositions() (startPos, endPos reftype.Position) {
	startPos = resolvePosition(i.client, i.start)
	endPos = resolvePosition(i.client, i.end)
	return
}

func resolvePosition(client segtree.Client, pr *segtree.PositionReference) reftype.Position {
	if s, ok := pr.Sentinel(); ok {
		return reftype.AtSentinel(s)
	}
	return reftype.At(int64(client.LocalReferencePositionToPosition(pr)))
}

func (i *Interval) Clone() *Interval {
	return newInterval(i.client, i.id, i.label, i.start, i.end, i.intervalType, i.properties, i.startSide, i.endSide)
}

func (i *Interval) CompareStart(b *Interval) int {
	c := i.client.CompareReferencePositions(i.start, b.start)
	if c != 0 {
		return c
	}
	return reftype.CompareStartSides(i.startSide, b.startSide)
}

func (i *Interval) CompareEnd(b *Interval) int {
	c := i.client.CompareReferencePositions(i.end, b.end)
	if c != 0 {
		return c
	}
	return reftype.CompareEndSides(b.endSide, i.endSide)
}

func (i *Interval) Compare(b *Interval) int {
	if c := i.CompareStart(b); c != 0 {
		return c
	}
	if c := i.CompareEnd(b); c != 0 {
		return c
	}
	return strings.Compare(i.id, b.id)
}

func (i *Interval) Overlaps(b *Interval) bool {
	return i.client.CompareReferencePositions(i.start, b.end) <= 0 &&
		i.client.CompareReferencePositions(i.end, b.start) >= 0
}

// OverlapsPos compares against a raw numeric range, resolving this
// Interval's endpoints to positions first. Inequalities are strict: both
// endpoints are semantically exclusive.
func (i *Interval) OverlapsPos(bStart, bEnd int) bool {
	startPos := i.client.LocalReferencePositionToPosition(i.start)
	endPos := i.client.LocalReferencePositionToPosition(i.end)
	return endPos > bStart && startPos < bEnd
}

// Union returns a fresh interval spanning both inputs. When the two starts
// (or ends) are the literal same PR, the inclusive side wins the tie: Before
// on the left, After on the right.
func (i *Interval) Union(b *Interval) *Interval {
	newStart := i.client.MinReferencePosition(i.start, b.start)
	newEnd := i.client.MaxReferencePosition(i.end, b.end)

	var newStartSide reftype.Side
	switch {
	case i.start == b.start:
		if i.startSide == reftype.Before || b.startSide == reftype.Before {
			newStartSide = reftype.Before
		} else {
			newStartSide = reftype.After
		}
	case newStart == i.start:
		newStartSide = i.startSide
	default:
		newStartSide = b.startSide
	}

	var newEndSide reftype.Side
	switch {
	case i.end == b.end:
		if i.endSide == reftype.After || b.endSide == reftype.After {
			newEndSide = reftype.After
		} else {
			newEndSide = reftype.Before
		}
	case newEnd == i.end:
		newEndSide = i.endSide
	default:
		newEndSide = b.endSide
	}

	return newInterval(i.client, uuid.NewString(), i.label, newStart, newEnd, i.intervalType, nil, newStartSide, newEndSide)
}

// AddPositionChangeListeners wires before/after into each PR's slide
// callbacks. Idempotent: a second subscription attempt while one is already
// active is a no-op, matching the "exactly one listener pair" invariant.
func (i *Interval) AddPositionChangeListeners(before, after func(pr *segtree.PositionReference)) {
	i.start.SetCallbacks(before, after)
	i.end.SetCallbacks(before, after)
}

func (i *Interval) RemovePositionChangeListeners() {
	i.start.ClearCallbacks()
	i.end.ClearCallbacks()
}
