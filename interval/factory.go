package interval

import (
	"github.com/google/uuid"

	"github.com/samthor/ivrope/reftype"
	"github.com/samthor/ivrope/segtree"
)

// EndpointFactory builds correctly configured PositionReferences and, from
// them, Intervals. It holds no state of its own; every input needed to
// reproduce a creation comes from the call site.
type EndpointFactory struct{}

// CreateInterval builds both endpoint references and the Interval wrapping
// them, deriving stickiness and sliding preferences from the requested
// sides per spec §4.1. op carries the remote-op context to resolve
// positions against when origin is OriginOp; it's ignored (and may be nil)
// for every other origin.
func (EndpointFactory) CreateInterval(
	label, id string,
	startPlace, endPlace *reftype.Place,
	client segtree.Client,
	intervalType reftype.IntervalType,
	origin Origin,
	op *OpInfo,
	useNewSlidingBehavior bool,
	props map[string]any,
) (*Interval, error) {
	startPos, startSide := startPlace.Resolve(reftype.Start(), reftype.Before)
	endPos, endSide := endPlace.Resolve(reftype.End(), reftype.Before)

	stickiness := client.ComputeStickinessFromSide(startPos, startSide, endPos, endSide)

	beginRefType := reftype.RangeBegin
	endRefType := reftype.RangeEnd
	switch {
	case intervalType == reftype.IntervalTransient:
		beginRefType = beginRefType.With(reftype.Transient)
		endRefType = endRefType.With(reftype.Transient)
	case origin == OriginOp || origin == OriginSnapshot:
		beginRefType = beginRefType.With(reftype.SlideOnRemove)
		endRefType = endRefType.With(reftype.SlideOnRemove)
	default:
		beginRefType = beginRefType.With(reftype.StayOnRemove)
		endRefType = endRefType.With(reftype.StayOnRemove)
	}

	startSlidingPreference := client.StartReferenceSlidingPreference(stickiness)
	endSlidingPreference := client.EndReferenceSlidingPreference(stickiness)
	canSlideStart := startSlidingPreference == reftype.Backward
	canSlideEnd := endSlidingPreference == reftype.Forward

	labelProps := map[string]any{referenceRangeLabelsKey: []string{label}}
	perspective := perspectiveFor(client, origin, op)

	startPR, err := createReference(client, startPos, beginRefType, origin, perspective, startSlidingPreference, canSlideStart, useNewSlidingBehavior, labelProps)
	if err != nil {
		return nil, err
	}
	endPR, err := createReference(client, endPos, endRefType, origin, perspective, endSlidingPreference, canSlideEnd, useNewSlidingBehavior, labelProps)
	if err != nil {
		return nil, err
	}

	return newInterval(client, id, label, startPR, endPR, intervalType, props, startSide, endSide), nil
}

// CreateTransientInterval builds a never-acked interval whose endpoints
// detach instead of sliding when their segments are removed.
func (EndpointFactory) CreateTransientInterval(start, end reftype.Position, client segtree.Client) (*Interval, error) {
	f := EndpointFactory{}
	startPlace := reftype.NewPlace(start, reftype.Before)
	endPlace := reftype.NewPlace(end, reftype.Before)
	return f.CreateInterval("", uuid.NewString(), &startPlace, &endPlace, client, reftype.IntervalTransient, OriginTransient, nil, false, nil)
}
