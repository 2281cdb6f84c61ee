package interval

import "github.com/samthor/ivrope/reftype"

// Modify returns a new Interval sharing this one's id. Endpoints left nil in
// startPlace/endPlace are not recreated: their existing PR carries forward
// unchanged, but its current side still participates in the stickiness
// recomputation, since the segment it anchors to may itself have slid since
// this Interval was created.
func (i *Interval) Modify(label string, startPlace, endPlace *reftype.Place, op *OpInfo, useNewSlidingBehavior bool) (*Interval, error) {
	startPos, startSide := startPlace.Resolve(resolvePosition(i.client, i.start), i.startSide)
	endPos, endSide := endPlace.Resolve(resolvePosition(i.client, i.end), i.endSide)

	stickiness := i.client.ComputeStickinessFromSide(startPos, startSide, endPos, endSide)
	startSlidingPreference := i.client.StartReferenceSlidingPreference(stickiness)
	endSlidingPreference := i.client.EndReferenceSlidingPreference(stickiness)
	canSlideStart := startSlidingPreference == reftype.Backward
	canSlideEnd := endSlidingPreference == reftype.Forward

	newStart, newEnd := i.start, i.end

	if startPlace != nil {
		refType, origin := replacementRefType(i.start.RefType(), op)
		perspective := perspectiveFor(i.client, origin, op)
		pr, err := createReference(i.client, startPos, refType, origin, perspective, startSlidingPreference, canSlideStart, useNewSlidingBehavior, i.start.Properties())
		if err != nil {
			return nil, err
		}
		newStart = pr
	}
	if endPlace != nil {
		refType, origin := replacementRefType(i.end.RefType(), op)
		perspective := perspectiveFor(i.client, origin, op)
		pr, err := createReference(i.client, endPos, refType, origin, perspective, endSlidingPreference, canSlideEnd, useNewSlidingBehavior, i.end.Properties())
		if err != nil {
			return nil, err
		}
		newEnd = pr
	}

	out := newInterval(i.client, i.id, label, newStart, newEnd, i.intervalType, i.properties, startSide, endSide)
	out.changes = i.changes
	return out, nil
}

// replacementRefType decides the flags a modify-created replacement PR
// carries: a local-only modification (no op) always yields a pending
// (StayOnRemove) endpoint; anything carrying an op keeps whatever the
// original endpoint already had.
func replacementRefType(existing reftype.ReferenceType, op *OpInfo) (reftype.ReferenceType, Origin) {
	if op == nil {
		return existing.Without(reftype.SlideOnRemove).With(reftype.StayOnRemove), OriginLocal
	}
	return existing, OriginOp
}
