package interval

import (
	"github.com/samthor/ivrope/reftype"
	"github.com/samthor/ivrope/segtree"
)

// createReference turns a (position, refType, originContext) request into a
// correctly configured PositionReference, per the endpoint factory's core
// algorithm. perspective is nil for an immediate local creation with no
// pending edits of its own; see perspectiveFor for how it's derived from
// origin and the OpInfo/local-edit state the factory was given.
func createReference(
	client segtree.Client,
	pos reftype.Position,
	refType reftype.ReferenceType,
	origin Origin,
	perspective *segtree.Perspective,
	slidingPreference reftype.SlidingPreference,
	canSlideToEndpoint bool,
	useNewSlidingBehavior bool,
	initialProps map[string]any,
) (*segtree.PositionReference, error) {
	if origin == OriginOp && !refType.Has(reftype.SlideOnRemove) {
		return nil, reftype.NewUsageError("createReference", "op-created references need SlideOnRemove")
	}
	if origin == OriginLocal && refType.Has(reftype.SlideOnRemove) {
		return nil, reftype.NewUsageError("createReference", "local references must not carry SlideOnRemove")
	}

	if pos.IsSentinel() {
		return client.CreateLocalReferencePosition(segtree.SegOff{IsSentinel: true, Sentinel: pos.Sentinel()}, refType, initialProps, slidingPreference, canSlideToEndpoint), nil
	}

	segoff, found := client.GetContainingSegment(pos, perspective)
	if origin == OriginOp && found {
		segoff, found = client.SlideToSegoff(segoff, found, slidingPreference, useNewSlidingBehavior)
	}

	if !found {
		segmentCreationPermitted := origin == OriginOp ||
			(origin == OriginLocal && perspective != nil && perspective.HasLocalSeq) ||
			origin == OriginSnapshot ||
			origin == OriginRollback ||
			refType.Has(reftype.Transient)

		if !segmentCreationPermitted {
			return nil, reftype.NewUsageError("createReference", "non-transient references need segment")
		}
		return client.CreateDetachedLocalReferencePosition(slidingPreference, refType), nil
	}

	return client.CreateLocalReferencePosition(segoff, refType, initialProps, slidingPreference, canSlideToEndpoint), nil
}

// perspectiveFor derives the segment-resolution perspective a reference
// creation or modification should resolve positions against, per spec
// §4.1 step 2: an op resolves against what its sender had seen as of
// ReferenceSequenceNumber, a pending local change against the client's own
// unacked-edit timeline. Snapshot/rollback/transient origins, and a local
// change with no pending edits of its own, resolve against the live
// sequence (nil).
func perspectiveFor(client segtree.Client, origin Origin, op *OpInfo) *segtree.Perspective {
	switch origin {
	case OriginOp:
		if op != nil {
			return &segtree.Perspective{HasRefSeq: true, ReferenceSeq: op.ReferenceSequenceNumber, ClientID: op.ClientID}
		}
	case OriginLocal:
		if ls := client.GetLocalSeq(); ls > 0 {
			return &segtree.Perspective{HasLocalSeq: true, LocalSeq: ls}
		}
	}
	return nil
}
