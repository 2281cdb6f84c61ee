package segtree

import "github.com/samthor/ivrope/reftype"

// PositionReference is this collaborator's concrete PR: an anchor on a live
// segment+offset, on a sequence-boundary sentinel, or detached (no segment
// has ever resolved for it, or it is Transient and its segment was removed).
type PositionReference struct {
	client *client

	refType            reftype.ReferenceType
	slidingPreference  reftype.SlidingPreference
	canSlideToEndpoint bool
	properties         map[string]any

	before, after func(pr *PositionReference)

	node       *segNode
	offset     int
	atSentinel bool
	sentinel   reftype.Sentinel
	detached   bool
}

func (pr *PositionReference) RefType() reftype.ReferenceType       { return pr.refType }
func (pr *PositionReference) SlidingPreference() reftype.SlidingPreference { return pr.slidingPreference }
func (pr *PositionReference) CanSlideToEndpoint() bool             { return pr.canSlideToEndpoint }

// GetSegment returns the segment this reference is anchored to, and false
// when it is anchored to a sequence-boundary sentinel or is detached.
func (pr *PositionReference) GetSegment() (Segment, bool) {
	if pr.atSentinel || pr.detached {
		return Segment{}, false
	}
	return Segment{node: pr.node}, true
}

// Sentinel reports the sequence boundary this reference anchors to, if any.
func (pr *PositionReference) Sentinel() (reftype.Sentinel, bool) {
	if !pr.atSentinel {
		return 0, false
	}
	return pr.sentinel, true
}

// IsDetached reports whether this reference is anchored to neither a segment
// nor a sentinel: it never resolved a segment, or it is Transient and its
// segment was removed.
func (pr *PositionReference) IsDetached() bool {
	return pr.detached
}

func (pr *PositionReference) Properties() map[string]any {
	return pr.properties
}

func (pr *PositionReference) SetProperties(props map[string]any) {
	pr.properties = cloneProps(props)
}

// SetCallbacks wires the slide hooks. Idempotent on re-subscription: a PR
// already carrying a pair rejects a second subscription attempt.
func (pr *PositionReference) SetCallbacks(before, after func(pr *PositionReference)) bool {
	if pr.before != nil || pr.after != nil {
		return false
	}
	pr.before, pr.after = before, after
	return true
}

func (pr *PositionReference) ClearCallbacks() {
	pr.before, pr.after = nil, nil
}

// SetRefType overwrites the reference's flags.
func (pr *PositionReference) SetRefType(refType reftype.ReferenceType) {
	pr.refType = refType
}

// slideAwayFrom reassigns every reference attached to a node that the chain
// just removed, generalizing the rope package's iterRef redirect: instead of
// resuming an in-flight scan, a reference detaches if it is Transient and
// otherwise relocates per its SlidingPreference, to a live neighbour or, when
// none is usable, to a sequence-boundary sentinel.
func (c *client) slideAwayFrom(node *segNode) {
	for _, pr := range node.attached {
		if pr.refType.Has(reftype.Transient) {
			pr.detached = true
			pr.node = nil
			continue
		}

		if pr.before != nil {
			pr.before(pr)
		}
		c.relocate(pr, node)
		if pr.after != nil {
			pr.after(pr)
		}
	}
	node.attached = nil
}

func (c *client) relocate(pr *PositionReference, removedFrom *segNode) {
	if pr.slidingPreference == reftype.Forward {
		if next := c.nearestLiveNext(removedFrom); next != nil {
			c.attachTo(pr, next, 0)
			return
		}
		if pr.canSlideToEndpoint {
			c.detachToSentinel(pr, reftype.SentinelEnd)
			return
		}
		if prev := c.nearestLivePrev(removedFrom); prev != &c.chain.head {
			c.attachTo(pr, prev, prev.length)
			return
		}
		c.detachToSentinel(pr, reftype.SentinelStart)
		return
	}

	// Backward.
	if prev := c.nearestLivePrev(removedFrom); prev != &c.chain.head {
		c.attachTo(pr, prev, prev.length)
		return
	}
	if pr.canSlideToEndpoint {
		c.detachToSentinel(pr, reftype.SentinelStart)
		return
	}
	if next := c.nearestLiveNext(removedFrom); next != nil {
		c.attachTo(pr, next, 0)
		return
	}
	c.detachToSentinel(pr, reftype.SentinelEnd)
}

func (c *client) attachTo(pr *PositionReference, node *segNode, offset int) {
	pr.atSentinel = false
	pr.node = node
	pr.offset = offset
	node.attached = append(node.attached, pr)
}

func (c *client) detachToSentinel(pr *PositionReference, s reftype.Sentinel) {
	pr.node = nil
	pr.atSentinel = true
	pr.sentinel = s
}

func (c *client) nearestLivePrev(n *segNode) *segNode {
	cur := n.levels[0].prev
	for cur != &c.chain.head && c.chain.byID[cur.id] != cur {
		cur = cur.levels[0].prev
	}
	return cur
}

func (c *client) nearestLiveNext(n *segNode) *segNode {
	cur := n.levels[0].next
	for cur != nil && c.chain.byID[cur.id] != cur {
		cur = cur.levels[0].next
	}
	return cur
}
