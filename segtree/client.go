// Package segtree is a concrete merge-tree collaborator: it owns a sequence
// of text segments and satisfies the Client/PositionReference surface the
// interval core consumes. It is adapted from the rope package's skip list;
// segments replace rope entries, and PositionReferences attach to a segment
// the same way an in-flight rope iterator attaches to a node, so that
// removal can redirect them instead of leaving them dangling.
package segtree

import (
	"github.com/samthor/ivrope/reftype"
)

// Segment is an opaque handle to a chunk of the sequence, analogous to a
// merge-tree segment. The zero Segment is never valid; callers receive one
// only from GetContainingSegment or PositionReference.GetSegment.
type Segment struct {
	node *segNode
}

func (s Segment) Text() string { return s.node.text }
func (s Segment) Len() int     { return s.node.length }

// SegOff pairs a resolved segment+offset, or a sentinel, for positions
// outside any segment. GetContainingSegment reports false alongside it when no
// segment currently anchors pos.
type SegOff struct {
	Segment    Segment
	Offset     int
	IsSentinel bool
	Sentinel   reftype.Sentinel
}

// CollabWindow mirrors the small piece of merge-tree collaboration state the
// core reads: whether remote ops are currently being exchanged at all.
type CollabWindow struct {
	Collaborating bool
}

// Perspective narrows segment resolution to the state a specific actor had
// in view, per the two ways the interval core needs positions resolved:
// a remote op resolves against what its sender had seen as of ReferenceSeq
// (their own inserts are visible to them immediately; everyone else's only
// once acked at or before ReferenceSeq), while a pending local creation
// resolves against the editing client's own unacked edits up to LocalSeq. A
// nil *Perspective means "resolve against the live sequence", the ordinary
// case for snapshot/rollback/transient work and any already-acked content.
type Perspective struct {
	HasRefSeq    bool
	ReferenceSeq int
	ClientID     string

	HasLocalSeq bool
	LocalSeq    int64
}

// Client is the merge-tree collaborator surface spec'd for the interval
// core: position<->segment resolution, reference creation/comparison, and
// the stickiness/sliding-preference derivations the core defers to it.
type Client interface {
	CreateLocalReferencePosition(place SegOff, refType reftype.ReferenceType, initialProps map[string]any, slidingPreference reftype.SlidingPreference, canSlideToEndpoint bool) *PositionReference
	CreateDetachedLocalReferencePosition(preference reftype.SlidingPreference, refType reftype.ReferenceType) *PositionReference

	// GetContainingSegment resolves pos against the live sequence when
	// perspective is nil, or against the filtered view perspective
	// describes otherwise (see Perspective).
	GetContainingSegment(pos reftype.Position, perspective *Perspective) (SegOff, bool)

	LocalReferencePositionToPosition(pr *PositionReference) int
	GetCurrentSeq() int
	GetCollabWindow() CollabWindow
	SlideToSegoff(place SegOff, found bool, preference reftype.SlidingPreference, useNewSlidingBehavior bool) (SegOff, bool)

	// GetLocalSeq returns this client's own local-edit counter, bumped by
	// every InsertText/RemoveRange call; 0 means no unacked local edit has
	// happened yet. Used to build a Perspective for a pending local
	// creation (spec §4.1's origin==local/localSeq resolution).
	GetLocalSeq() int64

	CompareReferencePositions(a, b *PositionReference) int
	MinReferencePosition(a, b *PositionReference) *PositionReference
	MaxReferencePosition(a, b *PositionReference) *PositionReference

	ComputeStickinessFromSide(startPos reftype.Position, startSide reftype.Side, endPos reftype.Position, endSide reftype.Side) reftype.Stickiness
	StartReferenceSlidingPreference(stickiness reftype.Stickiness) reftype.SlidingPreference
	EndReferenceSlidingPreference(stickiness reftype.Stickiness) reftype.SlidingPreference

	// Ack flips a pending endpoint's StayOnRemove flag to SlideOnRemove once
	// its creating op has been sequenced. Driven by the document runtime, not
	// by the interval core (spec §4.4).
	Ack(pr *PositionReference)

	// InsertText/RemoveRange/Len/Text drive the underlying sequence. They are
	// not part of the core-facing surface; they exist so this reference
	// collaborator is independently testable and demoable. Content inserted
	// this way is tagged unacked (visible to its own client only) until a
	// real op context is known.
	InsertText(pos int, text string) int
	RemoveRange(start, end int) int

	// InsertTextFrom is InsertText for content arriving through an already
	// sequenced op: the new segment is tagged with the seq it was acked at
	// and the clientID that authored it, so a later Perspective can tell
	// whether it was visible to some other op's sender.
	InsertTextFrom(pos int, text string, clientID string, seq int) int

	Len() int
	Text() string
	CurrentSeq() int
}

type client struct {
	chain *chain
	seq   int
	collab bool

	localSeq int64
}

// New builds a fresh, empty Client-backed sequence.
func New() Client {
	c := &client{chain: newChain(), collab: true}
	return c
}

func (c *client) Len() int { return c.chain.Len() }

func (c *client) Text() string {
	var sb []byte
	for _, n := range c.chain.Iter(0) {
		sb = append(sb, n.text...)
	}
	return string(sb)
}

func (c *client) GetCurrentSeq() int        { return c.seq }
func (c *client) CurrentSeq() int           { return c.seq }
func (c *client) GetCollabWindow() CollabWindow { return CollabWindow{Collaborating: c.collab} }

func (c *client) InsertText(pos int, text string) int {
	c.localSeq++
	return c.insertText(pos, text, "", 0, c.localSeq)
}

func (c *client) InsertTextFrom(pos int, text string, clientID string, seq int) int {
	return c.insertText(pos, text, clientID, seq, 0)
}

func (c *client) GetLocalSeq() int64 { return c.localSeq }

func (c *client) insertText(pos int, text string, clientID string, seq int, localSeq int64) int {
	if pos < 0 || pos > c.chain.Len() {
		panic("insert position out of range")
	}
	afterID := c.chain.splitAt(pos)
	newID, ok := c.chain.InsertIDAfter(afterID, len(text), text)
	if !ok {
		panic("inconsistent segment chain: insert failed")
	}
	if n := c.chain.byID[newID]; n != nil {
		n.clientID, n.seq, n.localSeq = clientID, seq, localSeq
	}
	c.seq++
	return pos
}

func (c *client) RemoveRange(start, end int) int {
	if start < 0 || end > c.chain.Len() || start > end {
		panic("remove range out of bounds")
	}
	if start == end {
		return 0
	}
	c.localSeq++
	afterID := c.chain.splitAt(start)
	untilAfterID := c.chain.splitAt(end)

	removed := c.chain.DeleteTo(afterID, c.nodeIDAfter(untilAfterID))
	c.seq++

	for _, node := range removed {
		c.slideAwayFrom(node)
	}
	return len(removed)
}

// nodeIDAfter returns the id of whatever currently follows afterID in the
// chain, or -1 (an id no live node ever has) when nothing follows, so that
// DeleteTo's "delete to the end" case can't collide with afterID == 0.
func (c *client) nodeIDAfter(afterID int64) int64 {
	n := c.chain.byID[afterID]
	if n == nil {
		return -1
	}
	next := n.levels[0].next
	if next == nil {
		return -1
	}
	return next.id
}

func (c *client) GetContainingSegment(pos reftype.Position, perspective *Perspective) (SegOff, bool) {
	if pos.IsSentinel() {
		return SegOff{IsSentinel: true, Sentinel: pos.Sentinel()}, true
	}

	v := int(pos.Value())
	if v < 0 {
		return SegOff{}, false
	}

	if perspective != nil {
		return c.resolveWithPerspective(v, perspective)
	}

	if v >= c.chain.Len() {
		return SegOff{}, false
	}
	id, offset := c.chain.ByPosition(v, true)
	node := c.chain.byID[id]
	if node == nil || node == &c.chain.head {
		return SegOff{}, false
	}
	return SegOff{Segment: Segment{node: node}, Offset: offset}, true
}

// visible reports whether this node's content had, as of perspective,
// already been seen by the actor it describes.
func (n *segNode) visible(p *Perspective) bool {
	if p.HasRefSeq {
		if n.clientID == p.ClientID {
			return true // their own edit, seen by them regardless of ack state
		}
		return n.seq != 0 && n.seq <= p.ReferenceSeq
	}
	if p.HasLocalSeq {
		if n.seq != 0 {
			return true // already acked, visible on any local timeline
		}
		return n.localSeq != 0 && n.localSeq <= p.LocalSeq
	}
	return true
}

// resolveWithPerspective walks segments in chain order, counting only those
// visible under perspective: a remote op's position was computed against a
// filtered view of the sequence that the skip list's subtree sizes (which
// count every segment unconditionally) can't answer directly.
func (c *client) resolveWithPerspective(pos int, perspective *Perspective) (SegOff, bool) {
	remaining := pos
	for _, node := range c.chain.Iter(0) {
		if !node.visible(perspective) {
			continue
		}
		if remaining < node.length {
			return SegOff{Segment: Segment{node: node}, Offset: remaining}, true
		}
		remaining -= node.length
	}
	return SegOff{}, false
}

func (c *client) LocalReferencePositionToPosition(pr *PositionReference) int {
	if pr.atSentinel {
		if pr.sentinel == reftype.SentinelStart {
			return 0
		}
		return c.chain.Len()
	}
	if pr.detached {
		panic("detached reference has no position")
	}
	startOfSegment := c.chain.Find(pr.node.id) - pr.node.length
	return startOfSegment + pr.offset
}

func (c *client) CreateLocalReferencePosition(place SegOff, refType reftype.ReferenceType, initialProps map[string]any, slidingPreference reftype.SlidingPreference, canSlideToEndpoint bool) *PositionReference {
	pr := &PositionReference{
		client:             c,
		refType:            refType,
		slidingPreference:  slidingPreference,
		canSlideToEndpoint: canSlideToEndpoint,
		properties:         cloneProps(initialProps),
	}
	if place.IsSentinel {
		pr.atSentinel = true
		pr.sentinel = place.Sentinel
		return pr
	}
	pr.node = place.Segment.node
	pr.offset = place.Offset
	pr.node.attached = append(pr.node.attached, pr)
	return pr
}

func (c *client) CreateDetachedLocalReferencePosition(preference reftype.SlidingPreference, refType reftype.ReferenceType) *PositionReference {
	return &PositionReference{
		client:            c,
		refType:           refType,
		slidingPreference: preference,
		detached:          true,
	}
}

func (c *client) Ack(pr *PositionReference) {
	pr.refType = pr.refType.Without(reftype.StayOnRemove).With(reftype.SlideOnRemove)
}

func (c *client) CompareReferencePositions(a, b *PositionReference) int {
	pa, pb := c.referenceOrdinal(a), c.referenceOrdinal(b)
	switch {
	case pa < pb:
		return -1
	case pa > pb:
		return 1
	default:
		return 0
	}
}

// referenceOrdinal gives every reference (attached, sentinel, or detached) a
// total order: start sentinel first, then attached references by resolved
// position, then end sentinel, with detached references ordered last since
// they have no anchored position.
func (c *client) referenceOrdinal(pr *PositionReference) int {
	switch {
	case pr.detached:
		return c.chain.Len() + 1
	case pr.atSentinel && pr.sentinel == reftype.SentinelStart:
		return -1
	case pr.atSentinel:
		return c.chain.Len()
	default:
		return c.LocalReferencePositionToPosition(pr)
	}
}

func (c *client) MinReferencePosition(a, b *PositionReference) *PositionReference {
	if c.CompareReferencePositions(a, b) <= 0 {
		return a
	}
	return b
}

func (c *client) MaxReferencePosition(a, b *PositionReference) *PositionReference {
	if c.CompareReferencePositions(a, b) >= 0 {
		return a
	}
	return b
}

// SlideToSegoff resolves a not-found segoff (e.g. a position whose segment
// was concurrently removed), reading place.Offset as the position, in the
// direction the preference names: Forward resolves min(pos, Len()-1), else the
// end sentinel; Backward resolves pos-1, else the start sentinel. The
// opposite direction is not tried.
func (c *client) SlideToSegoff(place SegOff, found bool, preference reftype.SlidingPreference, useNewSlidingBehavior bool) (SegOff, bool) {
	if found {
		return place, true
	}
	if place.IsSentinel {
		return place, true
	}

	pos := place.Offset
	if preference == reftype.Forward {
		if so, ok := c.GetContainingSegment(reftype.At(int64(min(pos, c.chain.Len()-1))), nil); ok {
			return so, true
		}
		return SegOff{IsSentinel: true, Sentinel: reftype.SentinelEnd}, true
	}
	if pos > 0 {
		if so, ok := c.GetContainingSegment(reftype.At(int64(pos - 1)), nil); ok {
			return so, true
		}
	}
	return SegOff{IsSentinel: true, Sentinel: reftype.SentinelStart}, true
}

func (c *client) ComputeStickinessFromSide(startPos reftype.Position, startSide reftype.Side, endPos reftype.Position, endSide reftype.Side) reftype.Stickiness {
	start := sticksForward(startPos, startSide)
	end := sticksBackward(endPos, endSide)

	switch {
	case start && end:
		return reftype.StickinessFull
	case start:
		return reftype.StickinessStart
	case end:
		return reftype.StickinessEnd
	default:
		return reftype.StickinessNone
	}
}

// sticksForward reports whether content inserted exactly at this start
// boundary should be considered inside the interval: true when the start
// anchors "After" a position (or at the start sentinel), so new content
// landing right there falls after the anchor and inside the range.
func sticksForward(pos reftype.Position, side reftype.Side) bool {
	if pos.IsSentinel() && pos.Sentinel() == reftype.SentinelStart {
		return true
	}
	return side == reftype.After
}

// sticksBackward is the symmetric rule for the end boundary: true when the
// end anchors "Before" a position (or at the end sentinel).
func sticksBackward(pos reftype.Position, side reftype.Side) bool {
	if pos.IsSentinel() && pos.Sentinel() == reftype.SentinelEnd {
		return true
	}
	return side == reftype.Before
}

func (c *client) StartReferenceSlidingPreference(stickiness reftype.Stickiness) reftype.SlidingPreference {
	if stickiness == reftype.StickinessStart || stickiness == reftype.StickinessFull {
		return reftype.Backward
	}
	return reftype.Forward
}

func (c *client) EndReferenceSlidingPreference(stickiness reftype.Stickiness) reftype.SlidingPreference {
	if stickiness == reftype.StickinessEnd || stickiness == reftype.StickinessFull {
		return reftype.Forward
	}
	return reftype.Backward
}

func cloneProps(in map[string]any) map[string]any {
	if in == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
