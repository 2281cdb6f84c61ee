package segtree

import (
	"testing"

	"github.com/samthor/ivrope/reftype"
)

func TestInsertAndRemoveText(t *testing.T) {
	c := New()
	c.InsertText(0, "hello world")
	if got := c.Text(); got != "hello world" {
		t.Fatalf("Text() = %q", got)
	}
	if got := c.Len(); got != 11 {
		t.Fatalf("Len() = %d, want 11", got)
	}

	c.RemoveRange(2, 8)
	if got := c.Text(); got != "herld" {
		t.Fatalf("Text() after remove = %q, want %q", got, "herld")
	}
}

func TestRemoveEntireSequence(t *testing.T) {
	c := New()
	c.InsertText(0, "hello")
	c.RemoveRange(0, 5)
	if got := c.Text(); got != "" {
		t.Fatalf("Text() after removing everything = %q, want empty", got)
	}
	if got := c.Len(); got != 0 {
		t.Fatalf("Len() = %d, want 0", got)
	}
}

// slideOnRemove reproduces the spec's "slide on remove" scenario: sequence
// "hello world", a reference anchored before 'h' (position 0) and one
// anchored before the character at position 8 (the 'r' of "world"),
// removing [2,8) leaves "herld"; the start stays put and the end moves back
// to position 2, right after the surviving 'e'.
func TestSlideOnRemoveRelocatesForwardAndBackward(t *testing.T) {
	c := New().(*client)
	c.InsertText(0, "hello world")

	startSO, _ := c.GetContainingSegment(reftype.At(0), nil)
	endSO, _ := c.GetContainingSegment(reftype.At(8), nil)

	startPR := c.CreateLocalReferencePosition(startSO, reftype.RangeBegin.With(reftype.SlideOnRemove), nil, reftype.Backward, true)
	endPR := c.CreateLocalReferencePosition(endSO, reftype.RangeEnd.With(reftype.SlideOnRemove), nil, reftype.Forward, true)

	c.RemoveRange(2, 8)

	if got := c.LocalReferencePositionToPosition(startPR); got != 0 {
		t.Errorf("start PR resolved to %d, want 0", got)
	}
	if got := c.LocalReferencePositionToPosition(endPR); got != 2 {
		t.Errorf("end PR resolved to %d, want 2", got)
	}
}

func TestTransientReferenceDetachesInsteadOfSliding(t *testing.T) {
	c := New().(*client)
	c.InsertText(0, "abcdef")

	so, _ := c.GetContainingSegment(reftype.At(2), nil)
	pr := c.CreateLocalReferencePosition(so, reftype.RangeBegin.With(reftype.Transient), nil, reftype.Forward, true)

	c.RemoveRange(0, 6)

	if !pr.IsDetached() {
		t.Fatal("transient reference should detach when its segment is removed")
	}
}

func TestAckFlipsRefType(t *testing.T) {
	c := New().(*client)
	c.InsertText(0, "abc")

	so, _ := c.GetContainingSegment(reftype.At(0), nil)
	pr := c.CreateLocalReferencePosition(so, reftype.RangeBegin.With(reftype.StayOnRemove), nil, reftype.Backward, true)

	c.Ack(pr)

	if pr.RefType().Has(reftype.StayOnRemove) {
		t.Error("Ack should clear StayOnRemove")
	}
	if !pr.RefType().Has(reftype.SlideOnRemove) {
		t.Error("Ack should set SlideOnRemove")
	}
}

func TestComputeStickinessFromSide(t *testing.T) {
	c := New().(*client)

	cases := []struct {
		name               string
		startPos           reftype.Position
		startSide, endSide reftype.Side
		endPos             reftype.Position
		want               reftype.Stickiness
	}{
		{"none", reftype.At(1), reftype.Before, reftype.After, reftype.At(5), reftype.StickinessNone},
		{"start", reftype.At(1), reftype.After, reftype.After, reftype.At(5), reftype.StickinessStart},
		{"end", reftype.At(1), reftype.Before, reftype.Before, reftype.At(5), reftype.StickinessEnd},
		{"full", reftype.At(1), reftype.After, reftype.Before, reftype.At(5), reftype.StickinessFull},
		{"start sentinel always sticks", reftype.Start(), reftype.Before, reftype.After, reftype.At(5), reftype.StickinessStart},
	}
	for _, tc := range cases {
		got := c.ComputeStickinessFromSide(tc.startPos, tc.startSide, tc.endPos, tc.endSide)
		if got != tc.want {
			t.Errorf("%s: ComputeStickinessFromSide = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestGetContainingSegmentPerspectiveRefSeq(t *testing.T) {
	c := New().(*client)
	c.InsertTextFrom(0, "hello", "alice", 1)

	// bob's insert is acked at seq 2; carol issued her op referencing seq 1,
	// before she'd have seen it.
	c.InsertTextFrom(5, "bob", "bob", 2)

	if got := c.Text(); got != "hellobob" {
		t.Fatalf("Text() = %q", got)
	}

	// From carol's perspective (refSeq 1, not bob's own client), position 5
	// must resolve inside "hello" only: bob's insert isn't visible yet.
	_, ok := c.GetContainingSegment(reftype.At(5), &Perspective{HasRefSeq: true, ReferenceSeq: 1, ClientID: "carol"})
	if ok {
		t.Fatal("position 5 should not resolve under carol's pre-bob perspective")
	}

	// From bob's own perspective, his own insert is visible even though it
	// hasn't propagated to anyone else's refSeq 1 yet.
	so, ok := c.GetContainingSegment(reftype.At(5), &Perspective{HasRefSeq: true, ReferenceSeq: 1, ClientID: "bob"})
	if !ok || so.Segment.Text() != "bob" {
		t.Fatalf("bob's own perspective should see his own insert, got %+v/%v", so, ok)
	}

	// From dave's perspective at refSeq 2 (after bob's insert was acked),
	// position 5 resolves into bob's content.
	so, ok = c.GetContainingSegment(reftype.At(5), &Perspective{HasRefSeq: true, ReferenceSeq: 2, ClientID: "dave"})
	if !ok || so.Segment.Text() != "bob" {
		t.Fatalf("dave's refSeq-2 perspective should see bob's insert, got %+v/%v", so, ok)
	}
}

func TestGetContainingSegmentPerspectiveLocalSeq(t *testing.T) {
	c := New().(*client)
	c.InsertText(0, "abc")
	snapshot := c.GetLocalSeq()

	c.InsertText(3, "def")
	if got := c.Text(); got != "abcdef" {
		t.Fatalf("Text() = %q", got)
	}

	// Position 3 doesn't exist yet as of the earlier local-seq snapshot.
	_, ok := c.GetContainingSegment(reftype.At(3), &Perspective{HasLocalSeq: true, LocalSeq: snapshot})
	if ok {
		t.Fatal("position 3 should not resolve under the pre-insert local-seq snapshot")
	}

	so, ok := c.GetContainingSegment(reftype.At(3), &Perspective{HasLocalSeq: true, LocalSeq: c.GetLocalSeq()})
	if !ok || so.Segment.Text() != "def" {
		t.Fatalf("current local-seq perspective should see the later insert, got %+v/%v", so, ok)
	}
}

func TestCompareReferencePositionsOrdering(t *testing.T) {
	c := New().(*client)
	c.InsertText(0, "abcdef")

	so0, _ := c.GetContainingSegment(reftype.At(0), nil)
	so3, _ := c.GetContainingSegment(reftype.At(3), nil)

	prStart := c.CreateLocalReferencePosition(so0, reftype.RangeBegin, nil, reftype.Backward, false)
	prMid := c.CreateLocalReferencePosition(so3, reftype.RangeBegin, nil, reftype.Backward, false)

	if c.CompareReferencePositions(prStart, prMid) >= 0 {
		t.Fatal("reference at position 0 should compare before one at position 3")
	}
	if c.CompareReferencePositions(prMid, prStart) <= 0 {
		t.Fatal("reference at position 3 should compare after one at position 0")
	}
	if c.CompareReferencePositions(prStart, prStart) != 0 {
		t.Fatal("a reference should compare equal to itself")
	}
}
