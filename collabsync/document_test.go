package collabsync

import (
	"context"
	"testing"

	"github.com/samthor/ivrope/interval"
	"github.com/samthor/ivrope/reftype"
)

func TestSubmitInsertAndSnapshot(t *testing.T) {
	doc := newDocument("doc1")

	ack, err := doc.Submit("alice", ClientOp{Kind: OpInsertText, LocalID: 1, Pos: 0, Text: "hello"}).Wait(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if ack.Seq != 1 || ack.RefSeq != 0 {
		t.Fatalf("ack = %+v, want Seq=1/RefSeq=0", ack)
	}

	snap := doc.Snapshot()
	if snap.Text != "hello" || snap.Seq != 1 {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestSubmitRemoveRange(t *testing.T) {
	doc := newDocument("doc1")
	doc.Submit("alice", ClientOp{Kind: OpInsertText, LocalID: 1, Pos: 0, Text: "hello world"}).Wait(context.Background())

	ack, err := doc.Submit("alice", ClientOp{Kind: OpRemoveRange, LocalID: 2, Pos: 2, End: 8}).Wait(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if ack.Seq != 2 {
		t.Fatalf("ack.Seq = %d, want 2", ack.Seq)
	}

	if got := doc.Snapshot().Text; got != "herld" {
		t.Fatalf("Text() = %q, want herld", got)
	}
}

func TestSubmitUnknownKindErrors(t *testing.T) {
	doc := newDocument("doc1")
	_, err := doc.Submit("alice", ClientOp{Kind: "bogus", LocalID: 1}).Wait(context.Background())
	if err == nil {
		t.Fatal("expected an error for an unknown op kind")
	}
}

func TestSubmitCreateModifyAndBroadcast(t *testing.T) {
	doc := newDocument("doc1")
	listener := doc.Watch().Join(context.Background())

	doc.Submit("alice", ClientOp{Kind: OpInsertText, LocalID: 1, Pos: 0, Text: "0123456789"}).Wait(context.Background())
	if _, ok := listener.Next(); !ok {
		t.Fatal("expected insert broadcast")
	}

	startSide, endSide := reftype.Before.String(), reftype.Before.String()
	startPos, endPos := any(int64(2)), any(int64(6))
	createOp := ClientOp{
		Kind:       OpCreateInterval,
		LocalID:    2,
		IntervalID: "iv1",
		Interval: &interval.SerializedIntervalDelta{
			Start:        startPos,
			End:          endPos,
			StartSide:    startSide,
			EndSide:      endSide,
			IntervalType: "SlideOnRemove",
			Properties:   map[string]any{"intervalId": "iv1", "referenceRangeLabels": []string{"comment"}},
		},
	}
	if _, err := doc.Submit("alice", createOp).Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, ok := listener.Next(); !ok {
		t.Fatal("expected create broadcast")
	}

	snap := doc.Snapshot()
	if len(snap.Intervals) != 1 {
		t.Fatalf("snapshot intervals = %v, want 1", snap.Intervals)
	}

	modifyOp := ClientOp{
		Kind:       OpModifyInterval,
		LocalID:    3,
		IntervalID: "iv1",
		Interval: &interval.SerializedIntervalDelta{
			Start:     any(int64(1)),
			StartSide: startSide,
		},
	}
	if _, err := doc.Submit("alice", modifyOp).Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, ok := listener.Next(); !ok {
		t.Fatal("expected modify broadcast")
	}
}

func TestSubmitModifyUnknownIntervalErrors(t *testing.T) {
	doc := newDocument("doc1")
	_, err := doc.Submit("alice", ClientOp{
		Kind:       OpModifyInterval,
		IntervalID: "missing",
		Interval:   &interval.SerializedIntervalDelta{},
	}).Wait(context.Background())
	if err == nil {
		t.Fatal("expected an error for an unknown interval id")
	}
}
