package interval

import (
	"testing"

	"github.com/samthor/ivrope/reftype"
)

func newTestInterval(t *testing.T, props map[string]any) *Interval {
	t.Helper()
	client := newClientWithText(t, "hello world")
	f := EndpointFactory{}
	iv, err := f.CreateInterval("x", "A", place(0, reftype.Before), place(5, reftype.Before), client, reftype.IntervalSlideOnRemove, OriginLocal, nil, true, props)
	if err != nil {
		t.Fatal(err)
	}
	return iv
}

// TestChangePropertiesPendingLocalThenAck reproduces spec §4.2/§7: an
// unsequenced local change records a pending entry keyed by
// UnassignedSequenceNumber, and ack prunes it once the corresponding op has
// been sequenced.
func TestChangePropertiesPendingLocalThenAck(t *testing.T) {
	iv := newTestInterval(t, map[string]any{"color": "blue"})

	iv.ChangeProperties(map[string]any{"color": "red"}, nil, false)
	if got := iv.Properties()["color"]; got != "red" {
		t.Fatalf("color = %v, want red", got)
	}
	pending := iv.changes.pending["color"]
	if len(pending) != 1 || pending[0].seq != UnassignedSequenceNumber {
		t.Fatalf("pending[color] = %+v, want one UnassignedSequenceNumber entry", pending)
	}

	op := OpInfo{SequenceNumber: 7, ReferenceSequenceNumber: 6, ClientID: "alice"}
	iv.AckPropertiesChange(map[string]any{"color": "red"}, op)

	if pending := iv.changes.pending["color"]; len(pending) != 0 {
		t.Errorf("pending[color] after ack = %+v, want pruned", pending)
	}
	if got := iv.Properties()["color"]; got != "red" {
		t.Errorf("color after ack = %v, want red (ack doesn't change the applied value)", got)
	}
}

// TestChangePropertiesRollbackRestoresOldValue covers properties.go's
// hadOld branch: rolling back a change to a key that already had a value
// restores that value.
func TestChangePropertiesRollbackRestoresOldValue(t *testing.T) {
	iv := newTestInterval(t, map[string]any{"color": "blue"})

	iv.ChangeProperties(map[string]any{"color": "red"}, nil, false)
	if got := iv.Properties()["color"]; got != "red" {
		t.Fatalf("color before rollback = %v, want red", got)
	}

	iv.ChangeProperties(map[string]any{"color": nil}, nil, true)

	if got := iv.Properties()["color"]; got != "blue" {
		t.Errorf("color after rollback = %v, want blue", got)
	}
	if pending := iv.changes.pending["color"]; len(pending) != 0 {
		t.Errorf("pending[color] after rollback = %+v, want empty", pending)
	}
}

// TestChangePropertiesRollbackDeletesWhenNoPreviousValue covers the other
// branch at properties.go's rollbackKey: a key introduced by the pending
// change (no prior value) is deleted entirely on rollback, not restored to
// some value.
func TestChangePropertiesRollbackDeletesWhenNoPreviousValue(t *testing.T) {
	iv := newTestInterval(t, nil)

	iv.ChangeProperties(map[string]any{"color": "red"}, nil, false)
	if _, ok := iv.Properties()["color"]; !ok {
		t.Fatal("expected color to be set after change")
	}

	iv.ChangeProperties(map[string]any{"color": nil}, nil, true)

	if v, ok := iv.Properties()["color"]; ok {
		t.Errorf("color after rollback = %v, want deleted (no previous value)", v)
	}
}

// TestChangePropertiesRollbackUnwindsMultipleEntries checks that rollback
// pops the most recent pending entry for a key, not the oldest, so two
// successive local changes unwind one at a time.
func TestChangePropertiesRollbackUnwindsMultipleEntries(t *testing.T) {
	iv := newTestInterval(t, map[string]any{"color": "blue"})

	iv.ChangeProperties(map[string]any{"color": "red"}, nil, false)
	iv.ChangeProperties(map[string]any{"color": "green"}, nil, false)
	if got := iv.Properties()["color"]; got != "green" {
		t.Fatalf("color = %v, want green", got)
	}

	iv.ChangeProperties(map[string]any{"color": nil}, nil, true)
	if got := iv.Properties()["color"]; got != "red" {
		t.Errorf("color after first rollback = %v, want red", got)
	}

	iv.ChangeProperties(map[string]any{"color": nil}, nil, true)
	if got := iv.Properties()["color"]; got != "blue" {
		t.Errorf("color after second rollback = %v, want blue", got)
	}
}

// TestAckPropertiesChangeKeepsSequencedEntries checks that ack only prunes
// the UnassignedSequenceNumber marker for a still-local pending change; an
// entry already carrying a real sequence number (e.g. from a concurrently
// applied op) survives an unrelated ack.
func TestAckPropertiesChangeKeepsSequencedEntries(t *testing.T) {
	iv := newTestInterval(t, map[string]any{"color": "blue"})

	remoteOp := &OpInfo{SequenceNumber: 3, ReferenceSequenceNumber: 2, ClientID: "bob"}
	iv.ChangeProperties(map[string]any{"color": "green"}, remoteOp, false)

	pending := iv.changes.pending["color"]
	if len(pending) != 1 || pending[0].seq != 3 {
		t.Fatalf("pending[color] = %+v, want one entry with seq 3", pending)
	}

	ackForOtherOp := OpInfo{SequenceNumber: 9, ReferenceSequenceNumber: 8, ClientID: "carol"}
	iv.AckPropertiesChange(map[string]any{"color": "green"}, ackForOtherOp)

	if pending := iv.changes.pending["color"]; len(pending) != 1 {
		t.Errorf("pending[color] after unrelated ack = %+v, want the sequenced entry kept", pending)
	}
}
