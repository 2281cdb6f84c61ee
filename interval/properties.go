package interval

// propertyChangeManager performs last-writer-wins property updates keyed by
// op sequence number, and tracks enough history per key to let ack/rollback
// revert a still-pending change.
type propertyChangeManager struct {
	pending map[string][]pendingEntry
}

type pendingEntry struct {
	seq      int
	oldValue any
	hadOld   bool
}

func newPropertyChangeManager() *propertyChangeManager {
	return &propertyChangeManager{pending: map[string][]pendingEntry{}}
}

// ChangeProperties applies props immediately and records enough to roll
// back or ack later. A nil op with rollback=false is a pending local change
// (UnassignedSequenceNumber); a nil op with collaboration off is universal.
func (i *Interval) ChangeProperties(props map[string]any, op *OpInfo, rollback bool) {
	seq := i.changeSeq(op)

	for k, v := range props {
		if k == intervalIDKey || k == referenceRangeLabelsKey {
			continue
		}
		if rollback {
			i.rollbackKey(k)
			continue
		}
		old, hadOld := i.properties[k]
		i.changes.pending[k] = append(i.changes.pending[k], pendingEntry{seq: seq, oldValue: old, hadOld: hadOld})
		i.properties[k] = v
	}
}

func (i *Interval) changeSeq(op *OpInfo) int {
	if !i.client.GetCollabWindow().Collaborating {
		return UniversalSequenceNumber
	}
	if op != nil {
		return op.SequenceNumber
	}
	return UnassignedSequenceNumber
}

func (i *Interval) rollbackKey(k string) {
	entries := i.changes.pending[k]
	if len(entries) == 0 {
		return
	}
	last := entries[len(entries)-1]
	i.changes.pending[k] = entries[:len(entries)-1]
	if last.hadOld {
		i.properties[k] = last.oldValue
	} else {
		delete(i.properties, k)
	}
}

// AckPropertiesChange informs the manager that op.SequenceNumber has been
// sequenced, pruning the pending entries it superseded.
func (i *Interval) AckPropertiesChange(newProps map[string]any, op OpInfo) {
	for k := range newProps {
		entries := i.changes.pending[k]
		var kept []pendingEntry
		for _, e := range entries {
			if e.seq == UnassignedSequenceNumber {
				continue
			}
			kept = append(kept, e)
		}
		if len(kept) == 0 {
			delete(i.changes.pending, k)
		} else {
			i.changes.pending[k] = kept
		}
	}
}

// Properties returns the current user-visible property map (reserved keys
// excluded; they are reinserted only on serialization).
func (i *Interval) Properties() map[string]any {
	return i.properties
}
