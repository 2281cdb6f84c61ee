package collabsync

import (
	"fmt"
	"sync"

	"github.com/samthor/ivrope/collection"
	"github.com/samthor/ivrope/future"
	"github.com/samthor/ivrope/interval"
	"github.com/samthor/ivrope/queue"
	"github.com/samthor/ivrope/reftype"
	"github.com/samthor/ivrope/segtree"
)

// Document holds the merge-tree client, the interval index, and the
// monotonic sequence counter every applied op is stamped with.
type Document struct {
	id DocID

	lock   sync.Mutex
	client segtree.Client
	coll   *collection.Collection
	seq    int

	outgoing queue.Queue[Broadcast]
}

func newDocument(id DocID) *Document {
	return &Document{
		id:       id,
		client:   segtree.New(),
		coll:     collection.New(),
		outgoing: queue.New[Broadcast](),
	}
}

// Watch subscribes to every future sequenced op for this document.
func (d *Document) Watch() queue.Queue[Broadcast] { return d.outgoing }

// Changes exposes the interval collection's own change-event feed, for the
// read-only SSE observer.
func (d *Document) Changes() *collection.Collection { return d.coll }

// Snapshot captures the current text and every live interval.
func (d *Document) Snapshot() Snapshot {
	d.lock.Lock()
	defer d.lock.Unlock()

	out := Snapshot{Seq: d.seq, Text: d.client.Text()}
	for iv := range d.coll.All() {
		out.Intervals = append(out.Intervals, iv.Serialize())
	}
	return out
}

// Submit applies op against the document state, stamps it with the next
// sequence number, and broadcasts it to every watcher including the
// submitter. The returned future resolves with the stamped AckInfo, or an
// error if the op was rejected.
func (d *Document) Submit(clientID string, op ClientOp) future.Future[AckInfo] {
	f, resolve := future.New[AckInfo]()

	d.lock.Lock()
	refSeq := d.seq
	err := d.apply(clientID, refSeq, op)
	if err != nil {
		d.lock.Unlock()
		resolve(AckInfo{}, err)
		return f
	}
	d.seq++
	seq := d.seq
	d.lock.Unlock()

	ack := AckInfo{Seq: seq, RefSeq: refSeq}
	d.outgoing.Push(Broadcast{Seq: seq, RefSeq: refSeq, ClientID: clientID, LocalID: op.LocalID, Op: op})
	resolve(ack, nil)
	return f
}

// apply must be called under d.lock.
func (d *Document) apply(clientID string, refSeq int, op ClientOp) error {
	switch op.Kind {
	case OpInsertText:
		// Tagged with the seq this op is about to be assigned, so a later
		// op's OriginOp perspective can tell whether this content was
		// already visible to its sender as of their own refSeq.
		d.client.InsertTextFrom(op.Pos, op.Text, clientID, refSeq+1)

	case OpRemoveRange:
		d.client.RemoveRange(op.Pos, op.End)

	case OpCreateInterval:
		if op.Interval == nil {
			return fmt.Errorf("create op missing interval payload")
		}
		info := &interval.OpInfo{SequenceNumber: refSeq + 1, ReferenceSequenceNumber: refSeq, ClientID: clientID}
		iv, err := interval.Deserializer{}.Deserialize(*op.Interval, d.client, interval.OriginOp, info)
		if err != nil {
			return err
		}
		d.coll.Add(iv)

	case OpModifyInterval:
		if op.Interval == nil {
			return fmt.Errorf("modify op missing interval payload")
		}
		iv, ok := d.coll.Get(op.IntervalID)
		if !ok {
			return fmt.Errorf("unknown interval %q", op.IntervalID)
		}
		startPlace := placeFromEndpoint(op.Interval.Start, op.Interval.StartSide)
		endPlace := placeFromEndpoint(op.Interval.End, op.Interval.EndSide)
		info := &interval.OpInfo{SequenceNumber: refSeq + 1, ReferenceSequenceNumber: refSeq, ClientID: clientID}
		next, err := iv.Modify(iv.Label(), startPlace, endPlace, info, true)
		if err != nil {
			return err
		}
		d.coll.Replace(next)

	case OpChangeProperties:
		iv, ok := d.coll.Get(op.IntervalID)
		if !ok {
			return fmt.Errorf("unknown interval %q", op.IntervalID)
		}
		info := &interval.OpInfo{SequenceNumber: refSeq + 1, ReferenceSequenceNumber: refSeq, ClientID: clientID}
		iv.ChangeProperties(op.Properties, info, false)
		iv.AckPropertiesChange(op.Properties, *info)
		d.coll.Replace(iv)

	default:
		return fmt.Errorf("unknown op kind %q", op.Kind)
	}
	return nil
}

// placeFromEndpoint returns nil (leave the endpoint alone) when the wire
// record didn't carry that side, matching Modify's own nil-means-unchanged
// convention.
func placeFromEndpoint(pos any, side string) *reftype.Place {
	if pos == nil {
		return nil
	}
	return interval.PlaceFromJSON(pos, side)
}
