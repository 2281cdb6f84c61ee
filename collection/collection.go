// Package collection is the interval collection container spec.md treats as
// an external collaborator: an ordered index keyed by Interval.Compare, plus
// change-event dispatch, so the core is runnable end to end.
package collection

import (
	"context"
	"iter"

	"github.com/samthor/ivrope/aatree"
	"github.com/samthor/ivrope/interval"
	"github.com/samthor/ivrope/queue"
)

type ChangeKind int

const (
	Added ChangeKind = iota
	Removed
	Modified
)

func (k ChangeKind) String() string {
	switch k {
	case Added:
		return "added"
	case Removed:
		return "removed"
	default:
		return "modified"
	}
}

type ChangeEvent struct {
	Kind     ChangeKind
	Interval *interval.Interval
}

// Collection keeps intervals ordered by compare() the way cr's range tracker
// keeps an AATree ordered by a client comparator, and broadcasts every
// add/remove/modify to any Watch subscriber via a queue.Queue.
type Collection struct {
	tree   *aatree.AATree[*interval.Interval]
	byID   map[string]*interval.Interval
	events queue.Queue[ChangeEvent]
}

func New() *Collection {
	return &Collection{
		tree:   aatree.New(func(a, b *interval.Interval) int { return a.Compare(b) }),
		byID:   map[string]*interval.Interval{},
		events: queue.New[ChangeEvent](),
	}
}

func (c *Collection) Len() int { return len(c.byID) }

func (c *Collection) Get(id string) (*interval.Interval, bool) {
	iv, ok := c.byID[id]
	return iv, ok
}

func (c *Collection) Add(iv *interval.Interval) {
	c.tree.Insert(iv)
	c.byID[iv.GetIntervalId()] = iv
	c.events.Push(ChangeEvent{Kind: Added, Interval: iv})
}

// Replace swaps the collection's entry for next.GetIntervalId() with next,
// the shape modify() produces: a new value under the same id.
func (c *Collection) Replace(next *interval.Interval) {
	if old, ok := c.byID[next.GetIntervalId()]; ok {
		c.tree.Remove(old)
	}
	c.tree.Insert(next)
	c.byID[next.GetIntervalId()] = next
	c.events.Push(ChangeEvent{Kind: Modified, Interval: next})
}

func (c *Collection) Remove(id string) bool {
	iv, ok := c.byID[id]
	if !ok {
		return false
	}
	c.tree.Remove(iv)
	delete(c.byID, id)
	iv.RemovePositionChangeListeners()
	c.events.Push(ChangeEvent{Kind: Removed, Interval: iv})
	return true
}

// All walks every interval in compare() order.
func (c *Collection) All() iter.Seq[*interval.Interval] {
	return c.tree.Iter()
}

// FindOverlapping yields every interval overlapping the half-open
// [start, end) numeric range.
func (c *Collection) FindOverlapping(start, end int) iter.Seq[*interval.Interval] {
	return func(yield func(*interval.Interval) bool) {
		for iv := range c.tree.Iter() {
			if iv.OverlapsPos(start, end) {
				if !yield(iv) {
					return
				}
			}
		}
	}
}

// Watch subscribes to every future Add/Remove/Replace until ctx is done.
func (c *Collection) Watch(ctx context.Context) queue.Listener[ChangeEvent] {
	return c.events.Join(ctx)
}
