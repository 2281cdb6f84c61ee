package collection

import (
	"context"
	"testing"

	"github.com/samthor/ivrope/interval"
	"github.com/samthor/ivrope/reftype"
	"github.com/samthor/ivrope/segtree"
)

func newInterval(t *testing.T, client segtree.Client, id string, start, end int64) *interval.Interval {
	t.Helper()
	f := interval.EndpointFactory{}
	startPlace := reftype.NewPlace(reftype.At(start), reftype.Before)
	endPlace := reftype.NewPlace(reftype.At(end), reftype.Before)
	iv, err := f.CreateInterval("lbl", id, &startPlace, &endPlace, client, reftype.IntervalSlideOnRemove, interval.OriginLocal, nil, true, nil)
	if err != nil {
		t.Fatal(err)
	}
	return iv
}

func newTextClient(t *testing.T, text string) segtree.Client {
	t.Helper()
	c := segtree.New()
	c.InsertText(0, text)
	return c
}

func TestAddGetAndOrdering(t *testing.T) {
	client := newTextClient(t, "abcdefghij")
	c := New()

	a := newInterval(t, client, "A", 4, 8)
	b := newInterval(t, client, "B", 0, 3)
	c.Add(a)
	c.Add(b)

	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}

	got, ok := c.Get("A")
	if !ok || got != a {
		t.Fatalf("Get(A) = %v, %v", got, ok)
	}

	var order []string
	for iv := range c.All() {
		order = append(order, iv.GetIntervalId())
	}
	if len(order) != 2 || order[0] != "B" || order[1] != "A" {
		t.Fatalf("All() order = %v, want [B A]", order)
	}
}

func TestReplaceKeepsSameID(t *testing.T) {
	client := newTextClient(t, "abcdefghij")
	c := New()

	a := newInterval(t, client, "A", 0, 3)
	c.Add(a)

	newEnd := reftype.NewPlace(reftype.At(5), reftype.Before)
	next, err := a.Modify("lbl", nil, &newEnd, nil, true)
	if err != nil {
		t.Fatal(err)
	}
	c.Replace(next)

	if c.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 after replace", c.Len())
	}
	got, ok := c.Get("A")
	if !ok || got != next {
		t.Fatal("Get(A) should return the replaced value")
	}
}

func TestRemove(t *testing.T) {
	client := newTextClient(t, "abcdefghij")
	c := New()

	a := newInterval(t, client, "A", 0, 3)
	c.Add(a)

	if !c.Remove("A") {
		t.Fatal("Remove(A) should report true the first time")
	}
	if c.Remove("A") {
		t.Fatal("Remove(A) should report false once already removed")
	}
	if c.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", c.Len())
	}
}

func TestFindOverlapping(t *testing.T) {
	client := newTextClient(t, "abcdefghij")
	c := New()

	a := newInterval(t, client, "A", 0, 3)
	b := newInterval(t, client, "B", 2, 5)
	d := newInterval(t, client, "D", 6, 9)
	c.Add(a)
	c.Add(b)
	c.Add(d)

	var hits []string
	for iv := range c.FindOverlapping(1, 4) {
		hits = append(hits, iv.GetIntervalId())
	}
	if len(hits) != 2 || hits[0] != "A" || hits[1] != "B" {
		t.Fatalf("FindOverlapping(1,4) = %v, want [A B]", hits)
	}
}

func TestWatchReceivesChangeEvents(t *testing.T) {
	client := newTextClient(t, "abcdefghij")
	c := New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	listener := c.Watch(ctx)

	a := newInterval(t, client, "A", 0, 3)
	c.Add(a)

	ev, ok := listener.Next()
	if !ok {
		t.Fatal("listener.Next() should report an event")
	}
	if ev.Kind != Added || ev.Interval.GetIntervalId() != "A" {
		t.Fatalf("got %v/%v, want Added/A", ev.Kind, ev.Interval.GetIntervalId())
	}

	c.Remove("A")
	ev, ok = listener.Next()
	if !ok || ev.Kind != Removed {
		t.Fatalf("got %v/%v, want Removed", ev.Kind, ok)
	}
}

func TestChangeKindString(t *testing.T) {
	cases := map[ChangeKind]string{Added: "added", Removed: "removed", Modified: "modified"}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Errorf("%v.String() = %q, want %q", int(k), got, want)
		}
	}
}
