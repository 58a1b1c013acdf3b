package priority_test

import (
	"math"
	"slices"
	"testing"

	"github.com/eak1mov/go-tilekit/priority"
	"github.com/google/go-cmp/cmp"
)

type label struct {
	name     string
	priority float64
}

func (l *label) Priority() float64 { return l.priority }

func names(seq func(func(*label) bool)) []string {
	var result []string
	for l := range seq {
		result = append(result, l.name)
	}
	return result
}

func TestGroupOrder(t *testing.T) {
	list := priority.NewGroupList[*label]()
	a := &label{"a", 1}
	b := &label{"b", 10}
	c := &label{"c", 1}
	d := &label{"d", 5}
	for _, l := range []*label{a, b, c, d} {
		list.Add(l)
	}

	if got, want := list.Count(), 4; got != want {
		t.Errorf("Count() = %v, want = %v", got, want)
	}
	if got, want := list.NumGroups(), 3; got != want {
		t.Errorf("NumGroups() = %v, want = %v", got, want)
	}
	if diff := cmp.Diff([]string{"b", "d", "a", "c"}, names(list.All())); diff != "" {
		t.Errorf("All() mismatch (-want+got):\n%v", diff)
	}

	var priorities []float64
	for group := range list.Groups() {
		priorities = append(priorities, group.Priority)
	}
	if diff := cmp.Diff([]float64{10, 5, 1}, priorities); diff != "" {
		t.Errorf("Groups() mismatch (-want+got):\n%v", diff)
	}

	// new group after the order was cached
	list.Add(&label{"e", 7})
	if diff := cmp.Diff([]string{"b", "e", "d", "a", "c"}, names(list.All())); diff != "" {
		t.Errorf("All() after Add mismatch (-want+got):\n%v", diff)
	}
}

func TestRemove(t *testing.T) {
	list := priority.NewGroupList[*label]()
	a := &label{"a", 1}
	b := &label{"b", 1}
	list.Add(a)
	list.Add(b)

	if !list.Remove(a) {
		t.Fatalf("Remove(a) = false")
	}
	if list.Contains(a) {
		t.Errorf("Contains(a) = true after Remove")
	}
	if list.Remove(a) {
		t.Errorf("second Remove(a) = true")
	}
	if !list.Remove(b) {
		t.Fatalf("Remove(b) = false")
	}
	if got := list.NumGroups(); got != 0 {
		t.Errorf("NumGroups() = %v after removing all", got)
	}
	if got := list.Group(1); got != nil {
		t.Errorf("Group(1) = %v, want nil", got)
	}
}

func TestRemoveStalePriority(t *testing.T) {
	list := priority.NewGroupList[*label]()
	a := &label{"a", 3}
	b := &label{"b", 3}
	list.Add(a)
	list.Add(b)
	before := slices.Collect(list.All())

	a.priority = 4
	if list.Remove(a) {
		t.Fatalf("Remove with mutated priority = true, want false")
	}
	if diff := cmp.Diff(before, slices.Collect(list.All())); diff != "" {
		t.Errorf("list changed by failed Remove (-want+got):\n%v", diff)
	}
	if !list.Contains(a) {
		t.Errorf("Contains(a) = false, membership is by identity")
	}

	a.priority = 3
	if !list.Remove(a) {
		t.Errorf("Remove with restored priority = false")
	}
}

func TestClear(t *testing.T) {
	list := priority.NewGroupList[*label]()
	a := &label{"a", 1}
	list.Add(a)
	list.Add(&label{"b", 2})
	list.Clear()

	if got := list.Count(); got != 0 {
		t.Errorf("Count() = %v after Clear", got)
	}
	if list.Contains(a) {
		t.Errorf("Contains(a) = true after Clear")
	}
	if got := names(list.All()); len(got) != 0 {
		t.Errorf("All() = %v after Clear", got)
	}
}

func TestDuplicateElement(t *testing.T) {
	list := priority.NewGroupList[*label]()
	a := &label{"a", 1}
	list.Add(a)
	list.Add(a)
	list.Remove(a)
	if !list.Contains(a) {
		t.Errorf("Contains(a) = false with one occurrence left")
	}
	if got, want := list.Count(), 1; got != want {
		t.Errorf("Count() = %v, want = %v", got, want)
	}
}

func TestNaNPriority(t *testing.T) {
	list := priority.NewGroupList[*label]()
	a := &label{"a", math.NaN()}
	b := &label{"b", 1}
	c := &label{"c", math.Inf(-1)}
	list.Add(a)
	list.Add(b)
	list.Add(c)

	if diff := cmp.Diff([]string{"b", "a", "c"}, names(list.All())); diff != "" {
		t.Errorf("All() mismatch (-want+got):\n%v", diff)
	}
	if !list.Remove(a) {
		t.Fatalf("Remove(a) = false for NaN priority")
	}
	if got, want := list.Count(), 2; got != want {
		t.Errorf("Count() = %v, want = %v", got, want)
	}
	if list.Contains(a) {
		t.Errorf("Contains(a) = true after Remove")
	}
}
