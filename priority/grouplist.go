// Package priority provides a list of elements bucketed by priority.
package priority

import (
	"cmp"
	"iter"
	"maps"
	"math"
	"slices"
)

// Element is stored by identity and grouped by its priority at insertion time.
type Element interface {
	comparable
	Priority() float64
}

// Group is a bucket of elements sharing one priority value, in insertion order.
type Group[T Element] struct {
	Priority float64
	Elements []T
}

// GroupList holds elements grouped by priority. It is not safe for concurrent use.
//
// An element must keep its priority while it is in the list: Remove looks the
// element up in the bucket of its current priority, so an element whose priority
// changed after Add cannot be removed.
type GroupList[T Element] struct {
	groups  map[float64]*Group[T]
	members map[T]int // element -> number of occurrences
	count   int

	// sorted caches group priorities in descending order; nil when stale.
	sorted []float64
}

func NewGroupList[T Element]() *GroupList[T] {
	return &GroupList[T]{
		groups:  make(map[float64]*Group[T]),
		members: make(map[T]int),
	}
}

// Add appends e to the group of e.Priority(), creating the group if needed.
// A NaN priority sorts below every other priority.
func (l *GroupList[T]) Add(e T) {
	p := groupKey(e.Priority())
	group, ok := l.groups[p]
	if !ok {
		group = &Group[T]{Priority: p}
		l.groups[p] = group
		l.sorted = nil
	}
	group.Elements = append(group.Elements, e)
	l.members[e]++
	l.count++
}

// Remove deletes the first occurrence of e from the group of e.Priority().
// It returns false if e is not found there.
func (l *GroupList[T]) Remove(e T) bool {
	p := groupKey(e.Priority())
	group, ok := l.groups[p]
	if !ok {
		return false
	}
	idx := slices.Index(group.Elements, e)
	if idx < 0 {
		return false
	}
	group.Elements = slices.Delete(group.Elements, idx, idx+1)
	if len(group.Elements) == 0 {
		delete(l.groups, p)
		l.sorted = nil
	}
	if l.members[e]--; l.members[e] == 0 {
		delete(l.members, e)
	}
	l.count--
	return true
}

// Contains reports whether e is in the list, regardless of its current priority.
func (l *GroupList[T]) Contains(e T) bool {
	return l.members[e] > 0
}

func (l *GroupList[T]) Clear() {
	clear(l.groups)
	clear(l.members)
	l.count = 0
	l.sorted = nil
}

// Count returns the total number of elements over all groups.
func (l *GroupList[T]) Count() int {
	return l.count
}

// NumGroups returns the number of non-empty groups.
func (l *GroupList[T]) NumGroups() int {
	return len(l.groups)
}

// Group returns the group for priority p, or nil.
func (l *GroupList[T]) Group(p float64) *Group[T] {
	return l.groups[groupKey(p)]
}

// Groups yields groups from the highest priority to the lowest.
// The list must not be modified during iteration.
func (l *GroupList[T]) Groups() iter.Seq[*Group[T]] {
	return func(yield func(*Group[T]) bool) {
		for _, p := range l.priorities() {
			group := l.groups[p]
			if group == nil {
				continue
			}
			if !yield(group) {
				return
			}
		}
	}
}

// All yields every element, groups in descending priority, insertion order within a group.
func (l *GroupList[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for group := range l.Groups() {
			for _, e := range group.Elements {
				if !yield(e) {
					return
				}
			}
		}
	}
}

func (l *GroupList[T]) priorities() []float64 {
	if l.sorted == nil {
		l.sorted = slices.SortedFunc(maps.Keys(l.groups), func(a, b float64) int {
			return cmp.Compare(b, a)
		})
	}
	return l.sorted
}

// groupKey maps NaN, which cannot be used as a map key, to the lowest priority.
func groupKey(p float64) float64 {
	if math.IsNaN(p) {
		return math.Inf(-1)
	}
	return p
}
