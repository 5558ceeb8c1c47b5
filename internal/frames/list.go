// Package frames holds the reference frame list and the per-source
// offset table that together define which frame of each source belongs
// to a comparison row.
package frames

import (
	"fmt"
	"sort"
)

// ChangeKind describes what kind of mutation a change notification
// reports.
type ChangeKind int

const (
	ChangeSet ChangeKind = iota
	ChangeAdd
	ChangeRemove
	ChangeEdit
)

// Change is delivered to listeners after every successful mutation.
type Change struct {
	Kind ChangeKind
	// Frame is the affected frame for Add/Remove, the new frame for Edit.
	Frame int
	// OldFrame is set for Edit only.
	OldFrame int
}

// List is an ordered, deduplicated set of reference frame numbers.
// Ordering is ascending numeric regardless of insertion order.
// Uniqueness is enforced here, at the model boundary.
type List struct {
	frames    []int
	listeners []func(Change)
}

// NewList returns an empty frame list.
func NewList() *List {
	return &List{}
}

// OnChange registers a listener called after every mutation.
// Listeners run synchronously in registration order.
func (l *List) OnChange(fn func(Change)) {
	l.listeners = append(l.listeners, fn)
}

func (l *List) notify(c Change) {
	for _, fn := range l.listeners {
		fn(c)
	}
}

// Set replaces the whole list with the sorted, deduplicated input.
func (l *List) Set(frames []int) {
	seen := make(map[int]bool, len(frames))
	out := make([]int, 0, len(frames))
	for _, f := range frames {
		if seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	sort.Ints(out)
	l.frames = out
	l.notify(Change{Kind: ChangeSet})
}

// Add inserts a frame keeping ascending order. Adding a frame that is
// already present is a no-op and returns false.
func (l *List) Add(frame int) bool {
	i := sort.SearchInts(l.frames, frame)
	if i < len(l.frames) && l.frames[i] == frame {
		return false
	}
	l.frames = append(l.frames, 0)
	copy(l.frames[i+1:], l.frames[i:])
	l.frames[i] = frame
	l.notify(Change{Kind: ChangeAdd, Frame: frame})
	return true
}

// Remove deletes a frame. Returns false if the frame was not present.
func (l *List) Remove(frame int) bool {
	i := sort.SearchInts(l.frames, frame)
	if i >= len(l.frames) || l.frames[i] != frame {
		return false
	}
	l.frames = append(l.frames[:i], l.frames[i+1:]...)
	l.notify(Change{Kind: ChangeRemove, Frame: frame})
	return true
}

// Edit replaces old with new, re-sorting as needed. Fails if old is
// absent or new is already present.
func (l *List) Edit(oldFrame, newFrame int) error {
	if oldFrame == newFrame {
		return nil
	}
	i := sort.SearchInts(l.frames, oldFrame)
	if i >= len(l.frames) || l.frames[i] != oldFrame {
		return fmt.Errorf("frame %d not in list", oldFrame)
	}
	if j := sort.SearchInts(l.frames, newFrame); j < len(l.frames) && l.frames[j] == newFrame {
		return fmt.Errorf("frame %d already exists", newFrame)
	}
	l.frames[i] = newFrame
	sort.Ints(l.frames)
	l.notify(Change{Kind: ChangeEdit, Frame: newFrame, OldFrame: oldFrame})
	return nil
}

// Frames returns a snapshot of the current list.
func (l *List) Frames() []int {
	out := make([]int, len(l.frames))
	copy(out, l.frames)
	return out
}

// Len returns the number of frames.
func (l *List) Len() int { return len(l.frames) }

// IndexOf returns the position of frame, or -1 if absent.
func (l *List) IndexOf(frame int) int {
	i := sort.SearchInts(l.frames, frame)
	if i < len(l.frames) && l.frames[i] == frame {
		return i
	}
	return -1
}

// At returns the frame at position i.
func (l *List) At(i int) int { return l.frames[i] }
