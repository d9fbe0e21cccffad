// Package history keeps the bounded, linear undo/redo timeline of the editor.
package history

import "github.com/meikuraledutech/flow"

// DefaultCapacity is the number of snapshots kept before the oldest is evicted.
const DefaultCapacity = 25

// Snapshot is a point-in-time copy of the flow collection plus the active
// selection. The collection map is private to the snapshot; the flows it
// holds are shared but never mutated (see flow.Collection).
type Snapshot struct {
	ActiveFlow string
	ActiveNode string
	Flows      flow.Collection
}

// History is a newest-first list of snapshots with a cursor into a virtual
// timeline: cursor 0 is the live head, cursor k means k steps were undone.
// The zero value is not usable; call New.
type History struct {
	capacity int
	entries  []Snapshot
	cursor   int

	// head is the live state stashed by the first Undo so Redo can return to it.
	head *Snapshot
}

// New returns an empty History holding at most capacity snapshots.
// A capacity below 1 falls back to DefaultCapacity.
func New(capacity int) *History {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &History{capacity: capacity}
}

// Record stores the state an edit was applied to.
//
// At the live head, a snapshot whose active flow and non-empty active node
// match the newest entry is coalesced into it: the newest entry already holds
// the state from before the burst of edits to that node. Recording after an
// Undo discards the undone entries so the timeline stays linear.
func (h *History) Record(s Snapshot) {
	s.Flows = s.Flows.Copy()

	if h.cursor > 0 {
		h.entries = h.entries[h.cursor:]
	} else if len(h.entries) > 0 && sameNode(h.entries[0], s) {
		return
	}

	h.entries = append([]Snapshot{s}, h.entries...)
	if len(h.entries) > h.capacity {
		h.entries = h.entries[:h.capacity]
	}
	h.cursor = 0
	h.head = nil
}

// Undo steps back one entry. live is the current state, kept so a later Redo
// can return to it. It reports false at the oldest entry.
func (h *History) Undo(live Snapshot) (Snapshot, bool) {
	if !h.CanUndo() {
		return Snapshot{}, false
	}
	if h.cursor == 0 {
		live.Flows = live.Flows.Copy()
		h.head = &live
	}
	s := h.entries[h.cursor]
	h.cursor++
	return s.clone(), true
}

// Redo steps forward one entry. It reports false at the live head.
func (h *History) Redo() (Snapshot, bool) {
	if !h.CanRedo() {
		return Snapshot{}, false
	}
	h.cursor--
	if h.cursor == 0 {
		return h.head.clone(), true
	}
	return h.entries[h.cursor-1].clone(), true
}

// CanUndo reports whether Undo would change state.
func (h *History) CanUndo() bool {
	return h.cursor < len(h.entries)
}

// CanRedo reports whether Redo would change state.
func (h *History) CanRedo() bool {
	return h.cursor > 0
}

// Len returns the number of stored snapshots.
func (h *History) Len() int { return len(h.entries) }

// Cursor returns the number of steps currently undone.
func (h *History) Cursor() int { return h.cursor }

// Reset drops every snapshot.
func (h *History) Reset() {
	h.entries = nil
	h.cursor = 0
	h.head = nil
}

func sameNode(a, b Snapshot) bool {
	return a.ActiveFlow == b.ActiveFlow && b.ActiveNode != "" && a.ActiveNode == b.ActiveNode
}

// clone hands out a map the caller may keep without aliasing the entry.
func (s Snapshot) clone() Snapshot {
	s.Flows = s.Flows.Copy()
	return s
}
