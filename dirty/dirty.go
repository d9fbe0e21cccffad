// Package dirty derives which flows have unsaved changes by comparing
// content digests taken at the last checkpoint with the current ones.
package dirty

import (
	"sort"

	"github.com/meikuraledutech/flow"
)

// Tracker holds the two digest tables. The dirty set is always derived from
// them and never stored.
type Tracker struct {
	initial map[string]uint64
	current map[string]uint64

	// seen remembers which *Flow each current digest was computed from.
	// Flows are copy-on-write, so an unchanged pointer means an unchanged digest.
	seen map[string]*flow.Flow
}

// New returns a Tracker with empty tables.
func New() *Tracker {
	return &Tracker{
		initial: map[string]uint64{},
		current: map[string]uint64{},
		seen:    map[string]*flow.Flow{},
	}
}

// Checkpoint makes c the clean baseline: both tables get c's digests.
// Call it when a load or a save completes.
func (t *Tracker) Checkpoint(c flow.Collection) {
	t.seen = map[string]*flow.Flow{}
	t.Refresh(c)
	t.initial = make(map[string]uint64, len(t.current))
	for name, d := range t.current {
		t.initial[name] = d
	}
}

// Refresh recomputes the current table from c.
func (t *Tracker) Refresh(c flow.Collection) {
	current := make(map[string]uint64, len(c))
	seen := make(map[string]*flow.Flow, len(c))
	for name, f := range c {
		if f == nil {
			continue
		}
		if prev, ok := t.seen[name]; ok && prev == f {
			current[name] = t.current[name]
		} else {
			current[name] = flow.Digest(f)
		}
		seen[name] = f
	}
	t.current = current
	t.seen = seen
}

// Dirty returns the sorted names of flows that are new, removed, or changed
// since the last checkpoint.
func (t *Tracker) Dirty() []string {
	set := map[string]struct{}{}

	// Present in exactly one table: created, deleted, or renamed.
	for name := range t.current {
		if _, ok := t.initial[name]; !ok {
			set[name] = struct{}{}
		}
	}
	for name := range t.initial {
		if _, ok := t.current[name]; !ok {
			set[name] = struct{}{}
		}
	}
	// Present in both with diverging content.
	for name, d := range t.current {
		if i, ok := t.initial[name]; ok && i != d {
			set[name] = struct{}{}
		}
	}

	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsDirty reports whether name is in the dirty set.
func (t *Tracker) IsDirty(name string) bool {
	i, inInitial := t.initial[name]
	c, inCurrent := t.current[name]
	return inInitial != inCurrent || i != c
}

// Current returns the current digest of a flow.
func (t *Tracker) Current(name string) (uint64, bool) {
	d, ok := t.current[name]
	return d, ok
}

// Initial returns the checkpointed digest of a flow.
func (t *Tracker) Initial(name string) (uint64, bool) {
	d, ok := t.initial[name]
	return d, ok
}
