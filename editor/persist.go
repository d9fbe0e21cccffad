package editor

import (
	"context"
	"fmt"

	"github.com/meikuraledutech/flow"
)

// Loader is the load half of the persistence collaborator.
type Loader interface {
	LoadAllFlows(ctx context.Context) (flow.Collection, error)
}

// Saver is the save half of the persistence collaborator.
type Saver interface {
	SaveAllFlows(ctx context.Context, flows flow.Collection) error
}

// BeginLoad marks a load as outstanding.
func (e *Editor) BeginLoad() error {
	if e.fetching || e.saving {
		return flow.ErrBusy
	}
	e.fetching = true
	return nil
}

// ReceiveFlows replaces the collection with a freshly loaded one, drops the
// undo history and checkpoints the dirty tracker. The active flow is kept
// when it still exists, otherwise the first flow by name is selected.
func (e *Editor) ReceiveFlows(c flow.Collection) {
	e.fetching = false
	e.flows = c.Copy()

	if _, ok := e.flows[e.activeFlow]; !ok {
		e.activeFlow = ""
		if names := e.flows.Names(); len(names) > 0 {
			e.activeFlow = names[0]
		}
	}
	if f := e.flows[e.activeFlow]; f == nil || f.Node(e.activeNode) == nil {
		e.activeNode = ""
	}

	e.history.Reset()
	e.tracker.Checkpoint(e.flows)
	e.logger.Printf("editor: loaded %d flows", len(e.flows))
}

// LoadFailed clears the outstanding load without touching any state.
func (e *Editor) LoadFailed(err error) {
	e.fetching = false
	e.logger.Printf("editor: load failed: %v", err)
}

// BeginSave marks a save as outstanding and returns the collection to
// persist. Only that collection becomes the clean baseline on SaveComplete;
// edits made while the save is in flight stay dirty.
func (e *Editor) BeginSave() (flow.Collection, error) {
	if e.fetching || e.saving {
		return nil, flow.ErrBusy
	}
	e.saving = true
	e.pendingSave = e.flows
	return e.flows.Copy(), nil
}

// SaveComplete checkpoints the saved collection.
func (e *Editor) SaveComplete() {
	if !e.saving {
		return
	}
	e.saving = false
	e.tracker.Checkpoint(e.pendingSave)
	e.tracker.Refresh(e.flows)
	e.pendingSave = nil
	e.logger.Printf("editor: saved, %d flows still dirty", len(e.tracker.Dirty()))
}

// SaveFailed clears the outstanding save. The digest tables are left as
// they were, so every unsaved flow stays dirty.
func (e *Editor) SaveFailed(err error) {
	e.saving = false
	e.pendingSave = nil
	e.logger.Printf("editor: save failed: %v", err)
}

// Load runs a full load through l.
func (e *Editor) Load(ctx context.Context, l Loader) error {
	if err := e.BeginLoad(); err != nil {
		return err
	}
	c, err := l.LoadAllFlows(ctx)
	if err != nil {
		e.LoadFailed(err)
		return fmt.Errorf("editor: load flows: %w", err)
	}
	e.ReceiveFlows(c)
	return nil
}

// Save runs a full save through s.
func (e *Editor) Save(ctx context.Context, s Saver) error {
	c, err := e.BeginSave()
	if err != nil {
		return err
	}
	if err := s.SaveAllFlows(ctx, c); err != nil {
		e.SaveFailed(err)
		return fmt.Errorf("editor: save flows: %w", err)
	}
	e.SaveComplete()
	return nil
}
