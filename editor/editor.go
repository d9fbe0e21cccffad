// Package editor is the state container of the flow builder. It applies
// edit intents to the flow collection in a fixed order (model, history,
// digests) and exposes read-only views of the result.
//
// An Editor is not safe for concurrent use; callers serialise intents.
package editor

import (
	"fmt"
	"io"
	"log"

	"github.com/meikuraledutech/flow"
	"github.com/meikuraledutech/flow/dirty"
	"github.com/meikuraledutech/flow/history"
)

// Editor holds the live flow collection, the active selection, the undo
// history and the dirty tracker.
type Editor struct {
	flows      flow.Collection
	activeFlow string
	activeNode string
	action     string
	clipboard  *flow.Node

	fetching    bool
	saving      bool
	pendingSave flow.Collection

	history *history.History
	tracker *dirty.Tracker
	picker  ContentPicker
	logger  *log.Logger
}

// New returns an Editor with an empty collection.
func New(opts ...Option) *Editor {
	e := &Editor{
		flows:   flow.Collection{},
		history: history.New(history.DefaultCapacity),
		tracker: dirty.New(),
		logger:  log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// state is the part of the editor a snapshot captures.
type state struct {
	flows      flow.Collection
	activeFlow string
	activeNode string
}

func (e *Editor) state() state {
	return state{flows: e.flows, activeFlow: e.activeFlow, activeNode: e.activeNode}
}

func (e *Editor) restore(s state) {
	e.flows = s.flows
	e.activeFlow = s.activeFlow
	e.activeNode = s.activeNode
}

func (s state) snapshot() history.Snapshot {
	return history.Snapshot{ActiveFlow: s.activeFlow, ActiveNode: s.activeNode, Flows: s.flows}
}

func fromSnapshot(s history.Snapshot) state {
	return state{flows: s.Flows, activeFlow: s.ActiveFlow, activeNode: s.ActiveNode}
}

// edit runs a structural intent through the pipeline: apply, record the
// state it was applied to, refresh current digests. A rejected intent
// leaves every stage untouched.
func (e *Editor) edit(intent string, apply func(s state) (state, error)) error {
	prev := e.state()
	next, err := apply(prev)
	if err != nil {
		e.logger.Printf("editor: %s rejected: %v", intent, err)
		return err
	}
	e.history.Record(prev.snapshot())
	e.restore(next)
	e.tracker.Refresh(e.flows)
	return nil
}

// CreateFlow adds a flow seeded with an entry node and selects it.
func (e *Editor) CreateFlow(name string) error {
	return e.edit("create flow", func(s state) (state, error) {
		flows, err := s.flows.CreateFlow(name)
		if err != nil {
			return s, err
		}
		return state{flows: flows, activeFlow: name}, nil
	})
}

// DeleteFlow removes a flow, clearing the selection if it was active.
func (e *Editor) DeleteFlow(name string) error {
	return e.edit("delete flow", func(s state) (state, error) {
		flows, err := s.flows.DeleteFlow(name)
		if err != nil {
			return s, err
		}
		s.flows = flows
		if s.activeFlow == name {
			s.activeFlow, s.activeNode = "", ""
		}
		return s, nil
	})
}

// RenameFlow renames a flow and every reference to it.
func (e *Editor) RenameFlow(oldName, newName string) error {
	return e.edit("rename flow", func(s state) (state, error) {
		flows, err := s.flows.RenameFlow(oldName, newName)
		if err != nil {
			return s, err
		}
		s.flows = flows
		if s.activeFlow == oldName {
			s.activeFlow = newName
		}
		return s, nil
	})
}

// DuplicateFlow copies source under a new name and selects the copy.
func (e *Editor) DuplicateFlow(source, name string) error {
	return e.edit("duplicate flow", func(s state) (state, error) {
		flows, err := s.flows.DuplicateFlow(source, name)
		if err != nil {
			return s, err
		}
		return state{flows: flows, activeFlow: name}, nil
	})
}

// UpdateFlow applies flow-level fields; see flow.Collection.UpdateFlow.
func (e *Editor) UpdateFlow(name string, p flow.FlowPatch) error {
	return e.edit("update flow", func(s state) (state, error) {
		flows, err := s.flows.UpdateFlow(name, p)
		if err != nil {
			return s, err
		}
		s.flows = flows
		return s, nil
	})
}

// CreateNode appends a node to a flow and returns its id.
func (e *Editor) CreateNode(flowName string, p flow.NodePatch) (string, error) {
	var id string
	err := e.edit("create node", func(s state) (state, error) {
		flows, created, err := s.flows.CreateNode(flowName, p)
		if err != nil {
			return s, err
		}
		id = created
		s.flows = flows
		return s, nil
	})
	return id, err
}

// UpdateNode applies a patch to a node.
func (e *Editor) UpdateNode(flowName, nodeID string, p flow.NodePatch) error {
	return e.edit("update node", func(s state) (state, error) {
		flows, err := s.flows.UpdateNode(flowName, nodeID, p)
		if err != nil {
			return s, err
		}
		s.flows = flows
		return s, nil
	})
}

// UpdateCurrentNode applies a patch to the active node.
func (e *Editor) UpdateCurrentNode(p flow.NodePatch) error {
	if err := e.requireNode(); err != nil {
		e.logger.Printf("editor: update node rejected: %v", err)
		return err
	}
	return e.UpdateNode(e.activeFlow, e.activeNode, p)
}

// RemoveNode deletes a node. Transitions elsewhere that target it are kept.
func (e *Editor) RemoveNode(flowName, nodeID string) error {
	return e.edit("remove node", func(s state) (state, error) {
		flows, err := s.flows.RemoveNode(flowName, nodeID)
		if err != nil {
			return s, err
		}
		s.flows = flows
		if s.activeFlow == flowName && s.activeNode == nodeID {
			s.activeNode = ""
		}
		return s, nil
	})
}

// LinkNodes points a transition slot of a node at target.
func (e *Editor) LinkNodes(flowName, nodeID string, index int, target string) error {
	return e.edit("link nodes", func(s state) (state, error) {
		flows, err := s.flows.LinkNodes(flowName, nodeID, index, target)
		if err != nil {
			return s, err
		}
		s.flows = flows
		return s, nil
	})
}

// CopyNode puts a copy of the active node in the clipboard. It is not an
// edit and is not recorded.
func (e *Editor) CopyNode() error {
	if err := e.requireNode(); err != nil {
		e.logger.Printf("editor: copy node rejected: %v", err)
		return err
	}
	n := e.flows[e.activeFlow].Node(e.activeNode).Clone()
	e.clipboard = &n
	return nil
}

// PasteNode inserts the clipboard node into the active flow, selects it and
// empties the clipboard. It returns the new node id.
func (e *Editor) PasteNode() (string, error) {
	var id string
	err := e.edit("paste node", func(s state) (state, error) {
		if s.activeFlow == "" {
			return s, flow.ErrNoActiveFlow
		}
		if e.clipboard == nil {
			return s, flow.ErrClipboardEmpty
		}
		flows, pasted, err := s.flows.PasteNode(s.activeFlow, *e.clipboard)
		if err != nil {
			return s, err
		}
		id = pasted
		s.flows = flows
		s.activeNode = pasted
		return s, nil
	})
	if err == nil {
		e.clipboard = nil
	}
	return id, err
}

// SetActiveFlow selects a flow and clears the active node. An empty name
// clears the selection.
func (e *Editor) SetActiveFlow(name string) error {
	if name != "" {
		if _, ok := e.flows[name]; !ok {
			err := fmt.Errorf("%w: %q", flow.ErrFlowNotFound, name)
			e.logger.Printf("editor: switch flow rejected: %v", err)
			return err
		}
	}
	e.activeFlow = name
	e.activeNode = ""
	return nil
}

// SetActiveNode selects a node of the active flow. An empty id clears it.
func (e *Editor) SetActiveNode(id string) error {
	if id != "" {
		f, ok := e.flows[e.activeFlow]
		if !ok {
			e.logger.Printf("editor: switch node rejected: %v", flow.ErrNoActiveFlow)
			return flow.ErrNoActiveFlow
		}
		if f.Node(id) == nil {
			err := fmt.Errorf("%w: %q in flow %q", flow.ErrNodeNotFound, id, e.activeFlow)
			e.logger.Printf("editor: switch node rejected: %v", err)
			return err
		}
	}
	e.activeNode = id
	return nil
}

// SetDiagramAction records the diagram tool currently in use.
func (e *Editor) SetDiagramAction(action string) {
	e.action = action
}

// Undo steps back one history entry. It reports false when there is
// nothing to undo.
func (e *Editor) Undo() bool {
	s, ok := e.history.Undo(e.state().snapshot())
	if !ok {
		return false
	}
	e.restore(fromSnapshot(s))
	e.tracker.Refresh(e.flows)
	return true
}

// Redo reapplies the last undone step. It reports false at the live head.
func (e *Editor) Redo() bool {
	s, ok := e.history.Redo()
	if !ok {
		return false
	}
	e.restore(fromSnapshot(s))
	e.tracker.Refresh(e.flows)
	return true
}

func (e *Editor) requireNode() error {
	f, ok := e.flows[e.activeFlow]
	if !ok {
		return flow.ErrNoActiveFlow
	}
	if e.activeNode == "" || f.Node(e.activeNode) == nil {
		return flow.ErrNoActiveNode
	}
	return nil
}
