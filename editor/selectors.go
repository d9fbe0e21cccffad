package editor

import "github.com/meikuraledutech/flow"

// HistoryStatus summarises the undo timeline for the UI.
type HistoryStatus struct {
	Len     int  `json:"len"`
	Cursor  int  `json:"cursor"`
	CanUndo bool `json:"canUndo"`
	CanRedo bool `json:"canRedo"`
}

// CurrentFlow returns a copy of the active flow, or nil.
func (e *Editor) CurrentFlow() *flow.Flow {
	return e.flows[e.activeFlow].Clone()
}

// CurrentNode returns a copy of the active node, or nil.
func (e *Editor) CurrentNode() *flow.Node {
	f := e.flows[e.activeFlow]
	if f == nil || e.activeNode == "" {
		return nil
	}
	n := f.Node(e.activeNode)
	if n == nil {
		return nil
	}
	out := n.Clone()
	return &out
}

// Flow returns a copy of the named flow, or nil.
func (e *Editor) Flow(name string) *flow.Flow {
	return e.flows[name].Clone()
}

// Flows returns the live collection. The map is the caller's; the flows
// are shared and must not be modified.
func (e *Editor) Flows() flow.Collection {
	return e.flows.Copy()
}

// FlowNames returns the sorted flow names.
func (e *Editor) FlowNames() []string {
	return e.flows.Names()
}

// DirtyFlowNames returns the sorted names of flows with unsaved changes.
func (e *Editor) DirtyFlowNames() []string {
	return e.tracker.Dirty()
}

// CanUndo reports whether Undo would change state.
func (e *Editor) CanUndo() bool { return e.history.CanUndo() }

// CanRedo reports whether Redo would change state.
func (e *Editor) CanRedo() bool { return e.history.CanRedo() }

// History returns the state of the undo timeline.
func (e *Editor) History() HistoryStatus {
	return HistoryStatus{
		Len:     e.history.Len(),
		Cursor:  e.history.Cursor(),
		CanUndo: e.history.CanUndo(),
		CanRedo: e.history.CanRedo(),
	}
}

// ActiveFlow returns the name of the selected flow, or "".
func (e *Editor) ActiveFlow() string { return e.activeFlow }

// ActiveNode returns the id of the selected node, or "".
func (e *Editor) ActiveNode() string { return e.activeNode }

// DiagramAction returns the diagram tool set by SetDiagramAction.
func (e *Editor) DiagramAction() string { return e.action }

// IsFetching reports whether a load is outstanding.
func (e *Editor) IsFetching() bool { return e.fetching }

// IsSaving reports whether a save is outstanding.
func (e *Editor) IsSaving() bool { return e.saving }

// Clipboard returns a copy of the node waiting to be pasted, or nil.
func (e *Editor) Clipboard() *flow.Node {
	if e.clipboard == nil {
		return nil
	}
	n := e.clipboard.Clone()
	return &n
}
