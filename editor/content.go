package editor

import (
	"context"
	"errors"
	"fmt"

	"github.com/meikuraledutech/flow"
)

// ErrNoContentPicker is returned by PickContent when the editor was built
// without WithContentPicker.
var ErrNoContentPicker = errors.New("editor: no content picker configured")

// PickRequest describes where picked content will be inserted.
type PickRequest struct {
	Flow string
	Node string
}

// ContentItem is an entry of the content library.
type ContentItem struct {
	ID       string `json:"id"`
	Category string `json:"category,omitempty"`
	Preview  string `json:"preview,omitempty"`
}

// ContentPicker lets the user choose an item from the content library.
// An item with an empty ID means the user dismissed the picker.
type ContentPicker interface {
	PickContent(ctx context.Context, req PickRequest) (ContentItem, error)
}

// ContentPickerFunc adapts a function to ContentPicker.
type ContentPickerFunc func(ctx context.Context, req PickRequest) (ContentItem, error)

func (f ContentPickerFunc) PickContent(ctx context.Context, req PickRequest) (ContentItem, error) {
	return f(ctx, req)
}

// ContentAction returns the on-enter action that renders a content item.
func ContentAction(id string) string {
	return "say #!" + id
}

// PickContent asks the picker for a content item and appends the action
// rendering it to the node's on-enter list.
func (e *Editor) PickContent(ctx context.Context, flowName, nodeID string) (ContentItem, error) {
	if e.picker == nil {
		return ContentItem{}, ErrNoContentPicker
	}
	f, ok := e.flows[flowName]
	if !ok {
		return ContentItem{}, fmt.Errorf("%w: %q", flow.ErrFlowNotFound, flowName)
	}
	if f.Node(nodeID) == nil {
		return ContentItem{}, fmt.Errorf("%w: %q in flow %q", flow.ErrNodeNotFound, nodeID, flowName)
	}

	item, err := e.picker.PickContent(ctx, PickRequest{Flow: flowName, Node: nodeID})
	if err != nil {
		return ContentItem{}, fmt.Errorf("editor: pick content: %w", err)
	}
	if item.ID == "" {
		return item, nil
	}

	// Re-read the node: the collection may have moved on while picking.
	err = e.edit("pick content", func(s state) (state, error) {
		f, ok := s.flows[flowName]
		if !ok {
			return s, fmt.Errorf("%w: %q", flow.ErrFlowNotFound, flowName)
		}
		n := f.Node(nodeID)
		if n == nil {
			return s, fmt.Errorf("%w: %q in flow %q", flow.ErrNodeNotFound, nodeID, flowName)
		}
		onEnter := append(append([]string{}, n.OnEnter...), ContentAction(item.ID))
		flows, err := s.flows.UpdateNode(flowName, nodeID, flow.NodePatch{OnEnter: onEnter})
		if err != nil {
			return s, err
		}
		s.flows = flows
		return s, nil
	})
	return item, err
}
