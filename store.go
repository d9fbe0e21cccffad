package flow

import (
	"context"
	"errors"
	"fmt"
)

// ErrPrecondition is wrapped by every error that rejects an edit without
// touching state. Use errors.Is(err, ErrPrecondition) to tell a bad request
// apart from a failure.
var ErrPrecondition = errors.New("flow: precondition violation")

var (
	ErrFlowExists         = fmt.Errorf("%w: flow already exists", ErrPrecondition)
	ErrFlowNotFound       = fmt.Errorf("%w: flow not found", ErrPrecondition)
	ErrNodeExists         = fmt.Errorf("%w: node name already in use", ErrPrecondition)
	ErrNodeNotFound       = fmt.Errorf("%w: node not found", ErrPrecondition)
	ErrTransitionNotFound = fmt.Errorf("%w: transition not found", ErrPrecondition)
	ErrInvalidName        = fmt.Errorf("%w: invalid name", ErrPrecondition)
	ErrNoActiveFlow       = fmt.Errorf("%w: no active flow", ErrPrecondition)
	ErrNoActiveNode       = fmt.Errorf("%w: no active node", ErrPrecondition)
	ErrClipboardEmpty     = fmt.Errorf("%w: clipboard is empty", ErrPrecondition)
	ErrBusy               = fmt.Errorf("%w: load or save already in progress", ErrPrecondition)
)

// Store defines the contract of the persistence collaborator.
// Flows are persisted as one document per flow, keyed by flow name.
type Store interface {
	// Schema
	CreateSchema(ctx context.Context) error
	DropSchema(ctx context.Context) error

	// Collection (bulk operations)
	LoadAllFlows(ctx context.Context) (Collection, error)
	SaveAllFlows(ctx context.Context, flows Collection) error

	// Single documents
	LoadFlow(ctx context.Context, name string) (*Flow, error)
	DeleteFlow(ctx context.Context, name string) error
}
