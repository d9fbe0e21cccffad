// Package memory implements flow.Store in process memory.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/meikuraledutech/flow"
)

// Store keeps flow documents as JSON so every load hands out fresh values,
// like a remote store would.
type Store struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// New returns an empty Store.
func New() *Store {
	return &Store{docs: map[string][]byte{}}
}

// CreateSchema is a no-op.
func (s *Store) CreateSchema(ctx context.Context) error { return nil }

// DropSchema removes every document.
func (s *Store) DropSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = map[string][]byte{}
	return nil
}

// LoadAllFlows decodes every stored document.
func (s *Store) LoadAllFlows(ctx context.Context) (flow.Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(flow.Collection, len(s.docs))
	for name, doc := range s.docs {
		var f flow.Flow
		if err := json.Unmarshal(doc, &f); err != nil {
			return nil, fmt.Errorf("flow: decode %q: %w", name, err)
		}
		out[name] = &f
	}
	return out, nil
}

// SaveAllFlows replaces the stored collection with flows.
func (s *Store) SaveAllFlows(ctx context.Context, flows flow.Collection) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	docs := make(map[string][]byte, len(flows))
	for name, f := range flows {
		doc, err := json.Marshal(f)
		if err != nil {
			return fmt.Errorf("flow: encode %q: %w", name, err)
		}
		docs[name] = doc
	}

	s.mu.Lock()
	s.docs = docs
	s.mu.Unlock()
	return nil
}

// LoadFlow returns a single flow.
// Returns nil, nil if not found.
func (s *Store) LoadFlow(ctx context.Context, name string) (*flow.Flow, error) {
	s.mu.RLock()
	doc, ok := s.docs[name]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	var f flow.Flow
	if err := json.Unmarshal(doc, &f); err != nil {
		return nil, fmt.Errorf("flow: decode %q: %w", name, err)
	}
	return &f, nil
}

// DeleteFlow removes a single flow.
// No error if the flow doesn't exist.
func (s *Store) DeleteFlow(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, name)
	return nil
}

var _ flow.Store = (*Store)(nil)
