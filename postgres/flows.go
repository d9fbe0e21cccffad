package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/meikuraledutech/flow"
)

// LoadAllFlows retrieves every flow document, keyed by flow name.
// Returns an empty collection (not nil) if none are stored.
func (s *PGStore) LoadAllFlows(ctx context.Context) (flow.Collection, error) {
	rows, err := s.db.Query(ctx, `SELECT name, document FROM flows ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("flow: query flows: %w", err)
	}
	defer rows.Close()

	out := flow.Collection{}
	for rows.Next() {
		var (
			name string
			doc  []byte
		)
		if err := rows.Scan(&name, &doc); err != nil {
			return nil, fmt.Errorf("flow: scan flow: %w", err)
		}
		f, err := decode(name, doc)
		if err != nil {
			return nil, err
		}
		out[name] = f
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("flow: rows flows: %w", err)
	}

	return out, nil
}

// SaveAllFlows replaces the stored collection in one transaction: flows
// missing from the collection are deleted, the rest are upserted.
// Nothing is written if any step fails.
func (s *PGStore) SaveAllFlows(ctx context.Context, flows flow.Collection) error {
	names := flows.Names()
	docs := make([][]byte, len(names))
	for i, name := range names {
		doc, err := json.Marshal(flows[name])
		if err != nil {
			return fmt.Errorf("flow: encode %q: %w", name, err)
		}
		docs[i] = doc
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("flow: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM flows WHERE NOT (name = ANY($1))`, names); err != nil {
		return fmt.Errorf("flow: delete stale flows: %w", err)
	}

	for i, name := range names {
		if _, err := tx.Exec(ctx,
			`INSERT INTO flows (name, document) VALUES ($1, $2)
			 ON CONFLICT (name) DO UPDATE SET document = EXCLUDED.document, updated_at = NOW()`,
			name, docs[i],
		); err != nil {
			return fmt.Errorf("flow: upsert flow %q: %w", name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("flow: commit: %w", err)
	}
	return nil
}

// LoadFlow fetches a single flow by name.
// Returns nil, nil if not found.
func (s *PGStore) LoadFlow(ctx context.Context, name string) (*flow.Flow, error) {
	var doc []byte
	err := s.db.QueryRow(ctx, `SELECT document FROM flows WHERE name = $1`, name).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("flow: get flow: %w", err)
	}
	return decode(name, doc)
}

// DeleteFlow deletes a flow by name.
// No error if the flow doesn't exist.
func (s *PGStore) DeleteFlow(ctx context.Context, name string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM flows WHERE name = $1`, name); err != nil {
		return fmt.Errorf("flow: delete flow: %w", err)
	}
	return nil
}

func decode(name string, doc []byte) (*flow.Flow, error) {
	var f flow.Flow
	if err := json.Unmarshal(doc, &f); err != nil {
		return nil, fmt.Errorf("flow: decode %q: %w", name, err)
	}
	return &f, nil
}
