package store

import (
	"context"
	"fmt"
)

// WriteWindow journals a processed window with its groups and nodes in a
// single transaction. Uses ON CONFLICT(id) DO NOTHING for idempotency:
// writing a window whose ID is already journaled changes nothing and
// returns inserted=false.
func (s *Store) WriteWindow(ctx context.Context, w Window) (inserted bool, err error) {
	restored, err := marshalIDs(w.Restored)
	if err != nil {
		return false, fmt.Errorf("write window: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("write window: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	res, err := tx.ExecContext(ctx, `
		INSERT INTO capture_windows
		(id, seq, operation, outcome, node_count, restored, error, digest, engine_version, journal_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		w.ID,
		w.Seq,
		w.Operation,
		w.Outcome,
		w.NodeCount,
		restored,
		w.Error,
		w.Digest,
		w.EngineVersion,
		w.JournalVersion,
	)
	if err != nil {
		return false, fmt.Errorf("write window: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("write window: rows affected: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	for _, g := range w.Groups {
		nodes, err := marshalIDs(g.Nodes)
		if err != nil {
			return false, fmt.Errorf("write window: group %d: %w", g.Index, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO event_groups
			(window_id, idx, parent, chain, type, world, decider, event, outcome, nodes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, w.ID, g.Index, g.Parent, g.Chain, g.Type, g.World, g.Decider, g.Event, g.Outcome, nodes); err != nil {
			return false, fmt.Errorf("write window: group %d: %w", g.Index, err)
		}
	}

	for _, nd := range w.Nodes {
		detail := nd.Detail
		if detail == "" {
			detail = "{}"
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO window_nodes
			(window_id, id, chain, parent, effect, group_idx, type, variant, world, description, cancelled, restored, detail)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			w.ID, nd.ID, nd.Chain, nd.Parent, nd.Effect, nd.Group, nd.Type, nd.Variant, nd.World,
			nd.Description, boolToInt(nd.Cancelled), boolToInt(nd.Restored), detail,
		); err != nil {
			return false, fmt.Errorf("write window: node %d: %w", nd.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("write window: commit: %w", err)
	}
	return true, nil
}
