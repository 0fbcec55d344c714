package store

import (
	"context"
	"database/sql"
	"fmt"
)

// ReadWindow retrieves a window with its groups and nodes.
// Returns an error wrapping sql.ErrNoRows if not found.
func (s *Store) ReadWindow(ctx context.Context, id string) (Window, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, operation, outcome, node_count, restored, error, digest, engine_version, journal_version
		FROM capture_windows
		WHERE id = ?
	`, id)
	w, err := scanWindow(row)
	if err != nil {
		return Window{}, fmt.Errorf("read window %s: %w", id, err)
	}

	if w.Groups, err = s.readGroups(ctx, id); err != nil {
		return Window{}, err
	}
	if w.Nodes, err = s.ReadNodes(ctx, id); err != nil {
		return Window{}, err
	}
	return w, nil
}

// ListWindows returns every window header ordered by seq ASC, id ASC.
// Groups and Nodes are not loaded.
//
// Returns an empty slice (not nil) if the journal is empty.
func (s *Store) ListWindows(ctx context.Context) ([]Window, error) {
	return s.listWindows(ctx, `
		SELECT id, seq, operation, outcome, node_count, restored, error, digest, engine_version, journal_version
		FROM capture_windows
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
}

// ListWindowsByOutcome is ListWindows filtered to one outcome.
func (s *Store) ListWindowsByOutcome(ctx context.Context, outcome string) ([]Window, error) {
	return s.listWindows(ctx, `
		SELECT id, seq, operation, outcome, node_count, restored, error, digest, engine_version, journal_version
		FROM capture_windows
		WHERE outcome = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, outcome)
}

func (s *Store) listWindows(ctx context.Context, query string, args ...any) ([]Window, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query windows: %w", err)
	}
	defer rows.Close()

	windows := []Window{}
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, err
		}
		windows = append(windows, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate windows: %w", err)
	}
	return windows, nil
}

// ReadNodes returns a window's nodes ordered by node ID.
func (s *Store) ReadNodes(ctx context.Context, windowID string) ([]Node, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, chain, parent, effect, group_idx, type, variant, world, description, cancelled, restored, detail
		FROM window_nodes
		WHERE window_id = ?
		ORDER BY id ASC
	`, windowID)
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	defer rows.Close()

	nodes := []Node{}
	for rows.Next() {
		var n Node
		var cancelled, restored int
		if err := rows.Scan(
			&n.ID, &n.Chain, &n.Parent, &n.Effect, &n.Group, &n.Type, &n.Variant,
			&n.World, &n.Description, &cancelled, &restored, &n.Detail,
		); err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		n.Cancelled = cancelled == 1
		n.Restored = restored == 1
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nodes: %w", err)
	}
	return nodes, nil
}

func (s *Store) readGroups(ctx context.Context, windowID string) ([]Group, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, parent, chain, type, world, decider, event, outcome, nodes
		FROM event_groups
		WHERE window_id = ?
		ORDER BY idx ASC
	`, windowID)
	if err != nil {
		return nil, fmt.Errorf("query groups: %w", err)
	}
	defer rows.Close()

	groups := []Group{}
	for rows.Next() {
		var g Group
		var nodes string
		if err := rows.Scan(&g.Index, &g.Parent, &g.Chain, &g.Type, &g.World, &g.Decider, &g.Event, &g.Outcome, &nodes); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		if g.Nodes, err = unmarshalIDs(nodes); err != nil {
			return nil, fmt.Errorf("group %d: %w", g.Index, err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate groups: %w", err)
	}
	return groups, nil
}

// LastSeq returns the highest window seq, or 0 for an empty journal. The
// engine resumes its clock from here.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM capture_windows`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("query last seq: %w", err)
	}
	if !seq.Valid {
		return 0, nil
	}
	return seq.Int64, nil
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanWindow(r rowScanner) (Window, error) {
	var w Window
	var restored string
	if err := r.Scan(
		&w.ID, &w.Seq, &w.Operation, &w.Outcome, &w.NodeCount, &restored,
		&w.Error, &w.Digest, &w.EngineVersion, &w.JournalVersion,
	); err != nil {
		return Window{}, fmt.Errorf("scan window: %w", err)
	}
	ids, err := unmarshalIDs(restored)
	if err != nil {
		return Window{}, fmt.Errorf("window %s: %w", w.ID, err)
	}
	w.Restored = ids
	return w, nil
}
