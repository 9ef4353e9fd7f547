package index

import (
	"fmt"
)

// RecordRow represents a row in the records table.
type RecordRow struct {
	Path     string
	Kind     string
	RecordID string
	Title    string
	Category string
	Created  string
	Updated  string
	Archived string
	Checksum string
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string `json:"path"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// GraphNode is one record in the graph view.
type GraphNode struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Category string `json:"category"`
	Kind     string `json:"kind"`
}

// GraphEdge is one directed reference between two records.
type GraphEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// UpsertRecord inserts or replaces a record row, its FTS entry, and its
// outgoing references within a transaction.
func (db *DB) UpsertRecord(r RecordRow, body string, refs []string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO records (path, kind, record_id, title, category, created, updated, archived, checksum, body)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			kind      = excluded.kind,
			record_id = excluded.record_id,
			title     = excluded.title,
			category  = excluded.category,
			created   = excluded.created,
			updated   = excluded.updated,
			archived  = excluded.archived,
			checksum  = excluded.checksum,
			body      = excluded.body
	`, r.Path, r.Kind, r.RecordID, r.Title, r.Category, r.Created, r.Updated, r.Archived, r.Checksum, body)
	if err != nil {
		return fmt.Errorf("index: upsert record: %w", err)
	}

	// FTS upsert (no-op when the sqlite_fts5 tag is absent).
	if err := ftsUpsert(tx, r.Path, r.Title, body); err != nil {
		return err
	}

	// Replace outgoing refs: delete old then bulk insert.
	_, _ = tx.Exec(`DELETE FROM refs WHERE source_path = ?`, r.Path)
	if len(refs) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO refs (source_path, target_id) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare ref insert: %w", err)
		}
		defer stmt.Close()
		for _, target := range refs {
			if _, err := stmt.Exec(r.Path, target); err != nil {
				return fmt.Errorf("index: insert ref: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteRecord removes a record, its FTS entry, and its outgoing refs.
func (db *DB) DeleteRecord(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	_, _ = tx.Exec(`DELETE FROM refs WHERE source_path = ?`, path)
	_, _ = tx.Exec(`DELETE FROM records WHERE path = ?`, path)

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a path, or empty string
// if not indexed.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM records WHERE path = ?`, path).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

// AllChecksums returns path → checksum for every indexed record file.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM records`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// AllPaths returns every indexed record file path.
func (db *DB) AllPaths() (map[string]struct{}, error) {
	rows, err := db.conn.Query(`SELECT path FROM records`)
	if err != nil {
		return nil, fmt.Errorf("index: all paths: %w", err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out[p] = struct{}{}
	}
	return out, rows.Err()
}

// Backlinks returns the record ids of files that reference the given
// record id.
func (db *DB) Backlinks(recordID string) ([]string, error) {
	rows, err := db.conn.Query(`
		SELECT DISTINCT r.record_id
		FROM refs f
		JOIN records r ON r.path = f.source_path
		WHERE f.target_id = ? AND r.record_id != ''
		ORDER BY r.record_id
	`, recordID)
	if err != nil {
		return nil, fmt.Errorf("index: backlinks: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Graph returns all indexed records as nodes and their references as
// directed edges. Nodes are deduplicated by record id, keeping the
// newest file version (paths sort chronologically).
func (db *DB) Graph() ([]GraphNode, []GraphEdge, error) {
	rows, err := db.conn.Query(`
		SELECT record_id, title, category, kind
		FROM records
		WHERE record_id != ''
		GROUP BY record_id
		HAVING path = MAX(path)
		ORDER BY record_id
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("index: graph nodes: %w", err)
	}
	defer rows.Close()

	var nodes []GraphNode
	for rows.Next() {
		var n GraphNode
		if err := rows.Scan(&n.ID, &n.Title, &n.Category, &n.Kind); err != nil {
			return nil, nil, err
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	edgeRows, err := db.conn.Query(`
		SELECT DISTINCT r.record_id, f.target_id
		FROM refs f
		JOIN records r ON r.path = f.source_path
		WHERE r.record_id != ''
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("index: graph edges: %w", err)
	}
	defer edgeRows.Close()

	var edges []GraphEdge
	for edgeRows.Next() {
		var e GraphEdge
		if err := edgeRows.Scan(&e.Source, &e.Target); err != nil {
			return nil, nil, err
		}
		edges = append(edges, e)
	}
	return nodes, edges, edgeRows.Err()
}
