//go:build cgo

package graph

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	kuzu "github.com/kuzudb/go-kuzu"
)

// KuzuStore implements the Store interface using KuzuDB as the graph backend.
// It requires CGO because the go-kuzu driver wraps KuzuDB's C library.
// One connection is shared by all workers, so every call holds mu.
type KuzuStore struct {
	mu   sync.Mutex
	db   *kuzu.Database
	conn *kuzu.Connection
}

// Compile-time check that KuzuStore satisfies Store.
var _ Store = (*KuzuStore)(nil)

// NewKuzuStore creates a KuzuStore backed by an in-memory KuzuDB instance.
func NewKuzuStore() (*KuzuStore, error) {
	return openKuzu(":memory:")
}

// NewKuzuFileStore creates a KuzuStore backed by a file-based KuzuDB at the
// given directory path. KuzuDB creates the leaf directory itself.
func NewKuzuFileStore(dbPath string) (*KuzuStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("kuzu: create parent directory: %w", err)
	}
	return openKuzu(dbPath)
}

func openKuzu(path string) (*KuzuStore, error) {
	cfg := kuzu.DefaultSystemConfig()
	db, err := kuzu.OpenDatabase(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("kuzu: open database %s: %w", path, err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kuzu: open connection: %w", err)
	}
	return &KuzuStore{db: db, conn: conn}, nil
}

// Close releases the KuzuDB connection and database.
func (s *KuzuStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	if s.db != nil {
		s.db.Close()
		s.db = nil
	}
	return nil
}

// ---------- Schema setup ----------

// Node tables must precede relationship tables.
var ddlStatements = []string{
	`CREATE NODE TABLE IF NOT EXISTS Read(
		id INT64,
		name STRING,
		length INT64,
		corrected BOOLEAN,
		alignments INT64,
		covered INT64,
		mean_depth DOUBLE,
		regions INT64,
		PRIMARY KEY(id)
	)`,
	`CREATE REL TABLE IF NOT EXISTS OVERLAPS(
		FROM Read TO Read,
		target_start INT64,
		target_end INT64,
		identity DOUBLE,
		reverse BOOLEAN
	)`,
}

// InitSchema creates the node and relationship tables if they do not exist.
func (s *KuzuStore) InitSchema(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, stmt := range ddlStatements {
		res, err := s.conn.Query(stmt)
		if err != nil {
			return fmt.Errorf("kuzu: init schema: %w", err)
		}
		res.Close()
	}
	return nil
}

// ---------- Write operations ----------

// AddRead merges a Read node and sets its name and length.
func (s *KuzuStore) AddRead(_ context.Context, node ReadNode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exec(
		"MERGE (r:Read {id: $id}) SET r.name = $name, r.length = $len",
		map[string]any{
			"id":   node.ID,
			"name": node.Name,
			"len":  int64(node.Length),
		},
	)
}

// AddOverlap merges both endpoints and creates the OVERLAPS edge.
func (s *KuzuStore) AddOverlap(_ context.Context, ov Overlap) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exec(
		`MERGE (q:Read {id: $q})
		 MERGE (t:Read {id: $t})
		 CREATE (q)-[:OVERLAPS {
			target_start: $ts,
			target_end: $te,
			identity: $idn,
			reverse: $rev
		 }]->(t)`,
		map[string]any{
			"q":   ov.Query,
			"t":   ov.Target,
			"ts":  int64(ov.TargetStart),
			"te":  int64(ov.TargetEnd),
			"idn": ov.Identity,
			"rev": ov.Reverse,
		},
	)
}

// SetCorrection updates the correction columns of an existing read.
func (s *KuzuStore) SetCorrection(_ context.Context, id int64, c Correction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.query(
		`MATCH (r:Read {id: $id})
		 SET r.corrected = true,
			r.alignments = $aln,
			r.covered = $cov,
			r.mean_depth = $depth,
			r.regions = $reg
		 RETURN r.id`,
		map[string]any{
			"id":    id,
			"aln":   int64(c.Alignments),
			"cov":   int64(c.CoveredBases),
			"depth": c.MeanDepth,
			"reg":   int64(c.Regions),
		},
	)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("kuzu: set correction on %d: %w", id, ErrUnknownRead)
	}
	return nil
}

// ---------- Read operations ----------

// Read retrieves a single Read node by id, or returns nil if not found.
func (s *KuzuStore) Read(_ context.Context, id int64) (*ReadNode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.query(
		`MATCH (r:Read {id: $id})
		 RETURN r.name, r.length, r.corrected, r.alignments, r.covered, r.mean_depth, r.regions`,
		map[string]any{"id": id},
	)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	r := rows[0]
	node := &ReadNode{ID: id, Name: toString(r[0]), Length: toInt(r[1])}
	if toBool(r[2]) {
		node.Correction = &Correction{
			Alignments:   toInt(r[3]),
			CoveredBases: toInt(r[4]),
			MeanDepth:    toFloat64(r[5]),
			Regions:      toInt(r[6]),
		}
	}
	return node, nil
}

// Overlaps returns the OVERLAPS edges into target.
func (s *KuzuStore) Overlaps(_ context.Context, target int64) ([]Overlap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.query(
		`MATCH (q:Read)-[o:OVERLAPS]->(t:Read {id: $t})
		 RETURN q.id, o.target_start, o.target_end, o.identity, o.reverse`,
		map[string]any{"t": target},
	)
	if err != nil {
		return nil, err
	}
	out := make([]Overlap, 0, len(rows))
	for _, r := range rows {
		out = append(out, Overlap{
			Query:       toInt64(r[0]),
			Target:      target,
			TargetStart: toInt(r[1]),
			TargetEnd:   toInt(r[2]),
			Identity:    toFloat64(r[3]),
			Reverse:     toBool(r[4]),
		})
	}
	sortOverlaps(out)
	return out, nil
}

// ---------- Stats ----------

// Stats returns node and edge counts.
func (s *KuzuStore) Stats(_ context.Context) (*Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reads, err := s.count("MATCH (r:Read) RETURN count(r)")
	if err != nil {
		return nil, err
	}
	corrected, err := s.count("MATCH (r:Read) WHERE r.corrected = true RETURN count(r)")
	if err != nil {
		return nil, err
	}
	overlaps, err := s.count("MATCH ()-[o:OVERLAPS]->() RETURN count(o)")
	if err != nil {
		return nil, err
	}
	return &Stats{Reads: reads, Corrected: corrected, Overlaps: overlaps}, nil
}

// ---------- Internal helpers ----------

// exec runs a parameterized Cypher statement that produces no result rows.
func (s *KuzuStore) exec(cypher string, params map[string]any) error {
	stmt, err := s.conn.Prepare(cypher)
	if err != nil {
		return fmt.Errorf("kuzu: prepare: %w", err)
	}
	defer stmt.Close()

	res, err := s.conn.Execute(stmt, params)
	if err != nil {
		return fmt.Errorf("kuzu: execute: %w", err)
	}
	res.Close()
	return nil
}

// query runs a Cypher statement and collects all result rows.
// Each row is a []any slice with values in column order.
func (s *KuzuStore) query(cypher string, params map[string]any) ([][]any, error) {
	var res *kuzu.QueryResult
	var err error

	if len(params) == 0 {
		res, err = s.conn.Query(cypher)
	} else {
		var stmt *kuzu.PreparedStatement
		stmt, err = s.conn.Prepare(cypher)
		if err != nil {
			return nil, fmt.Errorf("kuzu: prepare: %w", err)
		}
		defer stmt.Close()
		res, err = s.conn.Execute(stmt, params)
	}
	if err != nil {
		return nil, fmt.Errorf("kuzu: query: %w", err)
	}
	defer res.Close()

	var rows [][]any
	for res.HasNext() {
		tuple, err := res.Next()
		if err != nil {
			return nil, fmt.Errorf("kuzu: next: %w", err)
		}
		vals, err := tuple.GetAsSlice()
		if err != nil {
			return nil, fmt.Errorf("kuzu: row values: %w", err)
		}
		rows = append(rows, vals)
	}
	return rows, nil
}

func (s *KuzuStore) count(cypher string) (int, error) {
	rows, err := s.query(cypher, nil)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return 0, nil
	}
	return toInt(rows[0][0]), nil
}

// ---------- Type coercion helpers ----------
// KuzuDB returns typed Go values, or nil for unset properties.

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	}
	return fmt.Sprintf("%v", v)
}

func toInt(v any) int { return int(toInt64(v)) }

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case uint64:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}

func toFloat64(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

func toBool(v any) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return false
}
