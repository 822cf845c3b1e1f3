// Package graph records reads and the overlaps used to correct them as a
// property graph, so a run can be inspected after the fact.
package graph

import (
	"context"
	"io"
)

// Store is the interface for the overlap graph backend.
// Implementations: KuzuStore (persistent, cgo), MemStore (in-process).
type Store interface {
	io.Closer

	// InitSchema is called once before any data is inserted.
	InitSchema(ctx context.Context) error

	// AddRead inserts or updates a read's name and length.
	AddRead(ctx context.Context, node ReadNode) error
	// AddOverlap records that a query read contributed to a target read.
	// Missing endpoints are created with only their id.
	AddOverlap(ctx context.Context, ov Overlap) error
	// SetCorrection attaches the correction summary to an existing read.
	SetCorrection(ctx context.Context, id int64, c Correction) error

	Read(ctx context.Context, id int64) (*ReadNode, error)
	Overlaps(ctx context.Context, target int64) ([]Overlap, error)

	Stats(ctx context.Context) (*Stats, error)
}
