// Package engine aligns a query read against a target read around a seed hit.
// The consensus core only depends on the Aligner interface; Banded is the
// reference implementation.
package engine

import (
	"errors"
	"fmt"
)

// ErrNoAlignment is returned when no acceptable alignment exists.
var ErrNoAlignment = errors.New("engine: no alignment")

// Profile selects one of the two parameter sets handed to the aligner.
type Profile int

const (
	// Small is used for candidates whose expected span is short.
	Small Profile = iota
	// Large is used for long overlaps.
	Large
)

func (p Profile) String() string {
	switch p {
	case Small:
		return "small"
	case Large:
		return "large"
	}
	return fmt.Sprintf("Profile(%d)", int(p))
}

// Params tunes the aligner for one profile.
type Params struct {
	// Band is the half width of the diagonal band.
	Band int `yaml:"band"`
	// MaxDiffRate is the largest fraction of differing columns accepted.
	MaxDiffRate float64 `yaml:"maxDiffRate"`
}

// DefaultParams returns the stock parameters for p.
func DefaultParams(p Profile) Params {
	if p == Large {
		return Params{Band: 400, MaxDiffRate: 0.3}
	}
	return Params{Band: 100, MaxDiffRate: 0.3}
}

// Seed is a shared k-mer position on both reads, in the orientation in which
// the reads are passed to Align.
type Seed struct {
	QueryPos  int
	TargetPos int
}

// Raw is an unnormalized pairwise alignment. Query and Target have equal
// length and use '-' for gaps. Coordinates are half-open.
type Raw struct {
	QueryStart, QueryEnd   int
	TargetStart, TargetEnd int
	Query, Target          []byte
}

// Identity returns the fraction of columns where both sides agree. Columns
// present on only one side count as disagreements.
func (r Raw) Identity() float64 {
	n := max(len(r.Query), len(r.Target))
	if n == 0 {
		return 0
	}
	same := 0
	for i := range min(len(r.Query), len(r.Target)) {
		if r.Query[i] == r.Target[i] {
			same++
		}
	}
	return float64(same) / float64(n)
}

// Aligner produces a Raw alignment of query against target. Implementations
// must be safe for concurrent use.
type Aligner interface {
	Align(query, target []byte, seed Seed, p Profile) (Raw, error)
}

// Overlap returns the query and target intervals implied by extending the
// seed diagonal in both directions until either read ends.
func Overlap(qlen, tlen int, seed Seed) (qs, qe, ts, te int) {
	d := seed.TargetPos - seed.QueryPos
	qs = max(0, -d)
	ts = qs + d
	qe = min(qlen, tlen-d)
	te = qe + d
	if qe < qs {
		qe, te = qs, ts
	}
	return qs, qe, ts, te
}
