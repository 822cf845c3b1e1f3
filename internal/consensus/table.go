// Package consensus tallies, per target position, the evidence that the
// alignments in a pool give about that position. Calling the corrected base
// from the tally belongs to the caller.
package consensus

import (
	"errors"
	"fmt"
	"math"
)

// Placeholder is the base an entry holds until a caller decides otherwise.
const Placeholder byte = 'N'

// ErrTooLong is returned by Reset when a target exceeds the table size.
var ErrTooLong = errors.New("consensus: target longer than table")

// Entry is the tally for one target position. Counters saturate at 255.
type Entry struct {
	Base byte
	Mat  uint8
	Sub  uint8
	Ins  uint8
	Del  uint8
	Skip uint8
}

// Depth returns the number of alignments that voted on this position.
func (e *Entry) Depth() int { return int(e.Mat) + int(e.Sub) + int(e.Del) }

func inc(c *uint8) {
	if *c < math.MaxUint8 {
		*c++
	}
}

// Table is a reusable array of entries sized once for the longest read.
type Table struct {
	entries []Entry
	n       int
}

// NewTable allocates a table for targets up to maxLen bases.
func NewTable(maxLen int) *Table {
	return &Table{entries: make([]Entry, maxLen)}
}

// Reset clears the first n entries for a new target of length n.
func (t *Table) Reset(n int) error {
	if n < 0 || n > len(t.entries) {
		return fmt.Errorf("consensus: reset to %d of %d: %w", n, len(t.entries), ErrTooLong)
	}
	clear(t.entries[:n])
	for i := range t.entries[:n] {
		t.entries[i].Base = Placeholder
	}
	t.n = n
	return nil
}

// Len returns the current target length.
func (t *Table) Len() int { return t.n }

// Cap returns the longest target the table can hold.
func (t *Table) Cap() int { return len(t.entries) }

// At returns the entry for target position i.
func (t *Table) At(i int) *Entry { return &t.entries[:t.n][i] }

// Entries returns the live entries. The slice aliases the table.
func (t *Table) Entries() []Entry { return t.entries[:t.n] }

// AddMatch records a match at position i.
func (t *Table) AddMatch(i int) { inc(&t.entries[:t.n][i].Mat) }

// AddSubstitution records a mismatched base at position i.
func (t *Table) AddSubstitution(i int) { inc(&t.entries[:t.n][i].Sub) }

// AddInsertion records an insertion following position i.
func (t *Table) AddInsertion(i int) { inc(&t.entries[:t.n][i].Ins) }

// AddDeletion records a deletion of position i.
func (t *Table) AddDeletion(i int) { inc(&t.entries[:t.n][i].Del) }

// AddSkip records an alignment that covered position i without a usable opinion.
func (t *Table) AddSkip(i int) { inc(&t.entries[:t.n][i].Skip) }
