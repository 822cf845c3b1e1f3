// Package reads holds the read sequences that targets and queries are fetched
// from. The store is read-only once loaded and safe for concurrent use.
package reads

import (
	"errors"
	"fmt"
)

// ErrUnknownRead is returned for an id outside the store.
var ErrUnknownRead = errors.New("reads: unknown read id")

// Store is the read-only sequence source shared by all workers.
type Store interface {
	// Len returns the length of read id in bases.
	Len(id int64) (int, error)
	// Seq decodes read id into dst, growing it as needed, and returns it.
	Seq(id int64, dst []byte) ([]byte, error)
	// Name returns the read's name, or "" when it has none.
	Name(id int64) string
	// Count returns the number of reads.
	Count() int
}

var _ Store = (*PackedDB)(nil)

var (
	encode [256]byte
	decode = [4]byte{'A', 'C', 'G', 'T'}
)

func init() {
	// Anything that is not ACGT folds to A.
	for _, c := range "Cc" {
		encode[c] = 1
	}
	for _, c := range "Gg" {
		encode[c] = 2
	}
	for _, c := range "Tt" {
		encode[c] = 3
	}
}

// PackedDB stores reads 2 bits per base in one buffer. Read i occupies bases
// [offsets[i], offsets[i]+lengths[i]) of the packed stream.
type PackedDB struct {
	packed  []byte
	offsets []int64
	lengths []int
	names   []string
	total   int64
}

// NewPackedDB returns an empty store.
func NewPackedDB() *PackedDB { return &PackedDB{} }

// Add appends seq as the next read and returns its id.
func (db *PackedDB) Add(name string, seq []byte) int64 {
	id := int64(len(db.lengths))
	db.offsets = append(db.offsets, db.total)
	db.lengths = append(db.lengths, len(seq))
	db.names = append(db.names, name)

	need := int((db.total + int64(len(seq)) + 3) / 4)
	if need > len(db.packed) {
		db.packed = append(db.packed, make([]byte, need-len(db.packed))...)
	}
	for i, c := range seq {
		p := db.total + int64(i)
		db.packed[p>>2] |= encode[c] << ((p & 3) << 1)
	}
	db.total += int64(len(seq))
	return id
}

// Len implements Store.
func (db *PackedDB) Len(id int64) (int, error) {
	if id < 0 || id >= int64(len(db.lengths)) {
		return 0, fmt.Errorf("reads: len %d: %w", id, ErrUnknownRead)
	}
	return db.lengths[id], nil
}

// Seq implements Store.
func (db *PackedDB) Seq(id int64, dst []byte) ([]byte, error) {
	n, err := db.Len(id)
	if err != nil {
		return dst[:0], err
	}
	if cap(dst) < n {
		dst = make([]byte, n)
	}
	dst = dst[:n]
	off := db.offsets[id]
	for i := range dst {
		p := off + int64(i)
		dst[i] = decode[(db.packed[p>>2]>>((p&3)<<1))&3]
	}
	return dst, nil
}

// Name implements Store.
func (db *PackedDB) Name(id int64) string {
	if id < 0 || id >= int64(len(db.names)) {
		return ""
	}
	return db.names[id]
}

// Count implements Store.
func (db *PackedDB) Count() int { return len(db.lengths) }

// Bases returns the total number of stored bases.
func (db *PackedDB) Bases() int64 { return db.total }

// MaxLen returns the length of the longest read.
func (db *PackedDB) MaxLen() int {
	m := 0
	for _, n := range db.lengths {
		m = max(m, n)
	}
	return m
}

var complement = func() [256]byte {
	var t [256]byte
	for i := range t {
		t[i] = byte(i)
	}
	for _, p := range [][2]byte{{'A', 'T'}, {'C', 'G'}, {'a', 't'}, {'c', 'g'}} {
		t[p[0]], t[p[1]] = p[1], p[0]
	}
	return t
}()

// ReverseComplement reverse-complements seq in place and returns it.
// Bytes other than ACGT are kept, only their position changes.
func ReverseComplement(seq []byte) []byte {
	for i, j := 0, len(seq)-1; i <= j; i, j = i+1, j-1 {
		seq[i], seq[j] = complement[seq[j]], complement[seq[i]]
	}
	return seq
}
