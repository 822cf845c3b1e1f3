package consensus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/readcns/internal/alnpool"
)

func TestTable_ResetAndSaturation(t *testing.T) {
	tbl := NewTable(8)
	require.NoError(t, tbl.Reset(4))
	for i := 0; i < 300; i++ {
		tbl.AddMatch(0)
	}
	tbl.AddDeletion(1)
	tbl.AddInsertion(1)
	tbl.AddSkip(2)

	assert.Equal(t, uint8(255), tbl.At(0).Mat)
	assert.Equal(t, Entry{Base: Placeholder, Del: 1, Ins: 1}, *tbl.At(1))
	assert.Equal(t, uint8(1), tbl.At(2).Skip)

	require.NoError(t, tbl.Reset(2))
	assert.Equal(t, Entry{Base: Placeholder}, *tbl.At(0))
	assert.Len(t, tbl.Entries(), 2)
}

func TestTable_ResetTooLong(t *testing.T) {
	tbl := NewTable(4)
	assert.ErrorIs(t, tbl.Reset(5), ErrTooLong)
}

func TestBuilder_IdenticalAlignmentsCountMatches(t *testing.T) {
	pool := alnpool.New(4, 0)
	require.NoError(t, pool.Add(0, 10, []byte("ACGTACGTAC"), []byte("ACGTACGTAC")))
	require.NoError(t, pool.Add(2, 8, []byte("GTACGT"), []byte("GTACGT")))

	tbl := NewTable(16)
	require.NoError(t, tbl.Reset(10))

	var outcomes []alnpool.Outcome
	b := NewBuilder(3, 2)
	b.OnWindow = func(o alnpool.Outcome) { outcomes = append(outcomes, o) }
	sum := b.Build(pool, tbl)

	for i := 0; i < 10; i++ {
		want := uint8(1)
		if i >= 2 && i < 8 {
			want = 2
		}
		assert.Equal(t, want, tbl.At(i).Mat, "position %d", i)
	}
	assert.Equal(t, 10, sum.CoveredBases)
	assert.Equal(t, 0, sum.WindowsMissed)
	assert.Equal(t, sum.WindowsHit, len(outcomes))
	assert.Equal(t, []Span{{Start: 2, End: 8}}, sum.Regions)
	assert.InDelta(t, 1.6, sum.MeanDepth, 1e-9)
}

func TestBuilder_IndelsAndMaskedWindows(t *testing.T) {
	pool := alnpool.New(4, 0)
	// Insertion after target base 1, deletion of target base 3.
	require.NoError(t, pool.Add(0, 5, []byte("ACT-GA"), []byte("AC-TGA")))
	// Masked query columns in the first window.
	require.NoError(t, pool.Add(0, 5, []byte("NNTGA"), []byte("ACTGA")))

	tbl := NewTable(8)
	require.NoError(t, tbl.Reset(5))

	sum := NewBuilder(5, 1).Build(pool, tbl)

	assert.Equal(t, 1, sum.WindowsHit)
	assert.Equal(t, 1, sum.WindowsMissed)
	assert.Equal(t, uint8(1), tbl.At(1).Ins)
	assert.Equal(t, uint8(1), tbl.At(2).Del)
	assert.Equal(t, uint8(1), tbl.At(3).Mat)
	for i := 0; i < 5; i++ {
		assert.Equal(t, uint8(1), tbl.At(i).Skip, "position %d", i)
	}
	assert.Equal(t, []Span{{Start: 0, End: 5}}, sum.Regions)
}

func TestBuilder_EmptyPool(t *testing.T) {
	tbl := NewTable(4)
	require.NoError(t, tbl.Reset(4))

	sum := NewBuilder(0, 0).Build(alnpool.New(1, 0), tbl)
	assert.Zero(t, sum.CoveredBases)
	assert.Empty(t, sum.Regions)
	assert.Zero(t, sum.MeanDepth)
}

func TestBuilder_MismatchCountsAsSubstitution(t *testing.T) {
	pool := alnpool.New(2, 0)
	require.NoError(t, pool.Add(0, 4, []byte("ACCT"), []byte("AGCT")))

	tbl := NewTable(4)
	require.NoError(t, tbl.Reset(4))

	sum := NewBuilder(4, 1).Build(pool, tbl)
	assert.Equal(t, uint8(1), tbl.At(1).Sub)
	assert.Zero(t, tbl.At(1).Del)
	assert.Equal(t, 1, tbl.At(1).Depth())
	assert.Equal(t, 4, sum.CoveredBases)
}
