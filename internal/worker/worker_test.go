package worker

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/readcns/internal/candidate"
	"github.com/dusk-indust/readcns/internal/config"
	"github.com/dusk-indust/readcns/internal/consensus"
	"github.com/dusk-indust/readcns/internal/engine"
	"github.com/dusk-indust/readcns/internal/logging"
	"github.com/dusk-indust/readcns/internal/partition"
	"github.com/dusk-indust/readcns/internal/reads"
	"github.com/dusk-indust/readcns/internal/sink"
)

type memSink struct {
	mu      sync.Mutex
	results []sink.Result
	err     error
}

func (s *memSink) Write(_ context.Context, r sink.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.results = append(s.results, r)
	return nil
}

type countingMetrics struct {
	mu         sync.Mutex
	candidates map[string]int
	windows    map[string]int
	targets    int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{candidates: map[string]int{}, windows: map[string]int{}}
}

func (m *countingMetrics) CandidateOutcome(o string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.candidates[o]++
}

func (m *countingMetrics) WindowOutcome(o string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.windows[o]++
}

func (m *countingMetrics) TargetDone(float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.targets++
}

func randomSeq(rng *rand.Rand, n int) []byte {
	s := make([]byte, n)
	for i := range s {
		s[i] = "ACGT"[rng.IntN(4)]
	}
	return s
}

func testOptions() Options {
	cfg := config.Default()
	cfg.MinAlignSize = 50
	cfg.MinCoverage = 2
	cfg.MaxSeqSize = 1000
	return OptionsFromConfig(cfg)
}

// fixture builds a store with target 0 and three queries drawn from it:
// read 1 = target[0:300], read 2 = target[150:400], read 3 = revcomp(target[100:300]).
func fixture(t *testing.T) (*reads.PackedDB, []candidate.Extension) {
	t.Helper()
	rng := rand.New(rand.NewPCG(21, 22))
	target := randomSeq(rng, 400)

	db := reads.NewPackedDB()
	db.Add("target", target)
	db.Add("q1", target[0:300])
	db.Add("q2", target[150:400])
	rc := append([]byte(nil), target[100:300]...)
	db.Add("q3", reads.ReverseComplement(rc))

	cands := []candidate.Extension{
		{QueryID: 1, QueryExt: 10, TargetID: 0, TargetExt: 10},
		{QueryID: 2, QueryExt: 5, TargetID: 0, TargetExt: 155},
		{QueryDir: candidate.Reverse, QueryID: 3, QueryExt: 20, TargetID: 0, TargetExt: 120},
	}
	return db, cands
}

func newShared(db reads.Store, s sink.Sink, opts Options) Shared {
	return Shared{
		Reads:   db,
		Aligner: engine.NewBanded(engine.DefaultParams(engine.Small), engine.DefaultParams(engine.Large)),
		Sink:    s,
		Options: opts,
	}
}

func singleGroup(t *testing.T, cands []candidate.Extension) []partition.Group {
	t.Helper()
	minID, maxID, err := candidate.IDRange(cands)
	require.NoError(t, err)
	groups, err := partition.Split(cands, minID, maxID, 1)
	require.NoError(t, err)
	return groups
}

func TestRun_TalliesForwardAndReverseQueries(t *testing.T) {
	db, cands := fixture(t)
	out := &memSink{}
	m := newCountingMetrics()
	shared := newShared(db, out, testOptions())
	shared.Metrics = m

	ctxs := Build(singleGroup(t, cands), shared)
	require.Len(t, ctxs, 1)
	require.NoError(t, ctxs[0].Run(context.Background()))

	require.Len(t, out.results, 1)
	r := out.results[0]
	assert.Equal(t, int64(0), r.TargetID)
	assert.Equal(t, "target", r.TargetName)
	assert.Equal(t, 400, r.Length)
	assert.Equal(t, 3, r.Added)
	assert.Equal(t, 3, r.WindowsHit)
	assert.Equal(t, 400, r.CoveredBases)
	assert.Equal(t, []consensus.Span{{Start: 100, End: 300}}, r.Regions)

	require.Len(t, r.Overlaps, 3)
	assert.Equal(t, 100, r.Overlaps[2].TargetStart)
	assert.Equal(t, 300, r.Overlaps[2].TargetEnd)
	assert.True(t, r.Overlaps[2].Reverse)
	assert.InDelta(t, 1.0, r.Overlaps[2].Identity, 1e-12)

	assert.Equal(t, Stats{Targets: 1, Added: 3}, ctxs[0].Stats())
	assert.Equal(t, 3, m.candidates["added"])
	assert.Equal(t, 3, m.windows["hit"])
	assert.Equal(t, 1, m.targets)
}

func TestRun_PoolFullRejects(t *testing.T) {
	db, cands := fixture(t)
	out := &memSink{}
	opts := testOptions()
	opts.PoolCapacity = 2

	ctxs := Build(singleGroup(t, cands), newShared(db, out, opts))
	require.NoError(t, ctxs[0].Run(context.Background()))

	require.Len(t, out.results, 1)
	assert.Equal(t, 2, out.results[0].Added)
	assert.Equal(t, 1, out.results[0].Rejected)
	assert.Equal(t, 1, ctxs[0].Stats().Rejected)
}

func TestRun_FailedDroppedAndInvalidCandidates(t *testing.T) {
	db, cands := fixture(t)
	rng := rand.New(rand.NewPCG(5, 5))
	unrelated := db.Add("noise", randomSeq(rng, 300))
	target, err := db.Seq(0, nil)
	require.NoError(t, err)
	// Shares only the last 40 target bases: below MinAlignSize.
	tail := db.Add("tail", append(append([]byte(nil), target[360:]...), randomSeq(rng, 200)...))

	cands = append(cands,
		candidate.Extension{QueryID: unrelated, QueryExt: 0, TargetID: 0, TargetExt: 0},
		candidate.Extension{QueryID: 99, TargetID: 0},
		candidate.Extension{QueryID: tail, QueryExt: 5, TargetID: 0, TargetExt: 365},
	)
	out := &memSink{}
	ctxs := Build(singleGroup(t, cands), newShared(db, out, testOptions()))
	require.NoError(t, ctxs[0].Run(context.Background()))

	require.Len(t, out.results, 1)
	r := out.results[0]
	assert.Equal(t, 3, r.Added)
	assert.Equal(t, 1, r.Failed)
	assert.Equal(t, 2, r.Dropped)

	st := ctxs[0].Stats()
	assert.Equal(t, 1, st.Invalid)
	assert.Equal(t, 1, st.Dropped)
	assert.Equal(t, 1, st.Failed)
}

// skewAligner drops the last target column from the first alignment it returns.
type skewAligner struct {
	engine.Aligner
	calls int
}

func (a *skewAligner) Align(query, target []byte, seed engine.Seed, p engine.Profile) (engine.Raw, error) {
	raw, err := a.Aligner.Align(query, target, seed, p)
	a.calls++
	if err == nil && a.calls == 1 {
		raw.Target = raw.Target[:len(raw.Target)-1]
	}
	return raw, err
}

func TestRun_UnevenAlignmentAbortsOnlyThatCandidate(t *testing.T) {
	db, cands := fixture(t)
	out := &memSink{}
	m := newCountingMetrics()
	shared := newShared(db, out, testOptions())
	shared.Aligner = &skewAligner{Aligner: shared.Aligner}
	shared.Metrics = m

	ctxs := Build(singleGroup(t, cands), shared)
	require.NoError(t, ctxs[0].Run(context.Background()))

	require.Len(t, out.results, 1)
	assert.Equal(t, 2, out.results[0].Added)
	assert.Equal(t, 1, out.results[0].Dropped)
	assert.Equal(t, Stats{Targets: 1, Added: 2, Invalid: 1}, ctxs[0].Stats())
	assert.Equal(t, 1, m.candidates["invalid"])
}

func TestRun_DebugLogsWindowIdentity(t *testing.T) {
	db, cands := fixture(t)
	var buf bytes.Buffer
	shared := newShared(db, &memSink{}, testOptions())
	shared.Logger = logging.New("debug", "json", &buf)

	ctxs := Build(singleGroup(t, cands), shared)
	require.NoError(t, ctxs[0].Run(context.Background()))

	var added []map[string]any
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		if rec["msg"] == "candidate added" {
			added = append(added, rec)
		}
	}
	require.Len(t, added, 3)
	for _, rec := range added {
		assert.Equal(t, 1.0, rec["minWindowIdentity"])
		assert.Equal(t, 0.0, rec["maskedColumns"])
		assert.Equal(t, 0.0, rec[logging.KeyWorker])
	}
}

func TestRun_SkipsTargetsLongerThanTable(t *testing.T) {
	db, cands := fixture(t)
	opts := testOptions()
	opts.MaxSeqSize = 100

	out := &memSink{}
	ctxs := Build(singleGroup(t, cands), newShared(db, out, opts))
	require.NoError(t, ctxs[0].Run(context.Background()))
	assert.Empty(t, out.results)
	assert.Equal(t, 1, ctxs[0].Stats().Skipped)
}

func TestRun_MultipleTargetsInOrder(t *testing.T) {
	db, cands := fixture(t)
	// Target 1 gets read 0 as its only query.
	cands = append(cands, candidate.Extension{QueryID: 0, QueryExt: 10, TargetID: 1, TargetExt: 10})

	out := &memSink{}
	ctxs := Build(singleGroup(t, cands), newShared(db, out, testOptions()))
	require.NoError(t, ctxs[0].Run(context.Background()))

	require.Len(t, out.results, 2)
	assert.Equal(t, int64(0), out.results[0].TargetID)
	assert.Equal(t, int64(1), out.results[1].TargetID)
	assert.Equal(t, 1, out.results[1].Added)
	assert.Equal(t, 300, out.results[1].CoveredBases)
	assert.Empty(t, out.results[1].Regions, "single query never reaches depth 2")
}

func TestRun_Canceled(t *testing.T) {
	db, cands := fixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := &memSink{}
	ctxs := Build(singleGroup(t, cands), newShared(db, out, testOptions()))
	assert.ErrorIs(t, ctxs[0].Run(ctx), context.Canceled)
	assert.Empty(t, out.results)
}

func TestRun_SinkErrorStopsWorker(t *testing.T) {
	db, cands := fixture(t)
	boom := errors.New("boom")
	out := &memSink{err: boom}

	ctxs := Build(singleGroup(t, cands), newShared(db, out, testOptions()))
	err := ctxs[0].Run(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "target 0")
}

func TestBuild_OneContextPerGroup(t *testing.T) {
	cands := []candidate.Extension{{TargetID: 1}, {TargetID: 1}, {TargetID: 2}, {TargetID: 5}, {TargetID: 5}, {TargetID: 5}, {TargetID: 9}}
	groups, err := partition.Split(cands, 1, 9, 3)
	require.NoError(t, err)

	ctxs := Build(groups, Shared{Options: testOptions()})
	require.Len(t, ctxs, 3)
	total := 0
	for i, c := range ctxs {
		assert.Equal(t, i, c.ID())
		total += len(c.Group().Candidates)
	}
	assert.Equal(t, 7, total)
	assert.NotSame(t, ctxs[0].pool, ctxs[1].pool)
	assert.NotSame(t, ctxs[0].table, ctxs[1].table)
}
