// Package worker turns one partition group into per-target consensus tallies.
// Each Context owns its pool, table and scratch buffers; only the read store,
// the aligner, the sink and the metrics collector are shared.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dusk-indust/readcns/internal/alignment"
	"github.com/dusk-indust/readcns/internal/alnpool"
	"github.com/dusk-indust/readcns/internal/candidate"
	"github.com/dusk-indust/readcns/internal/config"
	"github.com/dusk-indust/readcns/internal/consensus"
	"github.com/dusk-indust/readcns/internal/engine"
	"github.com/dusk-indust/readcns/internal/graph"
	"github.com/dusk-indust/readcns/internal/logging"
	"github.com/dusk-indust/readcns/internal/metrics"
	"github.com/dusk-indust/readcns/internal/partition"
	"github.com/dusk-indust/readcns/internal/reads"
	"github.com/dusk-indust/readcns/internal/sink"
)

// Options are the per-run thresholds every worker applies.
type Options struct {
	PoolCapacity       int
	MaxSeqSize         int
	IdentityWindow     int
	IdentityThreshold  float64
	ConsensusWindow    int
	MinCoverage        int
	MinAlignSize       int
	MinIdentity        float64
	LargeSpanThreshold int
	PushGaps           bool
}

// OptionsFromConfig copies the worker settings out of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		PoolCapacity:       cfg.PoolCapacity,
		MaxSeqSize:         cfg.MaxSeqSize,
		IdentityWindow:     cfg.IdentityWindow,
		IdentityThreshold:  cfg.IdentityThreshold,
		ConsensusWindow:    cfg.ConsensusWindow,
		MinCoverage:        cfg.MinCoverage,
		MinAlignSize:       cfg.MinAlignSize,
		MinIdentity:        cfg.MinIdentity,
		LargeSpanThreshold: cfg.LargeSpanThreshold,
		PushGaps:           cfg.PushGaps,
	}
}

// Shared holds the collaborators every Context uses. Reads and Aligner must
// be safe for concurrent use, and so must Sink.
type Shared struct {
	Reads   reads.Store
	Aligner engine.Aligner
	Sink    sink.Sink
	Metrics metrics.Collector
	Logger  *slog.Logger
	Options Options
}

// Stats counts what one Context did.
type Stats struct {
	Targets  int
	Skipped  int
	Added    int
	Rejected int
	Failed   int
	Dropped  int
	Invalid  int
}

// Context processes one group of candidates, one target at a time.
type Context struct {
	id     int
	group  partition.Group
	shared Shared
	log    *slog.Logger

	pool    *alnpool.Pool
	table   *consensus.Table
	builder *consensus.Builder

	qbuf, tbuf     []byte
	qn, tn, masked []byte
	curve          []float64
	stats          Stats
}

// Build creates one Context per group. Nil metrics and logger are replaced
// by no-op implementations.
func Build(groups []partition.Group, shared Shared) []*Context {
	if shared.Metrics == nil {
		shared.Metrics = metrics.NewNop()
	}
	if shared.Logger == nil {
		shared.Logger = logging.Discard()
	}
	opts := shared.Options

	out := make([]*Context, len(groups))
	for i, g := range groups {
		c := &Context{
			id:     i,
			group:  g,
			shared: shared,
			log:    shared.Logger.With(logging.KeyWorker, i),
			// Normalization can double the column count of a target span.
			pool:    alnpool.New(opts.PoolCapacity, 2*opts.MaxSeqSize),
			table:   consensus.NewTable(opts.MaxSeqSize),
			builder: consensus.NewBuilder(opts.ConsensusWindow, opts.MinCoverage),
		}
		m := shared.Metrics
		c.builder.OnWindow = func(o alnpool.Outcome) { m.WindowOutcome(o.String()) }
		out[i] = c
	}
	return out
}

// ID returns the context's index in the slice returned by Build.
func (c *Context) ID() int { return c.id }

// Group returns the candidates this context owns.
func (c *Context) Group() partition.Group { return c.group }

// Stats returns the counters accumulated by Run.
func (c *Context) Stats() Stats { return c.stats }

// Run processes the group's targets in order. Only a sink failure or ctx
// cancellation stops it early; per-candidate problems are counted and logged.
func (c *Context) Run(ctx context.Context) error {
	cands := c.group.Candidates
	for i := 0; i < len(cands); {
		j := i + 1
		for j < len(cands) && cands[j].TargetID == cands[i].TargetID {
			j++
		}
		if err := c.processTarget(ctx, cands[i:j]); err != nil {
			return err
		}
		i = j
	}
	return nil
}

func (c *Context) processTarget(ctx context.Context, cands []candidate.Extension) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	tid := cands[0].TargetID
	log := c.log.With(logging.KeyTarget, tid)

	tlen, err := c.shared.Reads.Len(tid)
	if err == nil {
		err = c.table.Reset(tlen)
	}
	if err == nil {
		c.tbuf, err = c.shared.Reads.Seq(tid, c.tbuf)
	}
	if err != nil {
		log.Warn("skipping target", "err", err)
		c.stats.Skipped++
		return nil
	}
	c.pool.Clear()

	res := sink.Result{
		TargetID:   tid,
		TargetName: c.shared.Reads.Name(tid),
		Length:     tlen,
	}
	for _, ec := range cands {
		if err := ctx.Err(); err != nil {
			return err
		}
		outcome, ov := c.alignCandidate(ctx, ec, log)
		c.shared.Metrics.CandidateOutcome(outcome)
		switch outcome {
		case metrics.CandidateAdded:
			res.Added++
			res.Overlaps = append(res.Overlaps, ov)
		case metrics.CandidateRejected:
			res.Rejected++
		case metrics.CandidateFailed:
			res.Failed++
		case metrics.CandidateDropped, metrics.CandidateInvalid:
			res.Dropped++
		}
	}

	sum := c.builder.Build(c.pool, c.table)
	res.WindowsHit = sum.WindowsHit
	res.WindowsMissed = sum.WindowsMissed
	res.CoveredBases = sum.CoveredBases
	res.MeanDepth = sum.MeanDepth
	res.Regions = sum.Regions

	if err := c.shared.Sink.Write(ctx, res); err != nil {
		return fmt.Errorf("worker %d: target %d: %w", c.id, tid, err)
	}
	c.stats.Targets++
	c.shared.Metrics.TargetDone(time.Since(start).Seconds())
	log.Debug("target done",
		"candidates", len(cands),
		"added", res.Added,
		"rejected", res.Rejected,
		"covered", res.CoveredBases,
		"depth", res.MeanDepth)
	return nil
}

// alignCandidate aligns one query against the current target (held in
// c.tbuf) and adds the normalized, masked alignment to the pool.
func (c *Context) alignCandidate(ctx context.Context, ec candidate.Extension, log *slog.Logger) (string, graph.Overlap) {
	opts := c.shared.Options
	log = log.With(logging.KeyQuery, ec.QueryID)

	var err error
	c.qbuf, err = c.shared.Reads.Seq(ec.QueryID, c.qbuf)
	if err != nil {
		log.Warn("query unavailable", "err", err)
		c.stats.Invalid++
		return metrics.CandidateInvalid, graph.Overlap{}
	}

	seed := engine.Seed{
		QueryPos:  forward(ec.QueryExt, len(c.qbuf), ec.QueryDir),
		TargetPos: forward(ec.TargetExt, len(c.tbuf), ec.TargetDir),
	}
	reverse := !ec.SameStrand()
	if reverse {
		reads.ReverseComplement(c.qbuf)
		seed.QueryPos = len(c.qbuf) - 1 - seed.QueryPos
	}

	profile := engine.Small
	if _, _, ts, te := engine.Overlap(len(c.qbuf), len(c.tbuf), seed); te-ts > opts.LargeSpanThreshold {
		profile = engine.Large
	}

	raw, err := c.shared.Aligner.Align(c.qbuf, c.tbuf, seed, profile)
	if err != nil {
		if !errors.Is(err, engine.ErrNoAlignment) {
			log.Warn("aligner error", "err", err)
		}
		c.stats.Failed++
		return metrics.CandidateFailed, graph.Overlap{}
	}

	if len(raw.Query) != len(raw.Target) {
		log.Warn("invalid alignment", "err", fmt.Errorf("aligner returned %d vs %d columns: %w",
			len(raw.Query), len(raw.Target), alignment.ErrLengthMismatch))
		c.stats.Invalid++
		return metrics.CandidateInvalid, graph.Overlap{}
	}

	identity := raw.Identity()
	if raw.TargetEnd-raw.TargetStart < opts.MinAlignSize || identity < opts.MinIdentity {
		c.stats.Dropped++
		return metrics.CandidateDropped, graph.Overlap{}
	}

	c.qn, c.tn, err = alignment.AppendNormalized(c.qn, c.tn, raw.Query, raw.Target, opts.PushGaps)
	if err == nil {
		c.masked, err = alignment.AppendMasked(c.masked, c.qn, c.tn, opts.IdentityWindow, opts.IdentityThreshold)
	}
	if err == nil {
		err = c.pool.Add(raw.TargetStart, raw.TargetEnd, c.masked, c.tn)
	}
	switch {
	case errors.Is(err, alnpool.ErrPoolFull):
		log.Debug("pool full, candidate rejected", "capacity", c.pool.Cap())
		c.stats.Rejected++
		return metrics.CandidateRejected, graph.Overlap{}
	case err != nil:
		log.Warn("invalid alignment", "err", err)
		c.stats.Invalid++
		return metrics.CandidateInvalid, graph.Overlap{}
	}

	if log.Enabled(ctx, slog.LevelDebug) {
		c.logWindowIdentity(ctx, log, raw)
	}

	c.stats.Added++
	return metrics.CandidateAdded, graph.Overlap{
		Query:       ec.QueryID,
		Target:      ec.TargetID,
		TargetStart: raw.TargetStart,
		TargetEnd:   raw.TargetEnd,
		Identity:    identity,
		Reverse:     reverse,
	}
}

// logWindowIdentity reports the weakest window of the normalized alignment
// held in c.qn/c.tn and how many columns fell below the mask threshold.
func (c *Context) logWindowIdentity(ctx context.Context, log *slog.Logger, raw engine.Raw) {
	opts := c.shared.Options
	var err error
	c.curve, err = alignment.AppendIdentityCurve(c.curve, c.qn, c.tn, opts.IdentityWindow)
	if err != nil {
		return
	}
	lowest, masked := 1.0, 0
	for _, v := range c.curve {
		lowest = min(lowest, v)
		if v < opts.IdentityThreshold {
			masked++
		}
	}
	log.LogAttrs(ctx, slog.LevelDebug, "candidate added",
		slog.Int("targetStart", raw.TargetStart),
		slog.Int("targetEnd", raw.TargetEnd),
		slog.Float64("minWindowIdentity", lowest),
		slog.Int("maskedColumns", masked))
}

// forward converts a seed offset on the given strand to forward coordinates.
func forward(pos, n, dir int) int {
	if dir == candidate.Reverse {
		return n - 1 - pos
	}
	return pos
}
