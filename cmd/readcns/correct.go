package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/dusk-indust/readcns/internal/candidate"
	"github.com/dusk-indust/readcns/internal/config"
	"github.com/dusk-indust/readcns/internal/engine"
	"github.com/dusk-indust/readcns/internal/logging"
	"github.com/dusk-indust/readcns/internal/metrics"
	"github.com/dusk-indust/readcns/internal/partition"
	"github.com/dusk-indust/readcns/internal/reads"
	"github.com/dusk-indust/readcns/internal/runner"
	"github.com/dusk-indust/readcns/internal/sink"
	"github.com/dusk-indust/readcns/internal/worker"
)

type correctOptions struct {
	reads       string
	candidates  string
	out         string
	configPath  string
	graphDB     string
	metricsAddr string
	logLevel    string
	logFormat   string
	threads     int
	progress    bool
}

func newCorrectCmd() *cobra.Command {
	var o correctOptions
	cmd := &cobra.Command{
		Use:   "correct",
		Short: "Align candidates against their targets and write per-target tallies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return runCorrect(ctx, o, cmd.Flags(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.reads, "reads", "", "FASTA/FASTQ reads; read ids follow file order")
	f.StringVar(&o.candidates, "candidates", "", "candidate file (qdir qid qext sdir sid sext score)")
	f.StringVarP(&o.out, "out", "o", "-", "JSON lines output, - for stdout")
	f.StringVar(&o.configPath, "config", "", "config file (default: readcns.yml in the working directory)")
	f.StringVar(&o.graphDB, "graph-db", "", "record reads and overlaps in a KuzuDB at this path")
	f.StringVar(&o.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	f.StringVar(&o.logLevel, "log-level", "", "debug, info, warn or error")
	f.StringVar(&o.logFormat, "log-format", "", "text or json")
	f.IntVarP(&o.threads, "threads", "t", 0, "worker count (0: one per CPU)")
	f.BoolVar(&o.progress, "progress", false, "print worker progress to stderr")
	_ = cmd.MarkFlagRequired("reads")
	_ = cmd.MarkFlagRequired("candidates")
	return cmd
}

func loadConfig(o correctOptions, flags *pflag.FlagSet) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if o.configPath != "" {
		cfg, err = config.LoadFile(o.configPath)
	} else {
		cfg, err = config.Load(".")
	}
	if err != nil {
		return nil, err
	}
	if flags.Changed("threads") {
		cfg.Threads = o.threads
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = o.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Threads == 0 {
		cfg.Threads = runtime.GOMAXPROCS(0)
	}
	return cfg, nil
}

func runCorrect(ctx context.Context, o correctOptions, flags *pflag.FlagSet, stdout, stderr io.Writer) (err error) {
	start := time.Now()
	cfg, err := loadConfig(o, flags)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, stderr)

	db, err := reads.LoadFASTA(o.reads)
	if err != nil {
		return err
	}
	cands, err := candidate.LoadFile(o.candidates)
	if err != nil {
		return err
	}
	logger.Info("inputs loaded",
		"reads", humanize.Comma(int64(db.Count())),
		"bases", humanize.Comma(db.Bases()),
		"candidates", humanize.Comma(int64(len(cands))))
	if n := db.MaxLen(); n > cfg.MaxSeqSize {
		logger.Warn("reads longer than maxSeqSize are skipped as targets", "longest", n, "maxSeqSize", cfg.MaxSeqSize)
	}

	var groups []partition.Group
	if len(cands) > 0 {
		minID, maxID, err := candidate.IDRange(cands)
		if err != nil {
			return err
		}
		groups, err = partition.Split(cands, minID, maxID, cfg.Threads)
		if err != nil {
			return err
		}
	}

	w := stdout
	if o.out != "" && o.out != "-" {
		f, err := os.Create(o.out)
		if err != nil {
			return fmt.Errorf("readcns: create output: %w", err)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("readcns: close output: %w", cerr)
			}
		}()
		w = f
	}
	bw := bufio.NewWriter(w)
	defer func() {
		if ferr := bw.Flush(); ferr != nil && err == nil {
			err = fmt.Errorf("readcns: flush output: %w", ferr)
		}
	}()

	lines := sink.NewJSONLines(bw)
	var out sink.Sink = lines
	if o.graphDB != "" {
		store, err := openGraph(o.graphDB)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.InitSchema(ctx); err != nil {
			return err
		}
		out = sink.NewRecording(lines, store)
	}

	var coll metrics.Collector = metrics.NewNop()
	if o.metricsAddr != "" {
		reg := prometheus.NewRegistry()
		coll = metrics.NewPrometheus(reg, "")
		srv := &http.Server{
			Addr:              o.metricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server", "err", err)
			}
		}()
		defer srv.Close()
	}

	contexts := worker.Build(groups, worker.Shared{
		Reads:   db,
		Aligner: engine.NewBanded(cfg.Profiles.Small, cfg.Profiles.Large),
		Sink:    out,
		Metrics: coll,
		Logger:  logger,
		Options: worker.OptionsFromConfig(cfg),
	})

	pr := runner.NewProgressReporter(len(contexts))
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range pr.Subscribe() {
			if o.progress {
				fmt.Fprintln(stderr, runner.FormatProgress(ev))
			}
		}
	}()
	runErr := runner.Run(ctx, contexts, func(ev runner.ProgressEvent) {
		logProgress(logger, ev)
		pr.Emit(ev)
	})
	pr.Close()
	<-done

	var total worker.Stats
	for _, c := range contexts {
		st := c.Stats()
		total.Targets += st.Targets
		total.Skipped += st.Skipped
		total.Added += st.Added
		total.Rejected += st.Rejected
		total.Failed += st.Failed
		total.Dropped += st.Dropped
		total.Invalid += st.Invalid
	}
	logger.Info("correction finished",
		"workers", len(contexts),
		"targets", humanize.Comma(int64(total.Targets)),
		"skipped", total.Skipped,
		"alignments", humanize.Comma(int64(total.Added)),
		"rejected", total.Rejected,
		"failed", total.Failed,
		"dropped", total.Dropped+total.Invalid,
		"written", lines.Count(),
		"elapsed", time.Since(start).Round(time.Millisecond))

	if runErr != nil {
		return fmt.Errorf("readcns: correct: %w", runErr)
	}
	return nil
}

func logProgress(logger *slog.Logger, ev runner.ProgressEvent) {
	switch ev.Status {
	case runner.ProgressFailed:
		logger.Error("worker failed", logging.KeyWorker, ev.Worker, "err", ev.Message)
	case runner.ProgressComplete:
		logger.Info("worker complete", logging.KeyWorker, ev.Worker)
	default:
		logger.Debug("worker "+string(ev.Status), logging.KeyWorker, ev.Worker)
	}
}
