package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/readcns/internal/reads"
	"github.com/dusk-indust/readcns/internal/sink"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// writeInputs writes two 400-base targets (reads 0 and 1), each with two
// queries cut from it, and a config lowering the size thresholds.
func writeInputs(t *testing.T) (readsPath, candsPath, cfgPath string) {
	t.Helper()
	dir := t.TempDir()
	rng := rand.New(rand.NewPCG(31, 37))

	var fa strings.Builder
	var can strings.Builder
	addRead := func(id int, seq []byte) {
		fmt.Fprintf(&fa, ">read%d\n%s\n", id, seq)
	}
	for tgt := 0; tgt < 2; tgt++ {
		seq := make([]byte, 400)
		for i := range seq {
			seq[i] = "ACGT"[rng.IntN(4)]
		}
		base := tgt * 3
		addRead(base, seq)
		addRead(base+1, seq[0:300])
		rc := reads.ReverseComplement(append([]byte(nil), seq[100:400]...))
		addRead(base+2, rc)
		fmt.Fprintf(&can, "0 %d 10 0 %d 10 40\n", base+1, base)
		fmt.Fprintf(&can, "1 %d 15 0 %d 115 40\n", base+2, base)
	}
	// The second target's id is 3 because reads are numbered in file order.

	readsPath = filepath.Join(dir, "reads.fa")
	candsPath = filepath.Join(dir, "cands.txt")
	cfgPath = filepath.Join(dir, "readcns.yml")
	require.NoError(t, os.WriteFile(readsPath, []byte(fa.String()), 0o644))
	require.NoError(t, os.WriteFile(candsPath, []byte("# test\n"+can.String()), 0o644))
	require.NoError(t, os.WriteFile(cfgPath, []byte("minAlignSize: 50\nminCoverage: 2\nmaxSeqSize: 1000\n"), 0o644))
	return readsPath, candsPath, cfgPath
}

func TestCorrect_EndToEnd(t *testing.T) {
	readsPath, candsPath, cfgPath := writeInputs(t)
	outPath := filepath.Join(t.TempDir(), "out.jsonl")

	_, stderr, err := execute(t, "correct",
		"--reads", readsPath,
		"--candidates", candsPath,
		"--config", cfgPath,
		"--threads", "2",
		"--out", outPath,
		"--progress",
		"--log-format", "json")
	require.NoError(t, err, stderr)
	assert.Contains(t, stderr, "correction finished")
	assert.Contains(t, stderr, "complete")

	f, err := os.Open(outPath)
	require.NoError(t, err)
	defer f.Close()

	got := make(map[int64]sink.Result)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 1<<20), 1<<20)
	for sc.Scan() {
		var r sink.Result
		require.NoError(t, json.Unmarshal(sc.Bytes(), &r))
		got[r.TargetID] = r
	}
	require.Len(t, got, 2)
	for _, id := range []int64{0, 3} {
		r, ok := got[id]
		require.True(t, ok, "target %d missing", id)
		assert.Equal(t, fmt.Sprintf("read%d", id), r.TargetName)
		assert.Equal(t, 2, r.Added)
		assert.Equal(t, 400, r.CoveredBases)
		require.Len(t, r.Regions, 1)
		assert.Equal(t, 100, r.Regions[0].Start)
		assert.Equal(t, 300, r.Regions[0].End)
	}
}

func TestCorrect_StdoutAndMissingFlags(t *testing.T) {
	readsPath, candsPath, cfgPath := writeInputs(t)

	stdout, _, err := execute(t, "correct", "--reads", readsPath, "--candidates", candsPath, "--config", cfgPath, "--log-level", "error")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(stdout, "\n"))

	_, _, err = execute(t, "correct", "--reads", readsPath)
	assert.Error(t, err)
}

func TestCorrect_InvalidConfig(t *testing.T) {
	readsPath, candsPath, _ := writeInputs(t)
	bad := filepath.Join(t.TempDir(), "bad.yml")
	require.NoError(t, os.WriteFile(bad, []byte("identityThreshold: 2\n"), 0o644))

	_, _, err := execute(t, "correct", "--reads", readsPath, "--candidates", candsPath, "--config", bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "identityThreshold")
}

func TestVersion(t *testing.T) {
	stdout, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, version+"\n", stdout)
}
