// Package candidate defines the (target, query) pairs scheduled for alignment
// and reads them from the whitespace-separated candidate files produced by the
// overlap detection step.
package candidate

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Strand of a read within a candidate.
const (
	Forward = 0
	Reverse = 1
)

// ErrNoCandidates is returned by IDRange for an empty list.
var ErrNoCandidates = errors.New("candidate: empty candidate list")

// Extension identifies one query read to align against one target read,
// with the seed offsets found on each.
type Extension struct {
	QueryDir  int
	QueryID   int64
	QueryExt  int
	TargetDir int
	TargetID  int64
	TargetExt int
	Score     int
}

// SameStrand reports whether query and target were seeded on the same strand.
func (e Extension) SameStrand() bool { return e.QueryDir == e.TargetDir }

// Load parses candidates, one per line:
//
//	qdir qid qext sdir sid sext score
//
// Blank lines and lines starting with '#' are skipped.
func Load(r io.Reader) ([]Extension, error) {
	var out []Extension
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		ec, err := parseLine(text)
		if err != nil {
			return nil, fmt.Errorf("candidate: line %d: %w", line, err)
		}
		out = append(out, ec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("candidate: read: %w", err)
	}
	return out, nil
}

// LoadFile opens path and parses it with Load.
func LoadFile(path string) ([]Extension, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("candidate: open %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

func parseLine(text string) (Extension, error) {
	fields := strings.Fields(text)
	if len(fields) != 7 {
		return Extension{}, fmt.Errorf("want 7 fields, got %d", len(fields))
	}
	var ints [7]int64
	for i, f := range fields {
		v, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return Extension{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		if v < 0 {
			return Extension{}, fmt.Errorf("field %d: negative value %d", i+1, v)
		}
		ints[i] = v
	}
	ec := Extension{
		QueryDir:  int(ints[0]),
		QueryID:   ints[1],
		QueryExt:  int(ints[2]),
		TargetDir: int(ints[3]),
		TargetID:  ints[4],
		TargetExt: int(ints[5]),
		Score:     int(ints[6]),
	}
	if ec.QueryDir > Reverse || ec.TargetDir > Reverse {
		return Extension{}, fmt.Errorf("strand must be %d or %d", Forward, Reverse)
	}
	return ec, nil
}

// IDRange returns the smallest and largest target id in cands.
func IDRange(cands []Extension) (minID, maxID int64, err error) {
	if len(cands) == 0 {
		return 0, 0, ErrNoCandidates
	}
	minID, maxID = cands[0].TargetID, cands[0].TargetID
	for _, c := range cands[1:] {
		minID = min(minID, c.TargetID)
		maxID = max(maxID, c.TargetID)
	}
	return minID, maxID, nil
}
