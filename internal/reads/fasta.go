package reads

import (
	"errors"
	"fmt"
	"io"

	"github.com/shenwei356/bio/seqio/fastx"
)

// LoadFASTA reads every record of a FASTA or FASTQ file (optionally gzipped)
// into a new PackedDB. Ids are assigned from 0 in file order, matching the ids
// used by candidate files.
func LoadFASTA(path string) (*PackedDB, error) {
	r, err := fastx.NewReader(nil, path, "")
	if err != nil {
		return nil, fmt.Errorf("reads: open %s: %w", path, err)
	}
	defer r.Close()

	db := NewPackedDB()
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("reads: read %s record %d: %w", path, db.Count(), err)
		}
		db.Add(string(rec.ID), rec.Seq.Seq)
	}
	return db, nil
}
