package fasta

import (
	"io"

	"github.com/grailbio/base/tsv"
	"github.com/pkg/errors"
)

// IndexEntry is one line of a FASTA index (*.fai). The format is defined by
// "samtools faidx" (http://www.htslib.org/doc/faidx.html): "<sequence
// name>\t<length>\t<byte offset>\t<bases per line>\t<bytes per line>".
type IndexEntry struct {
	Name      string
	Length    int64
	Offset    int64
	LineBases int64
	LineWidth int64
}

// IndexPath returns the conventional index path for the FASTA file at ref.
func IndexPath(ref string) string {
	return ref + ".fai"
}

// ReadIndex parses a FASTA index. Entries are returned in file order.
func ReadIndex(in io.Reader) ([]IndexEntry, error) {
	r := tsv.NewReader(in)
	var entries []IndexEntry
	for {
		var e IndexEntry
		if err := r.Read(&e); err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.Wrapf(err, "fasta index line %d", len(entries)+1)
		}
		if e.Length <= 0 || e.LineBases <= 0 || e.LineWidth < e.LineBases {
			return nil, errors.Errorf("fasta index line %d: invalid entry %+v", len(entries)+1, e)
		}
		entries = append(entries, e)
	}
	if len(entries) == 0 {
		return nil, errors.New("empty fasta index")
	}
	return entries, nil
}
