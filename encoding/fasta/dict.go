package fasta

import (
	"io"
	"io/ioutil"
	"strings"

	"github.com/grailbio/hts/sam"
	"github.com/pkg/errors"
)

var fastaExts = []string{".fasta", ".fa", ".fna"}

// DictPath returns the sequence dictionary path GATK looks for next to ref:
// the FASTA extension is replaced by ".dict", so "ref.fa" becomes "ref.dict".
func DictPath(ref string) string {
	for _, ext := range fastaExts {
		if strings.HasSuffix(ref, ext) {
			return strings.TrimSuffix(ref, ext) + ".dict"
		}
	}
	return ref + ".dict"
}

// ReadDict parses a sequence dictionary as written by Picard
// CreateSequenceDictionary. A dictionary is a SAM header consisting of an @HD
// line and one @SQ line per sequence.
func ReadDict(in io.Reader) (*sam.Header, error) {
	data, err := ioutil.ReadAll(in)
	if err != nil {
		return nil, errors.Wrap(err, "read sequence dictionary")
	}
	header, err := sam.NewHeader(data, nil)
	if err != nil {
		return nil, errors.Wrap(err, "parse sequence dictionary")
	}
	if len(header.Refs()) == 0 {
		return nil, errors.New("sequence dictionary has no @SQ lines")
	}
	return header, nil
}
