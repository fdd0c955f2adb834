// Package fasta checks that a reference FASTA is usable by GATK: it must be
// accompanied by a samtools index (*.fai) and a Picard sequence dictionary
// (*.dict) that agree with each other, and the contigs of any alignment fed
// to GATK must appear in it with matching lengths.
//
// Sequence data is never read. Only the index and dictionary are parsed.
package fasta

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/hts/sam"
	"github.com/pkg/errors"
)

// Reference describes a reference FASTA by its index.
type Reference struct {
	// Path of the FASTA file.
	Path string
	// Index lists the sequences in the .fai, in file order.
	Index []IndexEntry

	lengths map[string]int64
}

func readFile(ctx context.Context, path string, parse func(io.Reader) error) (err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() {
		if e := in.Close(ctx); e != nil && err == nil {
			err = errors.Wrapf(e, "close %s", path)
		}
	}()
	if err := parse(in.Reader(ctx)); err != nil {
		return errors.Wrap(err, path)
	}
	return nil
}

// OpenReference reads the index and dictionary of the FASTA at path and checks
// that they describe the same sequences.
func OpenReference(ctx context.Context, path string) (*Reference, error) {
	if _, err := file.Stat(ctx, path); err != nil {
		return nil, errors.Wrapf(err, "reference %s", path)
	}
	ref := &Reference{Path: path, lengths: map[string]int64{}}
	if err := readFile(ctx, IndexPath(path), func(in io.Reader) (err error) {
		ref.Index, err = ReadIndex(in)
		return
	}); err != nil {
		return nil, err
	}
	for _, e := range ref.Index {
		if _, ok := ref.lengths[e.Name]; ok {
			return nil, errors.Errorf("%s: duplicate sequence %s", IndexPath(path), e.Name)
		}
		ref.lengths[e.Name] = e.Length
	}

	var dict *sam.Header
	if err := readFile(ctx, DictPath(path), func(in io.Reader) (err error) {
		dict, err = ReadDict(in)
		return
	}); err != nil {
		return nil, err
	}
	if len(dict.Refs()) != len(ref.Index) {
		return nil, errors.Errorf("%s has %d sequences but %s has %d",
			DictPath(path), len(dict.Refs()), IndexPath(path), len(ref.Index))
	}
	if err := ref.CheckContigs(dict); err != nil {
		return nil, errors.Wrap(err, DictPath(path))
	}
	return ref, nil
}

// Len returns the length of the named sequence.
func (r *Reference) Len(name string) (int64, bool) {
	n, ok := r.lengths[name]
	return n, ok
}

// CheckContigs returns an error if any @SQ of header is missing from the
// reference or has a different length.
func (r *Reference) CheckContigs(header *sam.Header) error {
	var bad []string
	for _, sq := range header.Refs() {
		n, ok := r.lengths[sq.Name()]
		switch {
		case !ok:
			bad = append(bad, fmt.Sprintf("%s (missing)", sq.Name()))
		case n != int64(sq.Len()):
			bad = append(bad, fmt.Sprintf("%s (length %d, reference %d)", sq.Name(), sq.Len(), n))
		}
	}
	if len(bad) > 0 {
		return errors.Errorf("%d contig(s) incompatible with reference %s: %s",
			len(bad), r.Path, strings.Join(bad, ", "))
	}
	return nil
}
