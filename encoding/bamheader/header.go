// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package bamheader

import (
	"context"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
	"v.io/x/lib/vlog"
)

// FileType represents the type of an alignment file. The pipeline only
// accepts BAM input; SAM is read for callers of this package that inspect
// plain-text headers.
type FileType int

const (
	// BAM file
	BAM FileType = iota
	// SAM file
	SAM
)

// String returns "bam" or "sam".
func (t FileType) String() string {
	if t == SAM {
		return "sam"
	}
	return "bam"
}

// GuessFileType returns the file type from the pathname. Paths ending in
// ".sam" are SAM; everything else is treated as BAM.
func GuessFileType(path string) FileType {
	if strings.HasSuffix(path, ".sam") {
		return SAM
	}
	if !strings.HasSuffix(path, ".bam") {
		vlog.VI(1).Infof("%v: no .bam or .sam suffix, assuming BAM", path)
	}
	return BAM
}

// ReadHeader decodes the header of the SAM or BAM file at path. Records are not
// read. An error is returned if the file cannot be opened or does not start
// with a well-formed header.
func ReadHeader(ctx context.Context, path string) (header *sam.Header, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, "open", path)
	}
	defer func() {
		if e := in.Close(ctx); e != nil && err == nil {
			err = errors.E(e, "close", path)
		}
	}()
	switch GuessFileType(path) {
	case SAM:
		// Not reached from the pipeline, which rejects non-BAM input.
		r, err := sam.NewReader(in.Reader(ctx))
		if err != nil {
			return nil, errors.E(errors.Invalid, err, path, ": malformed SAM header")
		}
		return r.Header(), nil
	default:
		r, err := bam.NewReader(in.Reader(ctx), 1)
		if err != nil {
			return nil, errors.E(errors.Invalid, err, path, ": malformed BAM header")
		}
		header = r.Header()
		if err := r.Close(); err != nil {
			return nil, errors.E(err, "close bam reader", path)
		}
		return header, nil
	}
}

// IsCoordinateSorted reports whether the file's @HD line carries
// SO:coordinate. A missing @HD line, a missing SO field and any other sort
// order all yield false with a nil error; only an unreadable header is an
// error.
func IsCoordinateSorted(ctx context.Context, path string) (bool, error) {
	header, err := ReadHeader(ctx, path)
	if err != nil {
		return false, err
	}
	vlog.VI(1).Infof("%v: sort order %v", path, header.SortOrder)
	return header.SortOrder == sam.Coordinate, nil
}
