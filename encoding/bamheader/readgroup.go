// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package bamheader

import (
	"bytes"
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/hts/sam"
)

// ReadGroup is the subset of @RG fields GATK requires.
type ReadGroup struct {
	ID       string
	Sample   string
	Library  string
	Platform string
}

// SyntheticReadGroup is written in place of whatever read groups an aligner
// emitted. STAR output frequently lacks a usable @RG, and GATK refuses to run
// without one.
var SyntheticReadGroup = ReadGroup{
	ID:       "GRPundef",
	Sample:   "sample",
	Library:  "library",
	Platform: "platform",
}

// Line returns the @RG header line for rg, without a trailing newline.
func (rg ReadGroup) Line() string {
	return fmt.Sprintf("@RG\tID:%s\tSM:%s\tLB:%s\tPL:%s", rg.ID, rg.Sample, rg.Library, rg.Platform)
}

var rgPrefix = []byte("@RG")

// RewriteReadGroups replaces the read-group section of the SAM header text with
// the single record rg. The first @RG line is replaced in place and any later
// @RG lines are dropped. If the header has no @RG line, rg is appended. All
// other lines are kept byte for byte.
//
// The result is parsed before being returned, so a nil error guarantees a
// well-formed header with exactly one read group.
func RewriteReadGroups(text []byte, rg ReadGroup) ([]byte, error) {
	var (
		out      bytes.Buffer
		replaced bool
		line     = []byte(rg.Line())
	)
	for _, l := range bytes.Split(text, []byte{'\n'}) {
		l = bytes.TrimSuffix(l, []byte{'\r'})
		if len(l) == 0 {
			continue
		}
		if bytes.HasPrefix(l, rgPrefix) {
			if replaced {
				continue
			}
			replaced = true
			l = line
		}
		out.Write(l)
		out.WriteByte('\n')
	}
	if !replaced {
		out.Write(line)
		out.WriteByte('\n')
	}

	header, err := sam.NewHeader(out.Bytes(), nil)
	if err != nil {
		return nil, errors.E(errors.Invalid, err, "rewritten header does not parse")
	}
	if rgs := header.RGs(); len(rgs) != 1 || rgs[0].Name() != rg.ID {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("rewritten header has %d read groups, want exactly %s", len(rgs), rg.ID))
	}
	return out.Bytes(), nil
}
