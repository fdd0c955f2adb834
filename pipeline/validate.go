// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/exascience/elprep/v5/vcf"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
)

// checkOutput returns an error unless path exists and is non-empty.
func checkOutput(ctx context.Context, path string) error {
	info, err := file.Stat(ctx, path)
	if err != nil {
		if isNotExist(err) {
			return errors.E(errors.NotExist, path, "was not created")
		}
		return errors.E(err, "stat", path)
	}
	if info.Size() == 0 {
		return errors.E(errors.Precondition, path, "is empty")
	}
	return nil
}

// vcfFormatPrefix starts the first line of every VCF 4.x file.
const vcfFormatPrefix = "##fileformat=VCFv4."

// countVariants parses the VCF at path and returns its number of variant
// records. Sample columns are not decoded.
func countVariants(ctx context.Context, path string) (n int, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return 0, errors.E(err, "open", path)
	}
	defer func() {
		if e := in.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	return parseVariants(bufio.NewReader(in.Reader(ctx)), path)
}

func parseVariants(reader *bufio.Reader, path string) (int, error) {
	// vcf.ParseHeader indexes the first line without checking its length.
	if prefix, _ := reader.Peek(len(vcfFormatPrefix)); string(prefix) != vcfFormatPrefix {
		return 0, errors.E(errors.Invalid, path, "does not start with", vcfFormatPrefix)
	}
	header, lines, err := vcf.ParseHeader(reader)
	if err != nil {
		return 0, errors.E(errors.Invalid, err, path)
	}
	if len(header.Columns) == 0 || header.Columns[0] != "CHROM" {
		return 0, errors.E(errors.Invalid, path, "has no #CHROM line")
	}
	parser, err := header.NewVariantParser()
	if err != nil {
		return 0, errors.E(errors.Invalid, err, path)
	}
	parser.NSamples = 0

	var (
		sc vcf.StringScanner
		n  int
	)
	for {
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return 0, errors.E(err, "read", path)
		}
		if line = strings.TrimRight(line, "\r\n"); line != "" {
			lines++
			sc.Reset(line)
			if sc.ParseVariant(parser) == nil {
				return 0, errors.E(errors.Invalid, fmt.Sprintf("%s:%d: malformed variant record", path, lines))
			}
			n++
		}
		if err == io.EOF {
			return n, nil
		}
	}
}
