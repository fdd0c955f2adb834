// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package pipeline

import (
	"strings"

	"github.com/grailbio/base/errors"
)

// Opts configures a Pipeline.
//
// Tool paths are either bare names looked up in $PATH or filesystem paths. A
// path ending in ".jar" is run as "JavaPath JavaOpts... -jar path"; anything
// else is executed directly, which accommodates wrapper scripts such as the
// bioconda "picard".
type Opts struct {
	// SortToolPath is samtools, used for "sort".
	SortToolPath string
	// HeaderToolPath is samtools, used for "view -H" and "reheader".
	HeaderToolPath string
	// DupMarkerPath is picard, used for MarkDuplicates.
	DupMarkerPath string
	// SplitterPath is GATK 3, used for SplitNCigarReads.
	SplitterPath string
	// CallerPath is GATK 3, used for HaplotypeCaller.
	CallerPath string
	// ReferencePath is the reference FASTA the input was aligned against. It
	// must have .fai and .dict companions. Required.
	ReferencePath string
	// MetricsOutputPath is where MarkDuplicates writes its metrics. If empty,
	// a path is derived from the input, "<input minus .bam>.md.metrics", so
	// that concurrent runs in one directory do not collide.
	MetricsOutputPath string

	// JavaPath runs the .jar tools. GATK 3 needs Java 8.
	JavaPath string
	// JavaOpts are passed to java before -jar, e.g. "-Xmx8g".
	JavaOpts []string

	// KeepIntermediates disables removal of the sorted and marked BAMs.
	KeepIntermediates bool
}

// DefaultOpts lists the default values for Opts.
var DefaultOpts = Opts{
	SortToolPath:   "samtools",
	HeaderToolPath: "samtools",
	DupMarkerPath:  "picard.jar",
	SplitterPath:   "GenomeAnalysisTK.jar",
	CallerPath:     "GenomeAnalysisTK.jar",
	JavaPath:       "java",
}

func isJar(path string) bool {
	return strings.HasSuffix(path, ".jar")
}

// usesJava reports whether any tool runs through JavaPath.
func (o *Opts) usesJava() bool {
	return isJar(o.DupMarkerPath) || isJar(o.SplitterPath) || isJar(o.CallerPath)
}

// Validate checks that all required options are set.
func (o *Opts) Validate() error {
	var missing []string
	for _, f := range []struct {
		name, val string
	}{
		{KeySortToolPath, o.SortToolPath},
		{KeyHeaderToolPath, o.HeaderToolPath},
		{KeyDupMarkerPath, o.DupMarkerPath},
		{KeySplitterPath, o.SplitterPath},
		{KeyCallerPath, o.CallerPath},
		{KeyReferencePath, o.ReferencePath},
	} {
		if f.val == "" {
			missing = append(missing, f.name)
		}
	}
	if o.usesJava() && o.JavaPath == "" {
		missing = append(missing, KeyJavaPath)
	}
	if len(missing) > 0 {
		return errors.E(errors.Invalid, "missing options:", strings.Join(missing, ", "))
	}
	return nil
}
