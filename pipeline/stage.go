// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package pipeline

import (
	"fmt"
	"strings"
	"time"
)

// Stage identifies one step of the pipeline.
type Stage int

const (
	// Sort coordinate-sorts the input.
	Sort Stage = iota
	// Reheader installs the synthetic read group.
	Reheader
	// MarkDuplicates flags PCR and optical duplicates.
	MarkDuplicates
	// SplitNCigarReads splits reads spanning introns.
	SplitNCigarReads
	// HaplotypeCaller calls variants.
	HaplotypeCaller

	numStages
)

var stageNames = [numStages]string{
	"sort",
	"reheader",
	"markduplicates",
	"splitncigarreads",
	"haplotypecaller",
}

// String returns the stage's name.
func (s Stage) String() string {
	if s < 0 || s >= numStages {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// StageResult describes a stage that completed.
type StageResult struct {
	Stage Stage
	// Output is the file the stage produced.
	Output string
	// Elapsed is the wall time of the stage.
	Elapsed time.Duration
}

// StageError describes the stage that stopped a run.
type StageError struct {
	Stage Stage
	// CmdLine is the failed command, or the last command the stage ran.
	CmdLine string
	// ExitCode is the tool's exit status, -1 if it did not run to completion,
	// and 0 if it exited cleanly but its output was unusable.
	ExitCode int
	// Stderr is the tail of the tool's standard error, verbatim.
	Stderr string
	// Err is the underlying cause.
	Err error
}

// Error implements error.
func (e *StageError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "stage %s failed", e.Stage)
	if e.CmdLine != "" {
		fmt.Fprintf(&b, ": %s", e.CmdLine)
	}
	fmt.Fprintf(&b, " (exit status %d): %v", e.ExitCode, e.Err)
	if e.Stderr != "" {
		b.WriteString("\n")
		b.WriteString(strings.TrimRight(e.Stderr, "\n"))
	}
	return b.String()
}

func newStageError(c Command, err error) *StageError {
	e := &StageError{Stage: c.Stage, CmdLine: c.String(), ExitCode: -1, Err: err}
	if ee, ok := err.(*ExitError); ok {
		e.ExitCode = ee.Code
		e.Stderr = ee.Stderr
		e.Err = ee.Err
	}
	return e
}
