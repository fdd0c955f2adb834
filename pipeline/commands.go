// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package pipeline

import "strconv"

const (
	// ReassignFromMapq is the MAPQ STAR gives uniquely mapped reads.
	ReassignFromMapq = 255
	// ReassignToMapq is the MAPQ GATK expects for uniquely mapped reads.
	ReassignToMapq = 60
	// MinCallConfidence is HaplotypeCaller's -stand_call_conf for RNA.
	MinCallConfidence = "20.0"
)

// tool returns the program and argument prefix for path. Jars run through
// java.
func (o *Opts) tool(path string, args ...string) (string, []string) {
	if !isJar(path) {
		return path, args
	}
	a := make([]string, 0, len(o.JavaOpts)+2+len(args))
	a = append(a, o.JavaOpts...)
	a = append(a, "-jar", path)
	return o.JavaPath, append(a, args...)
}

func (o *Opts) sortCommand(n Names) Command {
	return Command{
		Stage:  Sort,
		Path:   o.SortToolPath,
		Args:   []string{"sort", "-o", n.Sorted, n.Input},
		Input:  n.Input,
		Output: n.Sorted,
	}
}

func (o *Opts) viewHeaderCommand(n Names) Command {
	return Command{
		Stage: Reheader,
		Path:  o.HeaderToolPath,
		Args:  []string{"view", "-H", n.Sorted},
		Input: n.Sorted,
	}
}

func (o *Opts) reheaderCommand(n Names) Command {
	return Command{
		Stage:    Reheader,
		Path:     o.HeaderToolPath,
		Args:     []string{"reheader", "-", n.Sorted},
		Input:    n.Sorted,
		Output:   n.Reheadered,
		Redirect: true,
	}
}

func (o *Opts) markDuplicatesCommand(n Names) Command {
	path, args := o.tool(o.DupMarkerPath,
		"MarkDuplicates",
		"I="+n.Reheadered,
		"O="+n.Marked,
		"CREATE_INDEX=true",
		"VALIDATION_STRINGENCY=SILENT",
		"M="+n.Metrics)
	return Command{Stage: MarkDuplicates, Path: path, Args: args, Input: n.Reheadered, Output: n.Marked}
}

func (o *Opts) splitCommand(n Names) Command {
	path, args := o.tool(o.SplitterPath,
		"-T", "SplitNCigarReads",
		"-R", o.ReferencePath,
		"-I", n.Marked,
		"-o", n.Split,
		"-rf", "ReassignOneMappingQuality",
		"-RMQF", strconv.Itoa(ReassignFromMapq),
		"-RMQT", strconv.Itoa(ReassignToMapq),
		"-U", "ALLOW_N_CIGAR_READS")
	return Command{Stage: SplitNCigarReads, Path: path, Args: args, Input: n.Marked, Output: n.Split}
}

func (o *Opts) callCommand(n Names) Command {
	path, args := o.tool(o.CallerPath,
		"-T", "HaplotypeCaller",
		"-R", o.ReferencePath,
		"-I", n.Split,
		"-dontUseSoftClippedBases",
		"-stand_call_conf", MinCallConfidence,
		"-o", n.VCF)
	return Command{Stage: HaplotypeCaller, Path: path, Args: args, Input: n.Split, Output: n.VCF}
}

// commands lists every command a run over n executes, in order.
func (o *Opts) commands(n Names) []Command {
	var cmds []Command
	if !n.SortSkipped() {
		cmds = append(cmds, o.sortCommand(n))
	}
	return append(cmds,
		o.viewHeaderCommand(n),
		o.reheaderCommand(n),
		o.markDuplicatesCommand(n),
		o.splitCommand(n),
		o.callCommand(n))
}
