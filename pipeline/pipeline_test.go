// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package pipeline

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testHeader = "@HD\tVN:1.5\tSO:coordinate\n@SQ\tSN:chr1\tLN:1000\n@RG\tID:star\tSM:x\n@PG\tID:STAR\tPN:STAR\n"
	testVCF    = "##fileformat=VCFv4.2\n#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\nchr1\t10\t.\tA\tG\t50\t.\t.\nchr1\t20\t.\tC\tT\t50\t.\t.\n"
	testMetric = "## METRICS CLASS\tpicard.sam.DuplicationMetrics\n" +
		"LIBRARY\tUNPAIRED_READS_EXAMINED\tREAD_PAIRS_EXAMINED\tSECONDARY_OR_SUPPLEMENTARY_RDS\tUNMAPPED_READS\tUNPAIRED_READ_DUPLICATES\tREAD_PAIR_DUPLICATES\tREAD_PAIR_OPTICAL_DUPLICATES\tPERCENT_DUPLICATION\tESTIMATED_LIBRARY_SIZE\n" +
		"library\t10\t0\t0\t0\t2\t0\t0\t0.2\t\n"
)

// writeInput creates a record-less BAM with the given sort order.
func writeInput(t *testing.T, path string, order sam.SortOrder) {
	chr1, err := sam.NewReference("chr1", "", "", 1000, nil, nil)
	require.NoError(t, err)
	header, err := sam.NewHeader(nil, []*sam.Reference{chr1})
	require.NoError(t, err)
	header.Version = "1.5"
	header.SortOrder = order
	f, err := os.Create(path)
	require.NoError(t, err)
	w, err := bam.NewWriter(f, header, 1)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
}

// fakeExecutor mimics the tools by copying each command's input to its
// output.
type fakeExecutor struct {
	t      *testing.T
	calls  []string
	stdin  string
	fail   map[Stage]error
	empty  map[Stage]bool
	vcf    string // replaces testVCF when set
	cancel func()
}

func (e *fakeExecutor) copy(c Command, w io.Writer) {
	data, err := ioutil.ReadFile(c.Input)
	require.NoError(e.t, err)
	_, err = w.Write(data)
	require.NoError(e.t, err)
}

func (e *fakeExecutor) Execute(ctx context.Context, c Command) error {
	e.calls = append(e.calls, fmt.Sprintf("%s:%s", c.Stage, c.Args[0]))
	if e.cancel != nil {
		e.cancel()
	}
	if err := e.fail[c.Stage]; err != nil {
		return err
	}
	if !c.Redirect && c.Output == "" {
		_, err := io.WriteString(c.Stdout, testHeader)
		return err
	}
	if c.Redirect {
		data, err := ioutil.ReadAll(c.Stdin)
		require.NoError(e.t, err)
		e.stdin = string(data)
		if !e.empty[c.Stage] {
			e.copy(c, c.Stdout)
		}
		return nil
	}
	out, err := os.Create(c.Output)
	require.NoError(e.t, err)
	defer func() { require.NoError(e.t, out.Close()) }()
	if e.empty[c.Stage] {
		return nil
	}
	switch c.Stage {
	case MarkDuplicates:
		for _, arg := range c.Args {
			if strings.HasPrefix(arg, "M=") {
				require.NoError(e.t, ioutil.WriteFile(arg[2:], []byte(testMetric), 0644))
			}
		}
		require.NoError(e.t, ioutil.WriteFile(replaceBAMSuffix(c.Output, ".bai"), []byte("bai"), 0644))
	case HaplotypeCaller:
		vcf := testVCF
		if e.vcf != "" {
			vcf = e.vcf
		}
		_, err := io.WriteString(out, vcf)
		return err
	}
	e.copy(c, out)
	return nil
}

func newTestPipeline(t *testing.T, exec Executor, keep bool) *Pipeline {
	opts := DefaultOpts
	opts.ReferencePath = "ref.fa"
	opts.KeepIntermediates = keep
	p, err := New(opts, exec)
	require.NoError(t, err)
	return p
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestRun(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()
	input := filepath.Join(tempDir, "sample.bam")
	writeInput(t, input, sam.Unsorted)

	exec := &fakeExecutor{t: t}
	res, err := newTestPipeline(t, exec, false).Run(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"sort:sort",
		"reheader:view",
		"reheader:reheader",
		"markduplicates:-jar",
		"splitncigarreads:-jar",
		"haplotypecaller:-jar",
	}, exec.calls)
	assert.Contains(t, exec.stdin, "@RG\tID:GRPundef\tSM:sample\tLB:library\tPL:platform\n")
	assert.NotContains(t, exec.stdin, "ID:star")

	n := res.Names
	expect.EQ(t, n.VCF, filepath.Join(tempDir, "sample.sorted.rg.md.split.bam.vcf"))
	require.Equal(t, 5, len(res.Stages))
	expect.EQ(t, res.Stages[4].Stage, HaplotypeCaller)
	var outputs []string
	for _, s := range res.Stages {
		outputs = append(outputs, s.Output)
	}
	assert.Equal(t, []string{n.Sorted, n.Reheadered, n.Marked, n.Split, n.VCF}, outputs)
	expect.EQ(t, res.Variants, 2)
	require.Equal(t, 1, len(res.Metrics))
	expect.EQ(t, res.Metrics[0].Library, "library")
	expect.EQ(t, len(res.CleanupFailures), 0)

	for _, path := range append(n.Outputs(), input) {
		assert.True(t, exists(path), path)
	}
	for _, path := range n.Intermediates() {
		assert.False(t, exists(path), path)
	}
}

func TestRunSorted(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()
	input := filepath.Join(tempDir, "sample.bam")
	writeInput(t, input, sam.Coordinate)

	exec := &fakeExecutor{t: t}
	res, err := newTestPipeline(t, exec, false).Run(ctx, input)
	require.NoError(t, err)
	expect.EQ(t, exec.calls[0], "reheader:view")
	expect.EQ(t, len(exec.calls), 5)
	expect.True(t, res.Names.SortSkipped())
	expect.EQ(t, res.Names.VCF, filepath.Join(tempDir, "sample.rg.md.split.bam.vcf"))
	var outputs []string
	for _, s := range res.Stages {
		outputs = append(outputs, s.Output)
	}
	n := res.Names
	assert.Equal(t, []string{n.Reheadered, n.Marked, n.Split, n.VCF}, outputs)
	assert.True(t, exists(input))
	assert.False(t, exists(res.Names.Marked))
}

func TestRunStageFailure(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()
	input := filepath.Join(tempDir, "sample.bam")
	writeInput(t, input, sam.QueryName)

	exec := &fakeExecutor{
		t:    t,
		fail: map[Stage]error{SplitNCigarReads: &ExitError{Code: 2, Stderr: "MalformedRead\n", Err: fmt.Errorf("exit status 2")}},
	}
	res, err := newTestPipeline(t, exec, false).Run(ctx, input)
	require.Error(t, err)
	serr, ok := err.(*StageError)
	require.True(t, ok, "%T", err)
	expect.EQ(t, serr.Stage, SplitNCigarReads)
	expect.EQ(t, serr.ExitCode, 2)
	expect.EQ(t, serr.Stderr, "MalformedRead\n")
	assert.Contains(t, err.Error(), "splitncigarreads")

	// HaplotypeCaller never ran.
	expect.EQ(t, exec.calls[len(exec.calls)-1], "splitncigarreads:-jar")
	expect.EQ(t, len(res.Stages), 3)
	assert.False(t, exists(res.Names.VCF))
	// Completed intermediates are removed, the rest is kept for diagnosis.
	assert.False(t, exists(res.Names.Sorted))
	assert.False(t, exists(res.Names.Marked))
	assert.True(t, exists(res.Names.Reheadered))
	assert.True(t, exists(input))
}

func TestRunEmptyOutput(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()
	input := filepath.Join(tempDir, "sample.bam")
	writeInput(t, input, sam.Unsorted)

	exec := &fakeExecutor{t: t, empty: map[Stage]bool{Reheader: true}}
	res, err := newTestPipeline(t, exec, false).Run(ctx, input)
	require.Error(t, err)
	serr, ok := err.(*StageError)
	require.True(t, ok, "%T", err)
	expect.EQ(t, serr.Stage, Reheader)
	expect.EQ(t, serr.ExitCode, 0)
	assert.Contains(t, err.Error(), "is empty")
	expect.EQ(t, len(exec.calls), 3)
	assert.False(t, exists(res.Names.Sorted))
}

func TestRunMalformedVCF(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()
	input := filepath.Join(tempDir, "sample.bam")
	writeInput(t, input, sam.Coordinate)

	exec := &fakeExecutor{t: t, vcf: "#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\nchr1\tten\n"}
	res, err := newTestPipeline(t, exec, false).Run(ctx, input)
	require.NoError(t, err)
	expect.EQ(t, len(res.Stages), 4)
	expect.EQ(t, res.Variants, -1)
	assert.True(t, exists(res.Names.VCF))
}

func TestRunKeepIntermediates(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()
	input := filepath.Join(tempDir, "sample.bam")
	writeInput(t, input, sam.Unsorted)

	res, err := newTestPipeline(t, &fakeExecutor{t: t}, true).Run(ctx, input)
	require.NoError(t, err)
	for _, path := range res.Names.Intermediates() {
		assert.True(t, exists(path), path)
	}
}

func TestRunCancelled(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	input := filepath.Join(tempDir, "sample.bam")
	writeInput(t, input, sam.Unsorted)

	exec := &fakeExecutor{
		t:      t,
		cancel: cancel,
		fail:   map[Stage]error{Sort: &ExitError{Code: -1, Err: context.Canceled}},
	}
	_, err := newTestPipeline(t, exec, false).Run(ctx, input)
	require.Error(t, err)
	serr, ok := err.(*StageError)
	require.True(t, ok, "%T", err)
	expect.EQ(t, serr.Stage, Sort)
	expect.EQ(t, serr.Err, context.Canceled)
	expect.EQ(t, len(exec.calls), 1)
}

func TestRunInvalidInput(t *testing.T) {
	ctx := context.Background()
	exec := &fakeExecutor{t: t}
	_, err := newTestPipeline(t, exec, false).Run(ctx, "sample.sam")
	require.Error(t, err)
	expect.EQ(t, len(exec.calls), 0)

	_, err = newTestPipeline(t, exec, false).Run(ctx, "/nonexistent/sample.bam")
	require.Error(t, err)
	expect.EQ(t, len(exec.calls), 0)
}

func TestPlan(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()
	input := filepath.Join(tempDir, "sample.bam")
	writeInput(t, input, sam.Unsorted)

	exec := &fakeExecutor{t: t}
	n, cmds, err := newTestPipeline(t, exec, false).Plan(ctx, input)
	require.NoError(t, err)
	expect.EQ(t, len(cmds), 6)
	expect.EQ(t, cmds[5].Output, n.VCF)
	expect.EQ(t, len(exec.calls), 0)
	assert.False(t, exists(n.Sorted))
}
