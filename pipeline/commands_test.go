// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testNames(t *testing.T, sorted bool) Names {
	n, err := DeriveNames("in.bam", sorted, "out.metrics")
	require.NoError(t, err)
	return n
}

func TestCommands(t *testing.T) {
	opts := DefaultOpts
	opts.ReferencePath = "ref.fa"
	opts.DupMarkerPath = "/opt/picard.jar"
	opts.SplitterPath = "/opt/gatk.jar"
	opts.CallerPath = "/opt/gatk.jar"
	opts.JavaOpts = []string{"-Xmx4g"}

	cmds := opts.commands(testNames(t, false))
	require.Equal(t, 6, len(cmds))

	type argv struct {
		stage Stage
		path  string
		args  []string
	}
	want := []argv{
		{Sort, "samtools", []string{"sort", "-o", "in.sorted.bam", "in.bam"}},
		{Reheader, "samtools", []string{"view", "-H", "in.sorted.bam"}},
		{Reheader, "samtools", []string{"reheader", "-", "in.sorted.bam"}},
		{MarkDuplicates, "java", []string{"-Xmx4g", "-jar", "/opt/picard.jar", "MarkDuplicates",
			"I=in.sorted.rg.bam", "O=in.sorted.rg.md.bam", "CREATE_INDEX=true",
			"VALIDATION_STRINGENCY=SILENT", "M=out.metrics"}},
		{SplitNCigarReads, "java", []string{"-Xmx4g", "-jar", "/opt/gatk.jar",
			"-T", "SplitNCigarReads", "-R", "ref.fa", "-I", "in.sorted.rg.md.bam",
			"-o", "in.sorted.rg.md.split.bam", "-rf", "ReassignOneMappingQuality",
			"-RMQF", "255", "-RMQT", "60", "-U", "ALLOW_N_CIGAR_READS"}},
		{HaplotypeCaller, "java", []string{"-Xmx4g", "-jar", "/opt/gatk.jar",
			"-T", "HaplotypeCaller", "-R", "ref.fa", "-I", "in.sorted.rg.md.split.bam",
			"-dontUseSoftClippedBases", "-stand_call_conf", "20.0",
			"-o", "in.sorted.rg.md.split.bam.vcf"}},
	}
	for i, w := range want {
		assert.Equal(t, w.stage, cmds[i].Stage, "command %d", i)
		assert.Equal(t, w.path, cmds[i].Path, "command %d", i)
		assert.Equal(t, w.args, cmds[i].Args, "command %d", i)
	}
	assert.True(t, cmds[2].Redirect)
	assert.Equal(t, "in.sorted.rg.bam", cmds[2].Output)
	assert.Equal(t, "", cmds[1].Output)
}

func TestCommandsSortSkipped(t *testing.T) {
	opts := DefaultOpts
	opts.ReferencePath = "ref.fa"
	cmds := opts.commands(testNames(t, true))
	require.Equal(t, 5, len(cmds))
	assert.Equal(t, Reheader, cmds[0].Stage)
	assert.Equal(t, []string{"view", "-H", "in.bam"}, cmds[0].Args)
	assert.Equal(t, "in.rg.bam", cmds[1].Output)
}

func TestCommandsWrapper(t *testing.T) {
	opts := DefaultOpts
	opts.ReferencePath = "ref.fa"
	opts.DupMarkerPath = "picard"
	opts.JavaOpts = []string{"-Xmx4g"}
	c := opts.markDuplicatesCommand(testNames(t, false))
	assert.Equal(t, "picard", c.Path)
	assert.Equal(t, "MarkDuplicates", c.Args[0])
}

func TestCommandString(t *testing.T) {
	c := Command{
		Path:     "samtools",
		Args:     []string{"reheader", "-", "my file.bam", "it's"},
		Output:   "out.bam",
		Redirect: true,
	}
	assert.Equal(t, `samtools reheader - 'my file.bam' 'it'\''s' > out.bam`, c.String())
	c.Redirect = false
	c.Args = []string{""}
	assert.Equal(t, `samtools ''`, c.String())
}
