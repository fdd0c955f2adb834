// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

/*
bio-rna-varcall calls variants on a STAR-aligned RNA-seq BAM using the GATK 3
RNA-seq best practices. It runs, in order:

  samtools sort                      (skipped if the input is coordinate sorted)
  samtools view -H | samtools reheader   (installs a single read group)
  picard MarkDuplicates
  GATK SplitNCigarReads
  GATK HaplotypeCaller

and then removes the sorted and duplicate-marked intermediates. Every output
is named after the input, so for sample.bam the calls are written to
sample.sorted.rg.md.split.bam.vcf.

Sample usage:

  bio-rna-varcall -reference hg19.fa -i sample.bam

Tool locations and other settings are read from an optional config file
(-config, yaml, json or toml) and from RNAVC_* environment variables, e.g.
RNAVC_DUP_MARKER_PATH=/opt/picard.jar; flags take precedence over both.
-dry-run prints the commands without running them.
*/
package main
