// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

/*
Package pipeline drives the GATK best-practices RNA-seq variant calling steps
over a STAR-aligned BAM, for validating DNA mutations against RNA evidence.
Indel realignment and base recalibration are skipped.

Every computational step runs in an external tool:

  1. samtools sort, unless the input header already says SO:coordinate
  2. samtools view -H / reheader, installing a single synthetic @RG
  3. picard MarkDuplicates
  4. GATK SplitNCigarReads
  5. GATK HaplotypeCaller

Stages run strictly in sequence. Each stage's output name is derived from the
previous stage's output by replacing the trailing ".bam":

  in.bam -> in.sorted.bam -> in.sorted.rg.bam -> in.sorted.rg.md.bam
         -> in.sorted.rg.md.split.bam -> in.sorted.rg.md.split.bam.vcf

A stage fails if its tool exits non-zero or leaves no output or an empty
output; the first failure stops the run and is reported as a *StageError.
When the run ends, the sorted and duplicate-marked BAMs are removed. The
original input is never removed, even when it doubles as the sorted file.
*/
package pipeline
