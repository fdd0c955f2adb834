/*Package markduplicates reads the metrics picard MarkDuplicates writes
  alongside a duplicate-marked .bam file.

  A picard metrics file is a sequence of sections. Lines starting with
  '#' are comments or section markers, and sections are separated by
  blank lines:

    ## htsjdk.samtools.metrics.StringHeader
    # MarkDuplicates INPUT=[in.bam] OUTPUT=out.bam ...

    ## METRICS CLASS	picard.sam.DuplicationMetrics
    LIBRARY	UNPAIRED_READS_EXAMINED	READ_PAIRS_EXAMINED	...
    library	12	3040	...

    ## HISTOGRAM	java.lang.Double
    BIN	VALUE
    ...

  Only the DuplicationMetrics table is parsed. For RNA-seq the
  duplication rate is mostly a sanity check: highly expressed genes
  legitimately produce many reads at the same position, so rates that
  would be alarming for DNA are normal here.
*/
package markduplicates
