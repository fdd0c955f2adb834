package markduplicates

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
)

// MetricsClassPrefix starts the line that precedes the metrics table in a
// picard metrics file.
const MetricsClassPrefix = "## METRICS CLASS"

// Columns lists the DuplicationMetrics header row. Fields of Metrics are in
// the same order.
var Columns = []string{
	"LIBRARY",
	"UNPAIRED_READS_EXAMINED",
	"READ_PAIRS_EXAMINED",
	"SECONDARY_OR_SUPPLEMENTARY_RDS",
	"UNMAPPED_READS",
	"UNPAIRED_READ_DUPLICATES",
	"READ_PAIR_DUPLICATES",
	"READ_PAIR_OPTICAL_DUPLICATES",
	"PERCENT_DUPLICATION",
	"ESTIMATED_LIBRARY_SIZE",
}

// Metrics contains one library's row of picard.sam.DuplicationMetrics.
type Metrics struct {
	// Library is the LB of the read group, "Unknown Library" if unset.
	Library string

	// UnpairedReads is the number of mapped reads examined which did
	// not have a mapped mate pair, either because the read is
	// unpaired, or the read is paired to an unmapped mate.
	UnpairedReads int64

	// ReadPairsExamined is the number of mapped read pairs
	// examined. (Primary, non-supplemental).
	ReadPairsExamined int64

	// SecondarySupplementary is the number of reads that were either
	// secondary or supplementary.
	SecondarySupplementary int64

	// UnmappedReads is the total number of unmapped reads
	// examined. (Primary, non-supplemental).
	UnmappedReads int64

	// UnpairedDups is the number of fragments that were marked as duplicates.
	UnpairedDups int64

	// ReadPairDups is the number of read pairs that were marked as duplicates.
	ReadPairDups int64

	// ReadPairOpticalDups is the number of read pairs duplicates that
	// were caused by optical duplication.
	ReadPairOpticalDups int64

	// PercentDuplication is a fraction in [0,1] despite its picard name.
	PercentDuplication float64

	// EstimatedLibrarySize is left empty by picard when it cannot be
	// estimated, so it is kept as text.
	EstimatedLibrarySize string
}

// String returns a one-line summary suitable for logging.
func (m *Metrics) String() string {
	return fmt.Sprintf("%s: %d unpaired, %d pairs, %d unpaired dups, %d pair dups (%d optical), %.2f%% duplication",
		m.Library, m.UnpairedReads, m.ReadPairsExamined, m.UnpairedDups, m.ReadPairDups,
		m.ReadPairOpticalDups, 100*m.PercentDuplication)
}

// Add adds the counts in other to m and recomputes PercentDuplication and
// EstimatedLibrarySize the way picard does.
func (m *Metrics) Add(other *Metrics) {
	m.UnpairedReads += other.UnpairedReads
	m.ReadPairsExamined += other.ReadPairsExamined
	m.SecondarySupplementary += other.SecondarySupplementary
	m.UnmappedReads += other.UnmappedReads
	m.UnpairedDups += other.UnpairedDups
	m.ReadPairDups += other.ReadPairDups
	m.ReadPairOpticalDups += other.ReadPairOpticalDups
	m.PercentDuplication = 0
	if n := m.UnpairedReads + 2*m.ReadPairsExamined; n > 0 {
		m.PercentDuplication = float64(m.UnpairedDups+2*m.ReadPairDups) / float64(n)
	}
	m.EstimatedLibrarySize = libraryEstimate(m)
}

// Total sums the per-library metrics into one row labelled "all".
func Total(libs []Metrics) Metrics {
	total := Metrics{Library: "all"}
	for i := range libs {
		total.Add(&libs[i])
	}
	return total
}

// metricsSection returns the rows of the table that follows the "## METRICS
// CLASS" line, up to the first blank line. The header row is checked against
// Columns and dropped.
func metricsSection(in io.Reader) ([]byte, error) {
	var (
		buf       bytes.Buffer
		inTable   bool
		headerRow bool
	)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if !inTable {
			inTable = strings.HasPrefix(line, MetricsClassPrefix)
			continue
		}
		if line == "" {
			break
		}
		if !headerRow {
			headerRow = true
			if err := checkColumns(strings.Split(line, "\t")); err != nil {
				return nil, err
			}
			continue
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if !inTable {
		return nil, errors.E(errors.Invalid, "no", MetricsClassPrefix, "line")
	}
	if !headerRow {
		return nil, errors.E(errors.Invalid, "duplication metrics table has no header row")
	}
	return buf.Bytes(), nil
}

func checkColumns(got []string) error {
	if len(got) < len(Columns) {
		return errors.E(errors.Invalid, fmt.Sprintf("duplication metrics has %d columns, want %d: %v", len(got), len(Columns), got))
	}
	for i, col := range Columns {
		if got[i] != col {
			return errors.E(errors.Invalid, fmt.Sprintf("duplication metrics column %d is %q, want %q", i, got[i], col))
		}
	}
	return nil
}

// ParseMetrics parses a picard MarkDuplicates metrics file, returning one
// entry per library. The histogram section is ignored.
func ParseMetrics(in io.Reader) ([]Metrics, error) {
	section, err := metricsSection(in)
	if err != nil {
		return nil, err
	}
	r := tsv.NewReader(bytes.NewReader(section))
	var libs []Metrics
	for {
		var m Metrics
		if err := r.Read(&m); err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.E(errors.Invalid, err, "duplication metrics")
		}
		libs = append(libs, m)
	}
	return libs, nil
}

// ReadMetrics reads the picard MarkDuplicates metrics file at path.
func ReadMetrics(ctx context.Context, path string) (libs []Metrics, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, "open metrics file", path)
	}
	defer func() {
		if e := in.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	if libs, err = ParseMetrics(in.Reader(ctx)); err != nil {
		return nil, errors.E(err, path)
	}
	for i := range libs {
		log.Debug.Printf("%s: %v", path, &libs[i])
	}
	return libs, nil
}
