package resources

import (
	"bufio"
	"io"
	"os"
	"strings"
	"time"

	"emperror.dev/errors"

	"github.com/thesyncim/rtcbench/pkg/schema"
	"github.com/thesyncim/rtcbench/pkg/series"
	"github.com/thesyncim/rtcbench/pkg/table"
)

// ProcessHeader is the CSV header of the per-process summary.
var ProcessHeader = []string{"PID", "StartTime", "EndTime", "CPU", "VMEM", "RMEM"}

// ProcessSeries is the full sample history of one process.
type ProcessSeries struct {
	PID       string
	StartTime time.Time
	EndTime   time.Time
	CPU       []float64
	VMEM      []float64
	RMEM      []float64
}

// Len returns the number of samples in the longest metric.
func (p ProcessSeries) Len() int {
	return series.MaxLen(p.CPU, p.VMEM, p.RMEM)
}

// ReadSamples decodes newline-separated normalised samples. Blank lines
// are skipped.
func ReadSamples(r io.Reader) ([]Sample, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var samples []Sample
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var s Sample
		if err := s.UnmarshalJSON([]byte(line)); err != nil {
			return nil, errors.Wrapf(err, "line %d", n)
		}
		samples = append(samples, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.WithStack(err)
	}
	return samples, nil
}

// ReadSamplesFile reads a recorder output file.
func ReadSamplesFile(path string) ([]Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()

	samples, err := ReadSamples(f)
	return samples, schema.WithSource(err, path)
}

// Summarize folds samples into a ProcessSeries. The start and end times are
// the earliest and latest sample timestamps.
func Summarize(pid string, samples []Sample) (ProcessSeries, error) {
	if len(samples) == 0 {
		return ProcessSeries{}, schema.Invalid("no samples")
	}

	ps := ProcessSeries{
		PID:       pid,
		StartTime: samples[0].Timestamp,
		EndTime:   samples[0].Timestamp,
		CPU:       make([]float64, 0, len(samples)),
		VMEM:      make([]float64, 0, len(samples)),
		RMEM:      make([]float64, 0, len(samples)),
	}
	for _, s := range samples {
		if s.Timestamp.Before(ps.StartTime) {
			ps.StartTime = s.Timestamp
		}
		if s.Timestamp.After(ps.EndTime) {
			ps.EndTime = s.Timestamp
		}
		ps.CPU = append(ps.CPU, s.CPU.Total)
		ps.VMEM = append(ps.VMEM, s.Mem.VMS)
		ps.RMEM = append(ps.RMEM, s.Mem.RSS)
	}
	return ps, nil
}

// AlignProcesses left-pads every metric of every process to the longest
// metric across the set, so that all histories end at the same instant.
func AlignProcesses(procs []ProcessSeries) []ProcessSeries {
	var seqs [][]float64
	for _, p := range procs {
		seqs = append(seqs, p.CPU, p.VMEM, p.RMEM)
	}
	n := series.MaxLen(seqs...)
	out := make([]ProcessSeries, len(procs))
	for i, p := range procs {
		p.CPU = series.PadLeft(p.CPU, n)
		p.VMEM = series.PadLeft(p.VMEM, n)
		p.RMEM = series.PadLeft(p.RMEM, n)
		out[i] = p
	}
	return out
}

// WriteProcessCSV writes procs under ProcessHeader.
func WriteProcessCSV(path string, procs ...ProcessSeries) error {
	rows := make([][]string, 0, len(procs))
	for _, p := range procs {
		rows = append(rows, []string{
			p.PID,
			FormatTimestamp(p.StartTime),
			FormatTimestamp(p.EndTime),
			table.FormatList(p.CPU),
			table.FormatList(p.VMEM),
			table.FormatList(p.RMEM),
		})
	}
	return table.WriteFile(path, ProcessHeader, rows)
}

// ReadProcessCSV reads a file written by WriteProcessCSV.
func ReadProcessCSV(path string) ([]ProcessSeries, error) {
	records, err := table.ReadFile(path, ProcessHeader...)
	if err != nil {
		return nil, err
	}

	procs := make([]ProcessSeries, 0, len(records))
	for _, rec := range records {
		p, err := processFromRecord(rec)
		if err != nil {
			return nil, schema.WithSource(err, path)
		}
		procs = append(procs, p)
	}
	return procs, nil
}

// ReadProcessCSVs reads several process files into one set, in the order
// of paths.
func ReadProcessCSVs(paths ...string) ([]ProcessSeries, error) {
	var procs []ProcessSeries
	for _, path := range paths {
		p, err := ReadProcessCSV(path)
		if err != nil {
			return nil, err
		}
		procs = append(procs, p...)
	}
	return procs, nil
}

func processFromRecord(rec table.Record) (ProcessSeries, error) {
	var (
		p   = ProcessSeries{PID: rec.String("PID")}
		err error
	)
	if p.StartTime, err = ParseTimestamp(rec.String("StartTime")); err != nil {
		return p, err
	}
	if p.EndTime, err = ParseTimestamp(rec.String("EndTime")); err != nil {
		return p, err
	}
	if p.CPU, err = rec.List("CPU"); err != nil {
		return p, err
	}
	if p.VMEM, err = rec.List("VMEM"); err != nil {
		return p, err
	}
	if p.RMEM, err = rec.List("RMEM"); err != nil {
		return p, err
	}
	return p, nil
}
