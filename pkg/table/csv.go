package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"emperror.dev/errors"

	"github.com/thesyncim/rtcbench/pkg/schema"
)

// Writer writes rows under a fixed header.
type Writer struct {
	csv    *csv.Writer
	header []string
}

// NewWriter writes header to w and returns a Writer for the rows.
func NewWriter(w io.Writer, header ...string) (*Writer, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return nil, errors.Wrap(err, "failed to write header")
	}
	return &Writer{csv: cw, header: header}, nil
}

// Write appends one row. The number of fields must match the header.
func (w *Writer) Write(fields ...string) error {
	if len(fields) != len(w.header) {
		return errors.Errorf("row has %d fields, header has %d", len(fields), len(w.header))
	}
	return w.csv.Write(fields)
}

// Flush flushes buffered rows and reports any write error.
func (w *Writer) Flush() error {
	w.csv.Flush()
	return w.csv.Error()
}

// WriteFile creates path and writes header followed by rows.
func WriteFile(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.WithStack(err)
	}
	defer f.Close()

	w, err := NewWriter(f, header...)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.Write(row...); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return f.Close()
}

// Record is one data row addressed by column name.
type Record struct {
	line   int
	fields []string
	index  map[string]int
}

// Line returns the 1-based line number of the row in its file.
func (r Record) Line() int {
	return r.line
}

// String returns the raw value of column col, or "" if the column is absent.
func (r Record) String(col string) string {
	i, ok := r.index[col]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return r.fields[i]
}

// List parses column col as a numeric list literal.
func (r Record) List(col string) ([]float64, error) {
	values, err := ParseList(r.String(col))
	if err != nil {
		var se *schema.Error
		if errors.As(err, &se) {
			se.Path = []string{fmt.Sprintf("line %d", r.line), col}
		}
		return nil, err
	}
	return values, nil
}

// Read parses a CSV stream whose first row is a header containing at least
// the required columns. Rows may come in any column order.
func Read(r io.Reader, required ...string) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, schema.Invalid("missing header row")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read header")
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}
	for _, col := range required {
		if _, ok := index[col]; !ok {
			return nil, schema.Missing("header", col)
		}
	}

	var records []Record
	for line := 2; ; line++ {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read line %d", line)
		}
		if len(fields) != len(header) {
			return nil, schema.Invalid(
				fmt.Sprintf("row has %d fields, header has %d", len(fields), len(header)),
				fmt.Sprintf("line %d", line),
			)
		}
		records = append(records, Record{line: line, fields: fields, index: index})
	}
	return records, nil
}

// ReadFile opens path and reads it with Read. Schema errors carry the path
// as their source.
func ReadFile(path string, required ...string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()

	records, err := Read(f, required...)
	return records, schema.WithSource(err, path)
}
