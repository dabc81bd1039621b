// Package table reads and writes the CSV summaries produced by the
// pipelines. Numeric list columns are stored as textual list literals such
// as "[1, 2.5, 3]" and are parsed back into numbers, never kept as opaque
// strings.
package table

import (
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/thesyncim/rtcbench/pkg/schema"
)

// FormatList renders values as a list literal, e.g. "[1, 2.5, 3]".
// Integral values carry no fractional part.
func FormatList(values []float64) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range values {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
	}
	b.WriteByte(']')
	return b.String()
}

// ParseList parses a list literal written by FormatList (or by any tool that
// writes numeric lists as JSON-compatible arrays).
func ParseList(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, schema.Invalid("empty list literal")
	}
	if s == "null" {
		return nil, schema.Invalid("not a numeric list literal: " + s)
	}
	values := []float64{}
	if err := json.Unmarshal([]byte(s), &values); err != nil {
		return nil, schema.Invalid("not a numeric list literal: " + err.Error())
	}
	return values, nil
}
