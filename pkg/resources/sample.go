package resources

import (
	"fmt"
	"math"
	"time"

	"github.com/goccy/go-json"

	"github.com/thesyncim/rtcbench/pkg/schema"
)

// Sample is a normalised resource measurement.
type Sample struct {
	Timestamp time.Time
	CPU       CPUUsage
	Mem       MemUsage
}

// CPUUsage holds the CPU share of one sampling interval.
type CPUUsage struct {
	// Total is (utime+stime)/ClockTicksPerSecond, in percent.
	Total float64 `json:"total"`
}

// MemUsage holds memory figures in kilobytes.
type MemUsage struct {
	VMS float64 `json:"vms"`
	RSS float64 `json:"rss"`
}

// Normalize converts a raw sampler record into a Sample.
func Normalize(r RawSample) Sample {
	return Sample{
		Timestamp: EpochToTime(r.Timestamp),
		CPU: CPUUsage{
			Total: float64(r.UTime+r.STime) / ClockTicksPerSecond,
		},
		Mem: MemUsage{
			VMS: float64(r.VMem) / 1024,
			RSS: float64(r.RMem) / 1024,
		},
	}
}

// EpochToTime converts epoch seconds to a UTC instant with microsecond
// resolution.
func EpochToTime(sec float64) time.Time {
	whole := math.Floor(sec)
	micros := math.Round((sec - whole) * 1e6)
	return time.Unix(int64(whole), int64(micros)*int64(time.Microsecond)).UTC()
}

// FormatTimestamp renders t in UTC as ISO-8601 with an explicit "+00:00"
// offset. Fractional seconds are written with six digits and only when
// non-zero, e.g. "1970-01-01T00:00:00+00:00".
func FormatTimestamp(t time.Time) string {
	t = t.UTC()
	s := t.Format("2006-01-02T15:04:05")
	if us := t.Nanosecond() / 1000; us != 0 {
		s += fmt.Sprintf(".%06d", us)
	}
	return s + "+00:00"
}

// ParseTimestamp parses an ISO-8601 instant as written by FormatTimestamp,
// also accepting a "Z" suffix.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, schema.Invalid(fmt.Sprintf("invalid timestamp %q", s))
	}
	return t.UTC(), nil
}

type sampleRecord struct {
	Timestamp string   `json:"timestamp"`
	CPU       CPUUsage `json:"cpu"`
	Mem       MemUsage `json:"mem"`
}

// MarshalJSON encodes the sample with an ISO-8601 timestamp.
func (s Sample) MarshalJSON() ([]byte, error) {
	return json.Marshal(sampleRecord{
		Timestamp: FormatTimestamp(s.Timestamp),
		CPU:       s.CPU,
		Mem:       s.Mem,
	})
}

// UnmarshalJSON decodes a sample written by MarshalJSON. All fields are
// required.
func (s *Sample) UnmarshalJSON(b []byte) error {
	var w struct {
		Timestamp *string `json:"timestamp"`
		CPU       *struct {
			Total *float64 `json:"total"`
		} `json:"cpu"`
		Mem *struct {
			VMS *float64 `json:"vms"`
			RSS *float64 `json:"rss"`
		} `json:"mem"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return schema.Invalid("malformed sample: " + err.Error())
	}

	switch {
	case w.Timestamp == nil:
		return schema.Missing("timestamp")
	case w.CPU == nil || w.CPU.Total == nil:
		return schema.Missing("cpu", "total")
	case w.Mem == nil || w.Mem.VMS == nil:
		return schema.Missing("mem", "vms")
	case w.Mem.RSS == nil:
		return schema.Missing("mem", "rss")
	}

	ts, err := ParseTimestamp(*w.Timestamp)
	if err != nil {
		return err
	}
	*s = Sample{
		Timestamp: ts,
		CPU:       CPUUsage{Total: *w.CPU.Total},
		Mem:       MemUsage{VMS: *w.Mem.VMS, RSS: *w.Mem.RSS},
	}
	return nil
}
