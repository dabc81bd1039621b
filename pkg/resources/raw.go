// Package resources implements the resource-metric pipeline: raw process
// samples are normalised into CPU percent and kilobytes, recorded per
// process, summarised into CSV rows and aligned for plotting.
package resources

import (
	"bytes"
	"math"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/thesyncim/rtcbench/pkg/schema"
)

// ClockTicksPerSecond is the tick rate assumed for the cpu.utime and
// cpu.stime counters.
const ClockTicksPerSecond = 100

// RawSample is one record emitted by the sampler: CPU time in clock ticks
// consumed during the sampling interval and memory in raw units (bytes).
type RawSample struct {
	Timestamp float64 // epoch seconds
	UTime     int64
	STime     int64
	VMem      int64
	RMem      int64
}

type rawCPU struct {
	UTime int64 `json:"utime"`
	STime int64 `json:"stime"`
}

type rawMem struct {
	VMem int64 `json:"vmem"`
	RMem int64 `json:"rmem"`
}

type rawRecord struct {
	Timestamp float64 `json:"timestamp"`
	CPU       rawCPU  `json:"cpu"`
	Mem       rawMem  `json:"mem"`
}

// MarshalJSON encodes the sample in the sampler's nested wire layout.
func (r RawSample) MarshalJSON() ([]byte, error) {
	return json.Marshal(rawRecord{
		Timestamp: r.Timestamp,
		CPU:       rawCPU{UTime: r.UTime, STime: r.STime},
		Mem:       rawMem{VMem: r.VMem, RMem: r.RMem},
	})
}

// count is a counter that may arrive as a JSON number or a numeric string.
// Fractional numbers are truncated toward zero.
type count struct {
	value int64
}

func (c *count) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return err
		}
		c.value = v
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	c.value = int64(math.Trunc(f))
	return nil
}

type wireSample struct {
	Timestamp *float64 `json:"timestamp"`
	CPU       *struct {
		UTime *count `json:"utime"`
		STime *count `json:"stime"`
	} `json:"cpu"`
	Mem *struct {
		VMem *count `json:"vmem"`
		RMem *count `json:"rmem"`
	} `json:"mem"`
}

// ParseRawSample decodes one sampler record. Every field is required; a
// missing one yields a *schema.Error naming it.
func ParseRawSample(line []byte) (RawSample, error) {
	var w wireSample
	if err := json.Unmarshal(line, &w); err != nil {
		return RawSample{}, schema.Invalid("malformed record: " + err.Error())
	}

	switch {
	case w.Timestamp == nil:
		return RawSample{}, schema.Missing("timestamp")
	case w.CPU == nil:
		return RawSample{}, schema.Missing("cpu")
	case w.CPU.UTime == nil:
		return RawSample{}, schema.Missing("cpu", "utime")
	case w.CPU.STime == nil:
		return RawSample{}, schema.Missing("cpu", "stime")
	case w.Mem == nil:
		return RawSample{}, schema.Missing("mem")
	case w.Mem.VMem == nil:
		return RawSample{}, schema.Missing("mem", "vmem")
	case w.Mem.RMem == nil:
		return RawSample{}, schema.Missing("mem", "rmem")
	}

	return RawSample{
		Timestamp: *w.Timestamp,
		UTime:     w.CPU.UTime.value,
		STime:     w.CPU.STime.value,
		VMem:      w.Mem.VMem.value,
		RMem:      w.Mem.RMem.value,
	}, nil
}
