package resources

import (
	"bytes"
	"context"
	"testing"
	"time"

	"emperror.dev/errors"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/process"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thesyncim/rtcbench/pkg/internal"
)

// fakeProcess returns successive CPU readings, repeating the last one.
type fakeProcess struct {
	times []cpu.TimesStat
	calls int
	mem   process.MemoryInfoStat
	err   error
}

func (f *fakeProcess) Times() (*cpu.TimesStat, error) {
	if f.err != nil {
		return nil, f.err
	}
	i := f.calls
	if i >= len(f.times) {
		i = len(f.times) - 1
	}
	f.calls++
	ts := f.times[i]
	return &ts, nil
}

func (f *fakeProcess) MemoryInfo() (*process.MemoryInfoStat, error) {
	m := f.mem
	return &m, nil
}

func TestSampler_EmitsTickDeltas(t *testing.T) {
	proc := &fakeProcess{
		times: []cpu.TimesStat{
			{User: 10, System: 5},
			{User: 10.5, System: 5.25},
			{User: 11.5, System: 5.25},
		},
		mem: process.MemoryInfoStat{RSS: 2048, VMS: 8192},
	}
	clock := internal.NewMockClock(time.Time{})
	s := newSampler(SamplerConfig{PID: 1, Interval: time.Second, Count: 2}, proc, clock)

	var buf bytes.Buffer
	require.NoError(t, s.Run(context.Background(), &buf))

	var got []RawSample
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		raw, err := ParseRawSample(line)
		require.NoError(t, err)
		got = append(got, raw)
	}
	require.Len(t, got, 2)

	assert.Equal(t, int64(50), got[0].UTime)
	assert.Equal(t, int64(25), got[0].STime)
	assert.Equal(t, int64(100), got[1].UTime)
	assert.Equal(t, int64(0), got[1].STime)
	assert.Equal(t, int64(8192), got[0].VMem)
	assert.Equal(t, int64(2048), got[0].RMem)

	assert.Equal(t, []time.Duration{time.Second, time.Second}, clock.Slept())
	assert.Equal(t, float64(1000000001), got[0].Timestamp)
	assert.Equal(t, float64(1000000002), got[1].Timestamp)
}

func TestSampler_CancelledContextIsNotAnError(t *testing.T) {
	proc := &fakeProcess{times: []cpu.TimesStat{{}}}
	s := newSampler(DefaultSamplerConfig(1), proc, internal.NewMockClock(time.Time{}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	assert.NoError(t, s.Run(ctx, &buf))
	assert.Zero(t, buf.Len())
}

func TestSampler_ProcessError(t *testing.T) {
	proc := &fakeProcess{err: errors.New("no such process")}
	s := newSampler(DefaultSamplerConfig(1), proc, internal.NewMockClock(time.Time{}))

	err := s.Run(context.Background(), &bytes.Buffer{})
	assert.ErrorContains(t, err, "no such process")
}
