package resources

import (
	"context"
	"io"
	"math"
	"time"

	"emperror.dev/errors"
	"github.com/c2h5oh/datasize"
	"github.com/goccy/go-json"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/process"
	log "github.com/sirupsen/logrus"

	"github.com/thesyncim/rtcbench/pkg/internal"
)

// SamplerConfig configures a Sampler.
type SamplerConfig struct {
	PID      int32         // process to sample
	Interval time.Duration // time between samples (default: 1s)
	Count    int           // number of samples to emit, 0 for unlimited
}

// DefaultSamplerConfig returns a one-second, unlimited configuration.
func DefaultSamplerConfig(pid int32) SamplerConfig {
	return SamplerConfig{
		PID:      pid,
		Interval: time.Second,
	}
}

// processStats is the subset of *process.Process the sampler reads.
type processStats interface {
	Times() (*cpu.TimesStat, error)
	MemoryInfo() (*process.MemoryInfoStat, error)
}

// Sampler periodically reads CPU times and memory of a process and emits
// one RawSample per interval. CPU ticks are the time consumed since the
// previous sample, memory is in bytes.
type Sampler struct {
	cfg   SamplerConfig
	proc  processStats
	clock internal.Clock
}

// NewSampler attaches to the process cfg.PID.
func NewSampler(cfg SamplerConfig) (*Sampler, error) {
	proc, err := process.NewProcess(cfg.PID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to attach to pid %d", cfg.PID)
	}
	return newSampler(cfg, proc, internal.SystemClock{}), nil
}

func newSampler(cfg SamplerConfig, proc processStats, clock internal.Clock) *Sampler {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	return &Sampler{cfg: cfg, proc: proc, clock: clock}
}

// next waits one interval and reads a sample. prev holds the user and
// system seconds of the previous reading and is updated in place.
func (s *Sampler) next(ctx context.Context, prev *cpu.TimesStat) (RawSample, error) {
	if err := s.clock.Sleep(ctx, s.cfg.Interval); err != nil {
		return RawSample{}, err
	}

	times, err := s.proc.Times()
	if err != nil {
		return RawSample{}, errors.Wrap(err, "failed to get CPU times")
	}
	mem, err := s.proc.MemoryInfo()
	if err != nil {
		return RawSample{}, errors.Wrap(err, "failed to get memory info")
	}

	now := s.clock.Now()
	sample := RawSample{
		Timestamp: float64(now.UnixNano()) / 1e9,
		UTime:     int64(math.Round((times.User - prev.User) * ClockTicksPerSecond)),
		STime:     int64(math.Round((times.System - prev.System) * ClockTicksPerSecond)),
		VMem:      int64(mem.VMS),
		RMem:      int64(mem.RSS),
	}
	prev.User, prev.System = times.User, times.System

	log.WithFields(log.Fields{
		"pid": s.cfg.PID,
		"cpu": float64(sample.UTime+sample.STime) / ClockTicksPerSecond,
		"rss": datasize.ByteSize(mem.RSS).HumanReadable(),
		"vms": datasize.ByteSize(mem.VMS).HumanReadable(),
	}).Debug("process sampled")
	return sample, nil
}

// Run writes one JSON line per sample to w until ctx is cancelled or
// cfg.Count samples have been written. Cancellation is not an error.
func (s *Sampler) Run(ctx context.Context, w io.Writer) error {
	base, err := s.proc.Times()
	if err != nil {
		return errors.Wrap(err, "failed to get CPU times")
	}
	prev := *base

	enc := json.NewEncoder(w)
	for n := 0; s.cfg.Count == 0 || n < s.cfg.Count; n++ {
		sample, err := s.next(ctx, &prev)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := enc.Encode(sample); err != nil {
			return errors.Wrap(err, "failed to write sample")
		}
	}
	return nil
}
