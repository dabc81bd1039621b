package resources

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"emperror.dev/errors"
	log "github.com/sirupsen/logrus"

	"github.com/thesyncim/rtcbench/pkg/schema"
)

// RecorderConfig configures a Recorder.
type RecorderConfig struct {
	PID       int    // tracked process id, used to name the output file
	OutputDir string // directory receiving pid-<pid>.txt
}

// DefaultRecorderConfig returns a configuration writing into "cpu_mem".
func DefaultRecorderConfig(pid int) RecorderConfig {
	return RecorderConfig{
		PID:       pid,
		OutputDir: "cpu_mem",
	}
}

// Recorder accumulates normalised samples for one process and writes them
// out in a single file once sampling ends.
type Recorder struct {
	cfg     RecorderConfig
	samples []Sample
	lines   int
}

// NewRecorder creates a Recorder for the given configuration.
func NewRecorder(cfg RecorderConfig) *Recorder {
	return &Recorder{cfg: cfg}
}

// Add parses, normalises and stores one sampler line. Blank lines are
// ignored. A malformed line is returned as an error naming its line number.
func (r *Recorder) Add(line string) error {
	r.lines++
	if strings.TrimSpace(line) == "" {
		return nil
	}
	raw, err := ParseRawSample([]byte(line))
	if err != nil {
		return errors.Wrapf(err, "line %d", r.lines)
	}
	r.samples = append(r.samples, Normalize(raw))
	return nil
}

// Samples returns the samples recorded so far.
func (r *Recorder) Samples() []Sample {
	return r.samples
}

// Path returns the file Flush writes to.
func (r *Recorder) Path() string {
	return filepath.Join(r.cfg.OutputDir, fmt.Sprintf("pid-%d.txt", r.cfg.PID))
}

// Flush writes all samples as newline-separated JSON objects to Path,
// creating the output directory if needed.
func (r *Recorder) Flush() (string, error) {
	if err := os.MkdirAll(r.cfg.OutputDir, 0o755); err != nil {
		return "", errors.WithStack(err)
	}

	var buf bytes.Buffer
	for i, s := range r.samples {
		if i > 0 {
			buf.WriteByte('\n')
		}
		b, err := s.MarshalJSON()
		if err != nil {
			return "", errors.WithStack(err)
		}
		buf.Write(b)
	}

	path := r.Path()
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", errors.WithStack(err)
	}
	return path, nil
}

// Record consumes src until it ends or ctx is cancelled, then flushes the
// accumulated samples. A malformed line stops recording and nothing is
// written.
func (r *Recorder) Record(ctx context.Context, src LineSource) (string, error) {
	defer src.Stop()

	logger := log.WithField("pid", r.cfg.PID)
	lines := src.Lines()
	for {
		select {
		case <-ctx.Done():
			logger.Info("sampling interrupted, flushing samples")
			return r.Flush()

		case line, ok := <-lines:
			if !ok {
				logger.Info("end of sampler output, flushing samples")
				return r.Flush()
			}
			if line.Err != nil {
				return "", errors.Wrap(line.Err, "failed to read sampler output")
			}
			if err := r.Add(line.Text); err != nil {
				return "", schema.WithSource(err, fmt.Sprintf("pid %d", r.cfg.PID))
			}
			logger.WithField("samples", len(r.samples)).Debug("sample recorded")
		}
	}
}
