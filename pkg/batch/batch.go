// Package batch drives a per-file processor over an input directory,
// skipping inputs whose output already exists.
package batch

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"emperror.dev/errors"
	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// Input is one file of the input directory.
type Input struct {
	Name string // base name, e.g. "session-1.txt"
	Stem string // name without extension, e.g. "session-1"
	Path string // path including the input directory
}

// Stem returns name without its final extension.
func Stem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// Config configures a batch run.
type Config struct {
	InputDir  string
	OutputDir string
	// Force processes every input even when its output already exists.
	Force bool
	// Suffix is appended to an input's stem to name its output. Only
	// outputs carrying it mark an input as done.
	Suffix string
}

// OutputStem returns the stem of the output written for in.
func (c Config) OutputStem(in Input) string {
	return in.Stem + c.Suffix
}

// Result summarises a batch run.
type Result struct {
	Processed []string
	Skipped   []string
}

// Processor handles one input. It is expected to write its output into the
// configured output directory under the input's stem.
type Processor func(ctx context.Context, in Input) error

// PendingInputs lists the regular files of inputDir whose stem does not
// appear among the files of outputDir, sorted by name. Both directories are
// created when missing.
func PendingInputs(inputDir, outputDir string) ([]Input, error) {
	all, err := listInputs(inputDir)
	if err != nil {
		return nil, err
	}
	pending, _, err := filterDone(all, Config{OutputDir: outputDir})
	return pending, err
}

// Inputs lists every regular file of dir, sorted by name. The directory is
// created when missing.
func Inputs(dir string) ([]Input, error) {
	return listInputs(dir)
}

func filterDone(all []Input, cfg Config) (pending []Input, skipped []string, err error) {
	done, err := stems(cfg.OutputDir)
	if err != nil {
		return nil, nil, err
	}
	for _, in := range all {
		if _, ok := done[cfg.OutputStem(in)]; ok {
			skipped = append(skipped, in.Name)
			continue
		}
		pending = append(pending, in)
	}
	return pending, skipped, nil
}

func listInputs(dir string) ([]Input, error) {
	entries, err := readDir(dir)
	if err != nil {
		return nil, err
	}
	inputs := make([]Input, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		inputs = append(inputs, Input{
			Name: e.Name(),
			Stem: Stem(e.Name()),
			Path: filepath.Join(dir, e.Name()),
		})
	}
	sort.Slice(inputs, func(i, j int) bool { return inputs[i].Name < inputs[j].Name })
	return inputs, nil
}

func stems(dir string) (map[string]struct{}, error) {
	entries, err := readDir(dir)
	if err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		out[Stem(e.Name())] = struct{}{}
	}
	return out, nil
}

func readDir(dir string) ([]os.DirEntry, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create %s", dir)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list %s", dir)
	}
	return entries, nil
}

// Run processes the pending inputs of cfg one at a time. The first
// processor error stops the run and is returned along with the inputs
// processed so far.
func Run(ctx context.Context, cfg Config, process Processor) (Result, error) {
	var res Result

	inputs, err := listInputs(cfg.InputDir)
	if err != nil {
		return res, err
	}
	if cfg.Force {
		_, err = readDir(cfg.OutputDir)
	} else {
		inputs, res.Skipped, err = filterDone(inputs, cfg)
	}
	if err != nil {
		return res, err
	}

	for _, in := range inputs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		logger := log.WithField("file", in.Name)
		logger.Debug("processing")
		if err := process(ctx, in); err != nil {
			return res, errors.Wrapf(err, "failed to process %s", in.Path)
		}
		res.Processed = append(res.Processed, in.Name)
		logger.Info("processed")
	}

	if len(res.Skipped) > 0 {
		log.WithField("count", len(res.Skipped)).Debug("skipped inputs with existing output")
	}
	return res, nil
}

// Watch runs the batch once and again after every file created or written
// in the input directory, until ctx is cancelled. Processing stays
// sequential; events that arrive during a run trigger one more run.
func Watch(ctx context.Context, cfg Config, process Processor) error {
	if _, err := readDir(cfg.InputDir); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.WithStack(err)
	}
	defer watcher.Close()

	if err := watcher.Add(cfg.InputDir); err != nil {
		return errors.Wrapf(err, "failed to watch %s", cfg.InputDir)
	}
	if _, err := Run(ctx, cfg, process); err != nil {
		return err
	}
	log.WithField("dir", cfg.InputDir).Info("watching for new inputs")

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return errors.New("watcher event channel closed")
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			drain(watcher.Events)
			log.WithField("file", filepath.Base(ev.Name)).Debug("input changed")
			if _, err := Run(ctx, cfg, process); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("watcher error channel closed")
			}
			return errors.WithStack(err)
		}
	}
}

// drain discards events already queued.
func drain(events <-chan fsnotify.Event) {
	for {
		select {
		case <-events:
		default:
			return
		}
	}
}
