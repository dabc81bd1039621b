package cmd

import (
	"context"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/thesyncim/rtcbench/pkg/batch"
	"github.com/thesyncim/rtcbench/pkg/chart"
	"github.com/thesyncim/rtcbench/pkg/environ"
)

// batchFlags are the directory flags shared by every per-file command.
type batchFlags struct {
	cfg   batch.Config
	watch bool
}

// newBatchFlags registers --input, --output, --force and --watch on cmd.
// env prefixes the environment variables providing their defaults.
func newBatchFlags(cmd *cobra.Command, env, input, output string) *batchFlags {
	f := &batchFlags{}
	cmd.Flags().StringVar(&f.cfg.InputDir, "input",
		environ.GetString(env+"_INPUT", input),
		"Directory of input files",
	)
	cmd.Flags().StringVar(&f.cfg.OutputDir, "output",
		environ.GetString(env+"_OUTPUT", output),
		"Directory receiving one output per input",
	)
	cmd.Flags().BoolVar(&f.cfg.Force, "force",
		environ.GetBool("RTCBENCH_FORCE", false),
		"Process inputs whose output already exists",
	)
	cmd.Flags().BoolVar(&f.watch, "watch",
		environ.GetBool("RTCBENCH_WATCH", false),
		"Keep running and process new inputs as they appear",
	)
	return f
}

// output returns the output path for in with the given extension.
func (f *batchFlags) output(in batch.Input, ext string) string {
	return filepath.Join(f.cfg.OutputDir, f.cfg.OutputStem(in)+ext)
}

// newPalette returns the colour cache of one chart.
var newPalette = chart.NewPalette

func (f *batchFlags) run(ctx context.Context, process batch.Processor) error {
	if f.watch {
		return batch.Watch(ctx, f.cfg, process)
	}
	res, err := batch.Run(ctx, f.cfg, process)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"processed": len(res.Processed),
		"skipped":   len(res.Skipped),
		"output":    f.cfg.OutputDir,
	}).Info("batch complete")
	return nil
}
