package cmd

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"emperror.dev/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/thesyncim/rtcbench/pkg/batch"
	"github.com/thesyncim/rtcbench/pkg/chart"
	"github.com/thesyncim/rtcbench/pkg/environ"
	"github.com/thesyncim/rtcbench/pkg/resources"
)

var resourcesCmd = &cobra.Command{
	Use:   "resources",
	Short: "Process CPU and memory samples",
	Long: `Sample a process, normalise the samples into pid-<pid>.txt files, summarise
them as CSV rows and chart them.`,
}

var (
	samplePID      int32
	sampleInterval = resources.DefaultSamplerConfig(0).Interval
	sampleCount    int
	sampleOutput   string
)

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Emit one raw JSON sample per interval for a process",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := resources.DefaultSamplerConfig(samplePID)
		cfg.Interval = sampleInterval
		cfg.Count = sampleCount

		s, err := resources.NewSampler(cfg)
		if err != nil {
			return err
		}

		var w io.Writer = cmd.OutOrStdout()
		if sampleOutput != "" && sampleOutput != "-" {
			f, err := os.Create(sampleOutput)
			if err != nil {
				return errors.WithStack(err)
			}
			defer f.Close()
			w = f
		}
		return s.Run(cmd.Context(), w)
	},
}

var (
	normalizePID    int
	normalizeSource string
	normalizeOutput string
	normalizeFollow bool
	normalizeFifo   bool
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Record raw samples into <output>/pid-<pid>.txt",
	Long: `Reads raw sampler lines from stdin, a file or a named pipe until the input
ends or the command is interrupted, then writes the normalised samples.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var src resources.LineSource
		if normalizeSource == "-" {
			src = resources.NewReaderSource(cmd.InOrStdin())
		} else {
			var err error
			src, err = resources.NewFileSource(normalizeSource, resources.FileSourceConfig{
				Follow:     normalizeFollow,
				CreateFifo: normalizeFifo,
			})
			if err != nil {
				return err
			}
		}

		cfg := resources.DefaultRecorderConfig(normalizePID)
		cfg.OutputDir = normalizeOutput
		path, err := resources.NewRecorder(cfg).Record(cmd.Context(), src)
		if err != nil {
			return err
		}
		log.WithFields(log.Fields{"pid": normalizePID, "file": path}).Info("samples written")
		return nil
	},
}

var resourcesParseFlags, resourcesPlotFlags *batchFlags

var resourcesParseCmd = &cobra.Command{
	Use:   "parse",
	Short: "Summarise every sample file as a PID,StartTime,EndTime,CPU,VMEM,RMEM row",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f := resourcesParseFlags
		return f.run(cmd.Context(), func(_ context.Context, in batch.Input) error {
			samples, err := resources.ReadSamplesFile(in.Path)
			if err != nil {
				return err
			}
			proc, err := resources.Summarize(in.Stem, samples)
			if err != nil {
				return err
			}
			return resources.WriteProcessCSV(f.output(in, ".csv"), proc)
		})
	},
}

var resourcesPlotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Chart CPU, VMEM and RMEM of the last process of every CSV file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f := resourcesPlotFlags
		return f.run(cmd.Context(), func(_ context.Context, in batch.Input) error {
			procs, err := resources.ReadProcessCSV(in.Path)
			if err != nil {
				return err
			}
			if len(procs) == 0 {
				return errors.Errorf("%s has no process rows", in.Name)
			}
			return chart.ProcessPanels(procs[len(procs)-1], chart.Inches(10, 8), f.output(in, ".png"))
		})
	},
}

var (
	compareInput  string
	compareOutput string
	compareName   string
	compareWindow int
)

var resourcesCompareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Chart the smoothed CPU usage of every process CSV in one figure",
	Long: `Loads every process CSV of the input directory, left-pads the processes to a
common length so that their last samples line up, and charts their smoothed
CPU usage together as <output>/<name>.png. The chart is redrawn on every run.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		inputs, err := batch.Inputs(compareInput)
		if err != nil {
			return err
		}
		if len(inputs) == 0 {
			return errors.Errorf("no process files in %s", compareInput)
		}
		paths := make([]string, len(inputs))
		for i, in := range inputs {
			paths[i] = in.Path
		}
		procs, err := resources.ReadProcessCSVs(paths...)
		if err != nil {
			return err
		}

		cfg := chart.DefaultCPUComparisonConfig()
		cfg.Window = compareWindow
		path := filepath.Join(compareOutput, compareName+".png")
		if err := chart.CPUComparison(procs, newPalette(), cfg, path); err != nil {
			return err
		}
		log.WithFields(log.Fields{"processes": len(procs), "file": path}).Info("comparison written")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resourcesCmd)
	resourcesCmd.AddCommand(sampleCmd, normalizeCmd, resourcesParseCmd, resourcesPlotCmd, resourcesCompareCmd)

	sampleCmd.Flags().Int32Var(&samplePID, "pid", 0, "Process to sample")
	_ = sampleCmd.MarkFlagRequired("pid")
	sampleCmd.Flags().DurationVar(&sampleInterval, "interval",
		environ.GetDuration("RTCBENCH_SAMPLE_INTERVAL", sampleInterval),
		"Time between samples",
	)
	sampleCmd.Flags().IntVar(&sampleCount, "count",
		environ.GetInt("RTCBENCH_SAMPLE_COUNT", 0),
		"Number of samples, 0 to sample until interrupted",
	)
	sampleCmd.Flags().StringVar(&sampleOutput, "output", "-", "File receiving the samples, - for stdout")

	normalizeCmd.Flags().IntVar(&normalizePID, "pid", 0, "Process the samples belong to")
	_ = normalizeCmd.MarkFlagRequired("pid")
	normalizeCmd.Flags().StringVar(&normalizeSource, "source", "-", "Sample source: - for stdin, or a file or named pipe")
	normalizeCmd.Flags().StringVar(&normalizeOutput, "output",
		environ.GetString("RTCBENCH_SAMPLES_DIR", resources.DefaultRecorderConfig(0).OutputDir),
		"Directory receiving pid-<pid>.txt",
	)
	normalizeCmd.Flags().BoolVar(&normalizeFollow, "follow", false, "Keep reading the source file as it grows")
	normalizeCmd.Flags().BoolVar(&normalizeFifo, "fifo", false, "Create the source as a named pipe before reading it")

	resourcesParseFlags = newBatchFlags(resourcesParseCmd, "RTCBENCH_RESOURCES_PARSE", "cpu_mem", "parsed_input")
	resourcesPlotFlags = newBatchFlags(resourcesPlotCmd, "RTCBENCH_RESOURCES_PLOT", "parsed_input", "figures")
	resourcesCompareCmd.Flags().StringVar(&compareInput, "input",
		environ.GetString("RTCBENCH_RESOURCES_COMPARE_INPUT", "parsed_input"),
		"Directory of process CSV files",
	)
	resourcesCompareCmd.Flags().StringVar(&compareOutput, "output",
		environ.GetString("RTCBENCH_RESOURCES_COMPARE_OUTPUT", "figures"),
		"Directory receiving the chart",
	)
	resourcesCompareCmd.Flags().StringVar(&compareName, "name",
		environ.GetString("RTCBENCH_RESOURCES_COMPARE_NAME", "cpu-comparison"),
		"Chart file name without extension",
	)
	resourcesCompareCmd.Flags().IntVar(&compareWindow, "window",
		environ.GetInt("RTCBENCH_SMOOTHING_WINDOW", chart.DefaultCPUComparisonConfig().Window),
		"Moving-average window in samples",
	)
}
