package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/thesyncim/rtcbench/pkg/batch"
	"github.com/thesyncim/rtcbench/pkg/chart"
	"github.com/thesyncim/rtcbench/pkg/environ"
	"github.com/thesyncim/rtcbench/pkg/netstats"
)

var networkCmd = &cobra.Command{
	Use:   "network",
	Short: "Process webrtc-internals dumps",
	Long: `Extract transport byte counters and round-trip times from webrtc-internals
dumps, aggregate them per peer and chart them.`,
}

var (
	networkParseFlags, networkAggregateFlags, networkCleanFlags *batchFlags
	networkRTTFlags, networkPlotFlags, networkPlotRTTFlags      *batchFlags
)

var networkParseCmd = &cobra.Command{
	Use:   "parse",
	Short: "Write the transport counters of every peer connection of each dump",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f := networkParseFlags
		return f.run(cmd.Context(), func(_ context.Context, in batch.Input) error {
			d, err := netstats.ParseDumpFile(in.Path)
			if err != nil {
				return err
			}
			conns, err := netstats.ExtractTransport(d)
			if err != nil {
				return err
			}
			return netstats.WriteConnectionsCSV(f.output(in, ".csv"), conns)
		})
	},
}

var networkAggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Sum parsed peer connections per peer after padding them to a common length",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f := networkAggregateFlags
		return f.run(cmd.Context(), func(_ context.Context, in batch.Input) error {
			conns, err := netstats.ReadConnectionsCSV(in.Path)
			if err != nil {
				return err
			}
			peers := netstats.Aggregate(netstats.AlignConnections(conns))
			return netstats.WritePeersCSV(f.output(in, ".csv"), peers)
		})
	},
}

var networkCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Sum the transport counters of each dump per peer",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f := networkCleanFlags
		return f.run(cmd.Context(), func(_ context.Context, in batch.Input) error {
			d, err := netstats.ParseDumpFile(in.Path)
			if err != nil {
				return err
			}
			conns, err := netstats.ExtractTransport(d)
			if err != nil {
				return err
			}
			return netstats.WritePeersCSV(f.output(in, ".csv"), netstats.Aggregate(conns))
		})
	},
}

var networkRTTCmd = &cobra.Command{
	Use:   "rtt",
	Short: "Write the round-trip times of each dump as Peer,RTT rows",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f := networkRTTFlags
		return f.run(cmd.Context(), func(_ context.Context, in batch.Input) error {
			d, err := netstats.ParseDumpFile(in.Path)
			if err != nil {
				return err
			}
			rows, err := netstats.ExtractRTT(d)
			if err != nil {
				return err
			}
			return netstats.WriteRTTCSV(f.output(in, ".csv"), rows)
		})
	},
}

var plotType string

var networkPlotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Chart bytes or bits sent and received per peer",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		unit, err := chart.ParseUnit(plotType)
		if err != nil {
			return err
		}
		f := networkPlotFlags
		return f.run(cmd.Context(), func(_ context.Context, in batch.Input) error {
			peers, err := netstats.ReadPeersCSV(in.Path)
			if err != nil {
				return err
			}
			return chart.Network(peers, unit, newPalette(), chart.Inches(12, 8), f.output(in, ".png"))
		})
	},
}

var networkPlotRTTCmd = &cobra.Command{
	Use:   "plot-rtt",
	Short: "Chart the round-trip times of every Peer,RTT file as <stem>-rtt.png",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f := networkPlotRTTFlags
		return f.run(cmd.Context(), func(_ context.Context, in batch.Input) error {
			rows, err := netstats.ReadRTTCSV(in.Path)
			if err != nil {
				return err
			}
			return chart.RTT(rows, newPalette(), chart.Inches(20, 10), f.output(in, ".png"))
		})
	},
}

func init() {
	rootCmd.AddCommand(networkCmd)
	networkCmd.AddCommand(networkParseCmd, networkAggregateCmd, networkCleanCmd, networkRTTCmd, networkPlotCmd, networkPlotRTTCmd)

	networkParseFlags = newBatchFlags(networkParseCmd, "RTCBENCH_NETWORK_PARSE", "raw_input", "parsed_input")
	networkAggregateFlags = newBatchFlags(networkAggregateCmd, "RTCBENCH_NETWORK_AGGREGATE", "parsed_input", "final_data")
	networkCleanFlags = newBatchFlags(networkCleanCmd, "RTCBENCH_NETWORK_CLEAN", "raw_input", "final_data")
	networkRTTFlags = newBatchFlags(networkRTTCmd, "RTCBENCH_NETWORK_RTT", "raw_input", "rtt_data")
	networkPlotFlags = newBatchFlags(networkPlotCmd, "RTCBENCH_NETWORK_PLOT", "final_data", "figures")
	networkPlotRTTFlags = newBatchFlags(networkPlotRTTCmd, "RTCBENCH_NETWORK_PLOT_RTT", "rtt_data", "figures")
	networkPlotRTTFlags.cfg.Suffix = "-rtt"

	networkPlotCmd.Flags().StringVar(&plotType, "type",
		environ.GetString("RTCBENCH_PLOT_TYPE", string(chart.Bytes)),
		"Counters to plot: bytes or bits",
	)
}
