package chart

import (
	"time"

	"emperror.dev/errors"

	"github.com/thesyncim/rtcbench/pkg/netstats"
	"github.com/thesyncim/rtcbench/pkg/series"
)

// Unit selects which transport counters Network plots.
type Unit string

const (
	Bytes Unit = "bytes"
	Bits  Unit = "bits"
)

// ParseUnit validates a unit name.
func ParseUnit(s string) (Unit, error) {
	switch Unit(s) {
	case Bytes, Bits:
		return Unit(s), nil
	default:
		return "", errors.Errorf("unknown unit %q, want bytes or bits", s)
	}
}

// Network plots sent (dashed) and received (solid) counters of every peer.
// Each series is spread evenly over its peer's time span and the x axis
// counts seconds from the earliest start among the peers.
func Network(peers []netstats.PeerAggregate, unit Unit, palette *Palette, size Size, path string) error {
	sent, received := netstats.BytesSent, netstats.BytesReceived
	title, yLabel := "Bytes Sent and Received Over Time", "Bytes"
	if unit == Bits {
		sent, received = netstats.BytesSentBits, netstats.BytesReceivedBits
		title, yLabel = "Bits Sent and Received Over Time", "Bits/s"
	}

	var origin time.Time
	for _, peer := range peers {
		if !peer.StartTime.IsZero() && (origin.IsZero() || peer.StartTime.Before(origin)) {
			origin = peer.StartTime
		}
	}

	p := newPlot(title, "Time (seconds)", yLabel)
	for _, peer := range peers {
		c := palette.Assign(peer.Peer)
		offset := 0.0
		if !origin.IsZero() && !peer.StartTime.IsZero() {
			offset = peer.StartTime.Sub(origin).Seconds()
		}
		span := peer.EndTime.Sub(peer.StartTime).Seconds()

		for _, line := range []lineSpec{
			{label: peer.Peer + " - Sent", ys: peer.Metrics[sent], color: c, dashed: true},
			{label: peer.Peer + " - Received", ys: peer.Metrics[received], color: c},
		} {
			line.xs = spread(len(line.ys), span)
			for i := range line.xs {
				line.xs[i] += offset
			}
			if err := addLine(p, line); err != nil {
				return err
			}
		}
	}
	return save(p, size, path)
}

// RTT plots every round-trip-time row against its sample index. Shorter
// rows start later so that all rows end together.
func RTT(rows []netstats.RTTSeries, palette *Palette, size Size, path string) error {
	seqs := make([][]float64, len(rows))
	for i, r := range rows {
		seqs[i] = r.Values
	}
	n := series.MaxLen(seqs...)

	p := newPlot("", "Time (s)", "RTT (s)")
	for _, r := range rows {
		err := addLine(p, lineSpec{
			label: r.Name + " RTT",
			xs:    indices(n-len(r.Values), len(r.Values)),
			ys:    r.Values,
			color: palette.Assign(r.Name),
		})
		if err != nil {
			return err
		}
	}
	return save(p, size, path)
}
