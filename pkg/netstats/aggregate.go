package netstats

import (
	"strings"
	"time"

	"github.com/thesyncim/rtcbench/pkg/series"
)

// PeerKey returns the peer a connection id belongs to: the id up to the
// first "-", or the whole id when it has none.
func PeerKey(connectionID string) string {
	peer, _, _ := strings.Cut(connectionID, "-")
	return peer
}

// PeerAggregate is the sum of every connection series of one peer.
type PeerAggregate struct {
	Peer      string
	StartTime time.Time
	EndTime   time.Time
	Metrics   map[Metric][]float64
}

// Len returns the length of the longest metric.
func (p PeerAggregate) Len() int {
	return series.MaxLen(metricSeries(p.Metrics)...)
}

// Aggregate groups connections by PeerKey, in first-seen order, and sums
// each metric across the group aligned at the end. The aggregate spans from
// the earliest connection start to the latest connection end.
func Aggregate(conns []ConnectionSeries) []PeerAggregate {
	var (
		order  []string
		groups = make(map[string][]ConnectionSeries)
	)
	for _, c := range conns {
		peer := PeerKey(c.ID)
		if _, ok := groups[peer]; !ok {
			order = append(order, peer)
		}
		groups[peer] = append(groups[peer], c)
	}

	out := make([]PeerAggregate, 0, len(order))
	for _, peer := range order {
		members := groups[peer]
		agg := PeerAggregate{Peer: peer, Metrics: make(map[Metric][]float64)}

		metrics := make(map[Metric][][]float64)
		for _, c := range members {
			if !c.StartTime.IsZero() && (agg.StartTime.IsZero() || c.StartTime.Before(agg.StartTime)) {
				agg.StartTime = c.StartTime
			}
			if c.EndTime.After(agg.EndTime) {
				agg.EndTime = c.EndTime
			}
			for metric, s := range c.Metrics {
				metrics[metric] = append(metrics[metric], s)
			}
		}
		for metric, seqs := range metrics {
			agg.Metrics[metric] = series.SumAll(seqs)
		}
		out = append(out, agg)
	}
	return out
}
