package netstats

import (
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/thesyncim/rtcbench/pkg/series"
)

// Metric names one transport counter series.
type Metric string

const (
	BytesSent         Metric = "bytes_sent"
	BytesSentBits     Metric = "bytes_sent_in_bits/s"
	BytesReceived     Metric = "bytes_received"
	BytesReceivedBits Metric = "bytes_received_in_bits/s"
	RoundTripTime     Metric = "round_trip_time"
)

// TransportMetrics lists the transport metrics in CSV column order.
var TransportMetrics = []Metric{BytesSent, BytesSentBits, BytesReceived, BytesReceivedBits}

// transportAttributes maps dump attribute names to metrics.
var transportAttributes = map[string]Metric{
	"bytesSent":                 BytesSent,
	"[bytesSent_in_bits/s]":     BytesSentBits,
	"bytesReceived":             BytesReceived,
	"[bytesReceived_in_bits/s]": BytesReceivedBits,
}

const rttAttribute = "roundTripTime"

// ConnectionSeries holds the transport metrics of one peer connection.
type ConnectionSeries struct {
	ID        string
	StartTime time.Time
	EndTime   time.Time
	Metrics   map[Metric][]float64
}

func newConnectionSeries(id string) ConnectionSeries {
	m := make(map[Metric][]float64, len(TransportMetrics))
	for _, metric := range TransportMetrics {
		m[metric] = []float64{}
	}
	return ConnectionSeries{ID: id, Metrics: m}
}

// Len returns the length of the longest metric.
func (c ConnectionSeries) Len() int {
	return series.MaxLen(metricSeries(c.Metrics)...)
}

func metricSeries(m map[Metric][]float64) [][]float64 {
	seqs := make([][]float64, 0, len(m))
	for _, s := range m {
		seqs = append(seqs, s)
	}
	return seqs
}

func (c *ConnectionSeries) span(start, end time.Time) {
	if c.StartTime.IsZero() || start.Before(c.StartTime) {
		c.StartTime = start
	}
	if end.After(c.EndTime) {
		c.EndTime = end
	}
}

// ExtractTransport collects the transport counters of every connection of
// d, ordered by connection id. Entries that were never sampled are
// skipped. When a connection has several transports their series are
// summed aligned at the end.
func ExtractTransport(d *Dump) ([]ConnectionSeries, error) {
	out := make([]ConnectionSeries, 0, len(d.PeerConnections))
	for _, connID := range d.ConnectionIDs() {
		pc := d.PeerConnections[connID]
		cs := newConnectionSeries(connID)
		parts := make(map[Metric][][]float64)

		for _, statsID := range pc.StatsIDs() {
			e := pc.Stats[statsID]
			if e.Type != webrtc.StatsTypeTransport || e.Empty() {
				continue
			}
			metric, ok := transportAttributes[e.Attribute()]
			if !ok {
				continue
			}
			values, err := e.Series()
			if err != nil {
				return nil, err
			}
			parts[metric] = append(parts[metric], values)
			cs.span(e.StartTime, e.EndTime)
		}
		for metric, seqs := range parts {
			cs.Metrics[metric] = series.SumAll(seqs)
		}
		out = append(out, cs)
	}
	return out, nil
}

// AlignConnections right-pads every metric of every connection to the
// longest series in the set.
func AlignConnections(conns []ConnectionSeries) []ConnectionSeries {
	var seqs [][]float64
	for _, c := range conns {
		seqs = append(seqs, metricSeries(c.Metrics)...)
	}
	n := series.MaxLen(seqs...)
	out := make([]ConnectionSeries, len(conns))
	for i, c := range conns {
		padded := make(map[Metric][]float64, len(c.Metrics))
		for metric, s := range c.Metrics {
			padded[metric] = series.PadRight(s, n)
		}
		c.Metrics = padded
		out[i] = c
	}
	return out
}

// RTTSeries is the round-trip-time history of one remote inbound stream.
type RTTSeries struct {
	// Name is "<connection id>_<stats id prefix>".
	Name   string
	Values []float64
}

// ExtractRTT collects every remote-inbound-rtp roundTripTime series of d and
// left-pads them to a common length.
func ExtractRTT(d *Dump) ([]RTTSeries, error) {
	var out []RTTSeries
	for _, connID := range d.ConnectionIDs() {
		pc := d.PeerConnections[connID]
		for _, statsID := range pc.StatsIDs() {
			e := pc.Stats[statsID]
			if e.Type != webrtc.StatsTypeRemoteInboundRTP || e.Empty() {
				continue
			}
			if e.Attribute() != rttAttribute {
				continue
			}
			values, err := e.Series()
			if err != nil {
				return nil, err
			}
			out = append(out, RTTSeries{Name: connID + "_" + e.Prefix(), Values: values})
		}
	}
	return AlignRTT(out), nil
}

// AlignRTT left-pads every series to the longest one.
func AlignRTT(rows []RTTSeries) []RTTSeries {
	n := series.MaxLen(rttValues(rows)...)
	out := make([]RTTSeries, len(rows))
	for i, r := range rows {
		out[i] = RTTSeries{Name: r.Name, Values: series.PadLeft(r.Values, n)}
	}
	return out
}

func rttValues(rows []RTTSeries) [][]float64 {
	seqs := make([][]float64, len(rows))
	for i, r := range rows {
		seqs[i] = r.Values
	}
	return seqs
}
