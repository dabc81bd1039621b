package netstats

import (
	"github.com/thesyncim/rtcbench/pkg/schema"
	"github.com/thesyncim/rtcbench/pkg/table"
)

// metricColumns maps transport metrics to their CSV column names.
var metricColumns = map[Metric]string{
	BytesSent:         "BytesSent",
	BytesSentBits:     "BytesSent_in_bits/s",
	BytesReceived:     "BytesReceived",
	BytesReceivedBits: "BytesReceived_in_bits/s",
}

// Column returns the CSV column name of m.
func (m Metric) Column() string {
	if c, ok := metricColumns[m]; ok {
		return c
	}
	return string(m)
}

var (
	// ConnectionHeader is the header of the per-connection CSV.
	ConnectionHeader = []string{
		"PeerConnectionID", "StartTime", "EndTime",
		"BytesSent", "BytesSent_in_bits/s", "BytesReceived", "BytesReceived_in_bits/s",
	}
	// PeerHeader is the header of the per-peer CSV.
	PeerHeader = []string{
		"Peer",
		"BytesSent", "BytesSent_in_bits/s", "BytesReceived", "BytesReceived_in_bits/s",
	}
	// RTTHeader is the header of the round-trip-time CSV.
	RTTHeader = []string{"Peer", "RTT"}
)

func metricFields(m map[Metric][]float64) []string {
	fields := make([]string, 0, len(TransportMetrics))
	for _, metric := range TransportMetrics {
		fields = append(fields, table.FormatList(m[metric]))
	}
	return fields
}

func readMetrics(rec table.Record) (map[Metric][]float64, error) {
	m := make(map[Metric][]float64, len(TransportMetrics))
	for _, metric := range TransportMetrics {
		values, err := rec.List(metric.Column())
		if err != nil {
			return nil, err
		}
		m[metric] = values
	}
	return m, nil
}

// WriteConnectionsCSV writes one row per connection under ConnectionHeader.
func WriteConnectionsCSV(path string, conns []ConnectionSeries) error {
	rows := make([][]string, 0, len(conns))
	for _, c := range conns {
		row := []string{c.ID, FormatTime(c.StartTime), FormatTime(c.EndTime)}
		rows = append(rows, append(row, metricFields(c.Metrics)...))
	}
	return table.WriteFile(path, ConnectionHeader, rows)
}

// ReadConnectionsCSV reads a file written by WriteConnectionsCSV.
func ReadConnectionsCSV(path string) ([]ConnectionSeries, error) {
	records, err := table.ReadFile(path, ConnectionHeader...)
	if err != nil {
		return nil, err
	}
	conns := make([]ConnectionSeries, 0, len(records))
	for _, rec := range records {
		c, err := connectionFromRecord(rec)
		if err != nil {
			return nil, schema.WithSource(err, path)
		}
		conns = append(conns, c)
	}
	return conns, nil
}

func connectionFromRecord(rec table.Record) (ConnectionSeries, error) {
	c := ConnectionSeries{ID: rec.String("PeerConnectionID")}
	var err error
	if c.StartTime, err = ParseTime(rec.String("StartTime")); err != nil {
		return c, err
	}
	if c.EndTime, err = ParseTime(rec.String("EndTime")); err != nil {
		return c, err
	}
	c.Metrics, err = readMetrics(rec)
	return c, err
}

// WritePeersCSV writes one row per peer under PeerHeader.
func WritePeersCSV(path string, peers []PeerAggregate) error {
	rows := make([][]string, 0, len(peers))
	for _, p := range peers {
		rows = append(rows, append([]string{p.Peer}, metricFields(p.Metrics)...))
	}
	return table.WriteFile(path, PeerHeader, rows)
}

// ReadPeersCSV reads a file written by WritePeersCSV. The per-peer CSV
// carries no time span.
func ReadPeersCSV(path string) ([]PeerAggregate, error) {
	records, err := table.ReadFile(path, PeerHeader...)
	if err != nil {
		return nil, err
	}
	peers := make([]PeerAggregate, 0, len(records))
	for _, rec := range records {
		m, err := readMetrics(rec)
		if err != nil {
			return nil, schema.WithSource(err, path)
		}
		peers = append(peers, PeerAggregate{Peer: rec.String("Peer"), Metrics: m})
	}
	return peers, nil
}

// WriteRTTCSV writes one row per RTT series under RTTHeader.
func WriteRTTCSV(path string, rows []RTTSeries) error {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{r.Name, table.FormatList(r.Values)})
	}
	return table.WriteFile(path, RTTHeader, out)
}

// ReadRTTCSV reads a file written by WriteRTTCSV.
func ReadRTTCSV(path string) ([]RTTSeries, error) {
	records, err := table.ReadFile(path, RTTHeader...)
	if err != nil {
		return nil, err
	}
	rows := make([]RTTSeries, 0, len(records))
	for _, rec := range records {
		values, err := rec.List("RTT")
		if err != nil {
			return nil, schema.WithSource(err, path)
		}
		rows = append(rows, RTTSeries{Name: rec.String("Peer"), Values: values})
	}
	return rows, nil
}
