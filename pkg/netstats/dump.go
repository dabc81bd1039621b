// Package netstats extracts WebRTC transport counters and round-trip times
// from chrome://webrtc-internals dumps and aggregates them per peer.
package netstats

import (
	"bytes"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"emperror.dev/errors"
	"github.com/goccy/go-json"
	"github.com/pion/webrtc/v4"

	"github.com/thesyncim/rtcbench/pkg/schema"
	"github.com/thesyncim/rtcbench/pkg/table"
)

// Dump is a decoded webrtc-internals export.
type Dump struct {
	PeerConnections map[string]PeerConnection
}

// PeerConnection holds the stats history of one RTCPeerConnection.
type PeerConnection struct {
	ID    string
	Stats map[string]StatsEntry
}

// StatsEntry is one sampled attribute of one stats object, e.g. the
// bytesSent counter of a transport.
type StatsEntry struct {
	ConnectionID string
	ID           string
	Type         webrtc.StatsType
	StartTime    time.Time
	EndTime      time.Time

	values json.RawMessage
}

// ConnectionIDs returns the peer-connection ids in lexical order.
func (d *Dump) ConnectionIDs() []string {
	ids := make([]string, 0, len(d.PeerConnections))
	for id := range d.PeerConnections {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// StatsIDs returns the stats ids of the connection in lexical order.
func (pc PeerConnection) StatsIDs() []string {
	ids := make([]string, 0, len(pc.Stats))
	for id := range pc.Stats {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Attribute returns the part of the stats id after the first "-", e.g.
// "bytesSent" for "T01-bytesSent".
func (e StatsEntry) Attribute() string {
	_, attr, _ := strings.Cut(e.ID, "-")
	return attr
}

// Prefix returns the part of the stats id before the first "-".
func (e StatsEntry) Prefix() string {
	prefix, _, _ := strings.Cut(e.ID, "-")
	return prefix
}

// Empty reports whether the entry was never sampled over a time span.
func (e StatsEntry) Empty() bool {
	return e.StartTime.Equal(e.EndTime)
}

// Series decodes the entry's values. Dumps store them as a JSON array
// literal inside a string; a bare array is accepted as well.
func (e StatsEntry) Series() ([]float64, error) {
	raw := bytes.TrimSpace(e.values)
	literal := string(raw)
	if len(raw) > 0 && raw[0] == '"' {
		if err := json.Unmarshal(raw, &literal); err != nil {
			return nil, e.invalid("values is not a string: " + err.Error())
		}
	}
	values, err := table.ParseList(literal)
	if err != nil {
		var se *schema.Error
		if errors.As(err, &se) {
			se.Path = e.path("values")
		}
		return nil, err
	}
	return values, nil
}

func (e StatsEntry) path(field string) []string {
	return []string{"PeerConnections", e.ConnectionID, "stats", e.ID, field}
}

func (e StatsEntry) invalid(reason string) error {
	return schema.Invalid(reason, e.path("values")...)
}

type wireDump struct {
	PeerConnections *map[string]wireConnection `json:"PeerConnections"`
}

type wireConnection struct {
	Stats *map[string]wireEntry `json:"stats"`
}

type wireEntry struct {
	StatsType *webrtc.StatsType `json:"statsType"`
	StartTime *string           `json:"startTime"`
	EndTime   *string           `json:"endTime"`
	Values    json.RawMessage   `json:"values"`
}

// ParseDump decodes a webrtc-internals dump. Missing structural fields are
// reported as *schema.Error with the path of the field.
func ParseDump(r io.Reader) (*Dump, error) {
	var w wireDump
	if err := json.NewDecoder(r).Decode(&w); err != nil {
		return nil, schema.Invalid("malformed dump: " + err.Error())
	}
	if w.PeerConnections == nil {
		return nil, schema.Missing("PeerConnections")
	}

	d := &Dump{PeerConnections: make(map[string]PeerConnection, len(*w.PeerConnections))}
	for connID, wc := range *w.PeerConnections {
		if wc.Stats == nil {
			return nil, schema.Missing("PeerConnections", connID, "stats")
		}
		pc := PeerConnection{ID: connID, Stats: make(map[string]StatsEntry, len(*wc.Stats))}
		for statsID, we := range *wc.Stats {
			entry, err := parseEntry(connID, statsID, we)
			if err != nil {
				return nil, err
			}
			pc.Stats[statsID] = entry
		}
		d.PeerConnections[connID] = pc
	}
	return d, nil
}

// ParseDumpFile reads and decodes the dump at path.
func ParseDumpFile(path string) (*Dump, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()

	d, err := ParseDump(f)
	return d, schema.WithSource(err, path)
}

func parseEntry(connID, statsID string, w wireEntry) (StatsEntry, error) {
	e := StatsEntry{ConnectionID: connID, ID: statsID}
	switch {
	case w.StatsType == nil:
		return e, schema.Missing(e.path("statsType")...)
	case w.StartTime == nil:
		return e, schema.Missing(e.path("startTime")...)
	case w.EndTime == nil:
		return e, schema.Missing(e.path("endTime")...)
	case len(w.Values) == 0:
		return e, schema.Missing(e.path("values")...)
	}

	var err error
	if e.StartTime, err = parseDumpTime(*w.StartTime); err != nil {
		return e, schema.Invalid(err.Error(), e.path("startTime")...)
	}
	if e.EndTime, err = parseDumpTime(*w.EndTime); err != nil {
		return e, schema.Invalid(err.Error(), e.path("endTime")...)
	}
	e.Type = *w.StatsType
	e.values = w.Values
	return e, nil
}

// TimeLayout is the timestamp layout of dumps and of the per-connection CSV.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

func parseDumpTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, errors.Errorf("invalid timestamp %q", s)
	}
	return t.UTC(), nil
}

// FormatTime renders t with TimeLayout. The zero time renders as "".
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a FormatTime result. "" yields the zero time.
func ParseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := parseDumpTime(s)
	if err != nil {
		return time.Time{}, schema.Invalid(err.Error())
	}
	return t, nil
}
