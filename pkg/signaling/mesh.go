package signaling

import (
	"strconv"

	"emperror.dev/errors"
	"github.com/goccy/go-json"
	"github.com/pion/webrtc/v4"
)

// Message types sent to clients.
const (
	TypeClientID           = "clientID"
	TypeInformation        = "information"
	TypeConnectToPeer      = "connectToPeer"
	TypeStopConnection     = "stopConnection"
	TypeSessionDescription = "sessionDescription"
	TypeICECandidate       = "iceCandidate"
	TypeRelay              = "relay"
)

// Message types received from clients.
const (
	TypeSendInformation         = "sendInformation"
	TypeConnectionEstablished   = "connectionEstablished"
	TypeRelaySessionDescription = "relaySessionDescription"
	TypeRelayICECandidate       = "relayICECandidate"
	TypeInitiateRelay           = "initiateRelay"
	TypeLeave                   = "leave"
)

// Message is the wire envelope exchanged over the socket.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Envelope is a message addressed to one client.
type Envelope struct {
	To      string
	Message Message
}

// ClientIDData tells a client its id.
type ClientIDData struct {
	ID string `json:"id"`
}

// ClientInfo describes a registered client.
type ClientInfo struct {
	ID     string `json:"id"`
	IP     string `json:"ip"`
	Leader bool   `json:"leader"`
}

// InformationData lists every registered client by id.
type InformationData struct {
	Clients map[string]ClientInfo `json:"clients"`
}

// ConnectToPeerData asks a client to set up a peer connection. The client
// with ShouldCreateOffer set sends the offer. Uni connections carry media
// from the offering side only.
type ConnectToPeerData struct {
	PeerID            string `json:"peer_id"`
	ShouldCreateOffer bool   `json:"should_create_offer"`
	BiConnection      bool   `json:"bi_connection"`
}

// StopConnectionData asks a client to close its connection to PeerID.
type StopConnectionData struct {
	PeerID string `json:"peer_id"`
}

// SessionDescriptionData carries an offer or answer. Inbound, PeerID is the
// recipient; outbound, it is the sender.
type SessionDescriptionData struct {
	PeerID             string                    `json:"peer_id"`
	SessionDescription webrtc.SessionDescription `json:"session_description"`
}

// ICECandidateData carries a trickled candidate, addressed like
// SessionDescriptionData.
type ICECandidateData struct {
	PeerID       string                  `json:"peer_id"`
	ICECandidate webrtc.ICECandidateInit `json:"ice_candidate"`
}

type registerData struct {
	IP string `json:"ip"`
}

type leaveData struct {
	ID string `json:"id"`
}

type inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type pair struct {
	from, to string
}

// Mesh plans the peer connections of a session. Every client connects to
// every other client until relay mode is initiated; in relay mode only the
// leaders of different IPs stay directly connected, and the other clients
// receive remote media through the leader of their own IP.
//
// Mesh performs no I/O: every operation returns the messages to deliver.
// It is not safe for concurrent use.
type Mesh struct {
	next    int
	joined  []string
	present map[string]bool
	info    map[string]*ClientInfo

	leaders map[string]string // ip -> leader id
	ips     []string
	ipSize  map[string]int

	planned     map[pair]bool
	queue       []pair
	established map[pair]bool

	conns int
	relay bool
}

// NewMesh creates an empty session in normal mode.
func NewMesh() *Mesh {
	return &Mesh{
		next:        1,
		present:     make(map[string]bool),
		info:        make(map[string]*ClientInfo),
		leaders:     make(map[string]string),
		ipSize:      make(map[string]int),
		planned:     make(map[pair]bool),
		established: make(map[pair]bool),
	}
}

func to(id, typ string, data any) Envelope {
	return Envelope{To: id, Message: Message{Type: typ, Data: data}}
}

// Join admits a new client and returns its id with the clientID message.
func (m *Mesh) Join() (string, []Envelope) {
	id := strconv.Itoa(m.next)
	m.next++
	m.joined = append(m.joined, id)
	m.present[id] = true
	return id, []Envelope{to(id, TypeClientID, ClientIDData{ID: id})}
}

// Clients returns the ids of connected clients in join order.
func (m *Mesh) Clients() []string {
	return append([]string(nil), m.joined...)
}

// Relaying reports whether relay mode was initiated.
func (m *Mesh) Relaying() bool {
	return m.relay
}

// Connections returns the number of established connection endpoints
// reported by clients.
func (m *Mesh) Connections() int {
	return m.conns
}

func (m *Mesh) registered() []string {
	var ids []string
	for _, id := range m.joined {
		if m.info[id] != nil {
			ids = append(ids, id)
		}
	}
	return ids
}

func (m *Mesh) plan(from, to string) {
	p := pair{from, to}
	if !m.planned[p] {
		m.planned[p] = true
		m.queue = append(m.queue, p)
	}
}

// Register records the public IP of a client. The first client of an IP
// becomes its leader. A client registering for the first time is planned a
// bi connection with every registered client. Planned connections are then
// started.
func (m *Mesh) Register(id, ip string) ([]Envelope, error) {
	if !m.present[id] {
		return nil, errors.Errorf("unknown client %s", id)
	}
	if m.info[id] != nil {
		return m.ConnectPlanned(), nil
	}

	if _, ok := m.leaders[ip]; !ok {
		m.leaders[ip] = id
		m.ips = append(m.ips, ip)
	}
	m.ipSize[ip]++

	for _, other := range m.registered() {
		m.plan(id, other)
		m.plan(other, id)
	}
	m.info[id] = &ClientInfo{ID: id, IP: ip, Leader: m.leaders[ip] == id}
	return m.ConnectPlanned(), nil
}

// ConnectPlanned starts every planned connection that is not established.
// A pair planned in both directions becomes one bi connection, offered by
// the side planned first; a pair planned in one direction becomes a uni
// connection offered by the planning side.
func (m *Mesh) ConnectPlanned() []Envelope {
	var out []Envelope
	queue := m.queue
	m.queue = nil

	for _, p := range queue {
		if !m.planned[p] {
			continue
		}
		back := pair{p.to, p.from}
		switch {
		case m.planned[back] && !m.established[p] && !m.established[back]:
			out = append(out,
				to(p.from, TypeConnectToPeer, ConnectToPeerData{PeerID: p.to, ShouldCreateOffer: true, BiConnection: true}),
				to(p.to, TypeConnectToPeer, ConnectToPeerData{PeerID: p.from, BiConnection: true}),
			)
			m.established[p], m.established[back] = true, true
			m.planned[p], m.planned[back] = false, false
		case !m.established[p]:
			out = append(out,
				to(p.from, TypeConnectToPeer, ConnectToPeerData{PeerID: p.to, ShouldCreateOffer: true}),
				to(p.to, TypeConnectToPeer, ConnectToPeerData{PeerID: p.from}),
			)
			m.established[p] = true
			m.planned[p] = false
		default:
			m.planned[p] = false
		}
	}
	return out
}

// Needed returns the number of connection endpoints expected once every
// planned connection is up: k(k-1) for k clients in normal mode. In relay
// mode, with n IPs of s clients each, it is n(n-1) plus s(s-1) + 2(s-1)(n-1)
// per IP.
func (m *Mesh) Needed() int {
	if !m.relay {
		k := len(m.joined)
		return k * (k - 1)
	}
	n := len(m.ipSize)
	needed := n * (n - 1)
	for _, s := range m.ipSize {
		needed += s*(s-1) + 2*(s-1)*(n-1)
	}
	return needed
}

// Established counts one connected endpoint. In relay mode, once every
// needed endpoint is connected, each leader is told to start relaying.
func (m *Mesh) Established(string) []Envelope {
	m.conns++
	if !m.relay || m.conns != m.Needed() {
		return nil
	}
	var out []Envelope
	for _, ip := range m.ips {
		out = append(out, to(m.leaders[ip], TypeRelay, nil))
	}
	return out
}

func (m *Mesh) isLeader(id string) bool {
	info := m.info[id]
	return info != nil && m.leaders[info.IP] == id
}

// stop tells from to close its connection to peer. A connection towards a
// leader is planned again as a uni connection.
func (m *Mesh) stop(from, peer string) Envelope {
	if m.conns > 0 {
		m.conns--
	}
	m.established[pair{from, peer}] = false
	if m.relay && m.isLeader(peer) {
		m.plan(from, peer)
	}
	return to(from, TypeStopConnection, StopConnectionData{PeerID: peer})
}

// InitiateRelay switches to relay mode. Every connection between clients of
// different IPs is stopped unless both ends are leaders; clients then get
// uni connections towards the other leaders.
func (m *Mesh) InitiateRelay() []Envelope {
	m.relay = true

	var out []Envelope
	ids := m.registered()
	for i, a := range ids {
		for _, b := range ids[i+1:] {
			if m.info[a].IP == m.info[b].IP || (m.isLeader(a) && m.isLeader(b)) {
				continue
			}
			switch {
			case m.established[pair{a, b}]:
				out = append(out, m.stop(a, b), m.stop(b, a))
			case m.established[pair{b, a}]:
				out = append(out, m.stop(b, a), m.stop(a, b))
			}
		}
	}
	return append(out, m.ConnectPlanned()...)
}

// Leave removes a client and tells every client connected to it to close
// the connection. If the client led its IP, the earliest remaining client
// of that IP takes over.
func (m *Mesh) Leave(id string) []Envelope {
	if !m.present[id] {
		return nil
	}

	var out []Envelope
	for _, other := range m.joined {
		if other == id {
			continue
		}
		if m.established[pair{other, id}] || m.established[pair{id, other}] {
			out = append(out, to(other, TypeStopConnection, StopConnectionData{PeerID: id}))
			if m.conns > 0 {
				m.conns--
			}
		}
		delete(m.established, pair{other, id})
		delete(m.established, pair{id, other})
		delete(m.planned, pair{other, id})
		delete(m.planned, pair{id, other})
	}

	for i, other := range m.joined {
		if other == id {
			m.joined = append(m.joined[:i:i], m.joined[i+1:]...)
			break
		}
	}
	delete(m.present, id)

	info := m.info[id]
	delete(m.info, id)
	if info == nil {
		return out
	}

	m.ipSize[info.IP]--
	if m.ipSize[info.IP] > 0 {
		if m.leaders[info.IP] == id {
			m.promote(info.IP)
		}
		return out
	}
	delete(m.ipSize, info.IP)
	delete(m.leaders, info.IP)
	for i, ip := range m.ips {
		if ip == info.IP {
			m.ips = append(m.ips[:i:i], m.ips[i+1:]...)
			break
		}
	}
	return out
}

func (m *Mesh) promote(ip string) {
	for _, id := range m.registered() {
		if m.info[id].IP == ip {
			m.leaders[ip] = id
			m.info[id].Leader = true
			return
		}
	}
}

// Information returns the registered clients.
func (m *Mesh) Information() InformationData {
	clients := make(map[string]ClientInfo, len(m.info))
	for id, info := range m.info {
		clients[id] = *info
	}
	return InformationData{Clients: clients}
}

// ForwardSessionDescription relays an offer or answer from one client to
// the peer it names. Descriptions for unknown peers are dropped.
func (m *Mesh) ForwardSessionDescription(from string, d SessionDescriptionData) []Envelope {
	if !m.present[d.PeerID] {
		return nil
	}
	return []Envelope{to(d.PeerID, TypeSessionDescription, SessionDescriptionData{
		PeerID:             from,
		SessionDescription: d.SessionDescription,
	})}
}

// ForwardICECandidate relays a candidate like ForwardSessionDescription.
func (m *Mesh) ForwardICECandidate(from string, d ICECandidateData) []Envelope {
	if !m.present[d.PeerID] {
		return nil
	}
	return []Envelope{to(d.PeerID, TypeICECandidate, ICECandidateData{
		PeerID:       from,
		ICECandidate: d.ICECandidate,
	})}
}

// Handle decodes one message received from a client and applies it.
func (m *Mesh) Handle(from string, raw []byte) ([]Envelope, error) {
	var in inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, errors.Wrap(err, "failed to decode message")
	}

	decode := func(v any) error {
		if len(in.Data) == 0 {
			return errors.Errorf("%s: missing data", in.Type)
		}
		return errors.Wrapf(json.Unmarshal(in.Data, v), "%s: invalid data", in.Type)
	}

	switch in.Type {
	case TypeSendInformation:
		var d registerData
		if err := decode(&d); err != nil {
			return nil, err
		}
		return m.Register(from, d.IP)
	case TypeConnectionEstablished:
		return m.Established(from), nil
	case TypeRelaySessionDescription:
		var d SessionDescriptionData
		if err := decode(&d); err != nil {
			return nil, err
		}
		return m.ForwardSessionDescription(from, d), nil
	case TypeRelayICECandidate:
		var d ICECandidateData
		if err := decode(&d); err != nil {
			return nil, err
		}
		return m.ForwardICECandidate(from, d), nil
	case TypeInitiateRelay:
		return m.InitiateRelay(), nil
	case TypeLeave:
		var d leaveData
		if err := decode(&d); err != nil {
			return nil, err
		}
		return m.Leave(d.ID), nil
	default:
		return nil, errors.Errorf("unknown message type %q", in.Type)
	}
}
