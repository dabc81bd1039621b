package signaling

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClient struct {
	t    *testing.T
	conn *websocket.Conn
	id   string
}

func newTestHub(t *testing.T) (*Hub, string) {
	t.Helper()
	cfg := DefaultHubConfig()
	cfg.InformationInterval = 20 * time.Millisecond
	hub := NewHub(cfg)
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *testClient {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	c := &testClient{t: t, conn: conn}
	var data ClientIDData
	c.expect(TypeClientID, &data)
	c.id = data.ID
	return c
}

func (c *testClient) send(typ string, data any) {
	c.t.Helper()
	require.NoError(c.t, c.conn.WriteJSON(Message{Type: typ, Data: data}))
}

// expect reads messages until one of type typ arrives, skipping information
// broadcasts, and decodes its data into v.
func (c *testClient) expect(typ string, v any) {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		_, raw, err := c.conn.ReadMessage()
		require.NoError(c.t, err)

		var in inbound
		require.NoError(c.t, json.Unmarshal(raw, &in))
		if in.Type == TypeInformation && typ != TypeInformation {
			continue
		}
		require.Equal(c.t, typ, in.Type)
		if v != nil {
			require.NoError(c.t, json.Unmarshal(in.Data, v))
		}
		return
	}
}

func registered(hub *Hub, id string) bool {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	return hub.mesh.info[id] != nil
}

// =============================================================================
// Hub Tests
// =============================================================================

func TestHub_ConnectsRegisteredClients(t *testing.T) {
	hub, url := newTestHub(t)

	a := dial(t, url)
	b := dial(t, url)
	assert.Equal(t, "1", a.id)
	assert.Equal(t, "2", b.id)
	require.Eventually(t, func() bool { return hub.Clients() == 2 }, time.Second, 10*time.Millisecond)

	a.send(TypeSendInformation, registerData{IP: "10.0.0.1"})
	require.Eventually(t, func() bool { return registered(hub, a.id) }, time.Second, 10*time.Millisecond)
	b.send(TypeSendInformation, registerData{IP: "10.0.0.2"})

	var toB, toA ConnectToPeerData
	b.expect(TypeConnectToPeer, &toB)
	a.expect(TypeConnectToPeer, &toA)
	assert.Equal(t, ConnectToPeerData{PeerID: "1", ShouldCreateOffer: true, BiConnection: true}, toB)
	assert.Equal(t, ConnectToPeerData{PeerID: "2", BiConnection: true}, toA)
}

func TestHub_RelaysSessionDescriptions(t *testing.T) {
	_, url := newTestHub(t)
	a := dial(t, url)
	b := dial(t, url)

	offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "v=0\r\n"}
	a.send(TypeRelaySessionDescription, SessionDescriptionData{PeerID: b.id, SessionDescription: offer})

	var got SessionDescriptionData
	b.expect(TypeSessionDescription, &got)
	assert.Equal(t, a.id, got.PeerID)
	assert.Equal(t, offer.Type, got.SessionDescription.Type)
	assert.Equal(t, offer.SDP, got.SessionDescription.SDP)

	mid := "0"
	a.send(TypeRelayICECandidate, ICECandidateData{PeerID: b.id, ICECandidate: webrtc.ICECandidateInit{Candidate: "candidate:0", SDPMid: &mid}})

	var cand ICECandidateData
	b.expect(TypeICECandidate, &cand)
	assert.Equal(t, a.id, cand.PeerID)
	assert.Equal(t, "candidate:0", cand.ICECandidate.Candidate)
}

func TestHub_DisconnectStopsPeerConnections(t *testing.T) {
	hub, url := newTestHub(t)
	a := dial(t, url)
	b := dial(t, url)
	a.send(TypeSendInformation, registerData{IP: "x"})
	b.send(TypeSendInformation, registerData{IP: "y"})
	a.expect(TypeConnectToPeer, nil)

	require.NoError(t, b.conn.Close())

	var stop StopConnectionData
	a.expect(TypeStopConnection, &stop)
	assert.Equal(t, b.id, stop.PeerID)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)
}

func TestHub_BroadcastsInformation(t *testing.T) {
	hub, url := newTestHub(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	a := dial(t, url)
	a.send(TypeSendInformation, registerData{IP: "10.0.0.1"})

	want := ClientInfo{ID: a.id, IP: "10.0.0.1", Leader: true}
	for i := 0; ; i++ {
		require.Less(t, i, 100, "registration never broadcast")
		var info InformationData
		a.expect(TypeInformation, &info)
		if info.Clients[a.id] == want {
			break
		}
	}
}

func TestHub_IgnoresBadMessages(t *testing.T) {
	_, url := newTestHub(t)
	a := dial(t, url)
	b := dial(t, url)

	require.NoError(t, a.conn.WriteMessage(websocket.TextMessage, []byte("{")))
	a.send(TypeRelaySessionDescription, SessionDescriptionData{PeerID: b.id, SessionDescription: webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "v=0"}})

	// The connection survives the malformed message.
	b.expect(TypeSessionDescription, nil)
}
