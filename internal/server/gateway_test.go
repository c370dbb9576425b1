package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardroomlabs/holdemd/internal/directory"
	"github.com/cardroomlabs/holdemd/internal/table"
)

func TestBearerTokenSources(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.Empty(t, bearerToken(req))

	req = httptest.NewRequest(http.MethodGet, "/ws?token=from-query", nil)
	assert.Equal(t, "from-query", bearerToken(req))

	req = httptest.NewRequest(http.MethodGet, "/ws?token=from-query", nil)
	req.Header.Set("Authorization", "Bearer from-header")
	assert.Equal(t, "from-header", bearerToken(req))

	req = httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	assert.Empty(t, bearerToken(req))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dialAs(t *testing.T, srv *httptest.Server, userID, username string) *websocket.Conn {
	t.Helper()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+directory.MintToken(testSecret, userID, username))
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv), header)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

// waitForEvent reads until the named event arrives, discarding others
func waitForEvent(t *testing.T, conn *websocket.Conn, event string) Message {
	t.Helper()

	for i := 0; i < 10; i++ {
		msg := readEvent(t, conn)
		if msg.Event == event {
			return msg
		}
	}
	t.Fatalf("event %q never arrived", event)
	return Message{}
}

func sendEvent(t *testing.T, conn *websocket.Conn, event string, payload any) {
	t.Helper()

	msg, err := NewMessage(event, payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(msg))
}

func TestHandleWSRejectsMissingToken(t *testing.T) {
	f := newGatewayFixture(t)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandleWSRejectsForgedToken(t *testing.T) {
	f := newGatewayFixture(t)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	forged := directory.MintToken("wrong-secret", "u-alice", "alice")
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv)+"?token="+forged, nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebSocketConnectAndJoin(t *testing.T) {
	f := newGatewayFixture(t)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	f.seatAgent(t, "g1", "u-alice", "alice", 0)

	conn := dialAs(t, srv, "u-alice", "alice")

	welcome := waitForEvent(t, conn, table.EventConnected)
	assert.Contains(t, string(welcome.Data), "u-alice")

	sendEvent(t, conn, eventJoinTable, JoinTableData{TableID: "g1"})
	state := waitForEvent(t, conn, table.EventTableState)
	assert.Contains(t, string(state.Data), `"tableId":"g1"`)
}

func TestWebSocketJoinWithoutSeat(t *testing.T) {
	f := newGatewayFixture(t)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	conn := dialAs(t, srv, "u-drifter", "drifter")
	waitForEvent(t, conn, table.EventConnected)

	sendEvent(t, conn, eventJoinTable, JoinTableData{TableID: "g1"})
	msg := waitForEvent(t, conn, table.EventError)
	assert.Contains(t, string(msg.Data), "not_seated")
}

func TestWebSocketUnknownEvent(t *testing.T) {
	f := newGatewayFixture(t)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	conn := dialAs(t, srv, "u-alice", "alice")
	waitForEvent(t, conn, table.EventConnected)

	sendEvent(t, conn, "warp_drive", nil)
	msg := waitForEvent(t, conn, table.EventError)
	assert.Contains(t, string(msg.Data), "unknown_event")
}

func TestSecondSocketSupersedesFirst(t *testing.T) {
	f := newGatewayFixture(t)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	first := dialAs(t, srv, "u-alice", "alice")
	waitForEvent(t, first, table.EventConnected)

	second := dialAs(t, srv, "u-alice", "alice")
	waitForEvent(t, second, table.EventConnected)

	// The server closes the first socket once the second registers
	require.NoError(t, first.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var msg Message
		if err := first.ReadJSON(&msg); err != nil {
			break
		}
	}
}
