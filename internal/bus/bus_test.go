package bus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialTestServer(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(s.handleWS))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestPublishReachesClient(t *testing.T) {
	s := NewServer(nil)
	conn := dialTestServer(t, s)

	// The upgrade races the first publish; wait until registered.
	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return len(s.clients) == 1
	}, time.Second, 10*time.Millisecond)

	s.Publish(KindNotification, "Reminder: stand up")

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, KindNotification, ev.Kind)
	assert.Equal(t, "Reminder: stand up", ev.Content)
	assert.Equal(t, "aide", ev.From)
}

func TestClientUtteranceIsForwarded(t *testing.T) {
	got := make(chan string, 1)
	s := NewServer(func(text string) { got <- text })
	conn := dialTestServer(t, s)

	require.NoError(t, conn.WriteJSON(Event{Kind: KindUtterance, Content: "what time is it"}))

	select {
	case text := <-got:
		assert.Equal(t, "what time is it", text)
	case <-time.After(time.Second):
		t.Fatal("utterance was not forwarded")
	}
}

func TestOtherInboundKindsAreIgnored(t *testing.T) {
	got := make(chan string, 1)
	s := NewServer(func(text string) { got <- text })
	conn := dialTestServer(t, s)

	require.NoError(t, conn.WriteJSON(Event{Kind: KindResponse, Content: "spoofed"}))
	require.NoError(t, conn.WriteJSON(Event{Kind: KindUtterance, Content: ""}))

	select {
	case text := <-got:
		t.Fatalf("unexpected forward: %q", text)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDisconnectedClientIsDropped(t *testing.T) {
	s := NewServer(nil)
	conn := dialTestServer(t, s)

	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return len(s.clients) == 1
	}, time.Second, 10*time.Millisecond)

	conn.Close()

	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return len(s.clients) == 0
	}, time.Second, 10*time.Millisecond)
}
