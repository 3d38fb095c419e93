package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newTestConn dials a real WebSocket connection against a throwaway
// server and returns the server side, which is what the manager holds.
func newTestConn(t *testing.T) *websocket.Conn {
	t.Helper()

	conns := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		up := websocket.Upgrader{}
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conns <- conn
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	clientSide, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { clientSide.Close() })

	select {
	case conn := <-conns:
		t.Cleanup(func() { conn.Close() })
		return conn
	case <-time.After(2 * time.Second):
		t.Fatal("server side of test connection never arrived")
		return nil
	}
}

func TestBroadcastEvictsSlowClientWithoutStallingRunLoop(t *testing.T) {
	m := NewManager(zap.NewNop())
	go m.Run()

	// A client whose Send buffer is already full and has no write pump
	// draining it, so the next broadcast cannot deliver to it.
	slow := &Client{
		ID:        "slow",
		AuctionID: "auc_1",
		Conn:      newTestConn(t),
		Send:      make(chan []byte, 1),
	}
	slow.Send <- []byte("backlog")

	subs := &sync.Map{}
	subs.Store(slow, true)
	m.subscribers.Store("auc_1", subs)

	m.Broadcast("auc_1", []byte(`{"type":"BID"}`))

	require.Eventually(t, func() bool {
		return m.SubscriberCount("auc_1") == 0
	}, 2*time.Second, 10*time.Millisecond, "slow client was not evicted")

	// The run loop must still accept registrations after the eviction.
	fresh := &Client{
		ID:        "fresh",
		AuctionID: "auc_1",
		Conn:      newTestConn(t),
		Send:      make(chan []byte, 256),
	}
	registered := make(chan struct{})
	go func() {
		m.RegisterClient(fresh)
		close(registered)
	}()
	select {
	case <-registered:
	case <-time.After(2 * time.Second):
		t.Fatal("run loop stopped accepting registrations after eviction")
	}

	require.Eventually(t, func() bool {
		return m.SubscriberCount("auc_1") == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestBroadcastDeliversToHealthyClientAlongsideEviction(t *testing.T) {
	m := NewManager(zap.NewNop())

	slow := &Client{
		ID:        "slow",
		AuctionID: "auc_1",
		Conn:      newTestConn(t),
		Send:      make(chan []byte, 1),
	}
	slow.Send <- []byte("backlog")

	healthy := &Client{
		ID:        "healthy",
		AuctionID: "auc_1",
		Conn:      newTestConn(t),
		Send:      make(chan []byte, 256),
	}

	subs := &sync.Map{}
	subs.Store(slow, true)
	subs.Store(healthy, true)
	m.subscribers.Store("auc_1", subs)

	// Called directly, as the run loop does; must return promptly.
	m.broadcastToAuction("auc_1", []byte(`{"type":"BID"}`))

	require.Equal(t, 1, m.SubscriberCount("auc_1"))

	select {
	case payload := <-healthy.Send:
		require.JSONEq(t, `{"type":"BID"}`, string(payload))
	default:
		t.Fatal("healthy client did not receive the broadcast")
	}

	// The evicted client's Send channel is closed.
	select {
	case _, ok := <-slow.Send:
		if ok {
			// The pre-filled backlog message drains first.
			_, ok = <-slow.Send
			require.False(t, ok)
		}
	default:
		t.Fatal("evicted client's Send channel was not closed")
	}
}
