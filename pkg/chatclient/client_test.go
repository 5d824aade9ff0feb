package chatclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendWhileDisconnectedQueues(t *testing.T) {
	store := NewMemoryStore()
	c := New(Config{SolicitudID: 42, ChatKind: "sst", Store: store})

	tempID, err := c.Send(Text("hola"))
	require.NoError(t, err)
	require.NotEmpty(t, tempID)

	list, err := store.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, tempID, list[0].TempID)
	assert.Equal(t, StatusQueued, list[0].Status)
	assert.Equal(t, int64(42), list[0].SolicitudID)
	assert.Equal(t, "sst", list[0].ChatKind)
}

func TestSendDefaultsChatKind(t *testing.T) {
	store := NewMemoryStore()
	c := New(Config{SolicitudID: 42, Store: store})

	_, err := c.Send(Text("hola"))
	require.NoError(t, err)

	list, _ := store.List()
	require.Len(t, list, 1)
	assert.Equal(t, "sst", list[0].ChatKind)
}

func TestDeliveredAckRemovesFromQueue(t *testing.T) {
	store := NewMemoryStore()
	var updates []StatusUpdate
	c := New(Config{
		Store:    store,
		OnStatus: func(u StatusUpdate) { updates = append(updates, u) },
	})

	require.NoError(t, store.Append(pending("t-1", StatusSent)))

	c.handleFrame(serverFrame{Type: "status_update", Status: "delivered", TempID: "t-1", MessageID: 9})

	list, _ := store.List()
	assert.Empty(t, list)
	require.Len(t, updates, 1)
	assert.Equal(t, StatusDelivered, updates[0].Status)
	assert.Equal(t, "t-1", updates[0].TempID)
	assert.Equal(t, int64(9), updates[0].MessageID)
}

func TestReadReceiptDoesNotTouchQueue(t *testing.T) {
	store := NewMemoryStore()
	var updates []StatusUpdate
	c := New(Config{
		Store:    store,
		OnStatus: func(u StatusUpdate) { updates = append(updates, u) },
	})

	c.handleFrame(serverFrame{Type: "status_update", Status: "read", ReaderID: 7, RequestID: 42})

	require.Len(t, updates, 1)
	assert.Equal(t, StatusRead, updates[0].Status)
	assert.Equal(t, int64(7), updates[0].ReaderID)
	assert.Empty(t, updates[0].TempID)
}

func TestIncomingMessageDeduplication(t *testing.T) {
	var got []IncomingMessage
	c := New(Config{OnMessage: func(m IncomingMessage) { got = append(got, m) }})

	frame := serverFrame{Type: "message", ID: 5, RequestID: 42, SenderID: 1, Username: "contratista.uno", Content: Text("hola")}
	c.handleFrame(frame)
	c.handleFrame(frame)
	c.handleFrame(serverFrame{Type: "message", ID: 6, RequestID: 42, SenderID: 1, Content: Text("otra")})

	require.Len(t, got, 2)
	assert.Equal(t, int64(5), got[0].ID)
	assert.Equal(t, "contratista.uno", got[0].Username)
	assert.Equal(t, int64(6), got[1].ID)
}

func TestServerErrorFailsMatchingMessage(t *testing.T) {
	store := NewMemoryStore()
	var updates []StatusUpdate
	var reasons []string
	c := New(Config{
		Store:    store,
		OnStatus: func(u StatusUpdate) { updates = append(updates, u) },
		OnError:  func(reason, details string) { reasons = append(reasons, reason) },
	})

	require.NoError(t, store.Append(pending("t-1", StatusSent)))
	require.NoError(t, store.Append(pending("t-2", StatusSent)))

	c.handleFrame(serverFrame{Type: "error", Error: "message not delivered", TempID: "t-2"})

	list, _ := store.List()
	assert.Equal(t, StatusSent, list[0].Status, "other in-flight messages stay untouched")
	assert.Equal(t, StatusError, list[1].Status)
	require.Len(t, updates, 1)
	assert.Equal(t, "t-2", updates[0].TempID)
	assert.Equal(t, StatusError, updates[0].Status)
	assert.Equal(t, []string{"message not delivered"}, reasons)
}

func TestServerErrorWithoutTempIDLeavesQueueAlone(t *testing.T) {
	store := NewMemoryStore()
	var updates []StatusUpdate
	var reasons []string
	c := New(Config{
		Store:    store,
		OnStatus: func(u StatusUpdate) { updates = append(updates, u) },
		OnError:  func(reason, details string) { reasons = append(reasons, reason) },
	})

	require.NoError(t, store.Append(pending("t-1", StatusSent)))

	// e.g. a rejected mark_read; no send failed, so no queue entry flips
	c.handleFrame(serverFrame{Type: "error", Error: "mark read failed"})

	list, _ := store.List()
	assert.Equal(t, StatusSent, list[0].Status)
	assert.Empty(t, updates)
	assert.Equal(t, []string{"mark read failed"}, reasons)
}

func TestAckTimeoutFlagsError(t *testing.T) {
	store := NewMemoryStore()
	updates := make(chan StatusUpdate, 1)
	c := New(Config{
		Store:      store,
		AckTimeout: 20 * time.Millisecond,
		OnStatus:   func(u StatusUpdate) { updates <- u },
	})

	require.NoError(t, store.Append(pending("t-1", StatusSent)))
	c.armAckTimer("t-1")

	select {
	case u := <-updates:
		assert.Equal(t, "t-1", u.TempID)
		assert.Equal(t, StatusError, u.Status)
	case <-time.After(time.Second):
		t.Fatal("ack timeout never fired")
	}

	list, _ := store.List()
	assert.Equal(t, StatusError, list[0].Status)
}

// chatServer is a minimal scripted peer: it confirms identifies and acks
// every message frame as delivered.
type chatServer struct {
	t        *testing.T
	upgrader websocket.Upgrader

	mu       sync.Mutex
	received []map[string]any
}

func (s *chatServer) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var frame map[string]any
		if err := json.Unmarshal(payload, &frame); err != nil {
			continue
		}
		s.mu.Lock()
		s.received = append(s.received, frame)
		s.mu.Unlock()

		switch frame["type"] {
		case "identify":
			conn.WriteJSON(map[string]any{
				"type":   "identify_confirmation",
				"status": "success",
				"userId": frame["userId"],
			})
		case "message":
			conn.WriteJSON(map[string]any{
				"type":      "status_update",
				"status":    "delivered",
				"tempId":    frame["tempId"],
				"messageId": 1,
			})
		}
	}
}

func (s *chatServer) frames() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]any, len(s.received))
	copy(out, s.received)
	return out
}

func TestClientIdentifiesAndReplaysQueue(t *testing.T) {
	srv := &chatServer{t: t}
	ts := httptest.NewServer(http.HandlerFunc(srv.handle))
	defer ts.Close()

	store := NewMemoryStore()
	delivered := make(chan StatusUpdate, 4)
	c := New(Config{
		URL:         "ws" + strings.TrimPrefix(ts.URL, "http"),
		UserID:      1,
		Role:        "contratista",
		SolicitudID: 42,
		ChatKind:    "sst",
		Store:       store,
		OnStatus: func(u StatusUpdate) {
			if u.Status == StatusDelivered {
				delivered <- u
			}
		},
	})

	// typed while offline; must be replayed right after identify
	first, err := c.Send(Text("queued before connect"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	select {
	case u := <-delivered:
		assert.Equal(t, first, u.TempID)
	case <-time.After(5 * time.Second):
		t.Fatal("queued message was never delivered")
	}

	list, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, list, "delivered messages leave the queue")

	frames := srv.frames()
	require.GreaterOrEqual(t, len(frames), 2)
	assert.Equal(t, "identify", frames[0]["type"])
	assert.Equal(t, "message", frames[1]["type"])
	assert.Equal(t, first, frames[1]["tempId"])
	assert.Equal(t, float64(42), frames[1]["requestId"])
	assert.Equal(t, "sst", frames[1]["chatKind"])

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("client did not stop on context cancel")
	}
}

func TestRunHonorsMaxAttempts(t *testing.T) {
	c := New(Config{
		URL:         "ws://127.0.0.1:1", // nothing listens here
		MaxAttempts: 2,
		BackoffBase: time.Millisecond,
		BackoffCap:  2 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := c.Run(ctx)
	assert.ErrorIs(t, err, ErrMaxAttempts)
}
