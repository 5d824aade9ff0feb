// Package chatclient implements the connecting side of the chat
// protocol: it opens one socket per chat view, identifies itself, queues
// outgoing messages while disconnected, tracks per-message delivery
// status and reconnects with capped exponential backoff.
package chatclient

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// IncomingMessage is a message pushed by the server for this chat.
type IncomingMessage struct {
	ID          int64   `json:"id"`
	ChatID      int64   `json:"chatId"`
	SolicitudID int64   `json:"requestId"`
	SenderID    int64   `json:"usuario_id"`
	Username    string  `json:"username"`
	Content     Content `json:"content"`
	CreatedAt   string  `json:"created_at"`
	ChatKind    string  `json:"chatKind"`
}

// StatusUpdate reports a delivery-state change for one of our messages,
// or a whole-thread read receipt when TempID is empty.
type StatusUpdate struct {
	TempID    string `json:"tempId"`
	Status    Status `json:"status"`
	MessageID int64  `json:"messageId"`
	ReaderID  int64  `json:"readerId"`
}

type serverFrame struct {
	Type      string  `json:"type"`
	Status    string  `json:"status"`
	TempID    string  `json:"tempId"`
	MessageID int64   `json:"messageId"`
	ReaderID  int64   `json:"readerId"`
	Error     string  `json:"error"`
	Details   string  `json:"details"`
	ID        int64   `json:"id"`
	ChatID    int64   `json:"chatId"`
	RequestID int64   `json:"requestId"`
	SenderID  int64   `json:"usuario_id"`
	Username  string  `json:"username"`
	Content   Content `json:"content"`
	CreatedAt string  `json:"created_at"`
	ChatKind  string  `json:"chatKind"`
}

// Config configures one client session.
type Config struct {
	URL         string
	Token       string
	UserID      int64
	Role        string
	SolicitudID int64
	ChatKind    string

	// Store holds queued messages across disconnects. Defaults to an
	// in-memory store.
	Store PendingStore

	// AckTimeout marks a sent message as error when no acknowledgement
	// arrives in time. Defaults to 15s.
	AckTimeout time.Duration

	// MaxAttempts bounds reconnection attempts; 0 retries forever.
	MaxAttempts int

	BackoffBase time.Duration
	BackoffCap  time.Duration

	OnMessage func(IncomingMessage)
	OnStatus  func(StatusUpdate)
	OnError   func(reason, details string)
}

var ErrMaxAttempts = errors.New("reconnect attempts exhausted")

// Client is a single-user chat session. Safe for concurrent Send calls.
type Client struct {
	cfg     Config
	store   PendingStore
	backoff *Backoff

	mu         sync.Mutex
	conn       *websocket.Conn
	identified bool
	seen       map[int64]struct{}
	ackTimers  map[string]*time.Timer
}

func New(cfg Config) *Client {
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore()
	}
	if cfg.AckTimeout == 0 {
		cfg.AckTimeout = 15 * time.Second
	}
	return &Client{
		cfg:       cfg,
		store:     cfg.Store,
		backoff:   NewBackoff(cfg.BackoffBase, cfg.BackoffCap),
		seen:      make(map[int64]struct{}),
		ackTimers: make(map[string]*time.Timer),
	}
}

// Run connects and keeps the session alive until ctx is cancelled or the
// attempt budget is spent. Each successful identify resets the backoff
// and replays the pending queue in creation order.
func (c *Client) Run(ctx context.Context) error {
	for {
		if err := c.connectOnce(ctx); err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if c.cfg.MaxAttempts > 0 && c.backoff.Attempts() >= c.cfg.MaxAttempts {
			return ErrMaxAttempts
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.backoff.Next()):
		}
	}
}

func (c *Client) connectOnce(ctx context.Context) error {
	url := c.cfg.URL
	if c.cfg.Token != "" {
		url += "?token=" + c.cfg.Token
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.identified = false
	c.mu.Unlock()

	// ReadMessage does not watch ctx; closing the socket is how a
	// cancelled context unblocks the read loop.
	readDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-readDone:
		}
	}()

	defer func() {
		close(readDone)
		c.mu.Lock()
		c.conn = nil
		c.identified = false
		c.mu.Unlock()
		conn.Close()
	}()

	if err := c.writeJSON(map[string]any{
		"type":      "identify",
		"userId":    c.cfg.UserID,
		"role":      c.cfg.Role,
		"requestId": c.cfg.SolicitudID,
	}); err != nil {
		return err
	}

	return c.readLoop(ctx)
}

func (c *Client) readLoop(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return err
		}
		var frame serverFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			continue
		}
		c.handleFrame(frame)
	}
}

func (c *Client) handleFrame(frame serverFrame) {
	switch frame.Type {
	case "identify_confirmation":
		c.mu.Lock()
		c.identified = true
		c.mu.Unlock()
		c.backoff.Reset()
		c.replay()

	case "status_update":
		c.handleStatusUpdate(frame)

	case "message":
		c.handleMessage(frame)

	case "error":
		// Only an error echoing a temp-id is a failed send; errors from
		// other operations leave the queue alone and in-flight messages
		// fall back to their ack timeout.
		if frame.TempID != "" {
			c.failSent(frame.TempID)
		}
		if c.cfg.OnError != nil {
			c.cfg.OnError(frame.Error, frame.Details)
		}
	}
}

func (c *Client) handleStatusUpdate(frame serverFrame) {
	update := StatusUpdate{
		TempID:    frame.TempID,
		Status:    Status(frame.Status),
		MessageID: frame.MessageID,
		ReaderID:  frame.ReaderID,
	}
	if frame.TempID != "" && Status(frame.Status) == StatusDelivered {
		c.cancelAckTimer(frame.TempID)
		// Delivered messages leave the queue; the server copy is now
		// authoritative.
		_ = c.store.Remove(frame.TempID)
	}
	if c.cfg.OnStatus != nil {
		c.cfg.OnStatus(update)
	}
}

func (c *Client) handleMessage(frame serverFrame) {
	c.mu.Lock()
	if _, dup := c.seen[frame.ID]; dup {
		c.mu.Unlock()
		return
	}
	c.seen[frame.ID] = struct{}{}
	c.mu.Unlock()

	if c.cfg.OnMessage != nil {
		c.cfg.OnMessage(IncomingMessage{
			ID:          frame.ID,
			ChatID:      frame.ChatID,
			SolicitudID: frame.RequestID,
			SenderID:    frame.SenderID,
			Username:    frame.Username,
			Content:     frame.Content,
			CreatedAt:   frame.CreatedAt,
			ChatKind:    frame.ChatKind,
		})
	}
}

// Send queues the message durably and pushes it over the socket when one
// is open. While disconnected the message stays queued for replay.
func (c *Client) Send(content Content) (string, error) {
	msg := PendingMessage{
		TempID:      uuid.New().String(),
		SolicitudID: c.cfg.SolicitudID,
		ChatKind:    defaultKind(c.cfg),
		Content:     content,
		Status:      StatusQueued,
		CreatedAt:   time.Now(),
	}
	if err := c.store.Append(msg); err != nil {
		return "", err
	}

	c.mu.Lock()
	ready := c.conn != nil && c.identified
	c.mu.Unlock()
	if ready {
		c.transmit(msg)
	}
	return msg.TempID, nil
}

// replay re-sends every message still queued or unacknowledged, in
// creation order. Entries leave the store only on acknowledgement.
func (c *Client) replay() {
	pending, err := c.store.List()
	if err != nil {
		return
	}
	for _, msg := range pending {
		if msg.Status == StatusQueued || msg.Status == StatusSent {
			c.transmit(msg)
		}
	}
}

func (c *Client) transmit(msg PendingMessage) {
	err := c.writeJSON(map[string]any{
		"type":      "message",
		"chatKind":  msg.ChatKind,
		"requestId": msg.SolicitudID,
		"userId":    c.cfg.UserID,
		"content":   msg.Content,
		"tempId":    msg.TempID,
		"timestamp": msg.CreatedAt.Format(time.RFC3339),
	})
	if err != nil {
		return
	}
	_ = c.store.UpdateStatus(msg.TempID, StatusSent)
	c.armAckTimer(msg.TempID)
}

// MarkThreadRead asks the server to flip read state for the whole thread.
func (c *Client) MarkThreadRead() error {
	return c.writeJSON(map[string]any{
		"type":      "mark_read",
		"requestId": c.cfg.SolicitudID,
		"chatKind":  defaultKind(c.cfg),
	})
}

func (c *Client) armAckTimer(tempID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.ackTimers[tempID]; ok {
		old.Stop()
	}
	c.ackTimers[tempID] = time.AfterFunc(c.cfg.AckTimeout, func() {
		_ = c.store.UpdateStatus(tempID, StatusError)
		if c.cfg.OnStatus != nil {
			c.cfg.OnStatus(StatusUpdate{TempID: tempID, Status: StatusError})
		}
	})
}

func (c *Client) cancelAckTimer(tempID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.ackTimers[tempID]; ok {
		t.Stop()
		delete(c.ackTimers, tempID)
	}
}

func (c *Client) failSent(tempID string) {
	c.cancelAckTimer(tempID)
	if err := c.store.UpdateStatus(tempID, StatusError); err != nil {
		return
	}
	if c.cfg.OnStatus != nil {
		c.cfg.OnStatus(StatusUpdate{TempID: tempID, Status: StatusError})
	}
}

func (c *Client) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return errors.New("not connected")
	}
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(v)
}

func defaultKind(cfg Config) string {
	if cfg.ChatKind != "" {
		return cfg.ChatKind
	}
	return "sst"
}
