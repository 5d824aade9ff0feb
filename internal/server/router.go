package server

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"contrata-chat/internal/domain"
	chaterrors "contrata-chat/pkg/errors"
)

// ChatStore is the slice of the chat service the router needs.
type ChatStore interface {
	GetUser(ctx context.Context, id int64) (domain.User, error)
	SendMessage(ctx context.Context, solicitudID int64, kind domain.ChatKind, senderID int64, content domain.MessageContent) (domain.Message, []domain.Participant, error)
	MarkAllRead(ctx context.Context, solicitudID int64, kind domain.ChatKind, userID int64) (*domain.Chat, []domain.Participant, error)
	MarkMessageRead(ctx context.Context, messageID int64) error
}

// Presence mirrors a user's online state into an external store. Optional;
// a nil Presence disables it.
type Presence interface {
	SetOnline(ctx context.Context, userID int64) error
	SetOffline(ctx context.Context, userID int64) error
}

// Router dispatches websocket frames: it identifies connections, routes
// messages through the chat store, fans persisted messages out to every
// other participant's live sessions and acknowledges the sender.
type Router struct {
	registry *Registry
	store    ChatStore
	presence Presence
	logger   *WebSocketLogger

	// chatLocks serializes send pipelines per (solicitud, kind) so that
	// fan-out order matches persistence order within one chat, and so
	// two first messages cannot interleave chat creation. The database
	// unique constraint remains the backstop.
	mu        sync.Mutex
	chatLocks map[string]*sync.Mutex
}

func NewRouter(registry *Registry, store ChatStore, presence Presence, logger *WebSocketLogger) *Router {
	if logger == nil {
		logger = NewWebSocketLogger()
	}
	return &Router{
		registry:  registry,
		store:     store,
		presence:  presence,
		logger:    logger,
		chatLocks: make(map[string]*sync.Mutex),
	}
}

func (r *Router) chatLock(solicitudID int64, kind domain.ChatKind) *sync.Mutex {
	key := fmt.Sprintf("%d/%s", solicitudID, kind)
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.chatLocks[key]
	if !ok {
		lock = &sync.Mutex{}
		r.chatLocks[key] = lock
	}
	return lock
}

// HandleFrame processes one inbound frame from a session. Errors are
// reported to the originating session as error frames; nothing is retried
// server side.
func (r *Router) HandleFrame(ctx context.Context, s *Session, raw []byte) {
	frame, err := ParseClientFrame(raw)
	if err != nil {
		r.sendError(s, "malformed frame", err.Error())
		return
	}

	if !s.identified() && frame.Type != FrameIdentify {
		r.sendError(s, "not identified", "send an identify frame first")
		return
	}

	switch frame.Type {
	case FrameIdentify:
		r.handleIdentify(ctx, s, frame)
	case FrameMessage:
		r.handleMessage(ctx, s, frame)
	case FrameMarkRead:
		r.handleMarkRead(ctx, s, frame)
	case FramePing:
		r.send(s, pongFrame{Type: FramePong})
	default:
		r.sendError(s, "unknown frame type", frame.Type)
	}
}

// handleIdentify transitions the session to IDENTIFIED when the declared
// user exists. On failure the connection stays open but unidentified.
func (r *Router) handleIdentify(ctx context.Context, s *Session, frame ClientFrame) {
	if frame.UserID <= 0 {
		r.sendError(s, "invalid identify", "userId is required")
		return
	}

	user, err := r.store.GetUser(ctx, frame.UserID)
	if err != nil {
		if errors.Is(err, chaterrors.ErrNotFound) {
			r.sendError(s, "unknown user", fmt.Sprintf("user %d is not registered", frame.UserID))
			return
		}
		r.sendError(s, "identify failed", err.Error())
		return
	}

	// Re-identifying as someone else must release the old binding first,
	// or the registry keeps routing the old user's messages to this
	// socket and holds its entry after disconnect.
	if s.identified() && s.userID != user.ID {
		remaining := r.registry.Unregister(s)
		if !remaining && r.presence != nil {
			if err := r.presence.SetOffline(ctx, s.userID); err != nil {
				r.logger.Warn("presence update failed", s.userID, s.clientID)
			}
		}
	}

	s.userID = user.ID
	s.username = user.Username
	s.role = user.Role
	s.solicitudID = frame.SolicitudID
	s.state = stateIdentified

	r.registry.Register(s)
	if r.presence != nil {
		if err := r.presence.SetOnline(ctx, user.ID); err != nil {
			r.logger.Warn("presence update failed", user.ID, s.clientID)
		}
	}
	r.logger.Info("client identified", user.ID, s.clientID)

	r.send(s, newIdentifyConfirmation(user.ID, user.Role))
}

// handleMessage runs the send pipeline: validate, persist through the
// store (which lazily creates the chat and bumps unread counters), ack
// the sender with the server-assigned id, then push the full message to
// every other participant's live sessions.
func (r *Router) handleMessage(ctx context.Context, s *Session, frame ClientFrame) {
	if frame.SolicitudID <= 0 || !frame.ChatKind.Valid() || frame.Content == nil || frame.Content.IsZero() {
		r.send(s, newMessageError(frame.TempID, "invalid message", "requestId, chat kind and content are required"))
		return
	}

	lock := r.chatLock(frame.SolicitudID, frame.ChatKind)
	lock.Lock()
	defer lock.Unlock()

	msg, recipients, err := r.store.SendMessage(ctx, frame.SolicitudID, frame.ChatKind, s.userID, *frame.Content)
	if err != nil {
		r.logger.Error("send message failed", s.userID, s.clientID, err)
		r.send(s, newMessageError(frame.TempID, "message not delivered", err.Error()))
		return
	}

	// Acknowledge the sender; this correlates the client temp-id with
	// the server-assigned message id. The sender keeps its own local
	// copy, so no broadcast copy goes back to it.
	r.send(s, newDeliveredAck(frame.TempID, msg.ID))

	push := marshalFrame(newMessageFrame(msg, frame.SolicitudID, frame.ChatKind, s.username))
	for _, recipient := range recipients {
		r.pushToUser(recipient.UserID, push)
	}
}

// pushToUser delivers a payload to every live session of one user. A
// failing session is skipped and logged; it never fails the overall send.
func (r *Router) pushToUser(userID int64, payload []byte) {
	for _, target := range r.registry.ConnectionsFor(userID) {
		if err := target.enqueue(payload); err != nil {
			r.logger.Warn("recipient push skipped", userID, target.clientID)
		}
	}
}

// handleMarkRead flips read state. With a messageId it marks that single
// message; with requestId and kind it marks the whole thread and notifies
// the other participants so sent-message glyphs flip live.
func (r *Router) handleMarkRead(ctx context.Context, s *Session, frame ClientFrame) {
	if frame.MessageID > 0 {
		if err := r.store.MarkMessageRead(ctx, frame.MessageID); err != nil {
			r.sendError(s, "mark read failed", err.Error())
		}
		return
	}

	if frame.SolicitudID <= 0 || !frame.ChatKind.Valid() {
		r.sendError(s, "invalid mark_read", "messageId or requestId with chat kind is required")
		return
	}

	chat, participants, err := r.store.MarkAllRead(ctx, frame.SolicitudID, frame.ChatKind, s.userID)
	if err != nil {
		r.sendError(s, "mark read failed", err.Error())
		return
	}
	if chat == nil {
		return
	}

	receipt := marshalFrame(newReadReceipt(frame.SolicitudID, frame.ChatKind, s.userID))
	for _, p := range participants {
		if p.UserID == s.userID {
			continue
		}
		r.pushToUser(p.UserID, receipt)
	}
}

// Disconnect removes the session from the registry. Best effort: no close
// handshake is attempted, and in-flight sends to this session are simply
// skipped once it is gone.
func (r *Router) Disconnect(s *Session) {
	if !s.identified() {
		return
	}
	remaining := r.registry.Unregister(s)
	if !remaining && r.presence != nil {
		if err := r.presence.SetOffline(context.Background(), s.userID); err != nil {
			r.logger.Warn("presence update failed", s.userID, s.clientID)
		}
	}
	r.logger.Info("client disconnected", s.userID, s.clientID)
}

func (r *Router) send(s *Session, frame any) {
	if err := s.enqueue(marshalFrame(frame)); err != nil {
		r.logger.Warn("send buffer full", s.userID, s.clientID)
	}
}

func (r *Router) sendError(s *Session, message, details string) {
	r.send(s, newErrorFrame(message, details))
}
