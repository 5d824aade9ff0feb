package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBufferSize = 256
)

var (
	errSendBufferFull = errors.New("session send buffer full")
	errSessionClosed  = errors.New("session closed")
)

// sessionState tracks the identification state machine. Only identify
// frames are accepted while unidentified.
type sessionState int32

const (
	stateUnidentified sessionState = iota
	stateIdentified
)

// Session is one live websocket connection. It starts unidentified; a
// valid identify frame binds it to a user and puts it in the registry.
type Session struct {
	conn     *websocket.Conn
	send     chan []byte
	router   *Router
	clientID string

	// Written only from the session's readPump, before registry insert.
	state       sessionState
	userID      int64
	username    string
	role        string
	solicitudID int64 // the chat view the client declared interest in

	closed chan struct{}
	once   sync.Once
}

func NewSession(router *Router, conn *websocket.Conn, clientID string) *Session {
	return &Session{
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		router:   router,
		clientID: clientID,
		closed:   make(chan struct{}),
	}
}

func (s *Session) identified() bool {
	return s.state == stateIdentified
}

// enqueue hands a payload to the write pump without blocking. A closed
// session or a full buffer fails only this session; the caller logs and
// moves on.
func (s *Session) enqueue(payload []byte) error {
	select {
	case <-s.closed:
		return errSessionClosed
	default:
	}
	select {
	case <-s.closed:
		return errSessionClosed
	case s.send <- payload:
		return nil
	default:
		return errSendBufferFull
	}
}

func (s *Session) closeOnce() {
	s.once.Do(func() {
		close(s.closed)
		if s.conn != nil {
			s.conn.Close()
		}
	})
}

func (s *Session) readPump() {
	defer func() {
		s.router.Disconnect(s)
		s.closeOnce()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.router.logger.Error("websocket unexpected close", s.userID, s.clientID, err)
			}
			return
		}
		s.router.HandleFrame(context.Background(), s, payload)
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case <-s.closed:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			s.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case payload := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
