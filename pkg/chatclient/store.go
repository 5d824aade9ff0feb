package chatclient

import (
	"encoding/json"
	"errors"
	"os"
	"sync"
	"time"
)

// Status is the delivery state of one outgoing message as the client
// tracks it: queued → sent → delivered → read, with error absorbing any
// state when the server rejects or never acknowledges.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
	StatusError     Status = "error"
)

var ErrUnknownTempID = errors.New("unknown temp id")

// Content mirrors the server's tagged message content variant.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	URL  string `json:"url,omitempty"`
	Name string `json:"name,omitempty"`
	Mime string `json:"mime,omitempty"`
}

func Text(text string) Content {
	return Content{Type: "text", Text: text}
}

// PendingMessage is one outgoing message awaiting acknowledgement,
// correlated to the server by its client-generated temp id.
type PendingMessage struct {
	TempID      string    `json:"tempId"`
	SolicitudID int64     `json:"requestId"`
	ChatKind    string    `json:"chatKind"`
	Content     Content   `json:"content"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

// PendingStore is the durable queue of messages written while offline.
// List must preserve creation order: replay after reconnect sends the
// queue in the order the user typed it.
type PendingStore interface {
	Append(msg PendingMessage) error
	List() ([]PendingMessage, error)
	UpdateStatus(tempID string, status Status) error
	Remove(tempID string) error
}

// MemoryStore keeps the queue in process memory. Suitable for tests and
// for callers that do their own persistence.
type MemoryStore struct {
	mu       sync.Mutex
	messages []PendingMessage
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(msg PendingMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return nil
}

func (s *MemoryStore) List() ([]PendingMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PendingMessage, len(s.messages))
	copy(out, s.messages)
	return out, nil
}

func (s *MemoryStore) UpdateStatus(tempID string, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		if s.messages[i].TempID == tempID {
			s.messages[i].Status = status
			return nil
		}
	}
	return ErrUnknownTempID
}

func (s *MemoryStore) Remove(tempID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		if s.messages[i].TempID == tempID {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			return nil
		}
	}
	return ErrUnknownTempID
}

// FileStore persists the queue as a JSON file so queued messages survive
// a page reload or process restart.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Append(msg PendingMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	messages, err := s.load()
	if err != nil {
		return err
	}
	return s.save(append(messages, msg))
}

func (s *FileStore) List() ([]PendingMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *FileStore) UpdateStatus(tempID string, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	messages, err := s.load()
	if err != nil {
		return err
	}
	for i := range messages {
		if messages[i].TempID == tempID {
			messages[i].Status = status
			return s.save(messages)
		}
	}
	return ErrUnknownTempID
}

func (s *FileStore) Remove(tempID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	messages, err := s.load()
	if err != nil {
		return err
	}
	for i := range messages {
		if messages[i].TempID == tempID {
			return s.save(append(messages[:i], messages[i+1:]...))
		}
	}
	return ErrUnknownTempID
}

func (s *FileStore) load() ([]PendingMessage, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var messages []PendingMessage
	if len(data) == 0 {
		return nil, nil
	}
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (s *FileStore) save(messages []PendingMessage) error {
	data, err := json.Marshal(messages)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}
