package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// ContentType discriminates the message content variant.
type ContentType string

const (
	ContentText       ContentType = "text"
	ContentAttachment ContentType = "attachment"
)

// MessageContent is a tagged variant persisted as jsonb: either plain text
// or an attachment descriptor. The file itself lives in external storage;
// only the descriptor travels through the chat.
type MessageContent struct {
	Type ContentType `json:"type"`
	Text string      `json:"text,omitempty"`
	URL  string      `json:"url,omitempty"`
	Name string      `json:"name,omitempty"`
	Mime string      `json:"mime,omitempty"`
}

func TextContent(text string) MessageContent {
	return MessageContent{Type: ContentText, Text: text}
}

func AttachmentContent(url, name, mime string) MessageContent {
	return MessageContent{Type: ContentAttachment, URL: url, Name: name, Mime: mime}
}

func (c MessageContent) IsZero() bool {
	return c.Type == "" || (c.Type == ContentText && strings.TrimSpace(c.Text) == "")
}

// UnmarshalJSON accepts either the tagged object form or a bare JSON
// string, which clients may still send for plain text.
func (c *MessageContent) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		*c = TextContent(text)
		return nil
	}
	type alias MessageContent
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*c = MessageContent(a)
	if c.Type == "" {
		c.Type = ContentText
	}
	return nil
}

// Message represents the messages table. Rows are append-only; only the
// read flag mutates, and only from false to true.
type Message struct {
	ID        int64
	ChatID    int64
	SenderID  int64
	Content   MessageContent
	Read      bool
	CreatedAt time.Time
}
