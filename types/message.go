package types

import (
	"time"
)

// Role represents the message role
type Role string

const (
	// RoleUser represents a user turn
	RoleUser Role = "user"

	// RoleAssistant represents an assistant turn
	RoleAssistant Role = "assistant"

	// RoleSystem represents a system or metadata turn
	RoleSystem Role = "system"

	// RoleToolResult represents the echoed output of a tool call
	RoleToolResult Role = "tool-result"
)

// Message is one entry in a conversation log.
//
// Content is opaque to the compactor: it is only ever compared for
// exact equality or concatenated, never rewritten. Metadata keys are
// preserved verbatim across compaction unless two system messages are
// merged, in which case the earliest message's value wins per key.
type Message struct {
	Role     Role           `json:"role"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`

	// Seq is the message's position in its log. It carries no semantic
	// meaning; it exists to restore and verify order. Within one log no
	// two messages share a Seq.
	Seq int `json:"seq"`
}

// EqualForDedup reports whether two messages are equivalent for
// duplicate detection: exact structural equality over role and content.
// Metadata is deliberately excluded, so two otherwise-identical turns
// with different timestamps still count as duplicates.
func (m *Message) EqualForDedup(other *Message) bool {
	return m.Role == other.Role && m.Content == other.Content
}

// IsSystem reports whether the message is a system message.
func (m *Message) IsSystem() bool {
	return m.Role == RoleSystem
}

// Clone returns a deep copy of the message. The metadata map is copied
// so mutations of the clone never leak into the original.
func (m *Message) Clone() *Message {
	clone := &Message{
		Role:    m.Role,
		Content: m.Content,
		Seq:     m.Seq,
	}
	if m.Metadata != nil {
		clone.Metadata = make(map[string]any, len(m.Metadata))
		for k, v := range m.Metadata {
			clone.Metadata[k] = v
		}
	}
	return clone
}

// Log is an ordered sequence of messages belonging to one conversation
// session. Messages are totally ordered by Seq.
type Log struct {
	ID       string     `json:"id"`
	Messages []*Message `json:"messages"`
}

// LogInfo describes a stored log without its messages.
type LogInfo struct {
	ID           string    `json:"id"`
	MessageCount int       `json:"message_count"`
	UpdatedAt    time.Time `json:"updated_at"`
}
