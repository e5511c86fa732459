package conversation

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ErrValidation marks malformed input. Wrapped errors carry the reason.
var ErrValidation = errors.New("validation error")

// Message is one immutable turn in a conversation log.
type Message struct {
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"` // epoch milliseconds
}

func NewMessage(role Role, content string, at time.Time) Message {
	return Message{Role: role, Content: content, Timestamp: at.UnixMilli()}
}

func (m Message) Validate() error {
	switch m.Role {
	case RoleUser, RoleAssistant:
	default:
		return fmt.Errorf("%w: role must be %q or %q, got %q", ErrValidation, RoleUser, RoleAssistant, m.Role)
	}
	if strings.TrimSpace(m.Content) == "" {
		return fmt.Errorf("%w: content is required", ErrValidation)
	}
	if m.Timestamp <= 0 {
		return fmt.Errorf("%w: timestamp is required", ErrValidation)
	}
	return nil
}

// StorageError reports a failed durable read or write for one conversation.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("conversation %q: %s: %v", e.Key, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
