package session

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Meta is one conversation's durable routing state. Phone is the default
// delivery address, set once and carried across turns; LastIntent is the
// routing label of the most recent classified turn.
type Meta struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"` // adapter that owns the conversation
	Phone      string    `json:"phone,omitempty"`
	LastIntent string    `json:"last_intent,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type Index struct {
	Sessions map[string]Meta `json:"sessions"`
}

// Entry is one line of a session transcript (sessions/<id>.jsonl).
type Entry struct {
	ID        string    `json:"id"` // ULID
	Timestamp time.Time `json:"ts"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
}
