package chat

import (
	"strings"
	"time"
)

// Role is the author role of a message. It decides left/right alignment,
// it is not an account id.
type Role string

const (
	RoleStudent Role = "student"
	RoleGuru    Role = "guru"
)

func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleGuru
}

// Status tracks a locally sent message against the persistence endpoint.
// Remote messages carry no status.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPersisted Status = "persisted"
	StatusFailed    Status = "failed"
)

// TempIDPrefix marks ids generated on this side before the server assigns one.
const TempIDPrefix = "temp-"

type Message struct {
	ID        string    `json:"id"`
	Sender    Role      `json:"sender"`
	SenderID  string    `json:"senderId,omitempty"`
	Body      string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Delivered bool      `json:"delivered,omitempty"`
	ClientID  string    `json:"clientId,omitempty"`
	Status    Status    `json:"status,omitempty"`
}

// IsLocal reports whether the message was composed in this session.
func (m Message) IsLocal() bool {
	return strings.HasPrefix(m.ID, TempIDPrefix)
}

// Clock formats the timestamp as hour:minute for display.
func (m Message) Clock() string {
	return m.Timestamp.Local().Format("15:04")
}
