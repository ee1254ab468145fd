package conversation

import (
	"strings"
	"time"
)

// Message is a single direct message between two users. Immutable once
// stored; the identifier is assigned by the message store.
type Message struct {
	ID        string    `json:"id"`
	FromUser  string    `json:"from_user"`
	ToUser    string    `json:"to_user"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Before reports whether m sorts before n in a feed: by creation time,
// equal timestamps broken by identifier so ordering stays deterministic.
func (m Message) Before(n Message) bool {
	if !m.CreatedAt.Equal(n.CreatedAt) {
		return m.CreatedAt.Before(n.CreatedAt)
	}
	return m.ID < n.ID
}

// Involves reports whether user is the sender or the recipient.
func (m Message) Involves(user string) bool {
	return m.FromUser == user || m.ToUser == user
}

// Other returns the conversation partner from viewer's perspective.
// Returns "" when viewer is not a participant.
func (m Message) Other(viewer string) string {
	switch viewer {
	case m.FromUser:
		return m.ToUser
	case m.ToUser:
		return m.FromUser
	}
	return ""
}

// Pair returns the normalized pair key for the message's participants.
func (m Message) Pair() string {
	return PairKey(m.FromUser, m.ToUser)
}

// PairKey normalizes an unordered user pair into a single key, so both
// directions of a conversation map to the same conversation.
func PairKey(a, b string) string {
	if strings.Compare(a, b) > 0 {
		a, b = b, a
	}
	return a + ":" + b
}
