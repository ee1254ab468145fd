package conversation

import (
	"sort"
	"time"

	"github.com/skillconnect/skillconnect-backend/internal/models"
)

// Summary is one sidebar entry: the conversation partner and a snapshot of
// the most recent message exchanged with them. A placeholder entry for an
// about-to-start conversation has an empty LastMessage and zero timestamps.
type Summary struct {
	Partner       models.Profile `json:"partner"`
	LastMessage   string         `json:"last_message"`
	LastMessageID string         `json:"last_message_id,omitempty"`
	LastActivity  time.Time      `json:"last_activity"`
}

// LatestByPartner reduces a viewer's message history to the chronologically
// maximal message per conversation partner, newest partner first. The
// result is deterministic regardless of input order: a later timestamp
// always wins, and equal timestamps fall back to the larger identifier.
func LatestByPartner(viewer string, history []Message) []Message {
	latest := make(map[string]Message)
	for _, m := range history {
		other := m.Other(viewer)
		if other == "" {
			continue
		}
		cur, ok := latest[other]
		if !ok || cur.Before(m) {
			latest[other] = m
		}
	}

	out := make([]Message, 0, len(latest))
	for _, m := range latest {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[j].Before(out[i])
	})
	return out
}
