package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/skillconnect/skillconnect-backend/internal/conversation"
	"github.com/skillconnect/skillconnect-backend/internal/middleware"
	"github.com/skillconnect/skillconnect-backend/internal/services"
)

// SendMessageRequest is the HTTP body for posting a direct message.
type SendMessageRequest struct {
	ToUser  string `json:"to_user"`
	Content string `json:"content"`
}

// GetMessages loads the conversation between the viewer and ?user_id=,
// oldest first. With recent=true only the cached tail is returned (quick
// load for the chat screen; the full history follows from the normal
// path).
func GetMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireSession(w, r)
	if !ok {
		return
	}

	other := r.URL.Query().Get("user_id")
	if other == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if _, err := parseUserID(other); err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if r.URL.Query().Get("recent") == "true" {
		if msgs, hit := services.RecentBetween(ctx, userID.String(), other); hit {
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"success":  true,
				"messages": msgs,
				"partial":  true,
			})
			return
		}
	}

	msgs, err := services.Messages.Between(ctx, userID.String(), other)
	if err != nil {
		log.Printf("messages: history load failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load messages")
		return
	}
	if msgs == nil {
		msgs = []conversation.Message{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"messages": msgs,
	})
}

// SendMessage stores a new message and publishes it on the realtime bus.
// The caller's feed is not updated here; the echo event does that.
func SendMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireSession(w, r)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if _, err := parseUserID(req.ToUser); err != nil {
		writeError(w, http.StatusBadRequest, "invalid recipient")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "message content is empty")
		return
	}

	if !middleware.AllowSend(userID.String()) {
		writeError(w, http.StatusTooManyRequests, "Sending too fast. Please slow down.")
		return
	}

	// Recipient must exist; a NotFound here is a client error, not an
	// empty-result state.
	if _, err := services.Profiles.Get(r.Context(), req.ToUser); err != nil {
		if errors.Is(err, services.ErrProfileNotFound) {
			writeError(w, http.StatusBadRequest, "recipient not found")
			return
		}
		log.Printf("messages: recipient lookup failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to send message")
		return
	}

	msg, err := services.Messages.Insert(r.Context(), userID.String(), req.ToUser, req.Content)
	if err != nil {
		log.Printf("messages: insert failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to send message")
		return
	}

	if err := services.DMBus.Publish(r.Context(), msg); err != nil {
		// The message is stored; subscribers reconcile from history on
		// their next load.
		log.Printf("messages: publish failed for %s: %v", msg.ID, err)
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": msg,
	})
}

// GetConversations returns the viewer's sidebar: one entry per partner
// with the most recent message, newest activity first.
func GetConversations(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireSession(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	history, err := services.Messages.History(ctx, userID.String())
	if err != nil {
		log.Printf("conversations: history load failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load conversations")
		return
	}

	latest := conversation.LatestByPartner(userID.String(), history)
	summaries := make([]conversation.Summary, 0, len(latest))
	for _, m := range latest {
		other := m.Other(userID.String())
		profile, err := services.Profiles.Get(ctx, other)
		if err != nil {
			if !errors.Is(err, services.ErrProfileNotFound) {
				log.Printf("conversations: profile lookup failed for %s: %v", other, err)
			}
			profile.ID = other
		}
		summaries = append(summaries, conversation.Summary{
			Partner:       profile,
			LastMessage:   m.Content,
			LastMessageID: m.ID,
			LastActivity:  m.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"conversations": summaries,
	})
}
