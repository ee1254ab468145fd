package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/skillconnect/skillconnect-backend/internal/conversation"
	"github.com/skillconnect/skillconnect-backend/internal/middleware"
	"github.com/skillconnect/skillconnect-backend/internal/models"
	"github.com/skillconnect/skillconnect-backend/internal/services"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin policy is enforced at the HTTP layer.
		return true
	},
}

// wsClientFrame is what the frontend sends over the socket.
type wsClientFrame struct {
	Type   string `json:"type"` // "select", "message", "ping"
	UserID string `json:"user_id,omitempty"`
	Text   string `json:"text,omitempty"`
}

// wsServerFrame is what the gateway pushes to the frontend.
type wsServerFrame struct {
	Type      string                   `json:"type"` // "init", "feed", "message", "error"
	State     string                   `json:"state,omitempty"`
	Messages  []conversation.Message   `json:"messages,omitempty"`
	Message   *conversation.Message    `json:"message,omitempty"`
	Summaries []conversation.Summary   `json:"summaries,omitempty"`
	Profile   *models.Profile          `json:"profile,omitempty"`
	Error     string                   `json:"error,omitempty"`
}

func stateString(s conversation.State) string {
	switch s {
	case conversation.StateLoading:
		return "loading"
	case conversation.StateEmpty:
		return "empty"
	case conversation.StatePopulated:
		return "populated"
	default:
		return "none"
	}
}

// Messaging is the realtime gateway. Each connection owns one
// conversation view for the authenticated user: "select" frames open a
// conversation, "message" frames send into it, and live inserts are
// pushed back as "message" frames with refreshed sidebar summaries.
func Messaging(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireSession(w, r)
	if !ok {
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := make(chan wsServerFrame, 32)

	view := conversation.NewView(userID.String(), services.Messages, services.Profiles, services.DMBus)
	view.SetNotify(func(m conversation.Message) {
		frame := wsServerFrame{
			Type:      "message",
			State:     stateString(view.State()),
			Message:   &m,
			Summaries: view.Summaries(),
		}
		select {
		case out <- frame:
		default:
			log.Printf("ws: dropping frame for slow client (user %s)", userID)
		}
	})

	if err := view.Initialize(ctx); err != nil {
		log.Printf("ws: view init failed for %s: %v", userID, err)
		_ = conn.WriteJSON(wsServerFrame{Type: "error", Error: "failed to initialize"})
		return
	}
	defer view.Close()

	// Writer goroutine: the only writer on the connection.
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case frame := <-out:
				if err := conn.WriteJSON(frame); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	out <- wsServerFrame{Type: "init", Summaries: view.Summaries()}

	conn.SetReadLimit(64 * 1024)
	_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))

		var frame wsClientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}

		switch frame.Type {
		case "select":
			handleSelect(ctx, view, frame.UserID, out)
		case "message":
			handleSend(ctx, view, userID.String(), frame.Text, out)
		case "ping":
			// Read deadline already refreshed above.
		default:
			// Ignore unknown types
		}
	}
}

// handleSelect opens a conversation and pushes the resulting feed. A
// stale select (superseded while loading) pushes nothing: the view
// discards its result and the newer select's frame stands.
func handleSelect(ctx context.Context, view *conversation.View, other string, out chan<- wsServerFrame) {
	if _, err := parseUserID(other); err != nil {
		sendFrame(out, wsServerFrame{Type: "error", Error: "invalid user id"})
		return
	}

	selectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := view.Select(selectCtx, other); err != nil {
		log.Printf("ws: select failed: %v", err)
		sendFrame(out, wsServerFrame{Type: "error", Error: "failed to load conversation"})
		return
	}
	if view.Selected() != other {
		return
	}

	profile := view.SelectedProfile()
	sendFrame(out, wsServerFrame{
		Type:      "feed",
		State:     stateString(view.State()),
		Messages:  view.Feed(),
		Summaries: view.Summaries(),
		Profile:   &profile,
	})
}

// handleSend validates and stores a message. No feed frame is pushed
// here; the bus echo delivers the message to both participants.
func handleSend(ctx context.Context, view *conversation.View, viewer, text string, out chan<- wsServerFrame) {
	other := view.Selected()
	if other == "" {
		sendFrame(out, wsServerFrame{Type: "error", Error: "no conversation selected"})
		return
	}
	if !middleware.AllowSend(viewer) {
		sendFrame(out, wsServerFrame{Type: "error", Error: "sending too fast"})
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	msg, err := view.Send(sendCtx, other, text)
	if err != nil {
		if errors.Is(err, conversation.ErrEmptyMessage) {
			// Rejected locally, no store write; nothing to report.
			return
		}
		log.Printf("ws: send failed: %v", err)
		sendFrame(out, wsServerFrame{Type: "error", Error: "failed to send message"})
		return
	}

	if err := services.DMBus.Publish(sendCtx, msg); err != nil {
		log.Printf("ws: publish failed for %s: %v", msg.ID, err)
	}
}

func sendFrame(out chan<- wsServerFrame, frame wsServerFrame) {
	select {
	case out <- frame:
	default:
	}
}
