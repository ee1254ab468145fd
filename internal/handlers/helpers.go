package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/skillconnect/skillconnect-backend/internal/services"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"message": message,
	})
}

func parseUserID(s string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(s))
}

// extractBearerToken pulls the token out of an Authorization header.
func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// requireSession authenticates the request via its bearer token (header
// first, token query parameter as a fallback for browser WebSocket
// clients). Writes a 401 and returns false when there is no session.
func requireSession(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	token := extractBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		writeError(w, http.StatusUnauthorized, "missing session token")
		return uuid.Nil, false
	}

	userID, ok, err := services.ValidateSession(r.Context(), token)
	if err != nil || !ok {
		writeError(w, http.StatusUnauthorized, "invalid session token")
		return uuid.Nil, false
	}
	return userID, true
}
