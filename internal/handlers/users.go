package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/skillconnect/skillconnect-backend/internal/models"
	"github.com/skillconnect/skillconnect-backend/internal/services"
)

// GetUsers returns the user directory, excluding the viewer.
func GetUsers(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireSession(w, r)
	if !ok {
		return
	}

	users, err := services.Profiles.List(r.Context(), userID.String())
	if err != nil {
		log.Printf("users: directory query failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load users")
		return
	}
	if users == nil {
		users = []models.DirectoryEntry{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"users":   users,
	})
}

// GetUserByID returns another user's full public profile.
func GetUserByID(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireSession(w, r); !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if _, err := parseUserID(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	profile, err := services.Profiles.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrProfileNotFound) {
			// Missing profile is an empty-result state, not an error page.
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"success": true,
				"user":    nil,
			})
			return
		}
		log.Printf("users: profile lookup failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    profile,
	})
}
