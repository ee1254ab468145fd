package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/skillconnect/skillconnect-backend/internal/models"
	"github.com/skillconnect/skillconnect-backend/internal/services"
)

// GetMyProfile returns the viewer's own profile for the edit screen.
func GetMyProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireSession(w, r)
	if !ok {
		return
	}

	profile, err := services.Profiles.Get(r.Context(), userID.String())
	if err != nil {
		if errors.Is(err, services.ErrProfileNotFound) {
			writeError(w, http.StatusUnauthorized, "account no longer active")
			return
		}
		log.Printf("profile: lookup failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"profile": profile,
	})
}

// UpdateMyProfile applies a self-edit. On failure nothing is persisted;
// the client keeps its form state and can resubmit.
func UpdateMyProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireSession(w, r)
	if !ok {
		return
	}

	var upd models.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if upd.Availability != nil {
		switch *upd.Availability {
		case "", models.AvailabilityOpen, models.AvailabilityBusy, models.AvailabilityCollaboration:
		default:
			writeError(w, http.StatusBadRequest, "invalid availability")
			return
		}
	}
	if upd.ExperienceLevel != nil {
		switch *upd.ExperienceLevel {
		case "", models.ExperienceBeginner, models.ExperienceIntermediate, models.ExperienceExpert:
		default:
			writeError(w, http.StatusBadRequest, "invalid experience level")
			return
		}
	}

	if err := services.Profiles.Update(r.Context(), userID.String(), upd); err != nil {
		if errors.Is(err, services.ErrProfileNotFound) {
			writeError(w, http.StatusUnauthorized, "account no longer active")
			return
		}
		log.Printf("profile: update failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to save profile")
		return
	}

	profile, err := services.Profiles.Get(r.Context(), userID.String())
	if err != nil {
		log.Printf("profile: reload after update failed: %v", err)
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"profile": profile,
	})
}
