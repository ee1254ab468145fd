package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/skillconnect/skillconnect-backend/internal/services"
	"github.com/skillconnect/skillconnect-backend/pkg/utils"
)

type SignupRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type SigninRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Token   string                 `json:"token,omitempty"`
	User    map[string]interface{} `json:"user,omitempty"`
}

// Signup registers a new account. The profile row is created implicitly;
// the user fills it in from the profile screen afterwards.
func Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := utils.ValidateUsername(req.Username); err != nil {
		writeJSON(w, http.StatusBadRequest, AuthResponse{Success: false, Message: err.Error()})
		return
	}
	if len(req.Password) < 8 {
		writeJSON(w, http.StatusBadRequest, AuthResponse{Success: false, Message: "Password must be at least 8 characters"})
		return
	}

	username := utils.NormalizeUsername(req.Username)

	taken, err := services.Profiles.UsernameTaken(r.Context(), username)
	if err != nil {
		log.Printf("signup: username check failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Signup failed")
		return
	}
	if taken {
		writeJSON(w, http.StatusConflict, AuthResponse{Success: false, Message: "Username is already taken"})
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		log.Printf("signup: hashing failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Signup failed")
		return
	}

	id, err := services.Profiles.CreateUser(r.Context(), username, hash)
	if err != nil {
		log.Printf("signup: insert failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Signup failed")
		return
	}

	writeJSON(w, http.StatusCreated, AuthResponse{
		Success: true,
		Message: "Account created",
		User:    map[string]interface{}{"id": id, "username": username},
	})
}

// Signin verifies credentials and issues a session token.
func Signin(w http.ResponseWriter, r *http.Request) {
	var req SigninRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	id, hash, err := services.Profiles.Credentials(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, services.ErrProfileNotFound) {
			writeJSON(w, http.StatusUnauthorized, AuthResponse{Success: false, Message: "Invalid username or password"})
			return
		}
		log.Printf("signin: credential lookup failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Signin failed")
		return
	}

	ok, err := utils.VerifyPassword(req.Password, hash)
	if err != nil || !ok {
		writeJSON(w, http.StatusUnauthorized, AuthResponse{Success: false, Message: "Invalid username or password"})
		return
	}

	userID, err := parseUserID(id)
	if err != nil {
		log.Printf("signin: bad user id %q: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Signin failed")
		return
	}

	token, err := services.CreateSession(r.Context(), userID)
	if err != nil {
		log.Printf("signin: session create failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Signin failed")
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{
		Success: true,
		Message: "Signed in",
		Token:   token,
		User:    map[string]interface{}{"id": id, "username": strings.ToLower(strings.TrimSpace(req.Username))},
	})
}

// GetMe returns the authenticated user's profile.
func GetMe(w http.ResponseWriter, r *http.Request) {
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
		log.Printf("me: profile lookup failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    profile,
	})
}

// Signout invalidates the current session token.
func Signout(w http.ResponseWriter, r *http.Request) {
	token := extractBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		writeError(w, http.StatusUnauthorized, "missing session token")
		return
	}
	if err := services.InvalidateSession(r.Context(), token); err != nil {
		log.Printf("signout: %v", err)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Signed out",
	})
}
