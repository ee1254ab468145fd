package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/skillconnect/skillconnect-backend/internal/handlers"
)

func SetupRoutes(r *chi.Mux) {
	// Auth routes
	r.Post("/api/auth/signup", handlers.Signup)
	r.Post("/api/auth/signin", handlers.Signin)
	r.Get("/api/auth/me", handlers.GetMe)
	r.Post("/api/auth/signout", handlers.Signout)

	// User directory
	r.Get("/api/users", handlers.GetUsers)
	r.Get("/api/users/{id}", handlers.GetUserByID)

	// Own profile
	r.Get("/api/profile", handlers.GetMyProfile)
	r.Put("/api/profile", handlers.UpdateMyProfile)

	// Avatar upload
	r.Post("/api/upload", handlers.UploadAvatar)

	// Direct messages (MongoDB history + Redis Pub/Sub)
	r.Get("/api/conversations", handlers.GetConversations)
	r.Get("/api/messages", handlers.GetMessages)
	r.Post("/api/messages", handlers.SendMessage)

	// WebSocket endpoint for realtime messaging
	r.Get("/ws", handlers.Messaging)
}
