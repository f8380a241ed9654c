package http

import (
	"net/http"

	"quiz-session-service/internal/app"
)

// NewRouter wires the health check, auth endpoints and the quiz WebSocket.
func NewRouter(service *app.QuizService, authenticator Authenticator) http.Handler {
	authHandler := NewAuthHandler(authenticator, service)
	wsHandler := NewWSHandler(service, authenticator)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("POST /login", authHandler.Login)
	mux.HandleFunc("POST /logout", authHandler.Logout)
	mux.HandleFunc("GET /me", authHandler.Me)
	mux.HandleFunc("GET /ws", wsHandler.ServeWS)
	return mux
}
