package handlers

import (
	"github.com/gorilla/mux"

	"github.com/blockclash/blockclash-backend/middleware"
)

func NewRouter() *mux.Router {
	r := mux.NewRouter()

	// Public routes
	r.HandleFunc("/api/register", Register).Methods("POST")
	r.HandleFunc("/api/login", Login).Methods("POST")
	r.HandleFunc("/api/refresh/token", RefreshToken).Methods("POST")
	r.HandleFunc("/ws", WsHandler)

	// Secured routes
	secured := r.PathPrefix("/api").Subrouter()
	secured.Use(middleware.JWTValidationMiddleware)
	secured.HandleFunc("/stats", FetchStats).Methods("GET")
	secured.HandleFunc("/wallet", FetchWallet).Methods("GET")
	secured.HandleFunc("/matches", FetchRecentMatches).Methods("GET")
	secured.HandleFunc("/leaderboard", FetchLeaderboard).Methods("GET")
	secured.HandleFunc("/logout", Logout).Methods("POST")
	return r
}
