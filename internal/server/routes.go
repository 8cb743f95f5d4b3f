package server

import (
	"net/http"

	"go.uber.org/zap"
)

// SetupRoutes configures and returns an HTTP ServeMux with all application routes.
// "/chat/" catches paths with an empty or multi-segment room so they get a 400.
func SetupRoutes(d *Dispatcher, logger *zap.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", HealthHandler)
	mux.HandleFunc("/health", HealthHandler)
	mux.HandleFunc("/chat/{room}", d.HandleChat)
	mux.HandleFunc("/chat/", d.HandleChat)
	mux.HandleFunc("/rooms", RoomsHandler(d.Registry(), logger))
	mux.HandleFunc("/test", TestPageHandler(logger))
	return mux
}
