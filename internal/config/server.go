package config

import (
	"fmt"
	"net/http"
	"time"
)

// NewHTTPServer creates and returns a configured *http.Server for the admin API.
func NewHTTPServer(cfg ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
