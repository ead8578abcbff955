package httpserver

import (
	"net/http"
	"time"
)

// New builds the admin API server. The header timeout bounds slow clients;
// request deadlines are left to handlers, which own their contexts.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
