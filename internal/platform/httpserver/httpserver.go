package httpserver

import (
	"net/http"
	"time"

	"personvault/internal/platform/config"
)

// writeGrace is the headroom kept between the per-request timeout and the
// connection write deadline, so a timed-out handler can still send its 504.
const writeGrace = 5 * time.Second

// New builds the HTTP server from the server section of the config.
func New(cfg config.Server, handler http.Handler) *http.Server {
	write := cfg.WriteTimeout
	if cfg.RequestTimeout > 0 && write > 0 && write < cfg.RequestTimeout+writeGrace {
		write = cfg.RequestTimeout + writeGrace
	}
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      write,
		IdleTimeout:       cfg.IdleTimeout,
	}
}
