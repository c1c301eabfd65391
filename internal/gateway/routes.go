package gateway

import "net/http"

// registerHTTPRoutes sets up all HTTP routes on the server mux.
func (s *Server) registerHTTPRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /status", s.handleStatus)

	if s.channel != nil {
		mux.Handle("POST "+s.channel.Path(), s.channel.Handler())
		s.log.Debug().
			Str("channel", s.channel.ID()).
			Str("path", s.channel.Path()).
			Msg("mounted webhook")
	}

	// Catch-all for unknown routes
	mux.HandleFunc("/", handleNotFound)
}
