package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/bryanchriswhite/TinyScreen/internal/config"
	"github.com/bryanchriswhite/TinyScreen/internal/logger"
	"github.com/bryanchriswhite/TinyScreen/internal/osd"
	"github.com/bryanchriswhite/TinyScreen/internal/pipeline"
)

// Version is reported by /api/health.
var Version = "0.1.0"

// StatsSource is what the server reports on. *pipeline.Session
// implements it.
type StatsSource interface {
	Stats() pipeline.Stats
}

// Server represents the HTTP API server
type Server struct {
	router    *mux.Router
	configMgr *config.Manager
	stats     StatsSource
	osdMgr    *osd.Manager
	upgrader  websocket.Upgrader
	// eventInterval is how often /api/events pushes stats.
	eventInterval time.Duration
}

// NewServer creates a new API server. stats and osdMgr may be nil; the
// endpoints that need them then answer 503.
func NewServer(configMgr *config.Manager, stats StatsSource, osdMgr *osd.Manager) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		configMgr: configMgr,
		stats:     stats,
		osdMgr:    osdMgr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		eventInterval: 250 * time.Millisecond,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	api.HandleFunc("/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/events", s.handleEvents)

	// Configuration
	api.HandleFunc("/config", s.handleGetConfig).Methods("GET")
	api.HandleFunc("/config", s.handleUpdateConfig).Methods("PUT")
	api.HandleFunc("/config/profiles", s.handleListProfiles).Methods("GET")
	api.HandleFunc("/config/profiles/active", s.handleSetActiveProfile).Methods("PUT")

	// On-screen display
	api.HandleFunc("/osd", s.handleGetOSD).Methods("GET")
	api.HandleFunc("/osd", s.handleUpdateOSD).Methods("POST")

	s.router.HandleFunc("/", s.handleIndex)
}

// Handler returns the router wrapped with CORS headers.
func (s *Server) Handler() http.Handler {
	return s.enableCORS(s.router)
}

// Start serves on addr until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: s.Handler()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.WithComponent("api").Info().Str("addr", ln.Addr().String()).Msg("API server started")
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// enableCORS adds CORS headers
func (s *Server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeSuccess(w http.ResponseWriter) {
	writeJSON(w, map[string]string{"status": "success"})
}

// HTTP Handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{
		"status":  "healthy",
		"version": Version,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		http.Error(w, "no active session", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, s.stats.Stats())
}

// handleEvents streams session stats over a websocket until the client
// goes away.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		http.Error(w, "no active session", http.StatusServiceUnavailable)
		return
	}
	log := logger.WithComponent("api")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade error")
		return
	}
	defer conn.Close()

	// The read loop only notices the close frame.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.eventInterval)
	defer ticker.Stop()

	var last pipeline.Stats
	first := true
	for {
		st := s.stats.Stats()
		if first || st != last {
			if err := conn.WriteJSON(st); err != nil {
				log.Debug().Err(err).Msg("WebSocket write error")
				return
			}
			last, first = st, false
		}

		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.configMgr.Get())
}

func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var cfg config.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.configMgr.Update(&cfg); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, config.ErrInvalidFlag) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}
	writeSuccess(w)
}

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"active":   s.configMgr.Get().ActiveProfileID,
		"profiles": s.configMgr.ListProfiles(),
	})
}

func (s *Server) handleSetActiveProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.configMgr.SetActiveProfile(req.ID); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeSuccess(w)
}

func (s *Server) handleGetOSD(w http.ResponseWriter, r *http.Request) {
	if s.osdMgr == nil {
		http.Error(w, "osd disabled", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, map[string]interface{}{
		"enabled": s.osdMgr.IsEnabled(),
		"widgets": s.osdMgr.ExportConfig(),
	})
}

// OSDRequest changes the on-screen display. Absent fields are left alone.
type OSDRequest struct {
	Enabled  *bool   `json:"enabled,omitempty"`
	Progress *int    `json:"progress,omitempty"`
	Hide     bool    `json:"hide_progress,omitempty"`
	Status   *string `json:"status,omitempty"`
}

func (s *Server) handleUpdateOSD(w http.ResponseWriter, r *http.Request) {
	if s.osdMgr == nil {
		http.Error(w, "osd disabled", http.StatusServiceUnavailable)
		return
	}
	var req OSDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var err error
	if req.Enabled != nil {
		s.osdMgr.SetEnabled(*req.Enabled)
	}
	switch {
	case req.Hide:
		err = s.osdMgr.HideProgress()
	case req.Progress != nil:
		err = s.osdMgr.SetProgress(*req.Progress)
	}
	if err == nil && req.Status != nil {
		err = s.osdMgr.SetStatus(*req.Status)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeSuccess(w)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	w.Write([]byte(indexHTML))
}

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>TinyScreen</title>
    <style>
        body { font-family: sans-serif; max-width: 720px; margin: 40px auto; color: #333; }
        pre { background: #f5f5f5; padding: 10px; border-radius: 4px; min-height: 4em; }
        a { color: #1976d2; text-decoration: none; }
    </style>
</head>
<body>
    <h1>TinyScreen</h1>
    <ul>
        <li><a href="/api/health">/api/health</a> - health check</li>
        <li><a href="/api/status">/api/status</a> - session state, geometry and counters</li>
        <li><a href="/api/config">/api/config</a> - configuration</li>
        <li><a href="/api/osd">/api/osd</a> - on-screen display (POST to change)</li>
    </ul>
    <h3>Live</h3>
    <pre id="stats">connecting...</pre>
    <script>
        const ws = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '/api/events');
        ws.onmessage = (e) => { document.getElementById('stats').textContent = JSON.stringify(JSON.parse(e.data), null, 2); };
        ws.onclose = () => { document.getElementById('stats').textContent = 'disconnected'; };
    </script>
</body>
</html>`
