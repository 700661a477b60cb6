// internal/httpserver/server.go
//
// HTTP server wiring for the Word Duel backend.
// Responsibilities:
//   - Router + middleware (CORS, panic recovery, request IDs, access log).
//   - Public endpoints: "/", "/health", "/stats".
//   - Session endpoint: POST /session issues a player id + token.
//   - Game transport: GET /ws upgrades to a WebSocket bound to the coordinator.
//   - Archive endpoint: GET /matches (only when the archive is enabled).
//
// Notes:
//   - CORS is origin-aware and credentials-enabled; the same origin list
//     gates WebSocket upgrades.
//   - /ws is mounted outside the timeout group because the handler lives as
//     long as the socket.

package httpserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordduel/internal/auth"
	"github.com/robalobadob/wordduel/internal/coordinator"
	"github.com/robalobadob/wordduel/internal/history"
	"github.com/robalobadob/wordduel/internal/store"
	"github.com/robalobadob/wordduel/internal/words"
)

// Deps are the collaborators the server exposes over HTTP.
type Deps struct {
	Coordinator *coordinator.Coordinator
	Rooms       store.Registry
	Words       *words.Bank
	Issuer      *auth.Issuer
	Archive     *history.Archive // nil when disabled
	Origins     []string
}

// Server bundles router and collaborators.
type Server struct {
	r        *chi.Mux
	deps     Deps
	upgrader websocket.Upgrader
}

// New constructs a Server, installs middleware, and registers routes.
func New(d Deps) *Server {
	s := &Server{r: chi.NewRouter(), deps: d}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID) // add X-Request-ID
	s.r.Use(chimw.RealIP)    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer) // recover from panics
	s.r.Use(accessLog)
	s.r.Use(cors.New(cors.Options{
		AllowedOrigins:   d.Origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler)

	s.r.Get("/ws", s.handleWS)

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
		r.Use(jsonContentType)                 // default JSON responses

		// --- diagnostics ---
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"service":"wordduel","endpoints":["/health","/stats","POST /session","GET /ws","GET /matches"]}`))
		})
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"ok":true}`))
		})
		r.Get("/stats", s.handleStats)

		r.Post("/session", s.handleSession)
		s.mountMatches(r)
	})

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found")
	})

	return s
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// HTTPServer returns an *http.Server serving the router on addr.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.r,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// accessLog writes one debug line per request.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Str("reqId", chimw.GetReqID(r.Context())).
			Msg("http")
	})
}

// checkOrigin accepts non-browser clients (no Origin header) and the
// configured origins.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range s.deps.Origins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

// ------------------------------ handlers -----------------------------------

// handleSession mints a new player identity.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.deps.Issuer.NewSession()
	if err != nil {
		log.Error().Err(err).Msg("issue session")
		writeError(w, http.StatusInternalServerError, "sign_failed")
		return
	}
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(sess)
}

type statsRes struct {
	Rooms       int            `json:"rooms"`
	Connections int            `json:"connections"`
	Words       map[string]int `json:"words"`
}

// handleStats reports live room and connection counts.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	res := statsRes{
		Rooms:       s.deps.Rooms.Len(),
		Connections: s.deps.Coordinator.Connections(),
		Words:       map[string]int{},
	}
	for lang, n := range s.deps.Words.Stats() {
		res.Words[string(lang)] = n
	}
	_ = json.NewEncoder(w).Encode(res)
}

// writeError writes {"error": code} with status.
func writeError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code})
}
