// internal/httpserver/routes_matches.go
//
// HTTP routes for the finished-game archive.
//   - GET /matches?limit=N → most recent won games (default 20, max 100)
//
// When the archive is disabled the route answers 404 archive_disabled.

package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordduel/internal/history"
)

// matchesRes is returned by /matches.
type matchesRes struct {
	Matches []history.Match `json:"matches"`
}

// mountMatches registers /matches.
func (s *Server) mountMatches(r chi.Router) {
	r.Get("/matches", s.handleMatches)
}

func (s *Server) handleMatches(w http.ResponseWriter, r *http.Request) {
	if s.deps.Archive == nil {
		writeError(w, http.StatusNotFound, "archive_disabled")
		return
	}
	limit := history.DefaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_limit")
			return
		}
		limit = n
	}
	rows, err := s.deps.Archive.Recent(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("list matches")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	_ = json.NewEncoder(w).Encode(matchesRes{Matches: rows})
}
