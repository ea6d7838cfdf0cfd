package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/spf13/cast"

	"github.com/stakerank/stakerank/internal/cache"
	"github.com/stakerank/stakerank/internal/types"
)

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:      "ok",
		LastFetched: s.reports.LastUpdated(),
	}
	code := http.StatusOK

	if s.pool != nil {
		resp.Pool = s.pool.HealthStatus()
		if !resp.Pool.Available() {
			resp.Status = "unavailable"
			code = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, code, resp)
}

// handleReport handles GET /api/v1/report
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, QueryResponse{Data: entry.Report, LastFetched: entry.FetchedAt})
}

// handleSection handles GET /api/v1/report/{section}?limit=<n>
func (s *Server) handleSection(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["section"]

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := cast.ToIntE(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", raw))
			return
		}
		limit = n
	}

	entry, ok := s.load(w, r)
	if !ok {
		return
	}

	section, found := entry.Report.Section(name)
	if !found {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown section %q", name))
		return
	}

	writeJSON(w, http.StatusOK, QueryResponse{Data: section.Limit(limit), LastFetched: entry.FetchedAt})
}

// handleValidator handles GET /api/v1/validators/{account}
func (s *Server) handleValidator(w http.ResponseWriter, r *http.Request) {
	account := types.Account(mux.Vars(r)["account"])

	entry, ok := s.load(w, r)
	if !ok {
		return
	}

	found, section, exists := entry.Report.Find(account)
	if !exists {
		writeError(w, http.StatusNotFound, fmt.Sprintf("validator %s has no nominations in the report", account))
		return
	}

	sec, _ := entry.Report.Section(section)
	rank := 0
	for i, e := range sec {
		if e.Validator == account {
			rank = i + 1
			break
		}
	}

	writeJSON(w, http.StatusOK, QueryResponse{
		Data: ValidatorResponse{
			Validator:          account,
			Section:            section,
			Rank:               rank,
			ValidatorAggregate: found.ValidatorAggregate,
		},
		LastFetched: entry.FetchedAt,
	})
}

// load fetches the cached report, answering 503 itself when none is available.
func (s *Server) load(w http.ResponseWriter, r *http.Request) (cache.Entry, bool) {
	entry, err := s.reports.Get(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("report unavailable")
		writeError(w, http.StatusServiceUnavailable, "report unavailable: "+err.Error())
		return cache.Entry{}, false
	}
	return entry, true
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, ErrorResponse{Error: msg})
}
