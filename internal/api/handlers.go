package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/whunmr/mu/internal/fields"
	"github.com/whunmr/mu/internal/query"
	"github.com/whunmr/mu/internal/scheduler"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// StatsResponse represents the index statistics.
type StatsResponse struct {
	Documents    int64  `json:"documents"`
	Terms        int64  `json:"terms"`
	Postings     int64  `json:"postings"`
	DatabaseSize int64  `json:"database_size_bytes"`
	LastIndexed  string `json:"last_indexed,omitempty"`
}

// SearchResult is the response of /search.
type SearchResult struct {
	Query    string           `json:"query"`
	Sort     string           `json:"sort"`
	Asc      bool             `json:"asc"`
	Total    int64            `json:"total"`
	Messages []*query.Message `json:"messages"`
}

// ExplainResult is the response of /explain.
type ExplainResult struct {
	Query   string `json:"query"`
	Explain string `json:"explain"`
}

// FieldInfo describes one field of the registry.
type FieldInfo struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Shortcut string `json:"shortcut,omitempty"`
	Type     string `json:"type"`
	Prefix   string `json:"prefix"`
	FullText bool   `json:"full_text"`
	Term     bool   `json:"term"`
	Value    bool   `json:"value"`
	Contact  bool   `json:"contact"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, err string, message string) {
	writeJSON(w, status, ErrorResponse{Error: err, Message: message})
}

// writeQueryError maps query errors to status codes.
func (s *Server) writeQueryError(w http.ResponseWriter, expr string, err error) {
	switch {
	case errors.Is(err, query.ErrCompile):
		writeError(w, http.StatusBadRequest, "invalid_query", err.Error())
	case errors.Is(err, query.ErrStoreUnavailable):
		s.logger.Error("index unavailable", "query", expr, "error", err)
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", "Index not available")
	default:
		s.logger.Error("search failed", "query", expr, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Search failed")
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", "Index not available")
		return
	}
	stats, err := s.stats.GetStats(r.Context())
	if err != nil {
		s.logger.Error("failed to get stats", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve statistics")
		return
	}
	resp := StatsResponse{
		Documents:    stats.DocumentCount,
		Terms:        stats.TermCount,
		Postings:     stats.PostingCount,
		DatabaseSize: stats.DatabaseSize,
	}
	if last, err := s.stats.LastIndexed(r.Context()); err == nil && last > 0 {
		resp.LastIndexed = time.Unix(last, 0).UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleSearch runs a query. Parameters: q (required), sort (field name or
// shortcut, empty for relevance), asc (default true), limit, batch.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	expr := params.Get("q")
	if expr == "" {
		writeError(w, http.StatusBadRequest, "missing_query", "Query parameter 'q' is required")
		return
	}

	opts := query.DefaultRunOptions()
	opts.BatchSize = s.cfg.Query.BatchSize
	sortName := params.Get("sort")
	if sortName != "" {
		id, err := fields.Resolve(sortName)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_sort", err.Error())
			return
		}
		opts.Sort = query.SortBy(id)
	}
	if v := params.Get("asc"); v != "" {
		asc, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_asc", "asc must be true or false")
			return
		}
		opts.Reverse = !asc
	}
	if v := params.Get("batch"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid_batch", "batch must be a non-negative integer")
			return
		}
		opts.BatchSize = n
	}
	limit := defaultLimit
	if v := params.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = min(n, maxLimit)
	}

	ctx := r.Context()
	it, err := s.searcher.Run(ctx, expr, opts)
	if err != nil {
		s.writeQueryError(w, expr, err)
		return
	}
	defer it.Close()

	total, err := s.searcher.Count(ctx, expr)
	if err != nil {
		s.writeQueryError(w, expr, err)
		return
	}

	msgs := make([]*query.Message, 0, min(int(total), limit))
	for len(msgs) < limit && it.Next(ctx) {
		m, err := it.Message(ctx)
		if err != nil {
			s.writeQueryError(w, expr, err)
			return
		}
		msgs = append(msgs, m)
	}
	if err := it.Err(); err != nil {
		s.writeQueryError(w, expr, err)
		return
	}

	writeJSON(w, http.StatusOK, SearchResult{
		Query:    expr,
		Sort:     opts.Sort.String(),
		Asc:      !opts.Reverse,
		Total:    total,
		Messages: msgs,
	})
}

func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	expr := r.URL.Query().Get("q")
	if expr == "" {
		writeError(w, http.StatusBadRequest, "missing_query", "Query parameter 'q' is required")
		return
	}
	text, err := s.searcher.Explain(expr)
	if err != nil {
		s.writeQueryError(w, expr, err)
		return
	}
	writeJSON(w, http.StatusOK, ExplainResult{Query: expr, Explain: text})
}

func (s *Server) handleFields(w http.ResponseWriter, r *http.Request) {
	var out []FieldInfo
	fields.ForEach(func(id fields.ID) {
		d, _ := fields.Lookup(id)
		info := FieldInfo{
			ID:       int(id),
			Name:     d.Name,
			Type:     d.Type.String(),
			Prefix:   string(d.TermPrefix()),
			FullText: d.FullTextIndexed(),
			Term:     d.ExactTermIndexed(),
			Value:    d.SortValueStored(),
			Contact:  d.ContactIndexed(),
		}
		if d.Shortcut != 0 {
			info.Shortcut = string(d.Shortcut)
		}
		out = append(out, info)
	})
	writeJSON(w, http.StatusOK, map[string]any{"fields": out})
}

// handleTriggerIndex starts a re-index outside the schedule.
func (s *Server) handleTriggerIndex(w http.ResponseWriter, r *http.Request) {
	if s.scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, "scheduler_unavailable", "Indexing is not available")
		return
	}
	if err := s.scheduler.Trigger(); err != nil {
		status := http.StatusServiceUnavailable
		if errors.Is(err, scheduler.ErrAlreadyRunning) {
			status = http.StatusConflict
		}
		writeError(w, status, "index_error", err.Error())
		return
	}
	s.logger.Info("index run triggered via API")
	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":  "accepted",
		"message": "Index run started",
	})
}

func (s *Server) handleIndexStatus(w http.ResponseWriter, r *http.Request) {
	if s.scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, "scheduler_unavailable", "Indexing is not available")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"started":   s.scheduler.IsRunning(),
		"scheduler": s.scheduler.Status(),
	})
}
