package api

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/whunmr/mu/internal/fields"
	"github.com/whunmr/mu/internal/scheduler"
)

func searchURL(params map[string]string) string {
	v := url.Values{}
	for k, val := range params {
		v.Set(k, val)
	}
	return "/api/v1/search?" + v.Encode()
}

func subjects(res SearchResult) []string {
	out := make([]string, len(res.Messages))
	for i, m := range res.Messages {
		out[i] = m.Subject
	}
	return out
}

func TestHandleSearch(t *testing.T) {
	srv, _ := newTestServer(t, serverOpts{})

	tests := []struct {
		name      string
		params    map[string]string
		wantTotal int64
		want      []string
	}{
		{
			name:      "contact",
			params:    map[string]string{"q": "from:alice", "sort": "date"},
			wantTotal: 2,
			want:      []string{"Quarterly report", "Re: Lunch plans"},
		},
		{
			name:      "sort descending by shortcut",
			params:    map[string]string{"q": "pizza", "sort": "d", "asc": "false"},
			wantTotal: 2,
			want:      []string{"Re: Lunch plans", "Lunch plans"},
		},
		{
			name:      "limit keeps the total",
			params:    map[string]string{"q": "pizza", "sort": "date", "limit": "1"},
			wantTotal: 2,
			want:      []string{"Lunch plans"},
		},
		{
			name:      "small batches",
			params:    map[string]string{"q": "lunch", "sort": "subject", "batch": "1"},
			wantTotal: 2,
			want:      []string{"Lunch plans", "Re: Lunch plans"},
		},
		{
			name:      "no matches",
			params:    map[string]string{"q": "kumquat"},
			wantTotal: 0,
			want:      []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, srv, "GET", searchURL(tt.params), nil)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body)
			}
			res := decode[SearchResult](t, w)
			if res.Total != tt.wantTotal {
				t.Errorf("total = %d, want %d", res.Total, tt.wantTotal)
			}
			if diff := cmp.Diff(tt.want, subjects(res)); diff != "" {
				t.Errorf("subjects mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestHandleSearch_EmptyListIsNotNull(t *testing.T) {
	srv, _ := newTestServer(t, serverOpts{})
	w := do(t, srv, "GET", searchURL(map[string]string{"q": "kumquat"}), nil)
	res := decode[map[string]any](t, w)
	if _, ok := res["messages"].([]any); !ok {
		t.Errorf("messages = %#v, want an empty JSON array", res["messages"])
	}
}

func TestHandleSearch_BadRequests(t *testing.T) {
	srv, _ := newTestServer(t, serverOpts{})

	tests := []struct {
		name    string
		params  map[string]string
		wantErr string
	}{
		{"missing query", map[string]string{}, "missing_query"},
		{"unknown field", map[string]string{"q": "nosuchfield:x"}, "invalid_query"},
		{"unknown sort field", map[string]string{"q": "pizza", "sort": "bogus"}, "invalid_sort"},
		{"unsortable field", map[string]string{"q": "pizza", "sort": "body"}, "invalid_query"},
		{"bad asc", map[string]string{"q": "pizza", "asc": "sideways"}, "invalid_asc"},
		{"negative batch", map[string]string{"q": "pizza", "batch": "-1"}, "invalid_batch"},
		{"zero limit", map[string]string{"q": "pizza", "limit": "0"}, "invalid_limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, srv, "GET", searchURL(tt.params), nil)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
			if got := decode[ErrorResponse](t, w).Error; got != tt.wantErr {
				t.Errorf("error = %q, want %q", got, tt.wantErr)
			}
		})
	}
}

func TestHandleExplain(t *testing.T) {
	srv, eng := newTestServer(t, serverOpts{})

	w := do(t, srv, "GET", "/api/v1/explain?q="+url.QueryEscape("from:alice pizza"), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body)
	}
	want, err := eng.Explain("from:alice pizza")
	if err != nil {
		t.Fatal(err)
	}
	if got := decode[ExplainResult](t, w).Explain; got != want {
		t.Errorf("explain = %q, want %q", got, want)
	}

	if w := do(t, srv, "GET", "/api/v1/explain?q=nosuchfield:x", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad query status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestHandleFields(t *testing.T) {
	srv, _ := newTestServer(t, serverOpts{})

	w := do(t, srv, "GET", "/api/v1/fields", nil)
	res := decode[map[string][]FieldInfo](t, w)
	got := res["fields"]
	if len(got) != int(fields.NumFields) {
		t.Fatalf("len(fields) = %d, want %d", len(got), fields.NumFields)
	}
	want := FieldInfo{ID: int(fields.Subject), Name: "subject", Shortcut: "s", Type: "string", Prefix: "S", FullText: true, Value: true}
	if diff := cmp.Diff(want, got[fields.Subject]); diff != "" {
		t.Errorf("subject field mismatch (-want +got):\n%s", diff)
	}
	if got[fields.Timestamp].Shortcut != "" || got[fields.Timestamp].Prefix != "X" {
		t.Errorf("timestamp field = %+v", got[fields.Timestamp])
	}
}

func TestHandleStats(t *testing.T) {
	srv, _ := newTestServer(t, serverOpts{})

	w := do(t, srv, "GET", "/api/v1/stats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	res := decode[StatsResponse](t, w)
	if res.Documents != 3 {
		t.Errorf("documents = %d, want 3", res.Documents)
	}
	if res.LastIndexed == "" {
		t.Error("last_indexed is empty after indexing")
	}
}

func TestHandleTriggerIndex(t *testing.T) {
	sched := &mockScheduler{started: true}
	srv, _ := newTestServer(t, serverOpts{sched: sched})

	w := do(t, srv, "POST", "/api/v1/index", nil)
	if w.Code != http.StatusAccepted {
		t.Errorf("status = %d, want %d", w.Code, http.StatusAccepted)
	}
	if sched.triggered != 1 {
		t.Errorf("triggered = %d, want 1", sched.triggered)
	}

	sched.triggerFn = func() error { return scheduler.ErrAlreadyRunning }
	if w := do(t, srv, "POST", "/api/v1/index", nil); w.Code != http.StatusConflict {
		t.Errorf("running: status = %d, want %d", w.Code, http.StatusConflict)
	}

	sched.triggerFn = func() error { return scheduler.ErrStopped }
	if w := do(t, srv, "POST", "/api/v1/index", nil); w.Code != http.StatusServiceUnavailable {
		t.Errorf("stopped: status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}

	if w := do(t, srv, "GET", "/api/v1/index", nil); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET status = %d, want %d", w.Code, http.StatusMethodNotAllowed)
	}
}

func TestHandleIndexStatus(t *testing.T) {
	sched := &mockScheduler{started: true, status: scheduler.Status{Schedule: "0 * * * *", Runs: 4}}
	srv, _ := newTestServer(t, serverOpts{sched: sched})

	w := do(t, srv, "GET", "/api/v1/index/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	type statusResponse struct {
		Started   bool             `json:"started"`
		Scheduler scheduler.Status `json:"scheduler"`
	}
	res := decode[statusResponse](t, w)
	if !res.Started || res.Scheduler.Schedule != "0 * * * *" || res.Scheduler.Runs != 4 {
		t.Errorf("status = %+v", res)
	}
}

func TestIndexRoutesWithoutScheduler(t *testing.T) {
	srv, _ := newTestServer(t, serverOpts{})
	for _, r := range []struct{ method, path string }{
		{"POST", "/api/v1/index"},
		{"GET", "/api/v1/index/status"},
	} {
		if w := do(t, srv, r.method, r.path, nil); w.Code != http.StatusServiceUnavailable {
			t.Errorf("%s %s status = %d, want %d", r.method, r.path, w.Code, http.StatusServiceUnavailable)
		}
	}
}
