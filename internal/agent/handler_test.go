package agent

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/finsage/finsage/internal/domain"
	"github.com/finsage/finsage/internal/identity"
	"github.com/go-chi/chi/v5"
)

func TestRateLimiter(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !rl.Allow("user-1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("user-1") {
		t.Fatal("request over the limit should be rejected")
	}
	// Other keys are throttled independently.
	if !rl.Allow("user-2") {
		t.Fatal("a different user should not be throttled")
	}
}

func newTestRouter(gen Generator) *chi.Mux {
	d, _ := newTestDispatcher(gen)
	h := NewHandler(d, 100, time.Minute)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(identity.WithUserID(req.Context(), "anon_test")))
		})
	})
	h.RegisterRoutes(r)
	return r
}

func TestHandleChat(t *testing.T) {
	t.Parallel()

	r := newTestRouter(&recordingGenerator{reply: "some advice"})

	req := httptest.NewRequest(http.MethodPost, "/api/chat",
		strings.NewReader(`{"message": "should I invest in stocks?"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp struct {
		Message domain.Message      `json:"message"`
		Trace   domain.RoutingTrace `json:"trace"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Message.Content != "some advice" {
		t.Errorf("message = %q, want the generated reply", resp.Message.Content)
	}
	if len(resp.Trace) != 3 {
		t.Fatalf("trace length = %d, want 3", len(resp.Trace))
	}
}

func TestHandleChatValidation(t *testing.T) {
	t.Parallel()

	r := newTestRouter(&recordingGenerator{reply: "x"})

	tests := []struct {
		name string
		body string
		want int
	}{
		{"empty message", `{"message": ""}`, http.StatusBadRequest},
		{"malformed body", `not json`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt := tt
			t.Parallel()
			req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestHandleChatRequiresIdentity(t *testing.T) {
	t.Parallel()

	d, _ := newTestDispatcher(&recordingGenerator{reply: "x"})
	h := NewHandler(d, 100, time.Minute)
	r := chi.NewRouter()
	h.RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message": "hi"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestHandleListAgents(t *testing.T) {
	t.Parallel()

	r := newTestRouter(&recordingGenerator{reply: "x"})

	req := httptest.NewRequest(http.MethodGet, "/api/agents", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp struct {
		Agents []domain.Agent `json:"agents"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Agents) != 5 {
		t.Fatalf("agent count = %d, want 5", len(resp.Agents))
	}
}

func TestHandleSetAgentEnabled(t *testing.T) {
	t.Parallel()

	r := newTestRouter(&recordingGenerator{reply: "x"})

	tests := []struct {
		name        string
		id          string
		body        string
		wantStatus  int
		wantChanged bool
	}{
		{"disable specialist", AgentInvestment, `{"enabled": false}`, http.StatusOK, true},
		{"disable triage is refused quietly", AgentTriage, `{"enabled": false}`, http.StatusOK, false},
		{"unknown agent", "nope", `{"enabled": false}`, http.StatusNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPatch, "/api/agents/"+tt.id, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}

			var resp struct {
				Changed bool         `json:"changed"`
				Agent   domain.Agent `json:"agent"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.Changed != tt.wantChanged {
				t.Errorf("changed = %v, want %v", resp.Changed, tt.wantChanged)
			}
		})
	}
}

func TestHandleChatRateLimited(t *testing.T) {
	t.Parallel()

	d, _ := newTestDispatcher(&recordingGenerator{reply: "x"})
	h := NewHandler(d, 1, time.Minute)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(identity.WithUserID(req.Context(), "anon_test")))
		})
	})
	h.RegisterRoutes(r)

	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message": "report my budget"}`))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Fatalf("request %d status = %d, want %d", i+1, rec.Code, want)
		}
	}
}
