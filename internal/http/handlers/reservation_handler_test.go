package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hbotberlin/reservations/internal/http/handlers"
	mw "github.com/hbotberlin/reservations/internal/http/middleware"
	"github.com/hbotberlin/reservations/internal/platform/mailer"
	"github.com/hbotberlin/reservations/internal/service"
	"github.com/hbotberlin/reservations/pkg/config"
)

// ---------- Mocks ----------

type mockProvider struct {
	batchIDs   []string
	batchErr   error
	oneID      string
	oneErr     error
	batchCalls int
	oneCalls   int
}

func (m *mockProvider) SendBatch(_ context.Context, msgs []*mailer.Message) ([]string, error) {
	m.batchCalls++
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	return m.batchIDs, nil
}

func (m *mockProvider) SendOne(_ context.Context, msg *mailer.Message) (string, error) {
	m.oneCalls++
	if m.oneErr != nil {
		return "", m.oneErr
	}
	return m.oneID, nil
}

// ---------- Harness ----------

func testConfig() *config.Config {
	return &config.Config{
		Email: config.EmailConfig{
			OperatorTo: "hallo@hbot-berlin.de",
			FromAdmin:  config.FromAddress{Name: "Website", Email: "website@hbot-berlin.de"},
			FromUser:   config.FromAddress{Name: "HBOT Berlin", Email: "hallo@hbot-berlin.de"},
			RetryDelay: 0,
		},
		RateLimit: config.RateLimitConfig{Requests: 5, Window: 10 * time.Minute},
		App:       config.AppConfig{Environment: "test"},
	}
}

// newTestRouter mirrors the wiring in cmd/api.
func newTestRouter(cfg *config.Config, p mailer.Provider) http.Handler {
	dispatcher := service.NewDispatcher(cfg.Email, p)
	limiter := mw.NewRateLimiter(mw.RateLimitConfig{
		Requests: cfg.RateLimit.Requests,
		Window:   cfg.RateLimit.Window,
		KeyFunc:  mw.ClientIP,
	})
	h := handlers.NewReservationHandler(dispatcher, cfg)

	r := chi.NewRouter()
	r.Route("/api/reservierung", func(r chi.Router) {
		r.With(limiter.Middleware()).Post("/", h.Create)
		r.Get("/", h.Diagnostics)
	})
	return r
}

func validBody() map[string]any {
	return map[string]any{
		"name":      "Anna Beispiel",
		"email":     "anna@example.com",
		"phone":     "+49 30 1234567",
		"startWeek": "2026-W05",
		"message":   "Ich interessiere mich für das Programm.",
		"consent":   true,
	}
}

func post(t *testing.T, router http.Handler, body any, ip string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	switch b := body.(type) {
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/api/reservierung/", &buf)
	req.Header.Set("Content-Type", "application/json")
	if ip != "" {
		req.Header.Set("X-Forwarded-For", ip)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var decoded map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return rec, decoded
}

// ---------- Tests ----------

func TestCreate_QueuedWithBothIDs(t *testing.T) {
	p := &mockProvider{batchIDs: []string{"admin-1", "user-1"}}
	router := newTestRouter(testConfig(), p)

	rec, body := post(t, router, validBody(), "1.2.3.4")
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rec.Code, rec.Body.String())
	}
	if body["ok"] != true || body["queued"] != true {
		t.Errorf("unexpected body: %v", body)
	}
	if body["adminId"] != "admin-1" || body["userId"] != "user-1" {
		t.Errorf("IDs missing from body: %v", body)
	}
	if body["confirmQueued"] != true {
		t.Errorf("expected confirmQueued true: %v", body)
	}
}

func TestCreate_InvalidJSON(t *testing.T) {
	router := newTestRouter(testConfig(), &mockProvider{})

	rec, body := post(t, router, "{not json", "1.2.3.4")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want 400", rec.Code)
	}
	if body["ok"] != false || body["error"] == "" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestCreate_SingleFieldError(t *testing.T) {
	p := &mockProvider{}
	router := newTestRouter(testConfig(), p)

	payload := validBody()
	payload["email"] = "not-an-address"

	rec, body := post(t, router, payload, "1.2.3.4")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want 400", rec.Code)
	}
	errs, ok := body["errors"].(map[string]any)
	if !ok {
		t.Fatalf("expected errors map, got %v", body)
	}
	if len(errs) != 1 {
		t.Errorf("expected exactly one field error, got %v", errs)
	}
	if _, ok := errs["email"]; !ok {
		t.Errorf("expected error on email, got %v", errs)
	}
	if p.batchCalls != 0 {
		t.Errorf("rejected request must not dispatch, got %d calls", p.batchCalls)
	}
}

func TestCreate_HoneypotAbsorbedAsSpam(t *testing.T) {
	p := &mockProvider{batchIDs: []string{"admin-1", "user-1"}}
	router := newTestRouter(testConfig(), p)

	payload := validBody()
	payload["company"] = "x"

	rec, body := post(t, router, payload, "1.2.3.4")
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, want 200", rec.Code)
	}
	if body["ok"] != true || body["queued"] != false || body["spam"] != true {
		t.Errorf("unexpected spam body: %v", body)
	}
	if p.batchCalls != 0 || p.oneCalls != 0 {
		t.Errorf("spam must not reach the provider, got batch=%d one=%d", p.batchCalls, p.oneCalls)
	}
}

func TestCreate_StartWeekBusinessRule(t *testing.T) {
	p := &mockProvider{batchIDs: []string{"a", "u"}}
	router := newTestRouter(testConfig(), p)

	payload := validBody()
	payload["startWeek"] = "2025-W52"

	rec, body := post(t, router, payload, "1.2.3.4")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want 400", rec.Code)
	}
	errs, _ := body["errors"].(map[string]any)
	if _, ok := errs["startWeek"]; !ok {
		t.Errorf("expected field error on startWeek, got %v", body)
	}
	if p.batchCalls != 0 {
		t.Error("too-early week must not dispatch")
	}

	payload["startWeek"] = "2026-W01"
	rec, _ = post(t, router, payload, "1.2.3.4")
	if rec.Code != http.StatusOK {
		t.Fatalf("cutoff week should pass, got %d: %s", rec.Code, rec.Body.String())
	}
	if p.batchCalls != 1 {
		t.Errorf("expected dispatch for cutoff week, got %d calls", p.batchCalls)
	}
}

func TestCreate_DryRunWithoutCredential(t *testing.T) {
	router := newTestRouter(testConfig(), nil)

	rec, body := post(t, router, validBody(), "1.2.3.4")
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, want 200", rec.Code)
	}
	if body["ok"] != true || body["queued"] != false || body["dryRun"] != true {
		t.Errorf("unexpected dry-run body: %v", body)
	}
}

func TestCreate_FallbackReportsPartialDelivery(t *testing.T) {
	p := &mockProvider{
		batchErr: &mailer.ProviderError{Kind: mailer.KindRejected, Status: 500, Detail: "batch down"},
		oneID:    "admin-solo",
	}
	router := newTestRouter(testConfig(), p)

	rec, body := post(t, router, validBody(), "1.2.3.4")
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, want 200", rec.Code)
	}
	if body["queued"] != true || body["confirmQueued"] != false {
		t.Errorf("expected degraded delivery, got %v", body)
	}
	if body["adminId"] != "admin-solo" {
		t.Errorf("expected operator message ID, got %v", body)
	}
	if body["userId"] != nil {
		t.Errorf("expected null userId, got %v", body)
	}
}

func TestCreate_TotalDispatchFailure(t *testing.T) {
	p := &mockProvider{
		batchErr: &mailer.ProviderError{Kind: mailer.KindRejected, Status: 500, Detail: "down"},
		oneErr:   &mailer.ProviderError{Kind: mailer.KindTransport, Detail: "conn refused"},
	}
	router := newTestRouter(testConfig(), p)

	rec, body := post(t, router, validBody(), "1.2.3.4")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("got %d, want 502", rec.Code)
	}
	if body["ok"] != false {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestCreate_RateLimited(t *testing.T) {
	p := &mockProvider{batchIDs: []string{"a", "u"}}
	router := newTestRouter(testConfig(), p)

	for i := 0; i < 5; i++ {
		rec, _ := post(t, router, validBody(), "6.6.6.6")
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: got %d", i+1, rec.Code)
		}
	}

	rec, body := post(t, router, validBody(), "6.6.6.6")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("6th request: got %d, want 429", rec.Code)
	}
	if body["ok"] != false || body["error"] == "" {
		t.Errorf("unexpected body: %v", body)
	}

	// other addresses are unaffected
	rec, _ = post(t, router, validBody(), "7.7.7.7")
	if rec.Code != http.StatusOK {
		t.Errorf("different address: got %d", rec.Code)
	}
}

func TestDiagnostics(t *testing.T) {
	cases := []struct {
		name     string
		provider mailer.Provider
		want     bool
	}{
		{"configured", &mockProvider{}, true},
		{"dry run", nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newTestRouter(testConfig(), tc.provider)

			req := httptest.NewRequest(http.MethodGet, "/api/reservierung/", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("got %d", rec.Code)
			}
			var body map[string]any
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body["provider"] != tc.want {
				t.Errorf("provider = %v, want %v", body["provider"], tc.want)
			}
			for _, key := range []string{"to", "fromAdmin", "fromUser", "env"} {
				if s, _ := body[key].(string); s == "" {
					t.Errorf("expected %s in diagnostics, got %v", key, body)
				}
			}
		})
	}
}
