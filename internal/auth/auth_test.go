package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddleware(t *testing.T) {
	cfg := Config{Enabled: true, Token: "s3cret"}

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"valid token", "/api/v1/kpi", "Bearer s3cret", http.StatusOK},
		{"missing header", "/api/v1/kpi", "", http.StatusUnauthorized},
		{"wrong token", "/api/v1/kpi", "Bearer nope", http.StatusUnauthorized},
		{"no bearer prefix", "/api/v1/kpi", "s3cret", http.StatusUnauthorized},
		{"basic scheme", "/api/v1/forecast/G01", "Basic czNjcmV0", http.StatusUnauthorized},
		{"stream protected", "/api/v1/stream/forecast", "", http.StatusUnauthorized},
		{"healthz exempt", "/healthz", "", http.StatusOK},
		{"readyz exempt", "/readyz", "", http.StatusOK},
		{"metrics exempt", "/metrics", "", http.StatusOK},
		{"constellation table exempt", "/api/v1/constellations/GPS/characteristics", "", http.StatusOK},
		{"sources exempt", "/api/v1/sources", "", http.StatusOK},
	}

	h := Middleware(cfg)(okHandler())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestMiddlewareDisabled(t *testing.T) {
	h := Middleware(Config{Enabled: false})(okHandler())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/bulletins", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 with auth disabled", rec.Code)
	}
}

func TestUnauthorizedBody(t *testing.T) {
	h := Middleware(Config{Enabled: true, Token: "x"})(okHandler())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/kpi", nil))

	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	if !strings.Contains(rec.Body.String(), `"unauthorized"`) {
		t.Errorf("body = %q, want unauthorized error", rec.Body.String())
	}
}
