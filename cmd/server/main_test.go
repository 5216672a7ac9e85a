package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/p-n-ai/cbt-admin/internal/platform/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Store:   "memory",
		Auth:    config.AuthConfig{JWTSecret: "secret", Issuer: "cbt-admin"},
		Catalog: config.CatalogConfig{MinQuestionsPerSubject: 15},
		Log:     config.LogConfig{Level: "info", Format: "json"},
	}
}

func TestHealthEndpoints(t *testing.T) {
	a, err := newApp(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	defer a.close()

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "healthz returns 200",
			path:       "/healthz",
			wantStatus: http.StatusOK,
			wantBody:   "ok",
		},
		{
			name:       "readyz returns 200",
			path:       "/readyz",
			wantStatus: http.StatusOK,
			wantBody:   "ready",
		},
		{
			name:       "admin routes need a token",
			path:       "/api/v1/exams",
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()

			a.handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantBody == "" {
				return
			}
			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decoding body: %v", err)
			}
			if body["status"] != tt.wantBody {
				t.Errorf("status field = %q, want %q", body["status"], tt.wantBody)
			}
		})
	}
}

func TestNewApp_TaxonomyPath(t *testing.T) {
	dir := t.TempDir()
	seed := "levels:\n  - name: SS1\n    subjects:\n      - name: Physics\n        topics: [Motion]\n"
	if err := os.WriteFile(filepath.Join(dir, "ss1.yaml"), []byte(seed), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := testConfig()
	cfg.TaxonomyPath = dir
	a, err := newApp(context.Background(), cfg)
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	a.close()

	cfg.TaxonomyPath = filepath.Join(dir, "missing")
	if _, err := newApp(context.Background(), cfg); err == nil {
		t.Error("newApp() with a missing taxonomy dir should fail")
	}
}

func TestNewLogHandler(t *testing.T) {
	h := newLogHandler(config.LogConfig{Level: "debug", Format: "text"})
	if !h.Enabled(context.Background(), -4) {
		t.Error("debug level should be enabled")
	}
	h = newLogHandler(config.LogConfig{Level: "bogus", Format: "json"})
	if h.Enabled(context.Background(), -4) {
		t.Error("unknown level should fall back to info")
	}
}
