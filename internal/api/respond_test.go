package api

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// brokenWriter accepts headers but fails every body write, like a client
// that hung up mid-download.
type brokenWriter struct {
	*httptest.ResponseRecorder
}

func (brokenWriter) Write([]byte) (int, error) {
	return 0, errors.New("connection reset by peer")
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestWriteBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/exams/e1/report.xlsx", nil)

	rec := httptest.NewRecorder()
	writeBody(rec, req, "text/plain", []byte("ok"))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" || rec.Header().Get("Content-Type") != "text/plain" {
		t.Errorf("writeBody() = %d %q %q, want 200 ok text/plain", rec.Code, rec.Body.String(), rec.Header().Get("Content-Type"))
	}

	logs := captureLogs(t)
	writeBody(brokenWriter{httptest.NewRecorder()}, req, "text/plain", []byte("workbook"))
	out := logs.String()
	if !strings.Contains(out, "writing response") || !strings.Contains(out, "connection reset by peer") {
		t.Errorf("failed write was not logged, got %q", out)
	}
}
