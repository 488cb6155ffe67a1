package application_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/confstore/internal/application"
	"github.com/eugenenazirov/confstore/internal/config"
	"github.com/eugenenazirov/confstore/internal/environment"
)

func performRequest(t *testing.T, handler http.Handler, method, target string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, bytes.NewReader(nil))
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestIntegrationFlow(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"db.json":         `{"primary": {"host": "localhost", "port": 5432}}`,
		"db.acc.json":     `{"primary": {"host": "acc-db", "port": 6432}}`,
		"mail.stage.json": `{"relay": "stage-relay"}`,
		"flags.qa.json":   `{"newCheckout": true}`,
		"notes.md":        `# not configuration`,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	cfg := config.Config{
		Port:                "0",
		ConfigDir:           dir,
		Environment:         environment.Acc,
		EnvVariable:         environment.DefaultVariable,
		LogLevel:            "info",
		ShutdownGracePeriod: time.Second,
		ReadHeaderTimeout:   time.Second,
		WriteTimeout:        time.Second,
		IdleTimeout:         time.Second,
	}
	app, err := application.New(t.Context(), cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	handler := app.Server().Handler

	rec := performRequest(t, handler, http.MethodGet, "/api/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from health, got %d", rec.Code)
	}

	rec = performRequest(t, handler, http.MethodGet, "/api/config", nil)
	var names struct {
		Names []string `json:"names"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&names); err != nil {
		t.Fatalf("decode names: %v", err)
	}
	if strings.Join(names.Names, ",") != "db,flags" {
		t.Fatalf("expected db and flags for acc, got %v", names.Names)
	}

	rec = performRequest(t, handler, http.MethodGet, "/api/config/db.primary.host", map[string]string{"X-Request-ID": "flow-1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for db.primary.host, got %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") != "flow-1" {
		t.Fatalf("expected request id to be echoed")
	}
	var value struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&value); err != nil {
		t.Fatalf("decode value: %v", err)
	}
	// db.json sorts after db.acc.json, so the unqualified file wins.
	if value.Value != "localhost" {
		t.Fatalf("expected localhost, got %q", value.Value)
	}

	rec = performRequest(t, handler, http.MethodGet, "/api/config/mail.relay", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for stage-only file, got %d", rec.Code)
	}

	rec = performRequest(t, handler, http.MethodGet, "/metrics", nil)
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		"confstore_entries 2",
		`confstore_lookups_total{result="hit"} 1`,
		`confstore_lookups_total{result="miss"} 1`,
		`confstore_files_total{extension="json",outcome="filtered"} 1`,
		`confstore_files_total{extension="md",outcome="unsupported"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("expected metrics to contain %q:\n%s", want, body)
		}
	}
}
