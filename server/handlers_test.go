package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iedon/htmlfrag/config"
	"github.com/iedon/htmlfrag/service"
	"github.com/iedon/htmlfrag/templatex"
)

func newTestServer(t *testing.T, raw string, withLibrary bool) http.Handler {
	t.Helper()
	cfg, err := config.Parse([]byte(raw))
	require.NoError(t, err)

	var lib *templatex.Library
	if withLibrary {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "card.html"),
			[]byte(`{{define "card"}}<div class="card">{{.title}}</div>{{end}}`), 0o644))
		lib, err = templatex.Load(dir, nil)
		require.NoError(t, err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := service.New(cfg, lib, logger, "test")
	require.NoError(t, err)
	return New(cfg, svc, logger, "htmlfrag/test").Handler()
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, reader))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, `{}`, false)

	rec := do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "htmlfrag/test", rec.Header().Get("Server"))
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestBuildEndpoint(t *testing.T) {
	h := newTestServer(t, `{}`, false)

	rec := do(t, h, http.MethodPost, "/api/build", `{"template":"<p>a</p><p>b</p>"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"html":"<p>a</p><p>b</p>","text":"ab","nodes":2,"cached":false,"bypassed":false}`, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/api/build", `{"template":"<p>a</p><p>b</p>"}`)
	assert.Equal(t, true, decode(t, rec)["cached"])

	rec = do(t, h, http.MethodPost, "/api/build?format=html", `{"template":"<p>a</p><p>b</p>"}`)
	assert.Equal(t, "<p>a</p><p>b</p>", rec.Body.String())
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "true", rec.Header().Get("X-Fragment-Cached"))
	assert.Equal(t, "false", rec.Header().Get("X-Fragment-Bypassed"))
}

func TestBuildEndpointErrors(t *testing.T) {
	h := newTestServer(t, `{}`, false)

	cases := []struct {
		name   string
		method string
		body   string
		status int
	}{
		{"wrong method", http.MethodGet, "", http.StatusMethodNotAllowed},
		{"invalid json", http.MethodPost, `{`, http.StatusBadRequest},
		{"empty template", http.MethodPost, `{"template":""}`, http.StatusBadRequest},
		{"too large", http.MethodPost, `{"template":"` + strings.Repeat("a", maxBodyBytes) + `"}`, http.StatusRequestEntityTooLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, tc.method, "/api/build", tc.body)
			assert.Equal(t, tc.status, rec.Code)
			assert.NotEmpty(t, decode(t, rec)["error"])
		})
	}
}

func TestMarkdownEndpoint(t *testing.T) {
	h := newTestServer(t, `{}`, false)

	rec := do(t, h, http.MethodPost, "/api/markdown", `{"markdown":"# Hello\n"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `<h1 id="hello">Hello</h1>`, decode(t, rec)["html"])
}

func TestSnippetEndpoints(t *testing.T) {
	h := newTestServer(t, `{}`, true)

	rec := do(t, h, http.MethodPost, "/api/snippet", `{"name":"card","data":{"title":"Hi"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `<div class="card">Hi</div>`, decode(t, rec)["html"])

	rec = do(t, h, http.MethodPost, "/api/snippet", `{"name":"missing"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/snippet", `{"name":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/snippets", "")
	require.Equal(t, http.StatusOK, rec.Code)
	items, ok := decode(t, rec)["items"].([]any)
	require.True(t, ok)
	assert.Len(t, items, 1)
}

func TestSnippetWithoutLibrary(t *testing.T) {
	h := newTestServer(t, `{}`, false)

	rec := do(t, h, http.MethodPost, "/api/snippet", `{"name":"card"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/snippets", "")
	assert.JSONEq(t, `{"items":[]}`, rec.Body.String())
}

func TestCacheEndpoints(t *testing.T) {
	h := newTestServer(t, `{}`, false)

	do(t, h, http.MethodPost, "/api/build", `{"template":"<b>x</b><i>y</i>"}`)
	do(t, h, http.MethodPost, "/api/build", `{"template":"<b>x</b><i>y</i>"}`)

	rec := do(t, h, http.MethodGet, "/api/cache", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t,
		`{"stats":{"entries":1,"hits":1,"misses":1,"bypasses":0},"keys":["<b>x</b><i>y</i>"]}`,
		rec.Body.String())

	assert.Equal(t, http.StatusMethodNotAllowed, do(t, h, http.MethodGet, "/api/cache/clear", "").Code)

	rec = do(t, h, http.MethodPost, "/api/cache/clear", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/cache", "")
	assert.JSONEq(t, `{"stats":{"entries":0,"hits":0,"misses":0,"bypasses":0},"keys":[]}`, rec.Body.String())
}

func TestMetricsRoute(t *testing.T) {
	h := newTestServer(t, `{}`, false)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/metrics", "").Code)

	h = newTestServer(t, `{"metrics":{"enabled":true,"path":"/stats"}}`, false)
	do(t, h, http.MethodPost, "/api/build", `{"template":"<b>x</b><i>y</i>"}`)

	rec := do(t, h, http.MethodGet, "/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `htmlfrag_factory_builds_total{outcome="miss"} 1`)
	assert.Contains(t, rec.Body.String(), "htmlfrag_cache_entries 1")
}
