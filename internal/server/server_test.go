package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoutes(t *testing.T) {
	mcp := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	h := Routes(mcp)

	serve := func(method, path string) int {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
		return rec.Code
	}

	registered := []struct{ method, path string }{
		{http.MethodGet, "/health"},
		{http.MethodPost, "/chat"},
		{http.MethodPost, "/chat/upload"},
		{http.MethodGet, "/status/abc"},
		{http.MethodPost, "/ingest"},
		{http.MethodPost, "/ingest/bulk"},
		{http.MethodGet, "/documents"},
		{http.MethodGet, "/documents/doc-1"},
		{http.MethodGet, "/documents/doc-1/file"},
		{http.MethodDelete, "/documents/doc-1"},
		{http.MethodPost, "/index/rebuild"},
		{http.MethodGet, "/index/stats"},
		{http.MethodPost, "/mcp"},
	}
	for _, r := range registered {
		t.Run(r.method+" "+r.path, func(t *testing.T) {
			code := serve(r.method, r.path)
			assert.NotEqual(t, http.StatusNotFound, code)
			assert.NotEqual(t, http.StatusMethodNotAllowed, code)
		})
	}

	assert.Equal(t, http.StatusMethodNotAllowed, serve(http.MethodGet, "/chat"))
	assert.Equal(t, http.StatusMethodNotAllowed, serve(http.MethodPut, "/documents/doc-1"))
	assert.Equal(t, http.StatusNotFound, serve(http.MethodGet, "/theses"))
	assert.Equal(t, http.StatusMovedPermanently, serve(http.MethodGet, "/swagger"))
	assert.Equal(t, http.StatusOK, serve(http.MethodGet, "/metrics"))
}

func TestRoutes_WithoutMCP(t *testing.T) {
	rec := httptest.NewRecorder()
	Routes(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mcp", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
