package assets

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/erilali/devserver/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestServer lays out a small site under a temp root, with a secret file
// and a look-alike directory next to it, and returns a Server for the root.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	parent := t.TempDir()
	root := filepath.Join(parent, "public")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "js"), 0o755))

	files := map[string]string{
		"index.html":  "<html><body>home</body></html>",
		"style.css":   "body { color: red; }",
		"js/app.js":   "console.log('hi')",
		"logo.png":    "\x89PNG",
		"notes.txt":   "plain",
		"page.html":   "<p>page</p>",
		"data.json":   "{}",
		"noextension": "raw",
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(body), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(parent, "secret.txt"), []byte("top secret"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(parent, "public-evil"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(parent, "public-evil", "x.js"), []byte("evil"), 0o644))

	return NewServer(root, filepath.Join(root, "index.html"), logger.Nop())
}

func get(s http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.URL.Path = path
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestServeIndexForRootAndIndexPath(t *testing.T) {
	s := newTestServer(t)

	root := get(s, "/")
	index := get(s, "/index.html")

	assert.Equal(t, http.StatusOK, root.Code)
	assert.Equal(t, http.StatusOK, index.Code)
	assert.Equal(t, "text/html; charset=utf-8", root.Header().Get("Content-Type"))
	assert.Equal(t, root.Body.Bytes(), index.Body.Bytes())
	assert.Equal(t, "<html><body>home</body></html>", root.Body.String())
}

func TestContentTypeTable(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		path string
		want string
	}{
		{"/style.css", "text/css; charset=utf-8"},
		{"/js/app.js", "application/javascript; charset=utf-8"},
		{"/page.html", "text/html; charset=utf-8"},
		{"/logo.png", "application/octet-stream"},
		{"/notes.txt", "application/octet-stream"},
		{"/data.json", "application/octet-stream"},
		{"/noextension", "application/octet-stream"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := get(s, tt.path)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.want, rec.Header().Get("Content-Type"))
		})
	}
}

func TestServeFileBytes(t *testing.T) {
	s := newTestServer(t)

	rec := get(s, "/style.css")
	assert.Equal(t, "body { color: red; }", rec.Body.String())
}

func TestEscapingPathsAreForbidden(t *testing.T) {
	s := newTestServer(t)

	for _, p := range []string{
		"/../secret.txt",
		"/../../etc/passwd",
		"/js/../../secret.txt",
		"/../public-evil/x.js",
	} {
		t.Run(p, func(t *testing.T) {
			rec := get(s, p)
			assert.Equal(t, http.StatusForbidden, rec.Code)
			assert.NotContains(t, rec.Body.String(), "top secret")
		})
	}
}

func TestDotSegmentsInsideRootAreServed(t *testing.T) {
	s := newTestServer(t)

	rec := get(s, "/js/../style.css")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/css; charset=utf-8", rec.Header().Get("Content-Type"))
}

func TestMissingFileIsNotFound(t *testing.T) {
	s := newTestServer(t)

	rec := get(s, "/missing.css")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Page Not Found", rec.Body.String())
}

func TestDirectoryIsNotListed(t *testing.T) {
	s := newTestServer(t)

	for _, p := range []string{"/js", "/js/"} {
		rec := get(s, p)
		assert.Equal(t, http.StatusNotFound, rec.Code, p)
		assert.Equal(t, "Page Not Found", rec.Body.String(), p)
	}
}

func TestMissingIndexIsNotFound(t *testing.T) {
	root := t.TempDir()
	s := NewServer(root, filepath.Join(root, "index.html"), logger.Nop())

	rec := get(s, "/")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Page Not Found", rec.Body.String())
}

// brokenWriter records headers but fails every body write, like a client
// that hung up mid-response.
type brokenWriter struct {
	*httptest.ResponseRecorder
}

func (brokenWriter) Write([]byte) (int, error) {
	return 0, errors.New("connection reset by peer")
}

func TestFailedWritesAreLogged(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		path string
		code int
	}{
		{"/style.css", http.StatusOK},
		{"/missing.css", http.StatusNotFound},
		{"/../secret.txt", http.StatusForbidden},
	}
	for _, tc := range tests {
		var buf bytes.Buffer
		s.logger = logger.New("assets", &buf)
		w := brokenWriter{httptest.NewRecorder()}

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.URL.Path = tc.path
		s.ServeHTTP(w, req)

		assert.Equal(t, tc.code, w.Code, tc.path)
		assert.Contains(t, buf.String(), "connection reset by peer", tc.path)
	}
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "text/html; charset=utf-8", ContentType("/a/b/index.html"))
	assert.Equal(t, "text/css; charset=utf-8", ContentType("x.css"))
	assert.Equal(t, "application/javascript; charset=utf-8", ContentType("x.js"))
	assert.Equal(t, "application/octet-stream", ContentType("x.mjs"))
	assert.Equal(t, "application/octet-stream", ContentType("x.htm"))
	assert.Equal(t, "application/octet-stream", ContentType("x.HTML"))
}
