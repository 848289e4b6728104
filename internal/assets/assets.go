// internal/assets/assets.go
// Package assets serves static files from a fixed root directory.
package assets

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/erilali/devserver/internal/logger"
)

const notFoundBody = "Page Not Found"

// contentTypes is the whole extension table; anything else is served as
// application/octet-stream.
var contentTypes = []struct {
	ext         string
	contentType string
}{
	{".html", "text/html; charset=utf-8"},
	{".css", "text/css; charset=utf-8"},
	{".js", "application/javascript; charset=utf-8"},
}

// Server maps request paths to files under Root.
type Server struct {
	root   string
	index  string
	logger *logger.Logger
}

// NewServer returns a Server rooted at root, serving index for "/" and
// "/index.html". root must be absolute.
func NewServer(root, index string, logger *logger.Logger) *Server {
	return &Server{
		root:   filepath.Clean(root),
		index:  index,
		logger: logger,
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	pathname := r.URL.Path

	var candidate string
	if pathname == "/" || pathname == "/index.html" {
		candidate = s.index
	} else {
		candidate = filepath.Join(s.root, filepath.FromSlash(pathname))
		if !s.contains(candidate) {
			s.writeText(w, http.StatusForbidden, "Forbidden")
			return
		}
	}

	data, err := s.read(candidate)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) && !errors.Is(err, errIsDir) {
			s.logger.Errorf("Error serving file %s: %v", candidate, err)
		}
		s.logger.LogEvent("info", "file_not_found", candidate, pathname)
		s.writeText(w, http.StatusNotFound, notFoundBody)
		return
	}

	w.Header().Set("Content-Type", ContentType(candidate))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.Debugf("Writing %s to client failed: %v", candidate, err)
	}
}

// contains reports whether p is the root or lies beneath it.
func (s *Server) contains(p string) bool {
	if p == s.root {
		return true
	}
	prefix := s.root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(p, prefix)
}

// writeText writes body verbatim, unlike http.Error which appends a newline.
func (s *Server) writeText(w http.ResponseWriter, code int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(code)
	if _, err := w.Write([]byte(body)); err != nil {
		s.logger.Debugf("Writing %d response to client failed: %v", code, err)
	}
}

// errIsDir marks directory candidates, which are never listed.
var errIsDir = errors.New("is a directory")

func (s *Server) read(p string) ([]byte, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, errIsDir
	}
	return os.ReadFile(p)
}

// ContentType returns the response content type for a file path.
func ContentType(p string) string {
	for _, ct := range contentTypes {
		if strings.HasSuffix(p, ct.ext) {
			return ct.contentType
		}
	}
	return "application/octet-stream"
}
