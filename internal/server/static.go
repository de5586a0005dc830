package server

import (
	"bytes"
	"errors"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"
)

const (
	indexFile    = "index.html"
	highlightCSS = "highlight.css"
)

var contentTypes = map[string]string{
	".html":  "text/html; charset=utf-8",
	".css":   "text/css; charset=utf-8",
	".js":    "application/javascript; charset=utf-8",
	".json":  "application/json; charset=utf-8",
	".svg":   "image/svg+xml",
	".png":   "image/png",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".gif":   "image/gif",
	".ico":   "image/x-icon",
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".ttf":   "font/ttf",
	".webp":  "image/webp",
}

// getContentType returns the Content-Type for a file name.
func getContentType(name string) string {
	if ct, ok := contentTypes[strings.ToLower(path.Ext(name))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// isImmutableAsset reports whether name carries a content hash, e.g.
// app-BcD123aF.js or vendor.def789.js, and can be cached forever.
func isImmutableAsset(name string) bool {
	base := path.Base(name)
	ext := path.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if ext == "" || stem == "" {
		return false
	}

	i := strings.LastIndexAny(stem, "-.")
	if i < 0 {
		return false
	}
	hash := stem[i+1:]
	if len(hash) < 6 {
		return false
	}
	digits := 0
	for _, c := range hash {
		switch {
		case c >= '0' && c <= '9':
			digits++
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		default:
			return false
		}
	}
	return digits > 0
}

// handleStatic serves the browser shell. Paths under /static/ map to asset
// files; any other path the browser navigates to gets index.html so the
// shell can route client-side.
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/static")
	name = strings.TrimPrefix(path.Clean("/"+name), "/")
	if name == "" {
		name = indexFile
	}

	if name == highlightCSS && s.highlightCSS != nil {
		w.Header().Set("Cache-Control", "no-cache")
		s.serveContent(w, r, name, s.highlightCSS)
		return
	}

	data, err := fs.ReadFile(s.assets, name)
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrInvalid) {
		if !strings.Contains(r.Header.Get("Accept"), "text/html") {
			http.NotFound(w, r)
			return
		}
		name = indexFile
		data, err = fs.ReadFile(s.assets, indexFile)
	}
	if err != nil {
		s.logger.Error("failed to read asset", "name", name, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if isImmutableAsset(name) {
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	} else {
		w.Header().Set("Cache-Control", "no-cache")
	}
	s.serveContent(w, r, name, data)
}

func (s *Server) serveContent(w http.ResponseWriter, r *http.Request, name string, data []byte) {
	w.Header().Set("Content-Type", getContentType(name))
	http.ServeContent(w, r, name, time.Time{}, bytes.NewReader(data))
}
