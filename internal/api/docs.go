package api

import (
	"embed"
	"net/http"
)

//go:embed static/openapi.yaml static/docs.html
var staticFS embed.FS

func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	serveStatic(w, r, "static/openapi.yaml", "application/yaml")
}

func (s *Server) handleDocs(w http.ResponseWriter, r *http.Request) {
	serveStatic(w, r, "static/docs.html", "text/html; charset=utf-8")
}

// serveStatic writes an embedded file with a fixed content type, GET only.
func serveStatic(w http.ResponseWriter, r *http.Request, name, contentType string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	w.Header().Set("Content-Type", contentType)
	http.ServeFileFS(w, r, staticFS, name)
}
