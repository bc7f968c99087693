package web

import (
	"encoding/json"
	"net/http"
	"time"
)

// writeJSONResponse writes a JSON response to the http.ResponseWriter.
// If encoding fails, it writes an error response.
func writeJSONResponse(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// current returns the loaded catalog, or nil before the first load.
func (s *Server) current() *catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog
}

// StatusResponse is the JSON response structure for the status endpoint.
type StatusResponse struct {
	File      string    `json:"file"`
	Source    string    `json:"source"`
	LoadedAt  time.Time `json:"loadedAt"`
	Decls     int       `json:"decls"`
	Version   string    `json:"version,omitempty"`
	CommitSHA string    `json:"commit,omitempty"`
}

// TypesResponse is the JSON response structure for the types endpoint.
type TypesResponse struct {
	Types []TypeInfo `json:"types"`
}

// DeclsResponse is the JSON response structure for the declarations of a type.
type DeclsResponse struct {
	Type  string   `json:"type"`
	Names []string `json:"names"`
}

// DiagnosticsResponse is the JSON response structure for the diagnostics endpoint.
type DiagnosticsResponse struct {
	Diagnostics []Diagnostic `json:"diagnostics"`
	// Failed is set when the last reload failed. Diagnostics then describe
	// that reload while the previous declarations are still served.
	Failed bool `json:"failed"`
}

// handleGetStatus handles GET requests to /api/status.
func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	c := s.current()
	if c == nil {
		http.Error(w, "No declarations loaded", http.StatusServiceUnavailable)
		return
	}

	writeJSONResponse(w, &StatusResponse{
		File:      c.file,
		Source:    c.source.String(),
		LoadedAt:  c.loadedAt,
		Decls:     len(c.byName),
		Version:   s.Version,
		CommitSHA: s.CommitSHA,
	})
}

// handleGetTypes handles GET requests to /api/types.
// Returns every type with its declaration count, sorted by name.
func (s *Server) handleGetTypes(w http.ResponseWriter, r *http.Request) {
	types := []TypeInfo{}
	if c := s.current(); c != nil {
		types = append(types, c.types...)
	}
	writeJSONResponse(w, &TypesResponse{Types: types})
}

// handleGetDecls handles GET requests to /api/decls/{type}.
// Returns the declaration names of a type in file order.
func (s *Server) handleGetDecls(w http.ResponseWriter, r *http.Request) {
	c := s.current()
	if c == nil {
		http.Error(w, "Unknown type", http.StatusNotFound)
		return
	}
	info, decls, ok := c.lookupType(r.PathValue("type"))
	if !ok {
		http.Error(w, "Unknown type", http.StatusNotFound)
		return
	}

	names := make([]string, 0, len(decls))
	for _, d := range decls {
		names = append(names, d.Name)
	}
	writeJSONResponse(w, &DeclsResponse{Type: info.Name, Names: names})
}

// handleGetDecl handles GET requests to /api/decls/{type}/{name}.
// Returns the resolved key/values of one declaration.
func (s *Server) handleGetDecl(w http.ResponseWriter, r *http.Request) {
	c := s.current()
	if c == nil {
		http.Error(w, "Unknown declaration", http.StatusNotFound)
		return
	}

	d, ok := c.lookup(r.PathValue("type"), r.PathValue("name"))
	if !ok {
		http.Error(w, "Unknown declaration", http.StatusNotFound)
		return
	}
	writeJSONResponse(w, d)
}

// handleGetDiagnostics handles GET requests to /api/diagnostics.
// Returns the problems reported by the last load, including a failed reload.
func (s *Server) handleGetDiagnostics(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	c, failed := s.catalog, s.failed
	s.mu.RUnlock()

	resp := &DiagnosticsResponse{Diagnostics: []Diagnostic{}}
	switch {
	case failed != nil:
		resp.Diagnostics = append(resp.Diagnostics, failed...)
		resp.Failed = true
	case c != nil:
		resp.Diagnostics = append(resp.Diagnostics, c.diagnostics...)
	}
	writeJSONResponse(w, resp)
}
