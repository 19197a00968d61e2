package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/iedon/htmlfrag/service"
	"github.com/iedon/htmlfrag/templatex"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleBuild(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var payload struct {
		Template string `json:"template"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}
	out, err := s.svc.Build(payload.Template)
	if err != nil {
		s.writeBuildError(w, err)
		return
	}
	writeOutput(w, r, out)
}

func (s *Server) handleMarkdown(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var payload struct {
		Markdown string `json:"markdown"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}
	out, err := s.svc.BuildMarkdown([]byte(payload.Markdown))
	if err != nil {
		s.writeBuildError(w, err)
		return
	}
	writeOutput(w, r, out)
}

func (s *Server) handleSnippet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var payload struct {
		Name string `json:"name"`
		Data any    `json:"data"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}
	name := strings.TrimSpace(payload.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	out, err := s.svc.RenderSnippet(name, payload.Data)
	if err != nil {
		s.writeBuildError(w, err)
		return
	}
	writeOutput(w, r, out)
}

func (s *Server) handleSnippets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": s.svc.Snippets()})
}

func (s *Server) handleCache(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stats": s.svc.Stats(), "keys": s.svc.Keys()})
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.svc.Clear()
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) writeBuildError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrEmptyTemplate):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, templatex.ErrUnknownSnippet):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNoLibrary):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		s.logger.Error("build", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid json")
		return false
	}
	return true
}
