package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/iedon/htmlfrag/service"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	if strings.TrimSpace(message) == "" {
		message = http.StatusText(status)
	}
	writeJSON(w, status, map[string]string{"error": message})
}

// writeOutput answers with raw markup when the client asked for ?format=html,
// otherwise with the JSON envelope.
func writeOutput(w http.ResponseWriter, r *http.Request, out *service.Output) {
	if !strings.EqualFold(r.URL.Query().Get("format"), "html") {
		writeJSON(w, http.StatusOK, out)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Fragment-Cached", boolHeader(out.Cached))
	w.Header().Set("X-Fragment-Bypassed", boolHeader(out.Bypassed))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(out.HTML))
}

func boolHeader(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
