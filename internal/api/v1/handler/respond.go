package handler

import (
	"encoding/json"
	"net/http"
)

// errorBody is the uniform error envelope: a stable machine-readable kind,
// a human-readable message, and optional extra fields (allowed voices,
// usage snapshots). Details carries the underlying error text and is only
// populated outside production.
type errorBody struct {
	Success bool           `json:"success"`
	Error   string         `json:"error"`
	Kind    string         `json:"kind,omitempty"`
	Details string         `json:"details,omitempty"`
	Extra   map[string]any `json:"-"`
}

func decodeJSON(r *http.Request, dst any) error {
	defer func() {
		_ = r.Body.Close()
	}()
	return json.NewDecoder(r.Body).Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, body errorBody) {
	out := map[string]any{
		"success": false,
		"error":   body.Error,
	}
	if body.Kind != "" {
		out["kind"] = body.Kind
	}
	if body.Details != "" {
		out["details"] = body.Details
	}
	for k, v := range body.Extra {
		out[k] = v
	}
	writeJSON(w, status, out)
}
