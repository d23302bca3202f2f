package openwire

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/a-h/templ"
)

// DefaultBodyLimit caps bridge request bodies. Payload and state are limited
// separately by MaxFieldSize; the rest of the envelope is small.
const DefaultBodyLimit = 4 << 20

// Render writes a templ component to the HTTP response.
//
// Sets Content-Type to text/html and renders the component using the
// request's context. Use this for pages that host components:
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//	    openwire.Render(w, r, views.Page())
//	}
func Render(w http.ResponseWriter, r *http.Request, component templ.Component) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return component.Render(r.Context(), w)
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the controller error shape, {"error": message}.
func writeError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}

// readBody reads at most limit bytes of the request body.
func readBody(r *http.Request, limit int64) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return nil, invalidInput("Invalid JSON")
	}
	if int64(len(body)) > limit {
		return nil, invalidInput("Request too large")
	}
	return body, nil
}

// IsBridgeRequest reports whether r was sent by the client runtime.
func IsBridgeRequest(r *http.Request) bool {
	return r.Header.Get(HeaderRequest) == "true"
}
