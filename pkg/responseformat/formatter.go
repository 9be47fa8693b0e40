package responseformat

import (
	"encoding/json"
	"net/http"

	"github.com/vmihailenco/msgpack/v5"
)

// Formatter handles encoding and writing responses in JSON or MessagePack format
type Formatter struct{}

// NewFormatter creates a new response formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

// WriteResponse writes the response in the appropriate format based on the query parameter
// JSON is the default format. MessagePack is used when format=msgpack is specified
func (f *Formatter) WriteResponse(w http.ResponseWriter, req *http.Request, data any, headers map[string]string) error {
	return f.WriteResponseStatus(w, req, http.StatusOK, data, headers)
}

// WriteResponseStatus is WriteResponse with an explicit status code, for
// error responses that still need format negotiation (JSON vs MessagePack).
func (f *Formatter) WriteResponseStatus(w http.ResponseWriter, req *http.Request, status int, data any, headers map[string]string) error {
	// Set any provided headers first
	for k, v := range headers {
		w.Header().Set(k, v)
	}

	// Always set CORS header
	w.Header().Set("Access-Control-Allow-Origin", "*")

	// Check if MessagePack is requested via format=msgpack query parameter
	if req.URL.Query().Get("format") == "msgpack" {
		w.Header().Set("Content-Type", "application/x-msgpack")
		w.WriteHeader(status)
		return f.writeMsgPackBody(w, data)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return f.writeJSONBody(w, data)
}

func (f *Formatter) writeJSONBody(w http.ResponseWriter, data any) error {
	return json.NewEncoder(w).Encode(data)
}

func (f *Formatter) writeMsgPackBody(w http.ResponseWriter, data any) error {
	encoder := msgpack.NewEncoder(w)
	encoder.SetCustomStructTag("json") // Use json tags for MessagePack
	return encoder.Encode(data)
}