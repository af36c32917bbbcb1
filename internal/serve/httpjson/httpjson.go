// Package httpjson renders JSON HTTP responses.
package httpjson

import (
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"
)

type contentType string

const (
	JSON contentType = "application/json; charset=utf-8"
)

// Render writes v as a JSON response with status 200.
func Render(w http.ResponseWriter, v any, ct contentType) {
	RenderStatus(w, http.StatusOK, v, ct)
}

// RenderStatus writes v as a JSON response with the given status code.
func RenderStatus(w http.ResponseWriter, statusCode int, v any, ct contentType) {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Errorf("marshaling JSON response: %v", err)
		http.Error(w, `{"error": "An internal error occurred while processing this request."}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", string(ct))
	w.WriteHeader(statusCode)
	_, err = w.Write(body)
	if err != nil {
		log.Errorf("writing JSON response: %v", err)
	}
}

// DecodeJSONRequest unmarshals the request body into v.
func DecodeJSONRequest(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	return decoder.Decode(v)
}
