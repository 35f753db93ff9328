// Package server exposes the indexer and searcher over HTTP with JSON/CBOR
// content negotiation.
package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

const (
	contentTypeJSON = "application/json"
	contentTypeCBOR = "application/cbor"

	maxBodyBytes = 10 * 1024 * 1024
)

// unsupportedMediaTypeError maps to 415.
type unsupportedMediaTypeError struct {
	contentType string
}

func (e *unsupportedMediaTypeError) Error() string {
	return fmt.Sprintf("unsupported Content-Type %q", e.contentType)
}

// decodeBody reads and decodes a request body according to its
// Content-Type. A missing Content-Type is treated as JSON.
func decodeBody(r *http.Request, v interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read request body: %w", err)
	}

	switch mediaType(r.Header.Get("Content-Type")) {
	case contentTypeCBOR:
		if err := cbor.Unmarshal(body, v); err != nil {
			return fmt.Errorf("invalid CBOR: %w", err)
		}
	case contentTypeJSON, "":
		if err := json.Unmarshal(body, v); err != nil {
			return fmt.Errorf("invalid JSON: %w", err)
		}
	default:
		return &unsupportedMediaTypeError{contentType: r.Header.Get("Content-Type")}
	}
	return nil
}

// writePayload serializes v according to the request's Accept header. JSON
// unless CBOR was asked for.
func writePayload(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	if mediaType(r.Header.Get("Accept")) == contentTypeCBOR {
		data, err := cbor.Marshal(v)
		if err != nil {
			writeSerializationFailure(w, err)
			return
		}
		w.Header().Set("Content-Type", contentTypeCBOR)
		w.WriteHeader(status)
		w.Write(data)
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		writeSerializationFailure(w, err)
		return
	}
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	w.Write(data)
}

func writeSerializationFailure(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(http.StatusInternalServerError)
	fmt.Fprintf(w, `{"code":"serialization_error","message":%q}`, err.Error())
}

// mediaType strips parameters like charset from a header value.
func mediaType(header string) string {
	mt, _, _ := strings.Cut(header, ";")
	return strings.TrimSpace(strings.ToLower(mt))
}
