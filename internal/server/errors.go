package server

import (
	"errors"
	"net/http"

	"github.com/lanternhq/lantern/internal/document"
	"github.com/lanternhq/lantern/internal/index"
	"github.com/lanternhq/lantern/internal/registry"
	"github.com/lanternhq/lantern/internal/schema"
	"github.com/lanternhq/lantern/internal/search"
)

// ErrorResponse is the error payload: a stable snake_case code plus a
// human-readable message.
type ErrorResponse struct {
	Code    string `json:"code" cbor:"code"`
	Message string `json:"message" cbor:"message"`
}

// classify maps an error from the core onto an HTTP status and a stable
// code. Client mistakes are 4xx; engine and consistency failures are 5xx.
func classify(err error) (int, string) {
	var (
		schemaErr     *schema.SchemaError
		typeMismatch  *document.TypeMismatchError
		badDateTime   *document.InvalidDateTimeError
		missingField  *document.MissingRequiredFieldError
		badTree       *document.InvalidTreePathError
		badPKType     *document.BadPrimaryKeyTypeError
		badFilter     *search.InvalidFilterError
		badSort       *search.InvalidSortError
		badSortType   *search.UnsupportedVirtualSortTypeError
		evalFailed    *search.EvalError
		readerFailed  *search.ReaderError
		writerFailed  *index.WriterError
		inconsistency *search.InternalInconsistencyError
		badMediaType  *unsupportedMediaTypeError
	)

	switch {
	case errors.Is(err, search.ErrUnknownIndex):
		return http.StatusNotFound, "unknown_index"
	case errors.Is(err, registry.ErrAlreadyExists), errors.Is(err, index.ErrExists):
		return http.StatusConflict, "already_exists"
	case errors.As(err, &schemaErr):
		return http.StatusBadRequest, "schema_error"
	case errors.Is(err, schema.ErrUnknownColumn):
		return http.StatusBadRequest, "unknown_column"
	case errors.As(err, &typeMismatch):
		return http.StatusBadRequest, "type_mismatch"
	case errors.As(err, &badDateTime):
		return http.StatusBadRequest, "invalid_datetime"
	case errors.As(err, &missingField):
		return http.StatusBadRequest, "missing_required_field"
	case errors.As(err, &badTree):
		return http.StatusBadRequest, "invalid_tree_path"
	case errors.Is(err, document.ErrMissingPrimaryKey):
		return http.StatusBadRequest, "missing_primary_key"
	case errors.Is(err, document.ErrNullPrimaryKey):
		return http.StatusBadRequest, "null_primary_key"
	case errors.As(err, &badPKType):
		return http.StatusBadRequest, "bad_primary_key_type"
	case errors.As(err, &badFilter):
		return http.StatusBadRequest, "invalid_filter"
	case errors.As(err, &badSort):
		return http.StatusBadRequest, "invalid_sort"
	case errors.As(err, &badSortType):
		return http.StatusBadRequest, "unsupported_virtual_sort_type"
	case errors.Is(err, index.ErrReadOnly):
		return http.StatusConflict, "read_only"
	case errors.As(err, &badMediaType):
		return http.StatusUnsupportedMediaType, "unsupported_media_type"
	case errors.As(err, &evalFailed):
		return http.StatusInternalServerError, "eval_error"
	case errors.As(err, &readerFailed):
		return http.StatusInternalServerError, "reader_error"
	case errors.As(err, &writerFailed):
		return http.StatusInternalServerError, "writer_error"
	case errors.Is(err, schema.ErrSchemaMismatch):
		return http.StatusInternalServerError, "schema_mismatch"
	case errors.As(err, &inconsistency):
		return http.StatusInternalServerError, "internal_inconsistency"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// writeError renders err as the negotiated error payload.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	writePayload(w, r, status, ErrorResponse{Code: code, Message: err.Error()})
}

// writeBadRequest renders a request-decoding failure.
func writeBadRequest(w http.ResponseWriter, r *http.Request, err error) {
	var badMediaType *unsupportedMediaTypeError
	if errors.As(err, &badMediaType) {
		writePayload(w, r, http.StatusUnsupportedMediaType,
			ErrorResponse{Code: "unsupported_media_type", Message: err.Error()})
		return
	}
	writePayload(w, r, http.StatusBadRequest,
		ErrorResponse{Code: "invalid_request", Message: err.Error()})
}
