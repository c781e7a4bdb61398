// Package api holds the JSON envelopes shared by the HTTP handlers.
package api

import (
	"encoding/json"
	"net/http"

	apperrors "photographer-backend/pkg/errors"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
	Meta    *MetaInfo  `json:"meta,omitempty"`
}

type ErrorInfo struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

type MetaInfo struct {
	RequestID string `json:"request_id,omitempty"`
	CacheHit  *bool  `json:"cache_hit,omitempty"`
	Degraded  bool   `json:"degraded,omitempty"`
}

// Page is a slice of a larger ordered result. Page numbers start at zero.
type Page[T any] struct {
	Content       []T   `json:"content"`
	Page          int   `json:"page"`
	Size          int   `json:"size"`
	TotalPages    int   `json:"totalPages"`
	TotalElements int64 `json:"totalElements"`
}

// NewPage builds a Page; content is never encoded as null.
func NewPage[T any](content []T, page, size int, total int64) Page[T] {
	if content == nil {
		content = []T{}
	}
	return Page[T]{
		Content:       content,
		Page:          page,
		Size:          size,
		TotalPages:    TotalPages(total, size),
		TotalElements: total,
	}
}

// TotalPages rounds total/size up.
func TotalPages(total int64, size int) int {
	if size <= 0 {
		return 0
	}
	pages := total / int64(size)
	if total%int64(size) > 0 {
		pages++
	}
	return int(pages)
}

var Codes = struct {
	Validation   string
	NotFound     string
	Unauthorized string
	Forbidden    string
	Timeout      string
	Unavailable  string
	Internal     string
}{
	Validation:   "VALIDATION_ERROR",
	NotFound:     "NOT_FOUND",
	Unauthorized: "UNAUTHORIZED",
	Forbidden:    "FORBIDDEN",
	Timeout:      "TIMEOUT",
	Unavailable:  "SERVICE_UNAVAILABLE",
	Internal:     "INTERNAL_ERROR",
}

func RespondJSON(w http.ResponseWriter, status int, data any) {
	RespondWithMeta(w, status, data, nil)
}

func RespondWithMeta(w http.ResponseWriter, status int, data any, meta *MetaInfo) {
	write(w, status, Response{
		Success: status >= 200 && status < 300,
		Data:    data,
		Meta:    meta,
	})
}

func RespondError(w http.ResponseWriter, status int, code, message string) {
	write(w, status, Response{Error: &ErrorInfo{Code: code, Message: message}})
}

// RespondAppError writes err using its type and status. Untyped errors become a
// generic internal error so their text never reaches the client.
func RespondAppError(w http.ResponseWriter, err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		RespondError(w, http.StatusInternalServerError, Codes.Internal, "internal server error")
		return
	}

	code := appErr.Code
	if code == "" {
		code = codeFor(appErr.Type)
	}
	write(w, apperrors.HTTPStatus(appErr), Response{Error: &ErrorInfo{
		Code:    code,
		Message: appErr.Message,
		Details: appErr.Details,
	}})
}

func codeFor(t apperrors.ErrorType) string {
	switch t {
	case apperrors.ErrorTypeValidation:
		return Codes.Validation
	case apperrors.ErrorTypeNotFound:
		return Codes.NotFound
	case apperrors.ErrorTypeUnauthorized:
		return Codes.Unauthorized
	case apperrors.ErrorTypeTimeout:
		return Codes.Timeout
	case apperrors.ErrorTypeUnavailable:
		return Codes.Unavailable
	default:
		return Codes.Internal
	}
}

func write(w http.ResponseWriter, status int, body Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// DecodeJSON reads a JSON body of at most maxBytes, rejecting unknown fields.
func DecodeJSON(r *http.Request, v any, maxBytes int64) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}
