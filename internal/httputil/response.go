// Package httputil writes the JSON bodies every handler shares.
//
// Errors always have the shape
//
//	{"error": {"code": "NOT_FOUND", "message": "Post not found"}}
//
// with an extra "fields" list on validation failures.
package httputil

import (
	"encoding/json"
	"log"
	"net/http"

	"connectly/internal/validation"
)

const (
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeValidationFailed   = "VALIDATION_FAILED"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// statusCodes is the code used when a caller passes none.
var statusCodes = map[int]string{
	http.StatusBadRequest:          ErrCodeBadRequest,
	http.StatusUnauthorized:        ErrCodeUnauthorized,
	http.StatusNotFound:            ErrCodeNotFound,
	http.StatusServiceUnavailable:  ErrCodeServiceUnavailable,
	http.StatusInternalServerError: ErrCodeInternal,
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string                  `json:"code"`
	Message string                  `json:"message"`
	Fields  []validation.FieldError `json:"fields,omitempty"`
}

// MessageResponse is the body of operations that only confirm.
type MessageResponse struct {
	Msg string `json:"msg"`
}

func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[ERROR] encode response: %v", err)
	}
}

// WriteError writes the error envelope. An empty code falls back to the
// generic code for status.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	writeDetail(w, status, ErrorDetail{Code: code, Message: message})
}

func writeDetail(w http.ResponseWriter, status int, d ErrorDetail) {
	if d.Code == "" {
		d.Code = statusCodes[status]
	}
	WriteJSON(w, status, ErrorResponse{Error: d})
}

func WriteMessage(w http.ResponseWriter, message string) {
	WriteJSON(w, http.StatusOK, MessageResponse{Msg: message})
}

func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, "", message)
}

func WriteBadRequestWithCode(w http.ResponseWriter, code, message string) {
	WriteError(w, http.StatusBadRequest, code, message)
}

func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, "", message)
}

func WriteUnauthorizedWithCode(w http.ResponseWriter, code, message string) {
	WriteError(w, http.StatusUnauthorized, code, message)
}

func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, "", message)
}

// WriteServiceUnavailable is for features whose backing service is not configured.
func WriteServiceUnavailable(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusServiceUnavailable, "", message)
}

func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, "", message)
}
