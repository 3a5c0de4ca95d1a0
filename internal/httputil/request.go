package httputil

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"connectly/internal/validation"
)

// MaxJSONBody caps JSON request bodies.
const MaxJSONBody = 1 << 20

// DecodeJSON decodes the request body into dst. On failure it has already
// written a 400 and returns false.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	body := http.MaxBytesReader(w, r.Body, MaxJSONBody)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteBadRequest(w, "Request body too large")
			return false
		}
		WriteBadRequest(w, "Invalid request body")
		return false
	}
	return true
}

// WriteValidation turns a *validation.Error into a 400 listing the fields.
// Any other error is a 500.
func WriteValidation(w http.ResponseWriter, err error) {
	var verr *validation.Error
	if !errors.As(err, &verr) {
		log.Printf("[ERROR] validation: %v", err)
		WriteInternalError(w, "Internal server error")
		return
	}
	writeDetail(w, http.StatusBadRequest, ErrorDetail{
		Code:    ErrCodeValidationFailed,
		Message: "Validation failed",
		Fields:  verr.Fields,
	})
}

func DecodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if !DecodeJSON(w, r, dst) {
		return false
	}
	if err := validation.Struct(dst); err != nil {
		WriteValidation(w, err)
		return false
	}
	return true
}
