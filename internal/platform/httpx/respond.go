// Package httpx provides JSON request/response utilities following RFC7807
// problem details for errors.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// ProblemDetail represents RFC7807 problem details.
type ProblemDetail struct {
	Type   string `json:"type,omitempty"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Problem sends an RFC7807 problem details response.
func Problem(w http.ResponseWriter, status int, title, detail string) {
	JSON(w, status, ProblemDetail{
		Title:  title,
		Status: status,
		Detail: detail,
	})
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ErrMalformedBody indicates an undecodable request payload.
var ErrMalformedBody = errors.New("httpx: malformed request body")

// DecodeValid decodes the JSON request body into target and runs struct
// validation tags over it.
func DecodeValid(r *http.Request, target any) error {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	if err := validate.Struct(target); err != nil {
		return fmt.Errorf("httpx: validate: %w", err)
	}
	return nil
}

// IsValidationError reports whether err came from struct validation.
func IsValidationError(err error) bool {
	var verr validator.ValidationErrors
	return errors.As(err, &verr)
}
