package game

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// APIError is a non-2xx response from the game API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

// RateLimited marks 429 responses for the executor's backoff.
func (e *APIError) RateLimited() bool {
	return e.Status == http.StatusTooManyRequests
}

const unknownError = "unknown error"

// errorMessage pulls "message" from an error body. The API returns either a
// string or a list of validation messages.
func errorMessage(body []byte) string {
	var envelope struct {
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Message) == 0 {
		return unknownError
	}

	var s string
	if err := json.Unmarshal(envelope.Message, &s); err == nil && s != "" {
		return s
	}
	var list []string
	if err := json.Unmarshal(envelope.Message, &list); err == nil && len(list) > 0 {
		return strings.Join(list, "; ")
	}
	return unknownError
}
