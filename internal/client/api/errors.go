package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/anonify/internal/common"
)

// StatusError is a non-2xx response from the backend.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: HTTP %d", e.Method, e.Path, e.Code)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *StatusError) Unwrap() error {
	switch {
	case e.Code == http.StatusUnauthorized:
		return common.ErrUnauthorized
	case e.Code == http.StatusForbidden:
		return common.ErrForbidden
	case e.Code == http.StatusNotFound:
		return common.ErrNotFound
	case e.Code == http.StatusBadRequest, e.Code == http.StatusConflict, e.Code == http.StatusUnprocessableEntity:
		return common.ErrValidation
	case e.Code >= 500:
		return common.ErrUnavailable
	default:
		return nil
	}
}

// parseDetail extracts the "detail" field of a FastAPI-style error body.
// Validation errors carry a list there; it is returned as raw JSON.
func parseDetail(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return strings.TrimSpace(string(body))
	}
	var s string
	if err := json.Unmarshal(payload.Detail, &s); err == nil {
		return s
	}
	return string(payload.Detail)
}
