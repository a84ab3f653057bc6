package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/twiced-technology-gmbh/cadence/internal/clierr"
)

// JSON writes data as indented JSON to the given writer.
func JSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	return nil
}

// ErrorResponse is the error envelope shared by --json output and the HTTP
// API.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

// Coded returns err as a coded error. Errors without a code become
// INTERNAL_ERROR.
func Coded(err error) *clierr.Error {
	var ce *clierr.Error
	if errors.As(err, &ce) {
		return ce
	}
	return clierr.Wrap(clierr.InternalError, err, "internal error")
}

// NewErrorResponse builds the envelope for a coded error.
func NewErrorResponse(ce *clierr.Error) ErrorResponse {
	return ErrorResponse{Error: ce.Message, Code: ce.Code, Details: ce.Details}
}

// JSONError writes err's envelope to w and returns the coded error it was
// built from, so callers can pick an exit code.
func JSONError(w io.Writer, err error) *clierr.Error {
	ce := Coded(err)
	_ = JSON(w, NewErrorResponse(ce))
	return ce
}

// BatchResult is the outcome of one id in a batch command. Successor is
// the id of the spawned next occurrence, if any.
type BatchResult struct {
	ID        int    `json:"id"`
	OK        bool   `json:"ok"`
	Successor int    `json:"successor,omitempty"`
	Error     string `json:"error,omitempty"`
	Code      string `json:"code,omitempty"`
}
