package gwclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/solanize/solanize-client/internal/utils"
)

// ErrorKind is the closed set of failure classes surfaced to callers.
type ErrorKind string

const (
	ErrorKindNetwork         ErrorKind = "network"
	ErrorKindAuth            ErrorKind = "auth"
	ErrorKindValidation      ErrorKind = "validation"
	ErrorKindWalletRejection ErrorKind = "wallet-rejection"
	ErrorKindUnknown         ErrorKind = "unknown"
)

// APIError is returned by every gateway call that did not succeed. StatusCode is 0 when no response was received.
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Body       map[string]any
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (statusCode=%d)", e.Message, e.StatusCode)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first APIError found in err's chain, or ErrorKindUnknown.
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ErrorKindUnknown
}

func newNetworkError(operation string, err error) *APIError {
	return &APIError{
		Kind:    ErrorKindNetwork,
		Message: fmt.Sprintf("network error while %s", operation),
		Err:     err,
	}
}

// newHTTPError reads and closes the body of a non-2xx response and classifies it.
func newHTTPError(ctx context.Context, resp *http.Response, operation string) *APIError {
	defer utils.DeferredClose(ctx, resp.Body, "closing response body")

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Message:    fmt.Sprintf("%s failed: %s", capitalize(operation), statusText(resp)),
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		apiErr.Err = fmt.Errorf("reading response body when statusCode=%d: %w", resp.StatusCode, err)
	} else {
		var body map[string]any
		if json.Unmarshal(respBody, &body) == nil && len(body) > 0 {
			apiErr.Body = body
			if msg := bodyMessage(body); msg != "" {
				apiErr.Message = msg
			}
		}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		apiErr.Kind = ErrorKindAuth
	case apiErr.Body == nil:
		apiErr.Kind = ErrorKindNetwork
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		apiErr.Kind = ErrorKindValidation
	default:
		apiErr.Kind = ErrorKindUnknown
	}

	return apiErr
}

func bodyMessage(body map[string]any) string {
	for _, key := range []string{"message", "error", "detail"} {
		if msg, ok := body[key].(string); ok && msg != "" {
			return msg
		}
	}
	return ""
}

func statusText(resp *http.Response) string {
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return resp.Status
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
