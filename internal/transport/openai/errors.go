package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kailas-cloud/docassist/internal/domain"
)

var (
	errEmptyResponse     = errors.New("empty response")
	errDimensionMismatch = errors.New("unexpected embedding dimensions")
)

// parseAPIError turns a client error into a domain error. HTTP 429 and an
// open breaker become domain.ErrRateLimited; other API failures wrap
// fallback so the HTTP layer answers 502.
func parseAPIError(kind string, err, fallback error) error {
	switch {
	case errors.Is(err, domain.ErrRateLimited):
		return fmt.Errorf("%s request rejected: %w", kind, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s request: %w", kind, err)
	}

	status, detail := 0, ""
	var reqErr *openai.RequestError
	var apiErr *openai.APIError
	switch {
	case errors.As(err, &reqErr):
		status, detail = reqErr.HTTPStatusCode, extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
	case errors.As(err, &apiErr):
		status, detail = apiErr.HTTPStatusCode, apiErr.Message
	default:
		return fmt.Errorf("%s request failed: %v: %w", kind, err, fallback)
	}

	if status == http.StatusTooManyRequests {
		fallback = domain.ErrRateLimited
	}
	return fmt.Errorf("%s API error %d: %s: %w", kind, status, detail, fallback)
}

// extractDetail reads the "detail" field Nebius puts in error bodies.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil {
		return parsed.Detail
	}
	return ""
}

// errorClass is the error_type metric label of a failed call.
func errorClass(err error) string {
	switch {
	case errors.Is(err, domain.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, errEmptyResponse):
		return "empty_response"
	case errors.Is(err, errDimensionMismatch):
		return "dimension_mismatch"
	default:
		return "api_error"
	}
}
