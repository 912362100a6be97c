package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go/v3"
)

var (
	// ErrNoProvider is reported when no AI provider is configured
	ErrNoProvider = errors.New("no AI provider configured")
	// ErrEmptyInput is reported when there is nothing to send to the provider
	ErrEmptyInput = errors.New("empty input")
	// ErrEmptyResponse is reported when the provider answered with no usable text
	ErrEmptyResponse = errors.New("empty response")
)

// APIError represents an error from the AI provider API
type APIError struct {
	Message     string
	Type        string
	Code        string
	StatusCode  int
	IsPermanent bool // true for quota and auth errors, false for rate limits
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d, type %s): %s", e.StatusCode, e.Type, e.Message)
}

// IsRateLimitError checks if an error is a rate limit error
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests && !apiErr.IsPermanent
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests")
}

// IsQuotaError checks if an error is a quota exhaustion error
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == "insufficient_quota"
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "insufficient_quota") ||
		strings.Contains(errStr, "quota") ||
		strings.Contains(errStr, "billing")
}

// ExtractAPIError converts an SDK error into an APIError, or returns nil when
// err did not come from a provider API response
func ExtractAPIError(err error) *APIError {
	if err == nil {
		return nil
	}

	var oaiErr *openai.Error
	if errors.As(err, &oaiErr) {
		apiErr := &APIError{
			StatusCode: oaiErr.StatusCode,
			Message:    oaiErr.Message,
			Type:       oaiErr.Type,
			Code:       oaiErr.Code,
		}
		if apiErr.Message == "" {
			apiErr.Message = err.Error()
		}
		apiErr.IsPermanent = permanentStatus(apiErr.StatusCode) || apiErr.Code == "insufficient_quota"
		return apiErr
	}

	var antErr *anthropic.Error
	if errors.As(err, &antErr) {
		apiErr := &APIError{
			StatusCode: antErr.StatusCode,
			Message:    err.Error(),
			Type:       "api_error",
		}
		parseErrorBody(err.Error(), apiErr)
		apiErr.IsPermanent = permanentStatus(apiErr.StatusCode)
		return apiErr
	}

	return nil
}

func permanentStatus(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden || status == http.StatusNotFound
}

// parseErrorBody fills message and type from a JSON error body embedded in the message, if any
func parseErrorBody(errStr string, apiErr *APIError) {
	jsonStart := strings.Index(errStr, "{")
	if jsonStart == -1 {
		return
	}
	jsonStr := errStr[jsonStart:]
	jsonEnd := strings.LastIndex(jsonStr, "}")
	if jsonEnd == -1 {
		return
	}
	var body struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	if json.Unmarshal([]byte(jsonStr[:jsonEnd+1]), &body) != nil {
		return
	}
	if body.Error.Message != "" {
		apiErr.Message = body.Error.Message
	}
	if body.Error.Type != "" {
		apiErr.Type = body.Error.Type
	}
}
