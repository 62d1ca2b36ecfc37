package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/go-github/v66/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGitHubError_Error(t *testing.T) {
	err := &GitHubError{Type: ErrorTypeAuth, Message: "invalid token", Resource: "teams of org/repo"}
	assert.Equal(t, "authentication error for teams of org/repo: invalid token", err.Error())

	err = &GitHubError{Type: ErrorTypeDecode, Message: "unexpected permission"}
	assert.Equal(t, "decode error: unexpected permission", err.Error())
}

func TestGitHubError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := NewGitHubError(ErrorTypeNetwork, "network error", cause)

	assert.ErrorIs(t, err, cause)
	assert.True(t, err.IsRetryable())
}

func TestWrapGitHubError(t *testing.T) {
	response := func(status int, message string) error {
		return &github.ErrorResponse{
			Response: &http.Response{StatusCode: status, Request: &http.Request{}},
			Message:  message,
		}
	}

	tests := []struct {
		name      string
		err       error
		wantType  ErrorType
		retryable bool
	}{
		{name: "unauthorized", err: response(http.StatusUnauthorized, "Bad credentials"), wantType: ErrorTypeAuth},
		{name: "forbidden", err: response(http.StatusForbidden, "Must have admin rights"), wantType: ErrorTypePermission},
		{name: "forbidden rate limit", err: response(http.StatusForbidden, "API rate limit exceeded"), wantType: ErrorTypeRateLimit, retryable: true},
		{name: "not found", err: response(http.StatusNotFound, "Not Found"), wantType: ErrorTypeNotFound},
		{name: "unprocessable", err: response(http.StatusUnprocessableEntity, "Validation Failed"), wantType: ErrorTypeValidation},
		{name: "bad gateway", err: response(http.StatusBadGateway, "Server Error"), wantType: ErrorTypeNetwork, retryable: true},
		{name: "primary rate limit", err: &github.RateLimitError{Response: &http.Response{StatusCode: http.StatusForbidden}}, wantType: ErrorTypeRateLimit, retryable: true},
		{name: "secondary rate limit", err: &github.AbuseRateLimitError{Response: &http.Response{StatusCode: http.StatusForbidden}}, wantType: ErrorTypeRateLimit, retryable: true},
		{name: "connection refused", err: errors.New("dial tcp 127.0.0.1:443: connection refused"), wantType: ErrorTypeNetwork, retryable: true},
		{name: "graphql missing repository", err: errors.New("Could not resolve to a Repository with the name 'org/gone'."), wantType: ErrorTypeNotFound},
		{name: "canceled", err: fmt.Errorf("request: %w", context.Canceled), wantType: ErrorTypeUnknown},
		{name: "other", err: errors.New("boom"), wantType: ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := WrapGitHubError(tt.err, "resource")
			require.NotNil(t, wrapped)
			assert.Equal(t, tt.wantType, wrapped.Type)
			assert.Equal(t, tt.retryable, wrapped.IsRetryable())
			assert.Equal(t, "resource", wrapped.Resource)
		})
	}
}

func TestWrapGitHubError_KeepsExisting(t *testing.T) {
	assert.Nil(t, WrapGitHubError(nil, "resource"))

	decode := NewDecodeError("", "unexpected value %q", "owner")
	wrapped := WrapGitHubError(fmt.Errorf("page 2: %w", decode), "teams of org/repo")
	assert.Same(t, decode, wrapped)
	assert.Equal(t, "teams of org/repo", wrapped.Resource)
	assert.True(t, IsErrorType(wrapped, ErrorTypeDecode))
}

func fastRetry() *RetryConfig {
	return &RetryConfig{
		MaxRetries:    3,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2,
		MaxResetWait:  10 * time.Millisecond,
	}
}

func TestWithRetry(t *testing.T) {
	tests := []struct {
		name          string
		errs          []error
		expectedCalls int
		expectError   bool
	}{
		{
			name:          "success on first attempt",
			errs:          []error{nil},
			expectedCalls: 1,
		},
		{
			name: "transient failures recover",
			errs: []error{
				NewGitHubError(ErrorTypeNetwork, "reset", nil),
				NewGitHubError(ErrorTypeRateLimit, "limited", nil),
				nil,
			},
			expectedCalls: 3,
		},
		{
			name:          "not found is not retried",
			errs:          []error{NewGitHubError(ErrorTypeNotFound, "gone", nil)},
			expectedCalls: 1,
			expectError:   true,
		},
		{
			name:          "authentication is not retried",
			errs:          []error{NewGitHubError(ErrorTypeAuth, "bad token", nil)},
			expectedCalls: 1,
			expectError:   true,
		},
		{
			name:          "decode is not retried",
			errs:          []error{NewDecodeError("teams", "bad permission")},
			expectedCalls: 1,
			expectError:   true,
		},
		{
			name: "gives up after max retries",
			errs: []error{
				NewGitHubError(ErrorTypeNetwork, "down", nil),
				NewGitHubError(ErrorTypeNetwork, "down", nil),
				NewGitHubError(ErrorTypeNetwork, "down", nil),
				NewGitHubError(ErrorTypeNetwork, "down", nil),
			},
			expectedCalls: 4,
			expectError:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := WithRetry(context.Background(), func() error {
				err := tt.errs[calls]
				calls++
				return err
			}, fastRetry())

			assert.Equal(t, tt.expectedCalls, calls)
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWithRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := WithRetry(ctx, func() error {
		calls++
		cancel()
		return NewGitHubError(ErrorTypeNetwork, "down", nil)
	}, &RetryConfig{MaxRetries: 5, InitialDelay: time.Hour, MaxDelay: time.Hour, BackoffFactor: 2})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
