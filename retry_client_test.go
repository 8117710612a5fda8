package tinydav

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"syscall"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRetryClient(t *testing.T, attempts uint) (HTTPClient, *MockHTTPClient) {
	t.Helper()

	ctrl := gomock.NewController(t)
	mockHTTPClient := NewMockHTTPClient(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRetryHTTPClient(mockHTTPClient, attempts, 0, logger), mockHTTPClient
}

func connReset() error {
	return &net.OpError{Op: "read", Net: "tcp", Err: os.NewSyscallError("read", syscall.ECONNRESET)}
}

func TestRetryHTTPClient_transientError(t *testing.T) {
	c, mockHTTPClient := newRetryClient(t, 3)

	req, err := http.NewRequest(http.MethodGet, "http://example.org/", nil)
	require.NoError(t, err)

	gomock.InOrder(
		mockHTTPClient.EXPECT().Do(gomock.Any()).Return(nil, connReset()),
		mockHTTPClient.EXPECT().Do(gomock.Any()).Return(newHTTPResponse(http.StatusOK, "ok"), nil),
	)

	resp, err := c.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRetryHTTPClient_exhausted(t *testing.T) {
	c, mockHTTPClient := newRetryClient(t, 3)

	req, err := http.NewRequest(http.MethodGet, "http://example.org/", nil)
	require.NoError(t, err)

	mockHTTPClient.EXPECT().Do(gomock.Any()).Return(nil, connReset()).Times(3)

	_, err = c.Do(req)
	assert.ErrorContains(t, err, "connection reset")
}

func TestRetryHTTPClient_statusNotRetried(t *testing.T) {
	c, mockHTTPClient := newRetryClient(t, 3)

	req, err := http.NewRequest(http.MethodGet, "http://example.org/", nil)
	require.NoError(t, err)

	mockHTTPClient.EXPECT().Do(gomock.Any()).Return(newHTTPResponse(http.StatusServiceUnavailable, ""), nil).Times(1)

	resp, err := c.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestRetryHTTPClient_permanentError(t *testing.T) {
	c, mockHTTPClient := newRetryClient(t, 3)

	req, err := http.NewRequest(http.MethodGet, "http://example.org/", nil)
	require.NoError(t, err)

	mockHTTPClient.EXPECT().Do(gomock.Any()).Return(nil, errors.New("x509: certificate signed by unknown authority")).Times(1)

	_, err = c.Do(req)
	assert.ErrorContains(t, err, "x509")
}

func TestRetryHTTPClient_canceled(t *testing.T) {
	c, mockHTTPClient := newRetryClient(t, 3)

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://example.org/", nil)
	require.NoError(t, err)

	mockHTTPClient.EXPECT().Do(gomock.Any()).DoAndReturn(func(req *http.Request) (*http.Response, error) {
		cancel()
		return nil, fmt.Errorf("read: %w", context.Canceled)
	}).MaxTimes(1)

	_, err = c.Do(req)
	assert.ErrorContains(t, err, "context canceled")
}

func TestRetryHTTPClient_replaysBody(t *testing.T) {
	c, mockHTTPClient := newRetryClient(t, 2)

	req, err := http.NewRequest(http.MethodPut, "http://example.org/file.txt", strings.NewReader("hello"))
	require.NoError(t, err)

	var bodies []string
	mockHTTPClient.EXPECT().Do(gomock.Any()).DoAndReturn(func(req *http.Request) (*http.Response, error) {
		bodies = append(bodies, readRequestBody(t, req))
		if len(bodies) == 1 {
			return nil, connReset()
		}
		return newHTTPResponse(http.StatusCreated, ""), nil
	}).Times(2)

	resp, err := c.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, []string{"hello", "hello"}, bodies)
}

func TestRetryHTTPClient_bodyNotReplayable(t *testing.T) {
	c, mockHTTPClient := newRetryClient(t, 3)

	req, err := http.NewRequest(http.MethodPut, "http://example.org/file.txt", io.NopCloser(strings.NewReader("hello")))
	require.NoError(t, err)
	require.Nil(t, req.GetBody)

	mockHTTPClient.EXPECT().Do(gomock.Any()).Return(nil, connReset()).Times(1)

	_, err = c.Do(req)
	assert.ErrorContains(t, err, "cannot replay request body")
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"connection reset", connReset(), true},
		{"broken pipe", fmt.Errorf("write: %w", syscall.EPIPE), true},
		{"connection refused", &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}, true},
		{"timed out", syscall.ETIMEDOUT, true},
		{"net timeout", &net.OpError{Op: "read", Err: timeoutError{}}, true},
		{"canceled", context.Canceled, false},
		{"deadline", fmt.Errorf("get: %w", context.DeadlineExceeded), false},
		{"other", errors.New("boom"), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsRetryableError(tc.err))
		})
	}
}
