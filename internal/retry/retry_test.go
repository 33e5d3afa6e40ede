package retry

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/raubrey2014/tempo-explorer/internal/chain/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_ExplicitMarkers(t *testing.T) {
	transient := Classify(Transient(errors.New("rpc timed out")))
	assert.Equal(t, ClassTransient, transient.Class)
	assert.Equal(t, "explicit_transient", transient.Reason)

	terminal := Classify(Terminal(errors.New("invalid params")))
	assert.Equal(t, ClassTerminal, terminal.Class)
	assert.Equal(t, "explicit_terminal", terminal.Reason)
}

func TestClassify_RepresentativeRuntimeErrors(t *testing.T) {
	testCases := []struct {
		name          string
		err           error
		expectedClass Class
	}{
		{
			name:          "context deadline transient",
			err:           context.DeadlineExceeded,
			expectedClass: ClassTransient,
		},
		{
			name:          "context canceled terminal",
			err:           context.Canceled,
			expectedClass: ClassTerminal,
		},
		{
			name:          "http 429 transient",
			err:           &rpc.HTTPError{StatusCode: http.StatusTooManyRequests},
			expectedClass: ClassTransient,
		},
		{
			name:          "http 503 transient",
			err:           &rpc.HTTPError{StatusCode: http.StatusServiceUnavailable},
			expectedClass: ClassTransient,
		},
		{
			name:          "http 400 terminal",
			err:           &rpc.HTTPError{StatusCode: http.StatusBadRequest},
			expectedClass: ClassTerminal,
		},
		{
			name:          "jsonrpc server range transient",
			err:           &rpc.RPCError{Code: -32005, Message: "request throttled"},
			expectedClass: ClassTransient,
		},
		{
			name:          "jsonrpc invalid params terminal",
			err:           &rpc.RPCError{Code: -32602, Message: "invalid params"},
			expectedClass: ClassTerminal,
		},
		{
			name:          "message rate limit transient",
			err:           errors.New("upstream said: rate limit exceeded"),
			expectedClass: ClassTransient,
		},
		{
			name:          "unknown defaults terminal",
			err:           errors.New("unexpected failure"),
			expectedClass: ClassTerminal,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			decision := Classify(tc.err)
			assert.Equal(t, tc.expectedClass, decision.Class)
		})
	}
}

func TestIsRateLimited(t *testing.T) {
	delay, limited := IsRateLimited(&rpc.HTTPError{
		StatusCode: http.StatusTooManyRequests,
		RetryAfter: 12 * time.Second,
	})
	assert.True(t, limited)
	assert.Equal(t, 12*time.Second, delay)

	_, limited = IsRateLimited(&rpc.RPCError{Code: -32005, Message: "throttled"})
	assert.True(t, limited)

	_, limited = IsRateLimited(errors.New("too many requests"))
	assert.True(t, limited)

	_, limited = IsRateLimited(errors.New("block not found"))
	assert.False(t, limited)

	_, limited = IsRateLimited(nil)
	assert.False(t, limited)
}

func TestBackoff_Bounds(t *testing.T) {
	// First retry lies in [base, base*1.3).
	for i := 0; i < 200; i++ {
		d := Backoff(0)
		require.GreaterOrEqual(t, d, 1000*time.Millisecond)
		require.Less(t, d, 1300*time.Millisecond)
	}

	// Never exceeds the cap, even for absurd attempt counts.
	for attempt := 0; attempt < 64; attempt++ {
		assert.LessOrEqual(t, Backoff(attempt), 60000*time.Millisecond, "attempt %d", attempt)
	}

	// Doubling: attempt 3 lies in [8s, 8s*1.3).
	for i := 0; i < 50; i++ {
		d := Backoff(3)
		require.GreaterOrEqual(t, d, 8*time.Second)
		require.Less(t, d, 10400*time.Millisecond)
	}

	// Negative attempts behave like attempt 0.
	assert.GreaterOrEqual(t, Backoff(-1), 1000*time.Millisecond)
}
