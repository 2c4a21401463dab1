package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedClient struct {
	errs  []error
	calls int
}

func (s *scriptedClient) Provider() string { return "scripted" }

func (s *scriptedClient) Complete(_ context.Context, _ Prompt) (string, error) {
	s.calls++
	if s.calls <= len(s.errs) {
		return "", s.errs[s.calls-1]
	}
	return "ok", nil
}

func newTestRetryClient(next SuggestionClient, attempts int, waits *[]time.Duration) *retryClientImpl {
	return &retryClientImpl{
		next:   next,
		policy: RetryPolicy{MaxAttempts: attempts, InitialDelay: 2 * time.Second},
		sleep: func(_ context.Context, d time.Duration) error {
			*waits = append(*waits, d)
			return nil
		},
	}
}

func TestRetryClient_RetriesQuotaErrors(t *testing.T) {
	var waits []time.Duration
	next := &scriptedClient{errs: []error{errors.New("googleapi: Error 429: RESOURCE_EXHAUSTED"), errors.New("503 Service Unavailable")}}
	cl := newTestRetryClient(next, 5, &waits)

	text, err := cl.Complete(context.Background(), Prompt{User: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, 3, next.calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, waits)
}

func TestRetryClient_GivesUpAfterMaxAttempts(t *testing.T) {
	var waits []time.Duration
	quota := errors.New("429 quota exceeded")
	next := &scriptedClient{errs: []error{quota, quota, quota}}
	cl := newTestRetryClient(next, 3, &waits)

	_, err := cl.Complete(context.Background(), Prompt{})
	assert.Equal(t, quota, err)
	assert.Equal(t, 3, next.calls)
	assert.Len(t, waits, 2)
}

func TestRetryClient_DoesNotRetryOtherErrors(t *testing.T) {
	var waits []time.Duration
	bad := errors.New("invalid prompt")
	next := &scriptedClient{errs: []error{bad}}
	cl := newTestRetryClient(next, 5, &waits)

	_, err := cl.Complete(context.Background(), Prompt{})
	assert.Equal(t, bad, err)
	assert.Equal(t, 1, next.calls)
	assert.Empty(t, waits)
}

func TestRetryClient_StopsOnCancelledContext(t *testing.T) {
	next := &scriptedClient{errs: []error{errors.New("500 internal error")}}
	cl := NewRetryClient(next, RetryPolicy{MaxAttempts: 3, InitialDelay: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := cl.Complete(ctx, Prompt{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, next.calls)
}

func TestRetryPolicy_Delay(t *testing.T) {
	p := DefaultRetryPolicy()
	for retry := 1; retry <= 4; retry++ {
		base := p.InitialDelay << uint(retry-1)
		d := p.Delay(retry)
		assert.GreaterOrEqual(t, d, base)
		assert.LessOrEqual(t, d, base+p.MaxJitter)
	}
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(context.DeadlineExceeded))
	assert.True(t, IsRetryable(errors.New("rpc error: code = Unavailable")))
}
