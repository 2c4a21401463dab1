// Copyright 2024-2025 NetCracker Technology Corporation
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package client

import (
	"context"
	"math/rand"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxJitter    time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  5,
		InitialDelay: 2 * time.Second,
		MaxJitter:    500 * time.Millisecond,
	}
}

// Delay returns the wait before the given retry (1-based): InitialDelay * 2^(retry-1) plus jitter.
func (p RetryPolicy) Delay(retry int) time.Duration {
	d := p.InitialDelay << uint(retry-1)
	if p.MaxJitter > 0 {
		d += time.Duration(rand.Int63n(int64(p.MaxJitter) + 1))
	}
	return d
}

type retryClientImpl struct {
	next   SuggestionClient
	policy RetryPolicy
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewRetryClient(next SuggestionClient, policy RetryPolicy) SuggestionClient {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &retryClientImpl{next: next, policy: policy, sleep: sleepCtx}
}

func (r *retryClientImpl) Provider() string {
	return r.next.Provider()
}

// Complete retries quota and server errors with exponential backoff. Other errors
// and context cancellation are returned immediately.
func (r *retryClientImpl) Complete(ctx context.Context, prompt Prompt) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		log.Debugf("%s API call attempt %d/%d", r.next.Provider(), attempt, r.policy.MaxAttempts)
		text, err := r.next.Complete(ctx, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !IsRetryable(err) || attempt == r.policy.MaxAttempts {
			break
		}
		wait := r.policy.Delay(attempt)
		log.Warnf("%s API call failed on attempt %d: %s. Retrying in %.2f seconds...",
			r.next.Provider(), attempt, err.Error(), wait.Seconds())
		if err := r.sleep(ctx, wait); err != nil {
			return "", err
		}
	}
	log.Errorf("%s API call failed: %s", r.next.Provider(), lastErr.Error())
	return "", lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var retryableMarkers = []string{
	"429",
	"resource_exhausted",
	"resource exhausted",
	"quota",
	"rate limit",
	"internal",
	"unavailable",
	"500",
	"502",
	"503",
	"504",
}

// IsRetryable reports whether an assistant error is a quota or server side failure.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if status, ok := openaiStatus(err); ok {
		return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
	}
	msg := strings.ToLower(err.Error())
	for _, m := range retryableMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
