package fetcher

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/alimgiray/gitemails/internal/tokens"
	"github.com/alimgiray/gitemails/pkg/logger"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	HeaderRateLimit     = "X-RateLimit-Limit"
	HeaderRateRemaining = "X-RateLimit-Remaining"
	HeaderRateReset     = "X-RateLimit-Reset"
	HeaderRateUsed      = "X-RateLimit-Used"
	HeaderRateResource  = "X-RateLimit-Resource"
	HeaderRetryAfter    = "Retry-After"

	// DefaultRetryAfter is used when a rate-limit response carries no reset hint
	DefaultRetryAfter = 60 * time.Second

	// MinResetWait keeps a token out of rotation for at least this long after
	// a rate-limit response, even if the advertised reset is already past.
	MinResetWait = time.Second
)

// Transport is an http.RoundTripper that authenticates each request with a
// token from the pool and feeds the rate-limit headers back to it.
//
// Rate-limited and rejected tokens are rotated out and the request is retried
// transparently. 5xx responses and network errors are retried MaxRetries times
// with exponential backoff before the last result is returned.
type Transport struct {
	Base       http.RoundTripper
	Pool       *tokens.Pool
	Clock      tokens.Clock
	Limiter    *rate.Limiter
	MaxRetries int
	Backoff    time.Duration
	Log        *logrus.Entry
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	retries := 0

	for {
		lease, err := t.Pool.Acquire(ctx)
		if err != nil {
			return nil, err
		}

		if t.Limiter != nil {
			if err := t.Limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		resp, err := t.base().RoundTrip(authorize(req, lease))
		if err != nil {
			if ctx.Err() != nil || retries >= t.MaxRetries {
				return nil, err
			}
			t.log().WithError(err).WithField("url", req.URL.String()).Warn("Request failed, retrying")
			if err := t.sleepBackoff(ctx, retries); err != nil {
				return nil, err
			}
			retries++
			continue
		}

		now := t.clock().Now()
		switch {
		case resp.StatusCode == http.StatusUnauthorized && !lease.Anonymous:
			discard(resp)
			t.Pool.Disable(lease)
			continue
		case IsRateLimitResponse(resp):
			discard(resp)
			t.Pool.Exhaust(lease, ResetTime(resp.Header, now))
			continue
		}

		if remaining, limit, resetAt, ok := ParseRate(resp.Header); ok {
			t.Pool.Report(lease, remaining, limit, resetAt)
		}

		if resp.StatusCode >= http.StatusInternalServerError && retries < t.MaxRetries {
			discard(resp)
			t.log().WithFields(logrus.Fields{
				"url":     req.URL.String(),
				"status":  resp.StatusCode,
				"attempt": retries + 1,
			}).Warn("Server error, retrying")
			if err := t.sleepBackoff(ctx, retries); err != nil {
				return nil, err
			}
			retries++
			continue
		}

		// The pool owns quota state; go-github must not short-circuit
		// requests based on a single token's headers.
		StripRateHeaders(resp.Header)
		return resp, nil
	}
}

func (t *Transport) sleepBackoff(ctx context.Context, attempt int) error {
	delay := t.Backoff << attempt
	return t.clock().Sleep(ctx, delay)
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) clock() tokens.Clock {
	if t.Clock != nil {
		return t.Clock
	}
	return tokens.RealClock{}
}

func (t *Transport) log() *logrus.Entry {
	if t.Log != nil {
		return t.Log
	}
	return logger.WithField("component", "fetcher")
}

func authorize(req *http.Request, lease tokens.Lease) *http.Request {
	r := req.Clone(req.Context())
	r.Header.Del("Authorization")
	if !lease.Anonymous {
		token := &oauth2.Token{AccessToken: lease.Value, TokenType: "token"}
		token.SetAuthHeader(r)
	}
	return r
}

func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	resp.Body.Close()
}

// IsRateLimitResponse checks for 429, or 403 carrying rate-limit headers
func IsRateLimitResponse(resp *http.Response) bool {
	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return true
	case http.StatusForbidden:
		return resp.Header.Get(HeaderRateRemaining) == "0" || resp.Header.Get(HeaderRetryAfter) != ""
	default:
		return false
	}
}

// ParseRate reads the remaining quota, limit and reset epoch from headers
func ParseRate(h http.Header) (remaining, limit int, resetAt time.Time, ok bool) {
	value := h.Get(HeaderRateRemaining)
	if value == "" {
		return 0, 0, time.Time{}, false
	}
	remaining, err := strconv.Atoi(value)
	if err != nil {
		return 0, 0, time.Time{}, false
	}
	if v, err := strconv.Atoi(h.Get(HeaderRateLimit)); err == nil {
		limit = v
	}
	if v, err := strconv.ParseInt(h.Get(HeaderRateReset), 10, 64); err == nil {
		resetAt = time.Unix(v, 0)
	}
	return remaining, limit, resetAt, true
}

// ResetTime decides when a rate-limited token may be used again:
// Retry-After first, then X-RateLimit-Reset, then DefaultRetryAfter.
func ResetTime(h http.Header, now time.Time) time.Time {
	resetAt := now.Add(DefaultRetryAfter)
	if seconds, err := strconv.Atoi(h.Get(HeaderRetryAfter)); err == nil {
		resetAt = now.Add(time.Duration(seconds) * time.Second)
	} else if epoch, err := strconv.ParseInt(h.Get(HeaderRateReset), 10, 64); err == nil {
		resetAt = time.Unix(epoch, 0)
	}

	if floor := now.Add(MinResetWait); resetAt.Before(floor) {
		return floor
	}
	return resetAt
}

// StripRateHeaders removes the rate-limit headers from a response
func StripRateHeaders(h http.Header) {
	for _, key := range []string{HeaderRateLimit, HeaderRateRemaining, HeaderRateReset, HeaderRateUsed, HeaderRateResource} {
		h.Del(key)
	}
}
