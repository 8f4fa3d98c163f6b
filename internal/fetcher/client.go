package fetcher

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alimgiray/gitemails/internal/tokens"
	"github.com/alimgiray/gitemails/pkg/logger"
	"github.com/google/go-github/v57/github"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the public GitHub REST endpoint
	DefaultBaseURL = "https://api.github.com/"

	// DefaultRequestTimeout bounds the wait for response headers of a single attempt
	DefaultRequestTimeout = 30 * time.Second
)

// Options configures the GitHub client built by NewClient.
// RateLimit is a proactive requests-per-second cap; zero disables it.
type Options struct {
	BaseURL        string
	Tokens         []string
	MaxRetries     int
	Backoff        time.Duration
	RequestTimeout time.Duration
	RateLimit      float64
	NoWait         bool
	Clock          tokens.Clock
	Base           http.RoundTripper
}

// NewClient creates a go-github client whose requests go through a
// token-rotating Transport. The pool is returned for status reporting.
func NewClient(opts Options) (*github.Client, *tokens.Pool, error) {
	clock := opts.Clock
	if clock == nil {
		clock = tokens.RealClock{}
	}

	poolOpts := []tokens.Option{tokens.WithClock(clock)}
	if opts.NoWait {
		poolOpts = append(poolOpts, tokens.WithoutWait())
	}
	pool := tokens.New(opts.Tokens, poolOpts...)

	base := opts.Base
	if base == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = DefaultRequestTimeout
		}
		httpTransport := http.DefaultTransport.(*http.Transport).Clone()
		httpTransport.ResponseHeaderTimeout = timeout
		base = httpTransport
	}

	transport := &Transport{
		Base:       base,
		Pool:       pool,
		Clock:      clock,
		MaxRetries: opts.MaxRetries,
		Backoff:    opts.Backoff,
		Log:        logger.WithField("component", "fetcher"),
	}
	if opts.RateLimit > 0 {
		transport.Limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	// No overall client timeout: a request may legitimately block until a
	// token's rate limit resets.
	client := github.NewClient(&http.Client{Transport: transport})

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid GitHub API URL %q: %w", baseURL, err)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	client.BaseURL = u

	if pool.Anonymous() {
		logger.Info("No tokens configured, using unauthenticated requests")
	} else {
		logger.Infof("Rotating across %d tokens", pool.Size())
	}
	return client, pool, nil
}
