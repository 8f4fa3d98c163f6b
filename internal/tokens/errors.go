package tokens

import (
	"errors"
	"fmt"
	"time"
)

// ErrAllTokensDisabled is returned once every configured token was rejected
var ErrAllTokensDisabled = errors.New("tokens: all tokens were rejected by GitHub")

// RateLimitError is returned by Acquire when every token is exhausted and
// waiting for a reset is disabled.
type RateLimitError struct {
	ResetAt time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("tokens: rate limit exceeded on all tokens, resets at %s", e.ResetAt.Format(time.RFC3339))
}
