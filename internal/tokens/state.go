package tokens

import "time"

// State is the lifecycle position of a token inside the pool
type State int

const (
	StateActive State = iota
	StateExhausted
	StateDisabled
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateExhausted:
		return "exhausted"
	case StateDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name in JSON
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnknownQuota marks a token that has not seen a rate-limit header yet
const UnknownQuota = -1

// Status is the tracked quota state of one token. Transitions are pure:
// every method returns the next Status and leaves the receiver unchanged.
type Status struct {
	State     State     `json:"state"`
	Remaining int       `json:"remaining"`
	Limit     int       `json:"limit"`
	ResetAt   time.Time `json:"reset_at"`
}

// NewStatus returns the initial Active status with unknown quota
func NewStatus() Status {
	return Status{State: StateActive, Remaining: UnknownQuota, Limit: UnknownQuota}
}

// Report applies the quota seen on a response. A token with no remaining
// quota becomes Exhausted until resetAt.
func (s Status) Report(remaining, limit int, resetAt time.Time) Status {
	if s.State == StateDisabled {
		return s
	}
	s.Remaining = remaining
	if limit > 0 {
		s.Limit = limit
	}
	s.ResetAt = resetAt
	if remaining <= 0 {
		s.State = StateExhausted
	} else {
		s.State = StateActive
	}
	return s
}

// Exhaust marks the token rate limited until resetAt
func (s Status) Exhaust(resetAt time.Time) Status {
	if s.State == StateDisabled {
		return s
	}
	s.State = StateExhausted
	s.Remaining = 0
	s.ResetAt = resetAt
	return s
}

// Disable removes the token from rotation for the rest of the run
func (s Status) Disable() Status {
	s.State = StateDisabled
	s.Remaining = 0
	return s
}

// Refresh clears an exhaustion whose reset time has passed
func (s Status) Refresh(now time.Time) Status {
	if s.State == StateExhausted && !now.Before(s.ResetAt) {
		s.State = StateActive
		s.Remaining = UnknownQuota
	}
	return s
}

// Usable checks if the token may be handed out at now
func (s Status) Usable(now time.Time) bool {
	return s.Refresh(now).State == StateActive
}
