// Package retry implements the Retry Policy: substring-based classification
// of external-command failures into permanent/transient, three canonical
// backoff schedules, and a fixed-interval polling helper.
package retry

import (
	"context"
	"math/rand"
	"strings"
	"time"
)

// permanentTokens never retry, regardless of any transient token also
// present -- permanent classification takes precedence.
var permanentTokens = []string{
	"no such file", "permission denied", "operation not permitted",
	"invalid argument", "not found", "does not exist", "unknown unit",
	"unit not found", "no such user", "user does not exist",
}

// transientTokens retry under the caller's chosen schedule.
var transientTokens = []string{
	"connection refused", "connection reset", "connection timed out",
	"temporarily unavailable", "resource temporarily unavailable",
	"device or resource busy", "text file busy", "eagain", "ebusy",
	"etimedout", "econnrefused", "econnreset", "no route to host",
	"network is unreachable", "dbus", "bus connection", "failed to connect",
	"socket not found", "operation timed out",
}

// serviceTransientTokens are additional transient tokens recognized only
// for service (systemctl) errors, where these words are routine noise
// rather than a sign of a genuine permanent failure.
var serviceTransientTokens = []string{"exit code", "not active", "failed to"}

// Classification is the result of classifying an error message.
type Classification int

// The classifications. Unclassified means neither list matched; Do retries
// it the same way as Transient.
const (
	Unclassified Classification = iota
	Permanent
	Transient
)

// Classify lowercases msg and checks it against the permanent and
// transient token lists. Permanent takes precedence when both match.
func Classify(msg string) Classification {
	lower := strings.ToLower(msg)
	if containsAny(lower, permanentTokens) {
		return Permanent
	}
	if containsAny(lower, transientTokens) {
		return Transient
	}
	return Unclassified
}

// ClassifyServiceError is Classify extended with the service-specific
// transient tokens, for systemctl-origin errors.
func ClassifyServiceError(msg string) Classification {
	lower := strings.ToLower(msg)
	if containsAny(lower, permanentTokens) {
		return Permanent
	}
	if containsAny(lower, transientTokens) || containsAny(lower, serviceTransientTokens) {
		return Transient
	}
	return Unclassified
}

func containsAny(haystack string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(haystack, t) {
			return true
		}
	}
	return false
}

// Schedule describes one backoff policy: a spacing, whether it grows
// exponentially, whether it is jittered, and a retry count (attempts =
// retries + 1).
type Schedule struct {
	Spacing     time.Duration
	Exponential bool
	Jittered    bool
	Retries     int
}

// The three canonical schedules named in spec §4.8.
var (
	Quick  = Schedule{Spacing: 100 * time.Millisecond, Exponential: false, Jittered: false, Retries: 3}
	System = Schedule{Spacing: 200 * time.Millisecond, Exponential: true, Jittered: true, Retries: 4}
	Heavy  = Schedule{Spacing: 500 * time.Millisecond, Exponential: true, Jittered: true, Retries: 3}
)

// delay computes the wait before the given retry attempt (1-indexed: the
// wait before the 1st retry, 2nd retry, ...).
func (s Schedule) delay(attempt int) time.Duration {
	d := s.Spacing
	if s.Exponential {
		d = s.Spacing * time.Duration(1<<uint(attempt-1))
	}
	if s.Jittered {
		d = jitter(d)
	}
	return d
}

func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return d
	}
	// +/- 25% jitter, matching the "jittered exponential" shape of the
	// System/Heavy schedules without letting a run of bad luck stampede.
	delta := time.Duration(rand.Int63n(int64(d) / 2))
	return d - d/4 + delta
}

// Op is a retryable unit of work. A nil error means success; a non-nil
// error is classified (via classify, defaulting to Classify) to decide
// whether to retry.
type Op func(ctx context.Context) error

// Do runs op under schedule, retrying on Transient/Unclassified failures
// and stopping immediately on Permanent ones. It returns the last error if
// every attempt fails.
func Do(ctx context.Context, schedule Schedule, classify func(string) Classification, op Op) error {
	if classify == nil {
		classify = Classify
	}

	var lastErr error
	for attempt := 0; attempt <= schedule.Retries; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if classify(err.Error()) == Permanent {
			return err
		}
		if attempt == schedule.Retries {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(schedule.delay(attempt + 1)):
		}
	}
	return lastErr
}

// Poll repeatedly calls check at a fixed interval until it returns true,
// the interval count reaches ceil(maxWait/interval) - 1 retries, or the
// context is cancelled. It returns true if check ever succeeded.
func Poll(ctx context.Context, interval, maxWait time.Duration, check func(ctx context.Context) (bool, error)) (bool, error) {
	maxRetries := int((maxWait+interval-1)/interval) - 1
	if maxRetries < 0 {
		maxRetries = 0
	}

	for attempt := 0; ; attempt++ {
		ok, err := check(ctx)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		if attempt >= maxRetries {
			return false, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(interval):
		}
	}
}
