package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"google.golang.org/api/googleapi"

	"github.com/tescaelements/mashgiach/backend/internal/metrics"
)

// defaultBackoffBase is one backoff "time unit". Attempt n sleeps
// base * 2^n before retrying, so the default schedule is 1s, 2s, 4s, ...
const defaultBackoffBase = time.Second

// EndpointFailure is the terminal outcome of an exhausted or aborted
// invocation. Transient marks quota/rate-limit failures, the only class the
// selector escalates to the fallback endpoint.
type EndpointFailure struct {
	Endpoint  string
	Transient bool
	Attempts  int
	Err       error
}

func (f *EndpointFailure) Error() string {
	kind := "permanent"
	if f.Transient {
		kind = "transient"
	}
	return "endpoint " + f.Endpoint + " failed (" + kind + "): " + f.Err.Error()
}

func (f *EndpointFailure) Unwrap() error { return f.Err }

// isTransient classifies a call failure. Gemini does not return a structured
// code on every path, so alongside the googleapi status we pattern-match the
// error text for quota/rate-limit signatures.
func isTransient(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if gerr.Code == 429 {
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "quota") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "resource_exhausted") ||
		strings.Contains(msg, "resource exhausted") ||
		strings.Contains(msg, "429")
}

// RetryController wraps a single endpoint invocation with bounded retries
// and exponential backoff. Only transient failures are retried; permanent
// ones surface immediately. The final permitted attempt surfaces its failure
// instead of sleeping again.
type RetryController struct {
	backoffBase time.Duration
	// sleep is injectable so tests can observe the schedule instead of
	// waiting it out. It must honor ctx cancellation.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewRetryController() *RetryController {
	return &RetryController{
		backoffBase: defaultBackoffBase,
		sleep:       sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Invoke calls the endpoint up to maxAttempts times. It returns the raw
// model text, or an *EndpointFailure, or the context error when the caller
// cancelled mid-flight (cancellation skips remaining retries).
func (r *RetryController) Invoke(ctx context.Context, ep ModelEndpoint, parts []Part, maxAttempts int) (string, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		out, err := ep.Generate(ctx, parts)
		if err == nil {
			if attempt > 0 {
				infoLog("Endpoint %s succeeded on attempt %d/%d", ep.Name(), attempt+1, maxAttempts)
			}
			return out, nil
		}

		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		if !isTransient(err) {
			return "", &EndpointFailure{Endpoint: ep.Name(), Transient: false, Attempts: attempt + 1, Err: err}
		}

		if attempt == maxAttempts-1 {
			infoLog("Endpoint %s exhausted %d attempts: %v", ep.Name(), maxAttempts, err)
			return "", &EndpointFailure{Endpoint: ep.Name(), Transient: true, Attempts: maxAttempts, Err: err}
		}

		delay := r.backoffBase << attempt
		infoLog("Endpoint %s rate-limited (attempt %d/%d), retrying in %v", ep.Name(), attempt+1, maxAttempts, delay)
		metrics.InferenceRetriesTotal.WithLabelValues(ep.Name()).Inc()
		if err := r.sleep(ctx, delay); err != nil {
			return "", err
		}
	}

	// Unreachable: the loop always returns.
	return "", &EndpointFailure{Endpoint: ep.Name(), Transient: true, Attempts: maxAttempts, Err: errors.New("retries exhausted")}
}
