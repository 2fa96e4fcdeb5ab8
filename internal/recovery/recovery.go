// Package recovery provides a bounded retry-and-reconnect guard for calls
// to the retrieval-context service. Only connectivity-flavored failures are
// retried; everything else propagates unchanged.
package recovery

import (
	"context"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"
)

// connectivitySubstrings mark an error as a transient connectivity failure.
var connectivitySubstrings = []string{"timeout", "connection", "connect"}

// IsConnectivityError classifies an error by inspecting its message for
// connection-related symptoms.
func IsConnectivityError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, s := range connectivitySubstrings {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// Policy is an explicit retry policy applied at the call site: a bounded
// attempt budget, a classifier deciding which failures are transient, and a
// recovery probe run between attempts.
type Policy struct {
	// MaxAttempts caps total attempts, including the first.
	MaxAttempts int

	// Classify reports whether an error is transient and worth retrying.
	// Defaults to IsConnectivityError.
	Classify func(error) bool

	// Probe checks that the backing service is reachable again before the
	// next attempt. Probe failures are logged but do not consume attempts;
	// the retried call decides whether the service is actually back.
	Probe func(ctx context.Context) error

	// Disabled makes the policy a pass-through with no retry, for
	// environments where the service is known unavailable and callers
	// should degrade instead of blocking on retries.
	Disabled bool

	Logger *slog.Logger
}

// Do executes fn under the policy and returns its result transparently.
func Do[T any](ctx context.Context, p Policy, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	if p.Disabled {
		out, err := fn(ctx)
		if err != nil && p.Logger != nil {
			p.Logger.WarnContext(ctx, "guarded call failed with recovery disabled", "error", err)
		}
		return out, err
	}

	classify := p.Classify
	if classify == nil {
		classify = IsConnectivityError
	}
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if attempt == attempts || !classify(err) {
			return zero, err
		}

		if p.Logger != nil {
			p.Logger.WarnContext(ctx, "transient failure, probing before retry",
				"attempt", attempt, "max_attempts", attempts, "error", err)
		}
		if p.Probe != nil {
			if probeErr := p.Probe(ctx); probeErr != nil && p.Logger != nil {
				p.Logger.WarnContext(ctx, "recovery probe failed", "error", probeErr)
			}
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
	}
	return zero, lastErr
}

// TCPProbe returns a probe that checks TCP reachability of host:port with
// the given dial timeout.
func TCPProbe(host string, port int, timeout time.Duration) func(context.Context) error {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	return func(ctx context.Context) error {
		d := net.Dialer{Timeout: timeout}
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return err
		}
		return conn.Close()
	}
}
