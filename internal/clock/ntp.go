package clock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/beevik/ntp"
	"github.com/sethvargo/go-retry"
)

// NTPSource measures the clock offset with SNTP queries.
type NTPSource struct {
	// Timeout bounds a single query.
	Timeout time.Duration
	// Retries is the number of extra attempts after the first failed query.
	Retries uint64
	// Backoff is the delay before the first retry.
	Backoff time.Duration

	query func(host string, opt ntp.QueryOptions) (*ntp.Response, error)
}

// NewNTPSource creates an NTP source with the given per-query timeout and
// retry count.
func NewNTPSource(timeout time.Duration, retries uint64) *NTPSource {
	return &NTPSource{
		Timeout: timeout,
		Retries: retries,
		Backoff: 250 * time.Millisecond,
		query:   ntp.QueryWithOptions,
	}
}

// Offset queries host and returns how far local time is behind it.
func (n *NTPSource) Offset(ctx context.Context, host string) (time.Duration, error) {
	b := retry.NewExponential(n.Backoff)
	b = retry.WithMaxRetries(n.Retries, b)

	var offset time.Duration
	attempt := 0
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		resp, err := n.query(host, ntp.QueryOptions{Timeout: n.Timeout})
		if err != nil {
			slog.Debug("clock: ntp query failed", "host", host, "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		if err := resp.Validate(); err != nil {
			slog.Debug("clock: ntp response rejected", "host", host, "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		offset = resp.ClockOffset
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrSync, host, err)
	}
	return offset, nil
}
