package buildinfo

import (
	"context"
	"fmt"
	"time"

	"github.com/khulnasoft/ml-workspace/internal/command"
)

// Layout of build timestamps passed to image builds (ISO-8601, UTC,
// second precision).
const DateLayout = "2006-01-02T15:04:05Z"

// Formats t as a build timestamp in UTC.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// Reads the current UTC time from the system date(1) utility.
type DateClock struct {
	Runner command.Runner
}

// Returns the time reported by `date -u`.
func (d *DateClock) Now(ctx context.Context) (time.Time, error) {
	out, err := d.Runner.Output(ctx, "date", "-u", "+%Y-%m-%dT%H:%M:%SZ")
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", ErrClock, err)
	}

	t, err := time.Parse(DateLayout, out)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", ErrClock, err)
	}
	return t.UTC(), nil
}
