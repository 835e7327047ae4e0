package clock

import (
	"context"
	"time"
)

type key string

var asOfKey key = "as_of"

// WithAsOf pins SystemClock.Now for everything running under ctx. The scheduler CLI
// uses it to replay a run as if it had happened at t.
func WithAsOf(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, asOfKey, t.UTC())
}

func asOfFromContext(ctx context.Context) (time.Time, bool) {
	if ctx == nil {
		return time.Time{}, false
	}
	t, ok := ctx.Value(asOfKey).(time.Time)
	return t, ok
}
