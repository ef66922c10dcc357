package lifecycle

import "time"

// Clock supplies wall time so staleness checks can be pinned in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
