package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// clock stamps Dataset.LoadedAt and is swappable for tests.
var clock clockwork.Clock = clockwork.NewRealClock()

// SetClock replaces the dataset timestamp source. nil restores the real clock.
func SetClock(c clockwork.Clock) {
	if c == nil {
		c = clockwork.NewRealClock()
	}
	clock = c
}

// Now reports the current time according to the package clock.
func Now() time.Time {
	return clock.Now()
}
