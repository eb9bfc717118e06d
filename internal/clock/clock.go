package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock abstracts wall time so long-running loops can be tested.
type Clock interface {
	Now() time.Time
	// After mirrors time.After so polling loops sleep through the
	// clock instead of the wall.
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func NewSystemClock() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

func (systemClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

var Module = fx.Module("clock",
	fx.Provide(NewSystemClock),
)
