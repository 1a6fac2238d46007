package solver

import "time"

// Clock - time source of the search. Tests replace it to make time cutoffs deterministic.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// deadline - time budget of one search.
type deadline struct {
	clock Clock
	start time.Time
	limit time.Duration
}

func newDeadline(clock Clock, limit time.Duration) deadline {
	return deadline{
		clock: clock,
		start: clock.Now(),
		limit: limit,
	}
}

func (that deadline) elapsed() time.Duration {
	return that.clock.Now().Sub(that.start)
}

func (that deadline) expired() bool {
	return that.elapsed() > that.limit
}

// nearlyExpired - 90% of the budget is spent; no new depth is started after this point.
func (that deadline) nearlyExpired() bool {
	return that.elapsed() > that.limit*9/10
}
