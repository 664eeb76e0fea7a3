package lifecycle

import "time"

// Clock abstracts time so the polling loop and the refetch cascade can run
// deterministically under test.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// SystemClock returns the wall-clock implementation used outside tests.
func SystemClock() Clock { return systemClock{} }
