// Package clock provides the single monotonic time source shared by the
// store's passive-expiry check and the evictor's active-expiry loop.
package clock

// Clock returns the current time as milliseconds on a monotonic scale.
// Store and Evictor must be constructed with the same Clock so that an
// expires_at computed by one is comparable to a now reading taken by the
// other.
type Clock interface {
	NowMs() int64
}

// New returns the platform default Clock.
func New() Clock {
	return newMonotonic()
}
