package clock

import "time"

// runtimeClock is the portable fallback: it anchors process start against
// time.Now() once and derives subsequent readings from time.Since, which
// Go guarantees is monotonic regardless of wall-clock adjustments.
type runtimeClock struct{}

var processStart = time.Now()

func (runtimeClock) NowMs() int64 {
	return time.Since(processStart).Milliseconds()
}

func fallbackNowMs() int64 {
	return runtimeClock{}.NowMs()
}
