package timex

import "time"

// NowMs returns Unix milliseconds as int64.
func NowMs() int64 { return time.Now().UnixMilli() }

// TicksPer returns how many whole ticks fit in one frame.
// A non-positive tick or a frame shorter than one tick yields 1.
func TicksPer(frame, tick time.Duration) int {
	if tick <= 0 {
		return 1
	}
	n := int(frame / tick)
	if n < 1 {
		return 1
	}
	return n
}

// Seconds converts a float number of seconds, as found in config files, to a Duration.
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
