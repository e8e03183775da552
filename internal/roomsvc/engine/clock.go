package engine

import "time"

// Clock supplies the timestamp every room action is judged against.
// Seconds resolution is all the window checks need.
type Clock interface {
	Now() int64
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() int64 { return time.Now().Unix() }
