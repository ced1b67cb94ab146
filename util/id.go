package util

import "sync/atomic"

var _id uint64

// NextID generates the next unique identifier (unique for the lifetime of
// the running process, not recycled across restarts). Safe to call from
// multiple goroutines at once; callers rely only on uniqueness, not on
// any ordering relative to other events.
func NextID() uint64 {
	return atomic.AddUint64(&_id, 1)
}
