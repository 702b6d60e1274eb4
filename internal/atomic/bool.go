package atomic

import "sync/atomic"

// AtomicBool is set while true, zero while false.
type AtomicBool int32

func (b *AtomicBool) Set(v bool) {
	if v {
		atomic.StoreInt32((*int32)(b), 1)
		return
	}
	atomic.StoreInt32((*int32)(b), 0)
}

func (b *AtomicBool) Value() bool {
	return atomic.LoadInt32((*int32)(b)) == 1
}

// CAS flips the flag from old to new and reports whether it did.
func (b *AtomicBool) CAS(old, new bool) bool {
	var o, n int32
	if old {
		o = 1
	}
	if new {
		n = 1
	}
	return atomic.CompareAndSwapInt32((*int32)(b), o, n)
}
