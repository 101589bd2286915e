package printer

import "sync/atomic"

// Latch is a single exclusive-access flag. A second acquirer fails
// immediately instead of waiting.
type Latch struct {
	busy atomic.Bool
}

// TryAcquire sets the latch and reports whether the caller now owns it
func (l *Latch) TryAcquire() bool {
	return l.busy.CompareAndSwap(false, true)
}

// Release clears the latch
func (l *Latch) Release() {
	l.busy.Store(false)
}

// Busy reports whether the latch is held
func (l *Latch) Busy() bool {
	return l.busy.Load()
}
