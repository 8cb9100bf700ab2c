package reactor

import "sync"

// errorRing retains the most recent errors in arrival order. A nil ring is
// valid and retains nothing, which keeps the disabled path branch-free for
// callers.
type errorRing struct {
	mu    sync.RWMutex
	buf   []error
	next  int
	count int
}

// newErrorRing creates a ring retaining up to size errors. Size 0 or less
// disables retention and returns nil.
func newErrorRing(size int) *errorRing {
	if size <= 0 {
		return nil
	}
	return &errorRing{buf: make([]error, size)}
}

func (r *errorRing) push(err error) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buf[r.next] = err
	r.next = (r.next + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
}

func (r *errorRing) clear() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.buf {
		r.buf[i] = nil
	}
	r.next = 0
	r.count = 0
}

// all returns the retained errors, oldest first, or nil when empty.
func (r *errorRing) all() []error {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.count == 0 {
		return nil
	}
	out := make([]error, 0, r.count)
	start := (r.next - r.count + len(r.buf)) % len(r.buf)
	for i := 0; i < r.count; i++ {
		out = append(out, r.buf[(start+i)%len(r.buf)])
	}
	return out
}
