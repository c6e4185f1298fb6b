package monitor

// ring is a fixed-capacity sliding window. Pushing onto a full ring evicts
// the oldest element. Not safe for concurrent use; the monitor guards it with
// its own mutex.
type ring[T any] struct {
	buf  []T
	head int // index of the oldest element
	size int
}

func newRing[T any](capacity int) *ring[T] {
	return &ring[T]{buf: make([]T, capacity)}
}

// push appends v, evicting the oldest element when the ring is full.
func (r *ring[T]) push(v T) {
	if r.size < len(r.buf) {
		r.buf[(r.head+r.size)%len(r.buf)] = v
		r.size++
		return
	}
	r.buf[r.head] = v
	r.head = (r.head + 1) % len(r.buf)
}

func (r *ring[T]) len() int { return r.size }

// snapshot returns the retained elements oldest first.
func (r *ring[T]) snapshot() []T {
	out := make([]T, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.buf[(r.head+i)%len(r.buf)]
	}
	return out
}

// tail returns the newest n elements (fewer if the ring holds fewer), oldest
// first within the returned slice.
func (r *ring[T]) tail(n int) []T {
	if n > r.size {
		n = r.size
	}
	out := make([]T, n)
	start := r.size - n
	for i := 0; i < n; i++ {
		out[i] = r.buf[(r.head+start+i)%len(r.buf)]
	}
	return out
}

// headSlice returns the oldest n elements (fewer if the ring holds fewer).
func (r *ring[T]) headSlice(n int) []T {
	if n > r.size {
		n = r.size
	}
	out := make([]T, n)
	for i := 0; i < n; i++ {
		out[i] = r.buf[(r.head+i)%len(r.buf)]
	}
	return out
}
