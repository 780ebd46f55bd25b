package metrics

// ring is a fixed-capacity FIFO; pushing into a full ring drops the oldest item.
type ring[T any] struct {
	buf   []T
	start int
	n     int
}

func newRing[T any](capacity int) *ring[T] {
	return &ring[T]{buf: make([]T, capacity)}
}

func (r *ring[T]) push(v T) {
	if len(r.buf) == 0 {
		return
	}
	if r.n < len(r.buf) {
		r.buf[(r.start+r.n)%len(r.buf)] = v
		r.n++
		return
	}
	r.buf[r.start] = v
	r.start = (r.start + 1) % len(r.buf)
}

// each visits items oldest first until fn returns false.
func (r *ring[T]) each(fn func(T) bool) {
	for i := 0; i < r.n; i++ {
		if !fn(r.buf[(r.start+i)%len(r.buf)]) {
			return
		}
	}
}

// reverse visits items newest first until fn returns false.
func (r *ring[T]) reverse(fn func(T) bool) {
	for i := r.n - 1; i >= 0; i-- {
		if !fn(r.buf[(r.start+i)%len(r.buf)]) {
			return
		}
	}
}

func (r *ring[T]) items() []T {
	out := make([]T, 0, r.n)
	r.each(func(v T) bool {
		out = append(out, v)
		return true
	})
	return out
}

func (r *ring[T]) len() int { return r.n }

func (r *ring[T]) reset() {
	clear(r.buf)
	r.start, r.n = 0, 0
}
