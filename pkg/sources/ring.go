// ABOUTME: Bounded float32 sample ring shared by a network reader and the audio thread
// ABOUTME: Writers block while full; readers never block and see close once drained
package sources

import "sync"

type ring struct {
	mu      sync.Mutex
	space   *sync.Cond
	buffer  []float32
	readPos int
	count   int
	closed  bool
}

func newRing(capacity int) *ring {
	r := &ring{buffer: make([]float32, capacity)}
	r.space = sync.NewCond(&r.mu)
	return r
}

// Write copies all of samples in, waiting for space as needed. It returns
// early with the count written if the ring is closed.
func (r *ring) Write(samples []float32) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	written := 0
	for written < len(samples) {
		for r.count == len(r.buffer) && !r.closed {
			r.space.Wait()
		}
		if r.closed {
			break
		}

		writePos := (r.readPos + r.count) % len(r.buffer)
		n := min(len(samples)-written, len(r.buffer)-r.count, len(r.buffer)-writePos)
		copy(r.buffer[writePos:writePos+n], samples[written:written+n])
		r.count += n
		written += n
	}
	return written
}

// Read copies up to len(dst) samples out without waiting
func (r *ring) Read(dst []float32) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.take(dst, len(dst))
}

// Discard drops up to n samples
func (r *ring) Discard(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.take(nil, n)
}

func (r *ring) take(dst []float32, want int) int {
	done := 0
	for done < want && r.count > 0 {
		n := min(want-done, r.count, len(r.buffer)-r.readPos)
		if dst != nil {
			copy(dst[done:done+n], r.buffer[r.readPos:r.readPos+n])
		}
		r.readPos = (r.readPos + n) % len(r.buffer)
		r.count -= n
		done += n
	}
	if done > 0 {
		r.space.Broadcast()
	}
	return done
}

// Available returns the number of buffered samples
func (r *ring) Available() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Close wakes blocked writers. Buffered samples stay readable.
func (r *ring) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.space.Broadcast()
}

// Drained reports whether the ring is closed and empty
func (r *ring) Drained() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed && r.count == 0
}
