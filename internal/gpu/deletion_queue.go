package gpu

// DeletionQueue defers GPU resource destruction until the frame that
// referenced it is guaranteed to have finished executing, avoiding a
// vkDeviceWaitIdle stall on every resize/hot-reload. Grounded on
// internal/openglhelper/buffer.go's TripleBuffer.Cleanup deferred-delete
// shape, generalized from "delete at shutdown" to a frame-lagged ring:
// an entry queued on frame N is only safe to run once frame
// N+FramesInFlight begins.
type DeletionQueue struct {
	pending [FramesInFlight][]func()
	frame   int
}

// Push schedules fn to run once the current frame's in-flight window has
// fully retired (FramesInFlight frames from now).
func (q *DeletionQueue) Push(fn func()) {
	q.pending[q.frame] = append(q.pending[q.frame], fn)
}

// Advance runs every deletion queued FramesInFlight frames ago for the slot
// about to be reused, then clears it. Call once per frame, before
// recording that frame's command buffer.
func (q *DeletionQueue) Advance() {
	q.frame = (q.frame + 1) % FramesInFlight
	fns := q.pending[q.frame]
	for _, fn := range fns {
		fn()
	}
	q.pending[q.frame] = fns[:0]
}

// Flush runs every still-pending deletion immediately, regardless of frame
// lag. Only safe once the device is idle (shutdown path).
func (q *DeletionQueue) Flush() {
	for i := range q.pending {
		for _, fn := range q.pending[i] {
			fn()
		}
		q.pending[i] = nil
	}
}
