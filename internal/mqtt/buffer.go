package mqtt

import "log"

// bufferedMsg is a publish held back while the broker is unreachable.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// ringBuffer keeps the most recent messages up to capacity, oldest first.
// Callers must hold RealPublisher.mu.
type ringBuffer struct {
	items    []bufferedMsg
	capacity int
	next     int // slot the next push writes
	count    int
	dropped  int // messages overwritten since the last drain
}

func newRingBuffer(capacity int) *ringBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &ringBuffer{
		items:    make([]bufferedMsg, capacity),
		capacity: capacity,
	}
}

func (r *ringBuffer) push(msg bufferedMsg) {
	if r.count == r.capacity {
		if r.dropped == 0 {
			log.Printf("mqtt: offline buffer full (%d messages), dropping oldest", r.capacity)
		}
		r.dropped++
	} else {
		r.count++
	}
	r.items[r.next] = msg
	r.next = (r.next + 1) % r.capacity
}

// drainAll returns the buffered messages in publish order and empties the
// buffer. It returns nil when nothing is buffered.
func (r *ringBuffer) drainAll() []bufferedMsg {
	if r.count == 0 {
		return nil
	}
	if r.dropped > 0 {
		log.Printf("mqtt: %d buffered messages were dropped while offline", r.dropped)
	}

	out := make([]bufferedMsg, 0, r.count)
	first := (r.next - r.count + r.capacity) % r.capacity
	for i := 0; i < r.count; i++ {
		out = append(out, r.items[(first+i)%r.capacity])
	}

	r.items = make([]bufferedMsg, r.capacity)
	r.count, r.next, r.dropped = 0, 0, 0
	return out
}

func (r *ringBuffer) len() int {
	return r.count
}
