package slave

import "sync/atomic"

// Ring is a single-producer/single-consumer queue of I2C messages. The
// producer is the bus receive callback, the consumer is the main loop; no
// lock is taken on either side.
type Ring struct {
	slots   [][]byte
	mask    uint32
	head    atomic.Uint32 // written by producer only
	tail    atomic.Uint32 // written by consumer only
	dropped atomic.Uint32
}

// NewRing allocates capacity slots (rounded up to a power of two) of
// msgLen bytes each, so that Put never allocates.
func NewRing(capacity, msgLen int) *Ring {
	n := 1
	for n < capacity {
		n <<= 1
	}
	slots := make([][]byte, n)
	for i := range slots {
		slots[i] = make([]byte, 0, msgLen)
	}
	return &Ring{slots: slots, mask: uint32(n - 1)}
}

// Put copies msg into the queue. It returns false and counts a drop when
// the queue is full; msg longer than a slot is truncated to the slot size.
func (r *Ring) Put(msg []byte) bool {
	head := r.head.Load()
	if head-r.tail.Load() > r.mask {
		r.dropped.Add(1)
		return false
	}
	slot := r.slots[head&r.mask]
	if len(msg) > cap(slot) {
		msg = msg[:cap(slot)]
	}
	r.slots[head&r.mask] = append(slot[:0], msg...)
	r.head.Store(head + 1)
	return true
}

// Get copies the oldest message into dst (reusing its storage).
func (r *Ring) Get(dst []byte) ([]byte, bool) {
	tail := r.tail.Load()
	if tail == r.head.Load() {
		return dst, false
	}
	dst = append(dst[:0], r.slots[tail&r.mask]...)
	r.tail.Store(tail + 1)
	return dst, true
}

// Len is the number of queued messages.
func (r *Ring) Len() int {
	return int(r.head.Load() - r.tail.Load())
}

// Dropped is the number of messages lost to a full queue.
func (r *Ring) Dropped() uint32 {
	return r.dropped.Load()
}
