package comm

import "sync"

// MinRingCapacity holds one frame being parsed plus a full frame burst.
const MinRingCapacity = 2*MaxFrameSize + 1

// DefaultRingCapacity is used when a capacity is not specified.
const DefaultRingCapacity = 512

// Ring is the receive ring buffer between the link's receive path
// (producer) and the parser (consumer).
//
// Bytes between head and cursor have been read ahead but not committed,
// bytes between cursor and tail are unread. head == tail means empty,
// so at most Cap()-1 bytes are held. When the producer catches up with
// head the oldest byte is discarded and counted as an overflow.
type Ring struct {
	// OnOverflow is called from Push after a byte is discarded.
	OnOverflow func()

	buf       []byte
	head      int
	cursor    int
	tail      int
	overflows uint64
	spoiled   bool
	lock      sync.Mutex
}

// NewRing creates a Ring with the given capacity.
func NewRing(capacity int) (*Ring, error) {
	if capacity < MinRingCapacity {
		return nil, &CapacityError{Capacity: capacity}
	}
	return &Ring{buf: make([]byte, capacity)}, nil
}

// Cap returns the capacity.
func (r *Ring) Cap() int {
	return len(r.buf)
}

// Len returns the number of bytes not yet committed.
func (r *Ring) Len() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.distance(r.head, r.tail)
}

// Unread returns the number of bytes after the cursor.
func (r *Ring) Unread() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.distance(r.cursor, r.tail)
}

// Overflows returns the number of discarded bytes.
func (r *Ring) Overflows() uint64 {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.overflows
}

// Push appends a byte. It returns false if the oldest byte was discarded.
func (r *Ring) Push(b byte) bool {
	r.lock.Lock()
	r.buf[r.tail] = b
	r.tail = r.advance(r.tail, 1)
	overflow := r.tail == r.head
	if overflow {
		if r.cursor == r.head {
			r.cursor = r.advance(r.cursor, 1)
		} else {
			r.spoiled = true
		}
		r.head = r.advance(r.head, 1)
		r.overflows++
	}
	r.lock.Unlock()
	if overflow && r.OnOverflow != nil {
		r.OnOverflow()
	}
	return !overflow
}

// Next reads the byte at the cursor and advances the cursor.
func (r *Ring) Next() (b byte, ok bool) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.cursor == r.tail {
		return 0, false
	}
	b, r.cursor = r.buf[r.cursor], r.advance(r.cursor, 1)
	return b, true
}

// Commit discards everything before the cursor.
func (r *Ring) Commit() {
	r.lock.Lock()
	r.head, r.spoiled = r.cursor, false
	r.lock.Unlock()
}

// Rewind moves the cursor back to head so read-ahead bytes are read again.
func (r *Ring) Rewind() {
	r.lock.Lock()
	r.cursor, r.spoiled = r.head, false
	r.lock.Unlock()
}

// Take copies len(dst) read-ahead bytes starting at head into dst and
// commits up to the cursor. It returns false without committing if an
// overflow dropped read-ahead bytes since the last Commit or Rewind.
func (r *Ring) Take(dst []byte) bool {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.spoiled || len(dst) > r.distance(r.head, r.cursor) {
		return false
	}
	n := copy(dst, r.buf[r.head:])
	if n < len(dst) {
		copy(dst[n:], r.buf)
	}
	r.head = r.cursor
	return true
}

// PopIfAvailable removes and returns the byte at head.
func (r *Ring) PopIfAvailable() (b byte, ok bool) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.head == r.tail {
		return 0, false
	}
	if r.cursor == r.head {
		r.cursor = r.advance(r.cursor, 1)
	}
	b, r.head = r.buf[r.head], r.advance(r.head, 1)
	return b, true
}

// Reset drops all bytes. The overflow counter is kept.
func (r *Ring) Reset() {
	r.lock.Lock()
	r.head, r.cursor, r.spoiled = r.tail, r.tail, false
	r.lock.Unlock()
}

func (r *Ring) advance(i, n int) int {
	return (i + n) % len(r.buf)
}

func (r *Ring) distance(from, to int) int {
	return (to - from + len(r.buf)) % len(r.buf)
}
