package comm

import (
	"context"
	"sync"
)

// transmitter owns the single transmit buffer.
// The idle channel holds a token while no frame is in flight, sendFrame
// takes it and the drain of the last byte puts it back.
type transmitter struct {
	buf    [MaxFrameSize]byte
	length int
	cursor int
	seq    PacketSeq
	idle   chan struct{}
	lock   sync.Mutex
}

func newTransmitter() *transmitter {
	t := &transmitter{idle: make(chan struct{}, 1)}
	t.idle <- struct{}{}
	return t
}

func (t *transmitter) acquire(ctx context.Context) error {
	select {
	case <-t.idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *transmitter) release() {
	t.idle <- struct{}{}
}

// load must be called with the token held.
func (t *transmitter) load(pkt *Packet, cs Checksum) error {
	t.lock.Lock()
	defer t.lock.Unlock()
	pkt.Seq = t.seq
	frame, err := pkt.AppendTo(t.buf[:0], cs)
	if err != nil {
		return err
	}
	t.length, t.cursor = len(frame), 0
	t.seq = t.seq.Next()
	return nil
}

func (t *transmitter) next() (byte, bool) {
	t.lock.Lock()
	if t.cursor >= t.length {
		t.lock.Unlock()
		return 0, false
	}
	b := t.buf[t.cursor]
	t.cursor++
	drained := t.cursor >= t.length
	t.lock.Unlock()
	if drained {
		t.release()
	}
	return b, true
}

func (t *transmitter) busy() bool {
	return len(t.idle) == 0
}
