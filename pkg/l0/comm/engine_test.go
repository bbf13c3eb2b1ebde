package comm

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testLink struct {
	isr   ISR
	armed int
	auto  bool
	sent  []byte
	lock  sync.Mutex
}

func (l *testLink) Attach(isr ISR) {
	l.isr = isr
}

func (l *testLink) ArmTransmit() {
	l.lock.Lock()
	l.armed++
	auto := l.auto
	l.lock.Unlock()
	if auto {
		l.drain(-1)
	}
}

func (l *testLink) drain(n int) int {
	var count int
	for ; n < 0 || count < n; count++ {
		b, ok := l.isr.OnTransmitReady()
		if !ok {
			break
		}
		l.lock.Lock()
		l.sent = append(l.sent, b)
		l.lock.Unlock()
	}
	return count
}

func (l *testLink) output() []byte {
	l.lock.Lock()
	defer l.lock.Unlock()
	out := l.sent
	l.sent = nil
	return out
}

type recorder struct {
	pkts []*Packet
	lock sync.Mutex
}

func (r *recorder) ExecutePacket(_ context.Context, pkt *Packet) {
	r.lock.Lock()
	r.pkts = append(r.pkts, pkt.Clone())
	r.lock.Unlock()
}

func (r *recorder) packets() []*Packet {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.pkts
}

func newTestEngine(t *testing.T, maxType PacketType) (*Engine, *recorder) {
	e, err := NewEngine(0)
	require.NoError(t, err)
	rec := &recorder{}
	e.Configure(Processors{Validator: lengthUpTo(MaxPayload), Executor: rec}, maxType)
	return e, rec
}

func feed(e *Engine, in ...[]byte) {
	for _, p := range in {
		for _, b := range p {
			e.OnByteReceived(b)
		}
	}
}

func encode(t *testing.T, typ PacketType, seq PacketSeq, data ...byte) []byte {
	b, err := (&Packet{Type: typ, Seq: seq, Data: data}).Bytes(nil)
	require.NoError(t, err)
	return b
}

func TestEngineConcreteFrame(t *testing.T) {
	e, rec := newTestEngine(t, 0x7f)
	feed(e, []byte{0xa5, 0x5a, 0x00, 0x07, 0x03, 0x01, 0x02, 0x03, 0x93, 0x29})
	require.Equal(t, 1, e.Pump(context.TODO()))
	require.Equal(t, []*Packet{{Type: 0, Seq: 7, Data: []byte{1, 2, 3}}}, rec.packets())
	require.Zero(t, e.Ring().Len())
	require.Equal(t, uint64(1), e.Stats().FramesReceived)
}

func TestEngineCorruptChecksumThenValid(t *testing.T) {
	e, rec := newTestEngine(t, 0x7f)
	bad := []byte{0xa5, 0x5a, 0x00, 0x07, 0x03, 0x01, 0x02, 0x03, 0x93, 0x29 ^ 0x01}
	feed(e, bad)
	require.Zero(t, e.Pump(context.TODO()))
	require.Empty(t, rec.packets())

	feed(e, encode(t, 1, 8, 4, 5))
	require.Equal(t, 1, e.Pump(context.TODO()))
	require.Equal(t, []*Packet{{Type: 1, Seq: 8, Data: []byte{4, 5}}}, rec.packets())
	stats := e.Stats()
	require.Equal(t, uint64(1), stats.ChecksumErrors)
	require.Equal(t, uint64(1), stats.FramesReceived)
}

func TestEngineRoundTrip(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	e, rec := newTestEngine(t, 0x7f)
	var expected []*Packet
	for _, length := range []int{0, 1, 2, 3, 7, 64, 199, MaxPayload} {
		for _, typ := range []PacketType{0, 1, 0x5a, 0x7f} {
			var data []byte
			if length > 0 {
				data = make([]byte, length)
				rnd.Read(data)
			}
			if length > 2 {
				data[length/2], data[length/2+1] = StartMarker1, StartMarker2
			}
			pkt := &Packet{Type: typ, Seq: PacketSeq(rnd.Intn(256)), Data: data}
			expected = append(expected, pkt)
			b, err := pkt.Bytes(nil)
			require.NoError(t, err)
			feed(e, b)
			require.Equal(t, 1, e.Pump(context.TODO()), "type=%d len=%d", typ, length)
		}
	}
	require.Equal(t, expected, rec.packets())
}

func TestEngineRoundTripBatched(t *testing.T) {
	e, rec := newTestEngine(t, 3)
	var expected []*Packet
	var stream []byte
	for i := 0; i < 4; i++ {
		pkt := &Packet{Type: PacketType(i), Seq: PacketSeq(i)}
		if i > 0 {
			pkt.Data = bytes.Repeat([]byte{byte(i)}, i*10)
		}
		expected = append(expected, pkt)
		stream = append(stream, encode(t, pkt.Type, pkt.Seq, pkt.Data...)...)
	}
	feed(e, stream)
	require.Equal(t, 4, e.Pump(context.TODO()))
	require.Equal(t, expected, rec.packets())
}

func TestEnginePayloadWithStartMarkers(t *testing.T) {
	e, rec := newTestEngine(t, 0x7f)
	data := []byte{0xa5, 0x5a, 0xa5, 0x5a, 0x00, 0x07, 0xa5}
	feed(e, encode(t, 2, 3, data...))
	require.Equal(t, 1, e.Pump(context.TODO()))
	require.Equal(t, []*Packet{{Type: 2, Seq: 3, Data: data}}, rec.packets())
	stats := e.Stats()
	require.Zero(t, stats.ChecksumErrors)
	require.Zero(t, stats.BadTypes)
	require.Zero(t, stats.BadLengths)
}

func TestEngineResyncBound(t *testing.T) {
	first := encode(t, 0, 7, 1, 2, 3)
	second := encode(t, 1, 8, 4, 5, 6, 7)
	padding := make([]byte, MaxFrameSize)
	for pos := range first {
		for bit := uint(0); bit < 8; bit++ {
			name := fmt.Sprintf("byte[%d]^bit[%d]", pos, bit)
			corrupted := append([]byte(nil), first...)
			corrupted[pos] ^= 1 << bit

			e, _ := newTestEngine(t, 0x7f)
			var dispatched []*Packet
			var parsedAt uint64
			e.Configure(Processors{
				Validator: lengthUpTo(MaxPayload),
				Executor: ExecuteFunc(func(_ context.Context, pkt *Packet) {
					dispatched = append(dispatched, pkt.Clone())
					parsedAt = e.Stats().BytesParsed
				}),
			}, 0x7f)
			feed(e, corrupted, second, padding)
			e.Pump(context.TODO())
			require.Equalf(t, []*Packet{{Type: 1, Seq: 8, Data: []byte{4, 5, 6, 7}}}, dispatched, "%s dispatch", name)
			require.Truef(t, parsedAt <= uint64(2*MaxFrameSize+len(second)),
				"%s resync took %d bytes", name, parsedAt)
		}
	}
}

func TestEngineNotConfigured(t *testing.T) {
	e, err := NewEngine(0)
	require.NoError(t, err)
	require.False(t, e.Configured())
	frame := encode(t, 0, 1)
	feed(e, frame)
	require.Zero(t, e.Pump(context.TODO()))
	require.Equal(t, len(frame), e.Ring().Len())

	rec := &recorder{}
	e.Configure(Processors{Validator: lengthUpTo(0), Executor: rec}, 0)
	require.True(t, e.Configured())
	require.Equal(t, 1, e.Pump(context.TODO()))
	require.Len(t, rec.packets(), 1)
}

func TestEngineReconfigureFromExecutor(t *testing.T) {
	e, err := NewEngine(0)
	require.NoError(t, err)
	second := &recorder{}
	e.Configure(Processors{
		Validator: lengthUpTo(0),
		Executor: ExecuteFunc(func(context.Context, *Packet) {
			e.Configure(Processors{Validator: lengthUpTo(1), Executor: second}, 9)
		}),
	}, 0)
	feed(e, encode(t, 0, 1), encode(t, 9, 2, 1))
	require.Equal(t, 2, e.Pump(context.TODO()))
	require.Equal(t, []*Packet{{Type: 9, Seq: 2, Data: []byte{1}}}, second.packets())
}

func TestEngineOverflow(t *testing.T) {
	e, err := NewEngine(MinRingCapacity)
	require.NoError(t, err)
	var signaled int
	e.Hooks.OnOverflow = func() { signaled++ }
	feed(e, make([]byte, MinRingCapacity+10))
	stats := e.Stats()
	require.Equal(t, uint64(11), stats.Overflows)
	require.Equal(t, uint64(MinRingCapacity+10), stats.BytesReceived)
	require.Equal(t, 11, signaled)
	require.Equal(t, MinRingCapacity-1, e.Ring().Len())
}

func TestEngineOverrunDropsFrame(t *testing.T) {
	e, err := NewEngine(MinRingCapacity)
	require.NoError(t, err)
	rec := &recorder{}
	e.Configure(Processors{Validator: lengthUpTo(MaxPayload), Executor: rec}, 0x7f)
	frame := encode(t, 1, 1, bytes.Repeat([]byte{0x11}, 100)...)

	feed(e, frame[:55])
	require.Zero(t, e.Pump(context.TODO()))
	require.Equal(t, 50, e.Ring().Len(), "payload kept as read-ahead")

	noise := bytes.Repeat([]byte{0x22}, MinRingCapacity-1-50-len(frame[55:])+10)
	feed(e, frame[55:], noise)
	require.Equal(t, uint64(10), e.Stats().Overflows)
	require.Zero(t, e.Pump(context.TODO()))
	require.Empty(t, rec.packets())
	require.Equal(t, uint64(1), e.Stats().Overruns)

	feed(e, encode(t, 2, 2, 9))
	require.Equal(t, 1, e.Pump(context.TODO()))
	require.Equal(t, []*Packet{{Type: 2, Seq: 2, Data: []byte{9}}}, rec.packets())
}

func TestEngineCorruptHooks(t *testing.T) {
	e, _ := newTestEngine(t, 1)
	var errs []error
	e.Hooks.OnCorrupt = func(err error) { errs = append(errs, err) }
	var frames int
	e.Hooks.OnFrame = func(*Packet) { frames++ }
	feed(e, []byte{0xa5, 0x5a, 0x05}, encode(t, 1, 1, 1))
	bad := encode(t, 1, 2)
	bad[len(bad)-1]++
	feed(e, bad)
	e.Pump(context.TODO())
	require.Equal(t, []error{ErrBadType, ErrChecksum}, errs)
	require.Equal(t, 1, frames)
	stats := e.Stats()
	require.Equal(t, uint64(1), stats.BadTypes)
	require.Equal(t, uint64(1), stats.ChecksumErrors)
}

func TestEngineSendFrame(t *testing.T) {
	e, err := NewEngine(0)
	require.NoError(t, err)
	require.Equal(t, ErrNoLink, e.SendFrame(context.TODO(), 1, nil))

	link := &testLink{auto: true}
	e.Attach(link)
	require.NoError(t, e.SendFrame(context.TODO(), 0, []byte{1, 2, 3}))
	require.NoError(t, e.SendFrame(context.TODO(), 1, nil))
	require.Equal(t, append(encode(t, 0, 0, 1, 2, 3), encode(t, 1, 1)...), link.output())
	require.False(t, e.Sending())

	require.Equal(t, ErrPayloadTooLarge, e.SendFrame(context.TODO(), 1, make([]byte, MaxPayload+1)))
	require.NoError(t, e.SendFrame(context.TODO(), 1, make([]byte, MaxPayload)))
	require.Len(t, link.output(), MaxFrameSize)
	require.Equal(t, uint64(3), e.Stats().FramesSent)
}

func TestEngineSendSequenceWraps(t *testing.T) {
	e, err := NewEngine(0)
	require.NoError(t, err)
	e.Attach(&testLink{auto: true})
	for i := 0; i < 300; i++ {
		pkt := NewPacket(0)
		require.NoError(t, e.Send(pkt))
		require.Equalf(t, PacketSeq(byte(i)), pkt.Seq, "seq[%d] mismatch", i)
	}
}

func TestEngineAtMostOneInFlight(t *testing.T) {
	e, err := NewEngine(0)
	require.NoError(t, err)
	link := &testLink{}
	e.Attach(link)

	first := []byte{0xa5, 0xa5, 1, 2, 3, 4, 5, 6}
	require.NoError(t, e.SendFrame(context.TODO(), 3, first))
	require.True(t, e.Sending())
	require.Equal(t, 1, link.armed)

	done := make(chan error, 1)
	go func() {
		done <- e.SendFrame(context.TODO(), 4, []byte{9, 9})
	}()
	require.Equal(t, 4, link.drain(4))
	select {
	case err := <-done:
		t.Fatalf("second frame started while first in flight: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
	link.drain(-1)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("second frame not started after drain")
	}
	link.drain(-1)
	require.Equal(t, append(encode(t, 3, 0, first...), encode(t, 4, 1, 9, 9)...), link.output())
	_, ok := e.OnTransmitReady()
	require.False(t, ok)
}

func TestEngineSendTimeout(t *testing.T) {
	e, err := NewEngine(0)
	require.NoError(t, err)
	e.Attach(&testLink{})
	e.SendTimeout = 20 * time.Millisecond
	require.NoError(t, e.Send(NewPacket(1)))
	require.Equal(t, ErrSendTimeout, e.Send(NewPacket(2)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Equal(t, context.Canceled, e.SendFrame(ctx, 1, nil))
}

func TestDeferredOutsideLoop(t *testing.T) {
	rec := &recorder{}
	d := &Deferred{Executor: rec}
	d.ExecutePacket(context.TODO(), NewPacket(1, 2))
	require.Equal(t, []*Packet{{Type: 1, Data: []byte{2}}}, rec.packets())
}
