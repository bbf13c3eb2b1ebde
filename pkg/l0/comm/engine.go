package comm

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/polylink/pkg/framework"
)

// ISR is the interrupt side of the engine, called by a Link.
type ISR interface {
	// OnByteReceived stores a received byte, it never blocks.
	OnByteReceived(b byte)
	// OnTransmitReady returns the next byte to transmit, false when the
	// transmit buffer is exhausted and transmit-ready signaling should stop.
	OnTransmitReady() (byte, bool)
}

// Link is the byte transport under an Engine.
type Link interface {
	// Attach binds the link to the engine.
	Attach(ISR)
	// ArmTransmit enables transmit-ready signaling. The link calls
	// OnTransmitReady until it returns false.
	ArmTransmit()
}

// Hooks observes engine events. Hooks must be set before the engine runs
// and must not block.
type Hooks struct {
	OnFrame    func(*Packet)
	OnCorrupt  func(error)
	OnOverflow func()
	OnSent     func(*Packet)
}

// Stats is a snapshot of engine counters.
type Stats struct {
	BytesReceived  uint64
	BytesParsed    uint64
	Overflows      uint64
	FramesReceived uint64
	FramesSent     uint64
	BadTypes       uint64
	BadLengths     uint64
	ChecksumErrors uint64
	Overruns       uint64
}

type counters struct {
	bytesReceived  uint64
	bytesParsed    uint64
	framesReceived uint64
	framesSent     uint64
	badTypes       uint64
	badLengths     uint64
	checksumErrors uint64
	overruns       uint64
}

// Engine is the protocol engine: receive ring, parser, dispatcher and
// transmitter of one link.
type Engine struct {
	// Checksum is used by both parsing and sending, defaults to CRCCCITT.
	Checksum Checksum
	// SendTimeout bounds Send waiting for the previous frame, 0 waits forever.
	SendTimeout time.Duration
	Hooks       Hooks

	ring       *Ring
	parser     Parser
	dispatcher Dispatcher
	tx         *transmitter
	staging    [MaxPayload]byte
	counters   counters

	link     Link
	notify   func()
	linkLock sync.RWMutex
	pumpLock sync.Mutex
}

// NewEngine creates an engine with a receive ring of given capacity.
// Capacity 0 means DefaultRingCapacity.
func NewEngine(capacity int) (*Engine, error) {
	if capacity == 0 {
		capacity = DefaultRingCapacity
	}
	ring, err := NewRing(capacity)
	if err != nil {
		return nil, err
	}
	e := &Engine{ring: ring, tx: newTransmitter()}
	ring.OnOverflow = e.overflowed
	return e, nil
}

// Ring exposes the receive ring.
func (e *Engine) Ring() *Ring {
	return e.ring
}

// Attach binds the engine to a link.
func (e *Engine) Attach(link Link) *Engine {
	e.linkLock.Lock()
	e.link = link
	e.linkLock.Unlock()
	link.Attach(e)
	return e
}

// Link returns the attached link.
func (e *Engine) Link() Link {
	e.linkLock.RLock()
	defer e.linkLock.RUnlock()
	return e.link
}

// Configure installs the packet processor used for all frames parsed
// afterwards. It is safe to call from an Executor.
func (e *Engine) Configure(proc Processor, maxType PacketType) {
	e.dispatcher.Configure(proc, maxType)
	glog.V(2).Infof("packet processor configured, max type %d", maxType)
}

// Configured tells whether a packet processor is installed.
func (e *Engine) Configured() bool {
	_, _, ok := e.dispatcher.Config()
	return ok
}

// OnByteReceived implements ISR.
func (e *Engine) OnByteReceived(b byte) {
	atomic.AddUint64(&e.counters.bytesReceived, 1)
	e.ring.Push(b)
	e.linkLock.RLock()
	notify := e.notify
	e.linkLock.RUnlock()
	if notify != nil {
		notify()
	}
}

// OnTransmitReady implements ISR.
func (e *Engine) OnTransmitReady() (byte, bool) {
	return e.tx.next()
}

// Pump parses all bytes available and dispatches verified frames. It
// returns the number of frames dispatched. Without a configured processor
// it leaves received bytes in the ring. Pump must not be called from an
// Executor.
func (e *Engine) Pump(ctx context.Context) (n int) {
	e.pumpLock.Lock()
	defer e.pumpLock.Unlock()
	proc, ok := e.setupParser()
	if !ok {
		return
	}
	for {
		b, ok := e.ring.Next()
		if !ok {
			return
		}
		atomic.AddUint64(&e.counters.bytesParsed, 1)
		pr := e.parser.Parse(b)
		if pr.Err != nil {
			e.corrupted(pr.Err)
		}
		switch pr.Action {
		case ActionCommit:
			e.ring.Commit()
		case ActionRewind:
			e.ring.Rewind()
		case ActionAccept:
			if !e.dispatch(ctx, proc, pr.Header) {
				continue
			}
			n++
			if proc, ok = e.setupParser(); !ok {
				return
			}
		}
	}
}

func (e *Engine) setupParser() (Processor, bool) {
	proc, maxType, ok := e.dispatcher.Config()
	if ok {
		e.parser.Validator, e.parser.MaxType = proc, maxType
		e.parser.Checksum = e.checksum()
	}
	return proc, ok
}

func (e *Engine) dispatch(ctx context.Context, proc Processor, hdr Header) bool {
	data := e.staging[:hdr.Length]
	if !e.ring.Take(data) {
		e.ring.Rewind()
		e.corrupted(ErrOverrun)
		return false
	}
	pkt := &Packet{Type: hdr.Type, Seq: hdr.Seq, Data: data}
	atomic.AddUint64(&e.counters.framesReceived, 1)
	if glog.V(4) {
		glog.Infof("RCV %s", pkt)
	}
	if h := e.Hooks.OnFrame; h != nil {
		h(pkt)
	}
	proc.ExecutePacket(ctx, pkt)
	return true
}

// SendFrame sends a frame. It waits until the previous frame is drained
// or ctx is done.
func (e *Engine) SendFrame(ctx context.Context, typ PacketType, payload []byte) error {
	return e.sendPacket(ctx, &Packet{Type: typ, Data: payload})
}

// Send sends a packet and sets its Seq. The wait for the previous frame
// is bounded by SendTimeout.
func (e *Engine) Send(pkt *Packet) error {
	ctx := context.Background()
	if e.SendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.SendTimeout)
		defer cancel()
	}
	err := e.sendPacket(ctx, pkt)
	if err == context.DeadlineExceeded {
		return ErrSendTimeout
	}
	return err
}

func (e *Engine) sendPacket(ctx context.Context, pkt *Packet) error {
	if len(pkt.Data) > MaxPayload {
		return ErrPayloadTooLarge
	}
	link := e.Link()
	if link == nil {
		return ErrNoLink
	}
	if err := e.tx.acquire(ctx); err != nil {
		return err
	}
	if err := e.tx.load(pkt, e.checksum()); err != nil {
		e.tx.release()
		return err
	}
	atomic.AddUint64(&e.counters.framesSent, 1)
	if glog.V(4) {
		glog.Infof("SND %s", pkt)
	}
	if h := e.Hooks.OnSent; h != nil {
		h(pkt)
	}
	link.ArmTransmit()
	return nil
}

// Sending tells whether a frame is in flight.
func (e *Engine) Sending() bool {
	return e.tx.busy()
}

// Stats returns a snapshot of counters.
func (e *Engine) Stats() Stats {
	return Stats{
		BytesReceived:  atomic.LoadUint64(&e.counters.bytesReceived),
		BytesParsed:    atomic.LoadUint64(&e.counters.bytesParsed),
		Overflows:      e.ring.Overflows(),
		FramesReceived: atomic.LoadUint64(&e.counters.framesReceived),
		FramesSent:     atomic.LoadUint64(&e.counters.framesSent),
		BadTypes:       atomic.LoadUint64(&e.counters.badTypes),
		BadLengths:     atomic.LoadUint64(&e.counters.badLengths),
		ChecksumErrors: atomic.LoadUint64(&e.counters.checksumErrors),
		Overruns:       atomic.LoadUint64(&e.counters.overruns),
	}
}

// AddToLoop implements fx.LoopAdder. The engine is pumped at PrLvSense,
// received bytes trigger the next iteration immediately.
func (e *Engine) AddToLoop(loop *fx.Loop) {
	e.linkLock.Lock()
	e.notify = loop.TriggerNext
	link := e.link
	e.linkLock.Unlock()
	loop.AddController(fx.PrLvSense, fx.ControlFunc(func(cc fx.ControlContext) error {
		e.Pump(cc.Context())
		return nil
	}))
	if adder, ok := link.(fx.LoopAdder); ok {
		loop.Add(adder)
	} else if runnable, ok := link.(fx.Runnable); ok {
		loop.AddRunnable(runnable)
	}
}

func (e *Engine) checksum() Checksum {
	if e.Checksum != nil {
		return e.Checksum
	}
	return CRCCCITT
}

func (e *Engine) overflowed() {
	if h := e.Hooks.OnOverflow; h != nil {
		h()
	}
}

func (e *Engine) corrupted(err error) {
	var c *uint64
	switch err {
	case ErrBadType:
		c = &e.counters.badTypes
	case ErrBadLength:
		c = &e.counters.badLengths
	case ErrChecksum:
		c = &e.counters.checksumErrors
	case ErrOverrun:
		c = &e.counters.overruns
	}
	if c != nil {
		atomic.AddUint64(c, 1)
	}
	glog.V(2).Infof("frame rejected: %v", err)
	if h := e.Hooks.OnCorrupt; h != nil {
		h(err)
	}
}
