package uart

import (
	"sync"

	"github.com/robotalks/polylink/pkg/l0/comm"
)

// Wire is an in-memory link. Bytes transmitted on one end are received by
// the engine attached to the other end. Draining happens synchronously in
// ArmTransmit.
type Wire struct {
	// Filter, when set, rewrites each byte on its way to the peer. It may
	// return no bytes to drop it or more bytes to inject noise.
	Filter func(b byte) []byte

	isr     comm.ISR
	peer    *Wire
	isrLock sync.RWMutex
	txLock  sync.Mutex
}

// NewWirePair creates two connected ends.
func NewWirePair() (*Wire, *Wire) {
	a, b := &Wire{}, &Wire{}
	a.peer, b.peer = b, a
	return a, b
}

// Attach implements comm.Link.
func (w *Wire) Attach(isr comm.ISR) {
	w.isrLock.Lock()
	w.isr = isr
	w.isrLock.Unlock()
}

// ArmTransmit implements comm.Link.
func (w *Wire) ArmTransmit() {
	w.txLock.Lock()
	defer w.txLock.Unlock()
	isr := w.attached()
	if isr == nil {
		return
	}
	for {
		b, ok := isr.OnTransmitReady()
		if !ok {
			return
		}
		w.peer.receive(w.filter(b))
	}
}

// Inject delivers raw bytes to the engine on this end.
func (w *Wire) Inject(p ...byte) {
	w.receive(p)
}

func (w *Wire) filter(b byte) []byte {
	if w.Filter != nil {
		return w.Filter(b)
	}
	return []byte{b}
}

func (w *Wire) attached() comm.ISR {
	w.isrLock.RLock()
	defer w.isrLock.RUnlock()
	return w.isr
}

func (w *Wire) receive(p []byte) {
	isr := w.attached()
	if isr == nil {
		return
	}
	for _, b := range p {
		isr.OnByteReceived(b)
	}
}
