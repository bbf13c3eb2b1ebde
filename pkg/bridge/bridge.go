// Package bridge relays link packets between a protocol engine and any
// number of message transports.
//
// Downlink packets parsed by the engine are encoded as msgs.Frame and
// fanned out to every attached Pipe. Frames read from a Pipe are
// validated and sent over the link.
package bridge

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/polylink/pkg/bridge/msgs"
	fx "github.com/robotalks/polylink/pkg/framework"
	"github.com/robotalks/polylink/pkg/l0/comm"
	"github.com/robotalks/polylink/pkg/l0/metrics"
)

// DefaultOutBufSize is the per pipe queue length of downlink frames.
const DefaultOutBufSize = 64

var (
	// ErrUplinkRejected indicates a frame not accepted by the uplink validator.
	ErrUplinkRejected = errors.New("uplink frame rejected")
	// ErrPipeClosed indicates the pipe is closed.
	ErrPipeClosed = errors.New("pipe closed")
)

// Bridge is the Executor of downlink packets of an engine.
type Bridge struct {
	Engine *comm.Engine
	Robot  string
	// Uplink validates frames from pipes before sending, nil accepts all.
	Uplink comm.Validator
	// OnDownlink observes every downlink packet, it must not block.
	OnDownlink func(*comm.Packet)
	OutBufSize int

	pipes map[*Pipe]struct{}
	lock  sync.RWMutex
}

// New creates a Bridge for engine.
func New(engine *comm.Engine, robot string) *Bridge {
	return &Bridge{
		Engine:     engine,
		Robot:      robot,
		OutBufSize: DefaultOutBufSize,
		pipes:      make(map[*Pipe]struct{}),
	}
}

// ExecutePacket implements comm.Executor.
func (b *Bridge) ExecutePacket(ctx context.Context, pkt *comm.Packet) {
	if h := b.OnDownlink; h != nil {
		h(pkt)
	}
	b.Broadcast(pkt)
}

// Broadcast queues pkt to all pipes. A pipe with a full queue drops it.
func (b *Bridge) Broadcast(pkt *comm.Packet) {
	data, err := msgs.Encode(msgs.FrameFrom(b.Robot, pkt, time.Now()))
	if err != nil {
		glog.Errorf("encode frame %s: %v", pkt, err)
		return
	}
	b.lock.RLock()
	defer b.lock.RUnlock()
	for p := range b.pipes {
		select {
		case p.out <- data:
			metrics.IncBridge(metrics.DirDownlink)
		default:
			metrics.IncBridge(metrics.DirDropped)
			glog.V(2).Infof("pipe %s queue full, drop %s", p.Name, pkt)
		}
	}
}

// Forward sends an uplink frame over the link.
func (b *Bridge) Forward(ctx context.Context, f *msgs.Frame) error {
	pkt, err := f.Packet()
	if err != nil {
		return err
	}
	if v := b.Uplink; v != nil && !v.ValidateLength(pkt.Type, len(pkt.Data)) {
		return ErrUplinkRejected
	}
	if err := b.Engine.SendFrame(ctx, pkt.Type, pkt.Data); err != nil {
		metrics.IncError(metrics.ErrSend)
		return err
	}
	metrics.IncBridge(metrics.DirUplink)
	return nil
}

// Pipe creates a Pipe relaying over rw. It's attached when it runs.
func (b *Bridge) Pipe(name string, rw PacketReadWriter) *Pipe {
	size := b.OutBufSize
	if size <= 0 {
		size = DefaultOutBufSize
	}
	return &Pipe{
		Name:       name,
		ReadWriter: rw,
		bridge:     b,
		out:        make(chan []byte, size),
		closed:     make(chan struct{}),
	}
}

// NumPipes returns the number of attached pipes.
func (b *Bridge) NumPipes() int {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return len(b.pipes)
}

func (b *Bridge) attach(p *Pipe) {
	b.lock.Lock()
	b.pipes[p] = struct{}{}
	b.lock.Unlock()
	glog.Infof("pipe %s attached", p.Name)
}

func (b *Bridge) detach(p *Pipe) {
	b.lock.Lock()
	delete(b.pipes, p)
	b.lock.Unlock()
	glog.Infof("pipe %s detached", p.Name)
}

// Pipe relays frames between the Bridge and a PacketReadWriter.
type Pipe struct {
	Name       string
	ReadWriter PacketReadWriter

	bridge    *Bridge
	out       chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

// Run implements Runnable.
func (p *Pipe) Run(ctx context.Context) error {
	p.bridge.attach(p)
	defer p.bridge.detach(p)
	go p.writeLoop(ctx)
	return fx.RunWithContextCloser(ctx, p, func() error {
		for {
			data, err := p.ReadWriter.ReadPacket()
			if err != nil {
				select {
				case <-p.closed:
					return ErrPipeClosed
				default:
				}
				if err != io.EOF {
					metrics.IncError(metrics.ErrBridgeRead)
				}
				return err
			}
			f, err := msgs.DecodeFrame(data)
			if err != nil {
				metrics.IncError(metrics.ErrBridgeDecode)
				glog.Warningf("pipe %s: decode frame: %v", p.Name, err)
				continue
			}
			if err = p.bridge.Forward(ctx, f); err != nil {
				glog.Warningf("pipe %s: forward type %d: %v", p.Name, f.Type, err)
			}
		}
	})
}

func (p *Pipe) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.closed:
			return
		case data := <-p.out:
			if err := p.ReadWriter.WritePacket(data); err != nil {
				metrics.IncError(metrics.ErrBridgeWrite)
				glog.Warningf("pipe %s: write: %v", p.Name, err)
				p.Close()
				return
			}
		}
	}
}

// Close implements io.Closer.
func (p *Pipe) Close() (err error) {
	p.closeOnce.Do(func() {
		close(p.closed)
		if closer, ok := p.ReadWriter.(io.Closer); ok {
			err = closer.Close()
		}
	})
	return
}

// AddToLoop implements LoopAdder.
func (p *Pipe) AddToLoop(loop *fx.Loop) {
	if adder, ok := p.ReadWriter.(fx.LoopAdder); ok {
		loop.Add(adder)
	} else if runnable, ok := p.ReadWriter.(fx.Runnable); ok {
		loop.AddRunnable(runnable)
	}
	loop.AddRunnable(p)
}
