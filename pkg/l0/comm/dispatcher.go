package comm

import (
	"context"
	"sync"

	fx "github.com/robotalks/polylink/pkg/framework"
)

// Validator checks if a payload length is legal for a packet type.
type Validator interface {
	ValidateLength(typ PacketType, length int) bool
}

// ValidateFunc is func type of Validator.
type ValidateFunc func(PacketType, int) bool

// ValidateLength implements Validator.
func (f ValidateFunc) ValidateLength(typ PacketType, length int) bool {
	return f(typ, length)
}

// Executor is called with every verified packet.
// pkt.Data is only valid during the call, use Clone to keep it.
type Executor interface {
	ExecutePacket(context.Context, *Packet)
}

// ExecuteFunc is func type of Executor.
type ExecuteFunc func(context.Context, *Packet)

// ExecutePacket implements Executor.
func (f ExecuteFunc) ExecutePacket(ctx context.Context, pkt *Packet) {
	f(ctx, pkt)
}

// Processor validates and executes packets of one command set.
type Processor interface {
	Validator
	Executor
}

// Processors combines a Validator and an Executor into a Processor.
type Processors struct {
	Validator
	Executor
}

// Dispatcher holds the current packet processor.
type Dispatcher struct {
	proc    Processor
	maxType PacketType
	lock    sync.RWMutex
}

// Configure replaces the processor and the largest accepted packet type.
// A nil processor makes the dispatcher unconfigured.
func (d *Dispatcher) Configure(proc Processor, maxType PacketType) {
	d.lock.Lock()
	d.proc, d.maxType = proc, maxType
	d.lock.Unlock()
}

// Config returns current configuration.
func (d *Dispatcher) Config() (proc Processor, maxType PacketType, ok bool) {
	d.lock.RLock()
	defer d.lock.RUnlock()
	return d.proc, d.maxType, d.proc != nil
}

// PacketMsg carries a packet through the loop message queue.
type PacketMsg struct {
	*Packet
}

// Deferred is an Executor which moves execution out of the parsing path.
// Packets are posted to the loop and executed by Executor at PrLvControl
// in a following iteration. Outside a loop, packets are executed directly.
type Deferred struct {
	Executor Executor
}

// ExecutePacket implements Executor.
func (d *Deferred) ExecutePacket(ctx context.Context, pkt *Packet) {
	if lc, ok := fx.LoopCtlOf(ctx); ok {
		lc.PostMessage(&PacketMsg{Packet: pkt.Clone()})
		lc.TriggerNext()
		return
	}
	d.Executor.ExecutePacket(ctx, pkt)
}

// Control implements fx.Controller.
func (d *Deferred) Control(cc fx.ControlContext) error {
	cc.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mc fx.MessageProcessingContext) {
		if msg, ok := mc.CurrentMessage().(*PacketMsg); ok {
			mc.MessageTaken()
			d.Executor.ExecutePacket(cc.Context(), msg.Packet)
		}
	}))
	return nil
}

// AddToLoop implements fx.LoopAdder.
func (d *Deferred) AddToLoop(loop *fx.Loop) {
	loop.AddController(fx.PrLvControl, d)
}
