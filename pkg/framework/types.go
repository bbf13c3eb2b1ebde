package framework

import (
	"context"
	"time"
)

// Named is implemented by things with a name, e.g. Runnables reported
// by Runner.
type Named interface {
	Name() string
}

// Runnable is a background task bound to a context.
type Runnable interface {
	Run(context.Context) error
}

// Message is anything posted to the loop. Posted messages are visible to
// controllers from the next iteration on until a controller takes them.
type Message interface{}

// Controller runs once per loop iteration at its priority level.
type Controller interface {
	Control(ControlContext) error
}

// ControlFunc is the func form of Controller.
type ControlFunc func(ControlContext) error

// Control implements Controller.
func (f ControlFunc) Control(cc ControlContext) error {
	return f(cc)
}

// Priority levels, controllers of a lower level run first.
const (
	// PrLvSense is where links are pumped and inputs sampled.
	PrLvSense = iota
	// PrLvControl is where deferred packets and application logic run.
	PrLvControl
	// PrLvReport is where results are published.
	PrLvReport

	PriorityLevels
)

// LoopControl is the part of the loop safe to use from any goroutine.
type LoopControl interface {
	// PostMessage queues msg for the next iteration.
	PostMessage(Message)
	// TriggerNext starts the next iteration without waiting for the
	// interval.
	TriggerNext()
}

// ControlContext is passed to controllers during an iteration.
type ControlContext interface {
	LoopControl

	Context() context.Context
	// Time is when the iteration started.
	Time() time.Time
	PriorityLevel() int
	// Messages holds the messages of this iteration not yet taken.
	Messages() MessageStore
}

// MessageStore is the message queue of an iteration.
type MessageStore interface {
	ProcessMessages(MessageProcessor)
	// AddMessages appends messages visible to the following
	// controllers of the same iteration.
	AddMessages(msgs ...Message)
}

// MessageProcessor examines messages one by one.
type MessageProcessor interface {
	ProcessMessage(MessageProcessingContext)
}

// ProcessMessageFunc is the func form of MessageProcessor.
type ProcessMessageFunc func(MessageProcessingContext)

// ProcessMessage implements MessageProcessor.
func (f ProcessMessageFunc) ProcessMessage(mc MessageProcessingContext) {
	f(mc)
}

// MessageProcessingContext refers to the message being processed.
type MessageProcessingContext interface {
	CurrentMessage() Message
	// MessageTaken removes the current message from the store.
	MessageTaken()
	// StopProcessing skips the remaining messages.
	StopProcessing()
}
