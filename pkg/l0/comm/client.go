package comm

import (
	"context"
	"sync"

	"github.com/golang/glog"
)

// Result is the result of a command using Do.
type Result struct {
	Err    error
	Packet *Packet
}

// Client provides host side request/reply operations over an Engine.
// Replies are matched by packet type since sequence numbers are not echoed.
type Client struct {
	Engine *Engine

	eventCh  chan *Packet
	cmdsHead *Command
	cmdsTail *Command
	cmdsLock sync.Mutex
}

// Command represents a pending command waiting for reply.
type Command struct {
	request   *Packet
	replyType PacketType
	resultCh  chan Result
	next      *Command
}

// Request returns the request packet, with Seq assigned once sent.
func (c *Command) Request() *Packet {
	return c.request
}

// ResultChan returns the chan to retrieve result.
func (c *Command) ResultChan() <-chan Result {
	return c.resultCh
}

// DefaultEventQueueSize is the number of unsolicited packets buffered.
const DefaultEventQueueSize = 64

// NewClient creates a client using the engine. The client is the Executor,
// the caller configures the engine with its own Validator, e.g.
//
//	engine.Configure(comm.Processors{Validator: v, Executor: client}, maxType)
func NewClient(engine *Engine) *Client {
	return &Client{
		Engine:  engine,
		eventCh: make(chan *Packet, DefaultEventQueueSize),
	}
}

// EventChan retrieves packets which are not replies.
func (c *Client) EventChan() <-chan *Packet {
	return c.eventCh
}

// Send sends a packet without expecting a reply.
func (c *Client) Send(ctx context.Context, pkt *Packet) error {
	return c.Engine.sendPacket(ctx, pkt)
}

// Do sends a command and returns a Command for the reply of replyType.
func (c *Client) Do(ctx context.Context, pkt *Packet, replyType PacketType) *Command {
	cmd := &Command{request: pkt, replyType: replyType, resultCh: make(chan Result, 1)}

	c.cmdsLock.Lock()
	defer c.cmdsLock.Unlock()
	if err := c.Engine.sendPacket(ctx, pkt); err != nil {
		cmd.resultCh <- Result{Err: err}
		return cmd
	}
	if c.cmdsHead == nil {
		c.cmdsHead = cmd
	} else {
		c.cmdsTail.next = cmd
	}
	c.cmdsTail = cmd
	return cmd
}

// Wait waits for the result of the command. If ctx is done first, the
// command is dropped from pending list.
func (c *Client) Wait(ctx context.Context, cmd *Command) Result {
	select {
	case res := <-cmd.resultCh:
		return res
	case <-ctx.Done():
	}
	c.cmdsLock.Lock()
	var prev *Command
	for curr := c.cmdsHead; curr != nil; prev, curr = curr, curr.next {
		if curr != cmd {
			continue
		}
		if prev == nil {
			c.cmdsHead = curr.next
		} else {
			prev.next = curr.next
		}
		if c.cmdsTail == curr {
			c.cmdsTail = prev
		}
		curr.next = nil
		break
	}
	c.cmdsLock.Unlock()
	select {
	case res := <-cmd.resultCh:
		return res
	default:
		return Result{Err: ctx.Err()}
	}
}

// ExecutePacket implements Executor. A reply completes the first pending
// command of its type. The peer replies in order, so all commands queued
// before that one fail with ErrNoReply regardless of their reply types.
func (c *Client) ExecutePacket(ctx context.Context, pkt *Packet) {
	c.cmdsLock.Lock()
	head := c.cmdsHead
	curr := c.cmdsHead
	for ; curr != nil; curr = curr.next {
		if curr.replyType == pkt.Type {
			if c.cmdsHead = curr.next; c.cmdsHead == nil {
				c.cmdsTail = nil
			}
			curr.next = nil
			break
		}
	}
	if curr == nil {
		head = nil
	}
	c.cmdsLock.Unlock()
	if curr == nil {
		c.event(pkt)
		return
	}
	for head != curr {
		next := head.next
		head.next = nil
		head.resultCh <- Result{Err: ErrNoReply}
		head = next
	}
	curr.resultCh <- Result{Packet: pkt.Clone()}
}

func (c *Client) event(pkt *Packet) {
	select {
	case c.eventCh <- pkt.Clone():
	default:
		glog.Warningf("event queue full, drop %s", pkt)
	}
}
