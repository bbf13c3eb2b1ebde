package comm

import (
	"errors"
	"fmt"
)

var (
	// ErrNoLink indicates the engine is not attached to a link.
	ErrNoLink = errors.New("no link attached")
	// ErrPayloadTooLarge indicates payload exceeds MaxPayload.
	ErrPayloadTooLarge = fmt.Errorf("payload exceeds %d bytes", MaxPayload)
	// ErrSendTimeout indicates the previous frame didn't drain in time.
	ErrSendTimeout = errors.New("send timeout")
	// ErrNoReply indicates no reply received from peer.
	// This happens when a reply is received for a latter command, and all
	// previous commands fail with this error.
	ErrNoReply = errors.New("no reply")

	// ErrBadType indicates a packet type above the configured maximum.
	ErrBadType = errors.New("invalid packet type")
	// ErrBadLength indicates a payload length rejected by the validator.
	ErrBadLength = errors.New("invalid payload length")
	// ErrChecksum indicates a checksum mismatch.
	ErrChecksum = errors.New("checksum mismatch")
	// ErrOverrun indicates read-ahead bytes were dropped by a ring overflow.
	ErrOverrun = errors.New("receive buffer overrun")
	// ErrParserState indicates the parser reached an impossible state.
	ErrParserState = errors.New("invalid parser state")
)

// CapacityError is returned when a ring capacity can't hold a frame
// in flight plus a full burst.
type CapacityError struct {
	Capacity int
}

// Error implements error.
func (e *CapacityError) Error() string {
	return fmt.Sprintf("ring capacity %d too small, need at least %d", e.Capacity, MinRingCapacity)
}
