package comm

import "github.com/golang/glog"

// ParseState is the state of the frame parser.
type ParseState int

// Parser states, in frame order.
const (
	StateAwaitStart1 ParseState = iota
	StateAwaitStart2
	StatePacketType
	StateSequenceNumber
	StatePayloadLength
	StatePayload
	StateChecksumHigh
	StateChecksumLow
)

var parseStateNames = [...]string{
	"AwaitStart1",
	"AwaitStart2",
	"PacketType",
	"SequenceNumber",
	"PayloadLength",
	"Payload",
	"ChecksumHigh",
	"ChecksumLow",
}

// String implements fmt.Stringer.
func (s ParseState) String() string {
	if s >= 0 && int(s) < len(parseStateNames) {
		return parseStateNames[s]
	}
	return "Invalid"
}

// Action tells the owner of the byte stream what to do with the byte
// just parsed.
type Action int

const (
	// ActionCommit discards everything up to and including the byte.
	ActionCommit Action = iota
	// ActionHold keeps the byte as read-ahead.
	ActionHold
	// ActionAccept means a verified frame ends with this byte. Payload is
	// the first Header.Length read-ahead bytes; all read-ahead bytes are
	// committed after the payload is taken.
	ActionAccept
	// ActionRewind drops the read-ahead, the bytes must be parsed again
	// starting from the committed head.
	ActionRewind
)

// Header describes an accepted frame.
type Header struct {
	Type   PacketType
	Seq    PacketSeq
	Length int
}

// ParseResult indicates the result after one parsing step.
type ParseResult struct {
	Action Action
	State  ParseState
	// Header is set when Action is ActionAccept.
	Header Header
	// Err classifies rejected input, it never stops the parser.
	Err error
}

// Parser is the frame state machine. It doesn't buffer payload bytes,
// the caller keeps them according to the returned Action.
type Parser struct {
	// Validator checks payload length per packet type.
	// When nil, any length up to MaxPayload is accepted.
	Validator Validator
	// MaxType is the largest packet type accepted.
	MaxType PacketType
	// Checksum defaults to CRCCCITT.
	Checksum Checksum

	state     ParseState
	hdr       Header
	remaining int
	sum       uint16
	recvSum   uint16
}

// State gets the current parse state.
func (p *Parser) State() ParseState {
	return p.state
}

// Reset puts the parser back to look for a start marker.
func (p *Parser) Reset() {
	p.state = StateAwaitStart1
}

// Parse consumes one byte.
func (p *Parser) Parse(b byte) (pr ParseResult) {
	pr.Action, pr.Err = p.parseByte(b)
	if pr.Action == ActionAccept {
		pr.Header = p.hdr
	}
	pr.State = p.state
	return
}

func (p *Parser) parseByte(b byte) (Action, error) {
	switch p.state {
	case StateAwaitStart1:
		if b == StartMarker1 {
			p.state = StateAwaitStart2
		}
	case StateAwaitStart2:
		switch b {
		case StartMarker2:
			p.state = StatePacketType
		case StartMarker1:
		default:
			p.state = StateAwaitStart1
		}
	case StatePacketType:
		if PacketType(b) > p.MaxType {
			p.resync(0, b)
			return ActionCommit, ErrBadType
		}
		p.hdr.Type = PacketType(b)
		p.state = StateSequenceNumber
	case StateSequenceNumber:
		p.hdr.Seq = PacketSeq(b)
		p.state = StatePayloadLength
	case StatePayloadLength:
		if !p.validLength(int(b)) {
			p.resync(byte(p.hdr.Seq), b)
			return ActionCommit, ErrBadLength
		}
		p.hdr.Length = int(b)
		cs := p.checksum()
		p.sum = cs.Update(cs.Init(), byte(p.hdr.Type), byte(p.hdr.Seq), b)
		if b == 0 {
			p.state = StateChecksumHigh
		} else {
			p.remaining = int(b)
			p.state = StatePayload
		}
	case StatePayload:
		p.sum = p.checksum().Update(p.sum, b)
		if p.remaining--; p.remaining <= 0 {
			p.state = StateChecksumHigh
		}
		return ActionHold, nil
	case StateChecksumHigh:
		p.recvSum = uint16(b) << 8
		p.state = StateChecksumLow
		return ActionHold, nil
	case StateChecksumLow:
		p.recvSum |= uint16(b)
		if p.recvSum == p.checksum().Complete(p.sum) {
			p.state = StateAwaitStart1
			return ActionAccept, nil
		}
		p.resync(byte(p.hdr.Seq), byte(p.hdr.Length))
		return ActionRewind, ErrChecksum
	default:
		glog.Errorf("frame parser in invalid state %d, reset", p.state)
		p.state = StateAwaitStart1
		return ActionRewind, ErrParserState
	}
	return ActionCommit, nil
}

// resync picks the state to continue with after rejecting b, where prev
// is the byte received right before b.
func (p *Parser) resync(prev, b byte) {
	switch {
	case prev == StartMarker1 && b == StartMarker2:
		p.state = StatePacketType
	case b == StartMarker1:
		p.state = StateAwaitStart2
	default:
		p.state = StateAwaitStart1
	}
}

func (p *Parser) validLength(n int) bool {
	if n > MaxPayload {
		return false
	}
	if v := p.Validator; v != nil {
		return v.ValidateLength(p.hdr.Type, n)
	}
	return true
}

func (p *Parser) checksum() Checksum {
	if p.Checksum != nil {
		return p.Checksum
	}
	return CRCCCITT
}
