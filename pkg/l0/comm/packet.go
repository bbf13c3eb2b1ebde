package comm

import "fmt"

// Wire constants.
const (
	StartMarker1 byte = 0xA5
	StartMarker2 byte = 0x5A

	// MaxPayload is the ceiling of payload length regardless of validator.
	MaxPayload = 200
	// FrameOverhead is the size of a frame with empty payload.
	FrameOverhead = 7
	// MaxFrameSize is the size of a frame with MaxPayload bytes.
	MaxFrameSize = MaxPayload + FrameOverhead
)

// PacketType identifies the meaning of a packet within a command set.
type PacketType byte

// PacketSeq defines the type of packet sequence number.
type PacketSeq byte

// Next calculates the next sequence number, wrapping at 255.
func (s PacketSeq) Next() PacketSeq {
	return s + 1
}

// Packet contains the information of a parsed packet.
type Packet struct {
	Type PacketType
	Seq  PacketSeq
	Data []byte
}

// NewPacket creates a packet to send.
func NewPacket(typ PacketType, data ...byte) *Packet {
	return &Packet{Type: typ, Data: data}
}

// Clone returns a copy which owns its Data.
func (p *Packet) Clone() *Packet {
	pkt := *p
	if p.Data != nil {
		pkt.Data = append([]byte(nil), p.Data...)
	}
	return &pkt
}

// String implements fmt.Stringer.
func (p *Packet) String() string {
	return fmt.Sprintf("type=%d seq=%d len=%d", p.Type, p.Seq, len(p.Data))
}

// AppendTo appends the encoded frame to dst.
// A nil Checksum means CRCCCITT.
func (p *Packet) AppendTo(dst []byte, cs Checksum) ([]byte, error) {
	if len(p.Data) > MaxPayload {
		return dst, ErrPayloadTooLarge
	}
	if cs == nil {
		cs = CRCCCITT
	}
	head := [...]byte{StartMarker1, StartMarker2, byte(p.Type), byte(p.Seq), byte(len(p.Data))}
	sum := cs.Update(cs.Init(), head[2:]...)
	sum = cs.Complete(cs.Update(sum, p.Data...))
	dst = append(dst, head[:]...)
	dst = append(dst, p.Data...)
	return append(dst, byte(sum>>8), byte(sum)), nil
}

// Bytes returns encoded bytes for sending.
func (p *Packet) Bytes(cs Checksum) ([]byte, error) {
	return p.AppendTo(make([]byte, 0, len(p.Data)+FrameOverhead), cs)
}
