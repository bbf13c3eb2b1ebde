package msgs

import (
	"fmt"
	"time"

	"github.com/golang/protobuf/proto"

	"github.com/robotalks/polylink/pkg/l0/comm"
	"github.com/robotalks/polylink/pkg/launcher"
)

// Frame is a link packet.
type Frame struct {
	Robot     string `protobuf:"bytes,1,opt,name=robot,proto3" json:"robot,omitempty"`
	Type      uint32 `protobuf:"varint,2,opt,name=type,proto3" json:"type,omitempty"`
	Seq       uint32 `protobuf:"varint,3,opt,name=seq,proto3" json:"seq,omitempty"`
	Payload   []byte `protobuf:"bytes,4,opt,name=payload,proto3" json:"payload,omitempty"`
	Timestamp int64  `protobuf:"varint,5,opt,name=timestamp,proto3" json:"timestamp,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *Frame) ProtoMessage() {}

// Reset implements proto.Message.
func (m *Frame) Reset() { *m = Frame{} }

// String implements proto.Message.
func (m *Frame) String() string { return proto.CompactTextString(m) }

// FrameFrom creates a Frame from a received packet.
func FrameFrom(robot string, pkt *comm.Packet, at time.Time) *Frame {
	return &Frame{
		Robot:     robot,
		Type:      uint32(pkt.Type),
		Seq:       uint32(pkt.Seq),
		Payload:   append([]byte(nil), pkt.Data...),
		Timestamp: at.UnixNano(),
	}
}

// Packet converts the Frame to a packet to send.
func (m *Frame) Packet() (*comm.Packet, error) {
	if m.Type > 0xff {
		return nil, fmt.Errorf("packet type %d out of range", m.Type)
	}
	if len(m.Payload) > comm.MaxPayload {
		return nil, comm.ErrPayloadTooLarge
	}
	return &comm.Packet{
		Type: comm.PacketType(m.Type),
		Seq:  comm.PacketSeq(m.Seq),
		Data: m.Payload,
	}, nil
}

// Stats is a snapshot of link counters.
type Stats struct {
	Robot          string `protobuf:"bytes,1,opt,name=robot,proto3" json:"robot,omitempty"`
	BytesReceived  uint64 `protobuf:"varint,2,opt,name=bytes_received,proto3" json:"bytes_received,omitempty"`
	FramesReceived uint64 `protobuf:"varint,3,opt,name=frames_received,proto3" json:"frames_received,omitempty"`
	FramesSent     uint64 `protobuf:"varint,4,opt,name=frames_sent,proto3" json:"frames_sent,omitempty"`
	Overflows      uint64 `protobuf:"varint,5,opt,name=overflows,proto3" json:"overflows,omitempty"`
	BadTypes       uint64 `protobuf:"varint,6,opt,name=bad_types,proto3" json:"bad_types,omitempty"`
	BadLengths     uint64 `protobuf:"varint,7,opt,name=bad_lengths,proto3" json:"bad_lengths,omitempty"`
	ChecksumErrors uint64 `protobuf:"varint,8,opt,name=checksum_errors,proto3" json:"checksum_errors,omitempty"`
	Overruns       uint64 `protobuf:"varint,9,opt,name=overruns,proto3" json:"overruns,omitempty"`
	Timestamp      int64  `protobuf:"varint,10,opt,name=timestamp,proto3" json:"timestamp,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *Stats) ProtoMessage() {}

// Reset implements proto.Message.
func (m *Stats) Reset() { *m = Stats{} }

// String implements proto.Message.
func (m *Stats) String() string { return proto.CompactTextString(m) }

// StatsFrom creates Stats from engine counters.
func StatsFrom(robot string, s comm.Stats, at time.Time) *Stats {
	return &Stats{
		Robot:          robot,
		BytesReceived:  s.BytesReceived,
		FramesReceived: s.FramesReceived,
		FramesSent:     s.FramesSent,
		Overflows:      s.Overflows,
		BadTypes:       s.BadTypes,
		BadLengths:     s.BadLengths,
		ChecksumErrors: s.ChecksumErrors,
		Overruns:       s.Overruns,
		Timestamp:      at.UnixNano(),
	}
}

// Log levels.
const (
	LevelDebug uint32 = iota
	LevelWarning
	LevelCritical
	LevelFault
)

// Log is a message logged by the robot over the link.
type Log struct {
	Robot     string `protobuf:"bytes,1,opt,name=robot,proto3" json:"robot,omitempty"`
	Level     uint32 `protobuf:"varint,2,opt,name=level,proto3" json:"level,omitempty"`
	Text      string `protobuf:"bytes,3,opt,name=text,proto3" json:"text,omitempty"`
	File      string `protobuf:"bytes,4,opt,name=file,proto3" json:"file,omitempty"`
	Line      uint32 `protobuf:"varint,5,opt,name=line,proto3" json:"line,omitempty"`
	Timestamp int64  `protobuf:"varint,6,opt,name=timestamp,proto3" json:"timestamp,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *Log) ProtoMessage() {}

// Reset implements proto.Message.
func (m *Log) Reset() { *m = Log{} }

// String implements proto.Message.
func (m *Log) String() string { return proto.CompactTextString(m) }

var logLevels = map[comm.PacketType]uint32{
	launcher.DebugLog:    LevelDebug,
	launcher.WarningLog:  LevelWarning,
	launcher.CriticalLog: LevelCritical,
}

// LogFrom creates a Log from a launcher log or fault packet.
// It returns false for other packets or malformed payloads.
func LogFrom(robot string, pkt *comm.Packet, at time.Time) (*Log, bool) {
	m := &Log{Robot: robot, Timestamp: at.UnixNano()}
	if level, ok := logLevels[pkt.Type]; ok {
		text, err := launcher.DecodeLog(pkt)
		if err != nil {
			return nil, false
		}
		m.Level, m.Text = level, text
		return m, true
	}
	if pkt.Type != launcher.SoftwareFault {
		return nil, false
	}
	f, err := launcher.DecodeFault(pkt.Data)
	if err != nil {
		return nil, false
	}
	m.Level, m.Text, m.File, m.Line = LevelFault, f.Message, f.File, uint32(f.Line)
	return m, true
}

// Encode serializes a message.
func Encode(m proto.Message) ([]byte, error) {
	return proto.Marshal(m)
}

// DecodeFrame deserializes a Frame.
func DecodeFrame(data []byte) (*Frame, error) {
	var m Frame
	if err := proto.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Decode deserializes data into m.
func Decode(data []byte, m proto.Message) error {
	return proto.Unmarshal(data, m)
}
