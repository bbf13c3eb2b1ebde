package launcher

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/robotalks/polylink/pkg/l0/comm"
)

// MaxFaultFile is the max length of the file name in a fault report.
const MaxFaultFile = 20

var (
	// ErrShortPayload indicates a payload too short for its packet type.
	ErrShortPayload = errors.New("payload too short")
	// ErrNoTerminator indicates a string payload without NUL.
	ErrNoTerminator = errors.New("string not NUL terminated")
)

// AppendString appends s and a NUL terminator, truncating s at a rune
// boundary so the result stays within max bytes.
func AppendString(dst []byte, s string, max int) []byte {
	if max <= 0 {
		return dst
	}
	if i := strings.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}
	if len(s) > max-1 {
		n := max - 1
		for n > 0 && !utf8.RuneStart(s[n]) {
			n--
		}
		s = s[:n]
	}
	dst = append(dst, s...)
	return append(dst, 0)
}

// DecodeString returns the NUL terminated string at the beginning of
// data and the rest after the terminator.
func DecodeString(data []byte) (string, []byte, error) {
	i := bytes.IndexByte(data, 0)
	if i < 0 {
		return string(data), nil, ErrNoTerminator
	}
	return string(data[:i]), data[i+1:], nil
}

// VersionString builds the version report
// "version|build|runtime|date".
func VersionString(version, build string, date time.Time) string {
	return strings.Join([]string{version, build, runtime.Version(), date.UTC().Format("2006-01-02")}, "|")
}

// Stats is the payload of StatsData.
type Stats struct {
	Overflows      uint16
	ChecksumErrors uint16
	FramesReceived uint16
	// Short reports only Overflows, the original 2-byte layout.
	Short bool
}

func clamp16(v uint64) uint16 {
	if v > 0xffff {
		return 0xffff
	}
	return uint16(v)
}

// StatsFrom converts engine counters, saturating at 16 bits.
func StatsFrom(s comm.Stats) Stats {
	return Stats{
		Overflows:      clamp16(s.Overflows),
		ChecksumErrors: clamp16(s.ChecksumErrors),
		FramesReceived: clamp16(s.FramesReceived),
	}
}

// Bytes encodes the stats big endian.
func (s Stats) Bytes() []byte {
	b := binary.BigEndian.AppendUint16(nil, s.Overflows)
	if s.Short {
		return b
	}
	b = binary.BigEndian.AppendUint16(b, s.ChecksumErrors)
	return binary.BigEndian.AppendUint16(b, s.FramesReceived)
}

func (s Stats) String() string {
	if s.Short {
		return fmt.Sprintf("overflows=%d", s.Overflows)
	}
	return fmt.Sprintf("overflows=%d checksum-errors=%d frames=%d", s.Overflows, s.ChecksumErrors, s.FramesReceived)
}

// DecodeStats decodes the payload of StatsData.
func DecodeStats(data []byte) (s Stats, err error) {
	switch {
	case len(data) >= 6:
		s.ChecksumErrors = binary.BigEndian.Uint16(data[2:])
		s.FramesReceived = binary.BigEndian.Uint16(data[4:])
	case len(data) >= 2:
		s.Short = true
	default:
		return s, ErrShortPayload
	}
	s.Overflows = binary.BigEndian.Uint16(data)
	return
}

// Fault is a software fault report.
type Fault struct {
	File    string
	Line    uint16
	Arg1    uint16
	Arg2    uint16
	Message string
}

// Bytes encodes the fault: line, arg1, arg2 big endian, then the file
// name of at most MaxFaultFile characters and the message, both NUL
// terminated, within MaxPayload.
func (f Fault) Bytes() []byte {
	b := make([]byte, 6, comm.MaxPayload)
	binary.BigEndian.PutUint16(b, f.Line)
	binary.BigEndian.PutUint16(b[2:], f.Arg1)
	binary.BigEndian.PutUint16(b[4:], f.Arg2)
	b = AppendString(b, f.File, MaxFaultFile+1)
	return AppendString(b, f.Message, comm.MaxPayload-len(b))
}

func (f Fault) String() string {
	return fmt.Sprintf("%s:%d: %s (%d, %d)", f.File, f.Line, f.Message, f.Arg1, f.Arg2)
}

// DecodeFault decodes the payload of SoftwareFault.
func DecodeFault(data []byte) (f Fault, err error) {
	if len(data) < 8 {
		return f, ErrShortPayload
	}
	f.Line = binary.BigEndian.Uint16(data)
	f.Arg1 = binary.BigEndian.Uint16(data[2:])
	f.Arg2 = binary.BigEndian.Uint16(data[4:])
	rest := data[6:]
	if f.File, rest, err = DecodeString(rest); err != nil {
		return
	}
	f.Message, _, err = DecodeString(rest)
	return
}

// Telemetry is the payload of TelemetryData periodically sent by the robot.
type Telemetry struct {
	Uptime         time.Duration
	BytesReceived  uint32
	FramesReceived uint32
	FramesSent     uint32
	Rejected       uint32
}

// TelemetrySize is the encoded size of Telemetry.
const TelemetrySize = 20

func trunc32(v uint64) uint32 {
	return uint32(v)
}

// TelemetryFrom builds Telemetry from engine counters.
func TelemetryFrom(uptime time.Duration, s comm.Stats) Telemetry {
	return Telemetry{
		Uptime:         uptime,
		BytesReceived:  trunc32(s.BytesReceived),
		FramesReceived: trunc32(s.FramesReceived),
		FramesSent:     trunc32(s.FramesSent),
		Rejected:       trunc32(s.BadTypes + s.BadLengths + s.ChecksumErrors + s.Overruns),
	}
}

// Bytes encodes uptime in seconds followed by the counters, all u32 big endian.
func (t Telemetry) Bytes() []byte {
	b := make([]byte, 0, TelemetrySize)
	b = binary.BigEndian.AppendUint32(b, uint32(t.Uptime/time.Second))
	b = binary.BigEndian.AppendUint32(b, t.BytesReceived)
	b = binary.BigEndian.AppendUint32(b, t.FramesReceived)
	b = binary.BigEndian.AppendUint32(b, t.FramesSent)
	return binary.BigEndian.AppendUint32(b, t.Rejected)
}

func (t Telemetry) String() string {
	return fmt.Sprintf("uptime=%s rx-bytes=%d rx-frames=%d tx-frames=%d rejected=%d",
		t.Uptime, t.BytesReceived, t.FramesReceived, t.FramesSent, t.Rejected)
}

// DecodeTelemetry decodes the payload of TelemetryData.
func DecodeTelemetry(data []byte) (t Telemetry, err error) {
	if len(data) < TelemetrySize {
		return t, ErrShortPayload
	}
	t.Uptime = time.Duration(binary.BigEndian.Uint32(data)) * time.Second
	t.BytesReceived = binary.BigEndian.Uint32(data[4:])
	t.FramesReceived = binary.BigEndian.Uint32(data[8:])
	t.FramesSent = binary.BigEndian.Uint32(data[12:])
	t.Rejected = binary.BigEndian.Uint32(data[16:])
	return
}

// DecodeLog returns the text of a DebugLog, WarningLog or CriticalLog packet.
func DecodeLog(pkt *comm.Packet) (string, error) {
	if !IsLog(pkt.Type) {
		return "", fmt.Errorf("%s is not a log packet", TypeName(pkt.Type))
	}
	s, _, err := DecodeString(pkt.Data)
	return s, err
}

// ValidateUplink checks payload length of uplink packets, none carries
// a payload.
func ValidateUplink(typ comm.PacketType, length int) bool {
	return typ <= MaxUplinkType && length == 0
}

// UplinkValidator validates uplink packets before they are sent.
var UplinkValidator = comm.ValidateFunc(ValidateUplink)

// ValidateDownlink checks payload length of downlink packets.
func ValidateDownlink(typ comm.PacketType, length int) bool {
	switch typ {
	case BootedUp:
		return length == 1
	case VersionData, DebugLog, WarningLog, CriticalLog:
		return length > 0
	case StatsData:
		return length == 2 || length == 6
	case TelemetryData:
		return true
	case SoftwareFault:
		return length >= 8
	}
	return false
}

// DownlinkValidator validates downlink packets on the host.
var DownlinkValidator = comm.ValidateFunc(ValidateDownlink)

// Describe formats a downlink packet for display.
func Describe(pkt *comm.Packet) string {
	switch pkt.Type {
	case BootedUp:
		if len(pkt.Data) == 1 {
			return fmt.Sprintf("booted up, reset cause 0x%02x", pkt.Data[0])
		}
	case VersionData:
		s, _, _ := DecodeString(pkt.Data)
		return "version " + s
	case StatsData:
		if s, err := DecodeStats(pkt.Data); err == nil {
			return "stats " + s.String()
		}
	case TelemetryData:
		if t, err := DecodeTelemetry(pkt.Data); err == nil {
			return "telemetry " + t.String()
		}
	case DebugLog, WarningLog, CriticalLog:
		s, _, _ := DecodeString(pkt.Data)
		return fmt.Sprintf("[%s] %s", strings.TrimSuffix(TypeName(pkt.Type), "Log"), s)
	case SoftwareFault:
		if f, err := DecodeFault(pkt.Data); err == nil {
			return "fault " + f.String()
		}
	}
	return fmt.Sprintf("%s %x", TypeName(pkt.Type), pkt.Data)
}
