package remote

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/robotalks/polylink/pkg/l0/comm"
	"github.com/robotalks/polylink/pkg/launcher"
)

// ErrUnexpectedValue indicates a value reply for another command.
var ErrUnexpectedValue = errors.New("unexpected value reply")

// CommandError is returned when a command is rejected before sending.
type CommandError struct {
	Command comm.PacketType
	Length  int
}

// Error implements error.
func (e *CommandError) Error() string {
	return fmt.Sprintf("invalid command %s with %d bytes", CommandName(e.Command), e.Length)
}

// Host sends remote commands from the host.
type Host struct {
	Client *comm.Client
}

// NewHost configures engine for remote responses.
func NewHost(engine *comm.Engine) *Host {
	client := comm.NewClient(engine)
	engine.Configure(comm.Processors{
		Validator: comm.ValidateFunc(ValidateResponse),
		Executor:  client,
	}, MaxResponse)
	return &Host{Client: client}
}

// Events receives responses which are not replies, e.g. RespBootedUp.
func (h *Host) Events() <-chan *comm.Packet {
	return h.Client.EventChan()
}

// Command sends a command without return value.
func (h *Host) Command(ctx context.Context, cmd comm.PacketType, args ...byte) error {
	if !ValidateLength(cmd, len(args)) {
		return &CommandError{Command: cmd, Length: len(args)}
	}
	return h.Client.Send(ctx, comm.NewPacket(cmd, args...))
}

// Query sends a command and returns the value bytes of the reply.
func (h *Host) Query(ctx context.Context, cmd comm.PacketType, args ...byte) ([]byte, error) {
	if !ValidateLength(cmd, len(args)) || ValueSize(cmd) == 0 {
		return nil, &CommandError{Command: cmd, Length: len(args)}
	}
	res := h.Client.Wait(ctx, h.Client.Do(ctx, comm.NewPacket(cmd, args...), RespValue))
	if res.Err != nil {
		return nil, res.Err
	}
	data := res.Packet.Data
	if comm.PacketType(data[0]) != cmd || len(data)-1 != ValueSize(cmd) {
		return nil, ErrUnexpectedValue
	}
	return data[1:], nil
}

// Query8 queries a single byte value.
func (h *Host) Query8(ctx context.Context, cmd comm.PacketType, args ...byte) (byte, error) {
	v, err := h.Query(ctx, cmd, args...)
	if err != nil {
		return 0, err
	}
	return v[0], nil
}

// Query16 queries a u16 value.
func (h *Host) Query16(ctx context.Context, cmd comm.PacketType, args ...byte) (uint16, error) {
	v, err := h.Query(ctx, cmd, args...)
	if err != nil {
		return 0, err
	}
	if len(v) != 2 {
		return 0, ErrUnexpectedValue
	}
	return binary.BigEndian.Uint16(v), nil
}

// Version queries the version string.
func (h *Host) Version(ctx context.Context) (string, error) {
	res := h.Client.Wait(ctx, h.Client.Do(ctx, comm.NewPacket(GetVersion), RespVersion))
	if res.Err != nil {
		return "", res.Err
	}
	s, _, err := launcher.DecodeString(res.Packet.Data)
	return s, err
}

// Print prints text on the LCD at the cursor.
func (h *Host) Print(ctx context.Context, text string) error {
	return h.Command(ctx, PrintString, []byte(text)...)
}

// Delay asks the robot to pause command execution.
func (h *Host) Delay(ctx context.Context, ms uint16) error {
	return h.Command(ctx, DelayMs, byte(ms>>8), byte(ms))
}

// Servo moves servo n to pos.
func (h *Host) Servo(ctx context.Context, n, pos byte) error {
	return h.Command(ctx, Servo, n, pos)
}

// Motor sets speed of motor n.
func (h *Host) Motor(ctx context.Context, n byte, speed int8) error {
	return h.Command(ctx, Motor, n, byte(speed))
}

// Analog10 reads a 10-bit ADC channel.
func (h *Host) Analog10(ctx context.Context, ch byte) (uint16, error) {
	return h.Query16(ctx, Analog10, ch)
}

// SetServoRange sets range of servo n and returns the range in effect.
func (h *Host) SetServoRange(ctx context.Context, n byte, r ServoRange) (ServoRange, error) {
	v, err := h.Query8(ctx, SetServoRange, n, byte(r))
	return ServoRange(v), err
}

// Exit leaves remote control.
func (h *Host) Exit(ctx context.Context) error {
	return h.Command(ctx, ExitRemote)
}
