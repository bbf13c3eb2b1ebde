// Package remote implements the remote control command set which lets the
// host drive robot peripherals directly.
package remote

import (
	"fmt"

	"github.com/robotalks/polylink/pkg/l0/comm"
)

// Commands, host to robot.
const (
	// no payload
	GetVersion comm.PacketType = iota
	LEDOn
	LEDOff
	RelayOn
	RelayOff
	LCDOn
	LCDOff
	ClearScreen
	LowerLine
	GetButton1
	Knob
	Knob10
	SoftReset
	StopSound
	ExitRemote

	// u16 big endian
	DelayMs
	DelayUs
	// 1 to MaxPayload characters
	PrintString

	// 1 byte
	DigitalInput
	Analog
	Analog10
	ServoOff
	GetServoRange
	PlaySound

	// 2 bytes
	SetServoRangeByIndex
	SetServoRange
	Servo
	Servo2
	Motor
	LCDCursor

	NumCommands

	MaxCommand = NumCommands - 1
)

// Responses, robot to host.
const (
	RespBootedUp comm.PacketType = 0x30 + iota
	RespVersion
	// RespValue carries the command byte followed by the return value.
	RespValue

	MaxResponse = RespValue
)

var commandNames = [...]string{
	"GetVersion", "LEDOn", "LEDOff", "RelayOn", "RelayOff", "LCDOn", "LCDOff",
	"ClearScreen", "LowerLine", "GetButton1", "Knob", "Knob10", "SoftReset",
	"StopSound", "ExitRemote", "DelayMs", "DelayUs", "PrintString",
	"DigitalInput", "Analog", "Analog10", "ServoOff", "GetServoRange", "PlaySound",
	"SetServoRangeByIndex", "SetServoRange", "Servo", "Servo2", "Motor", "LCDCursor",
}

// CommandName returns the name of a command.
func CommandName(cmd comm.PacketType) string {
	if int(cmd) < len(commandNames) {
		return commandNames[cmd]
	}
	return fmt.Sprintf("Unknown(%d)", cmd)
}

// ResponseName returns the name of a response.
func ResponseName(typ comm.PacketType) string {
	switch typ {
	case RespBootedUp:
		return "BootedUp"
	case RespVersion:
		return "Version"
	case RespValue:
		return "Value"
	}
	return fmt.Sprintf("Unknown(%d)", typ)
}

// ValidateLength checks the payload length of a command.
func ValidateLength(cmd comm.PacketType, length int) bool {
	switch {
	case cmd <= ExitRemote:
		return length == 0
	case cmd == DelayMs || cmd == DelayUs:
		return length == 2
	case cmd == PrintString:
		return length > 0 && length <= comm.MaxPayload
	case cmd <= PlaySound:
		return length == 1
	case cmd <= LCDCursor:
		return length == 2
	}
	return false
}

// ValueSize returns the size of the value returned by cmd, 0 if the
// command returns nothing.
func ValueSize(cmd comm.PacketType) int {
	switch cmd {
	case Analog10, Knob10:
		return 2
	case SetServoRangeByIndex, SetServoRange, GetServoRange, DigitalInput, Analog, GetButton1, Knob:
		return 1
	}
	return 0
}

// ValidateResponse checks the payload length of a response on the host.
func ValidateResponse(typ comm.PacketType, length int) bool {
	switch typ {
	case RespBootedUp:
		return length == 0
	case RespVersion:
		return length > 0
	case RespValue:
		return length == 2 || length == 3
	}
	return false
}
