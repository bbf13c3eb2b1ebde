package remote

// ServoRange selects the pulse width range of a servo. The value is the
// half span in units of 10us around the 1.5ms center.
type ServoRange byte

// Named servo ranges.
const (
	ServoRangeStandard  ServoRange = 50
	ServoRangeDefault   ServoRange = 60
	ServoRangeExtended1 ServoRange = 70
	ServoRangeExtended2 ServoRange = 80
	ServoRangeExtended3 ServoRange = 90
	ServoRangeExtended4 ServoRange = 100
)

// NamedServoRange maps an index to a named range, unknown indexes map to
// ServoRangeDefault.
func NamedServoRange(index byte) ServoRange {
	switch index {
	case 0:
		return ServoRangeStandard
	case 2:
		return ServoRangeExtended1
	case 3:
		return ServoRangeExtended2
	case 4:
		return ServoRangeExtended3
	case 5:
		return ServoRangeExtended4
	}
	return ServoRangeDefault
}

// Peripherals is the hardware driven by remote commands.
type Peripherals interface {
	SetLED(on bool)
	SetRelay(on bool)
	SetLCD(on bool)
	ClearScreen()
	LowerLine()
	PrintString(s string)
	LCDCursor(row, col byte)

	Button1() byte
	Knob() byte
	Knob10() uint16
	DigitalInput(pin byte) byte
	Analog(ch byte) byte
	Analog10(ch byte) uint16

	Servo(n, pos byte)
	Servo2(n byte, pos int8)
	ServoOff(n byte)
	// SetServoRange returns the range in effect, 0 if n is invalid.
	SetServoRange(n byte, r ServoRange) ServoRange
	ServoRange(n byte) ServoRange
	Motor(n byte, speed int8)

	PlaySound(n byte)
	StopSound()
	SoftReset()
}
