package remote

import (
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/polylink/pkg/sim"
)

// Simulated board dimensions.
const (
	NumServos   = 8
	NumMotors   = 2
	NumAnalog   = 8
	NumDigital  = 8
	LCDColumns  = 16
	lcdRows     = 2
	analogShift = 2
)

// SimPeripherals is an in-memory board which logs every operation.
type SimPeripherals struct {
	LED      bool
	Relay    bool
	LCD      bool
	Lines    [lcdRows]string
	Row, Col byte
	Servos   [NumServos]int
	Ranges   [NumServos]ServoRange
	Motors   [NumMotors]int8
	Sound    int
	Resets   int
	// Chassis is driven by motor 0 on the left and motor 1 on the right.
	Chassis *sim.Chassis

	// Inputs, set by the owner.
	Button  byte
	KnobPos uint16
	Inputs  [NumDigital]byte
	Analogs [NumAnalog]uint16

	lock sync.Mutex
}

// NewSimPeripherals creates a board with servos off and default ranges.
func NewSimPeripherals() *SimPeripherals {
	s := &SimPeripherals{Sound: -1, Chassis: sim.NewChassis()}
	for i := range s.Servos {
		s.Servos[i] = -1
		s.Ranges[i] = ServoRangeDefault
	}
	return s
}

// Do runs fn with the board locked.
func (s *SimPeripherals) Do(fn func(*SimPeripherals)) {
	s.lock.Lock()
	defer s.lock.Unlock()
	fn(s)
}

func (s *SimPeripherals) SetLED(on bool) {
	s.lock.Lock()
	s.LED = on
	s.lock.Unlock()
	glog.V(1).Infof("sim: led %v", on)
}

func (s *SimPeripherals) SetRelay(on bool) {
	s.lock.Lock()
	s.Relay = on
	s.lock.Unlock()
	glog.V(1).Infof("sim: relay %v", on)
}

func (s *SimPeripherals) SetLCD(on bool) {
	s.lock.Lock()
	s.LCD = on
	s.lock.Unlock()
	glog.V(1).Infof("sim: lcd %v", on)
}

func (s *SimPeripherals) ClearScreen() {
	s.lock.Lock()
	s.Lines = [lcdRows]string{}
	s.Row, s.Col = 0, 0
	s.lock.Unlock()
}

func (s *SimPeripherals) LowerLine() {
	s.lock.Lock()
	s.Row, s.Col = 1, 0
	s.lock.Unlock()
}

func (s *SimPeripherals) LCDCursor(row, col byte) {
	s.lock.Lock()
	s.Row, s.Col = row%lcdRows, col%LCDColumns
	s.lock.Unlock()
}

// PrintString writes at the cursor, characters past the line end are dropped.
func (s *SimPeripherals) PrintString(str string) {
	s.lock.Lock()
	line := []byte(s.Lines[s.Row])
	for len(line) < int(s.Col) {
		line = append(line, ' ')
	}
	for i := 0; i < len(str) && int(s.Col) < LCDColumns; i++ {
		if int(s.Col) < len(line) {
			line[s.Col] = str[i]
		} else {
			line = append(line, str[i])
		}
		s.Col++
	}
	s.Lines[s.Row] = string(line)
	s.lock.Unlock()
	glog.V(1).Infof("sim: lcd %q", str)
}

func (s *SimPeripherals) Button1() byte {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.Button
}

func (s *SimPeripherals) Knob() byte {
	return byte(s.Knob10() >> analogShift)
}

func (s *SimPeripherals) Knob10() uint16 {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.KnobPos & 0x3ff
}

func (s *SimPeripherals) DigitalInput(pin byte) byte {
	s.lock.Lock()
	defer s.lock.Unlock()
	if int(pin) >= NumDigital {
		return 0
	}
	return s.Inputs[pin]
}

func (s *SimPeripherals) Analog(ch byte) byte {
	return byte(s.Analog10(ch) >> analogShift)
}

func (s *SimPeripherals) Analog10(ch byte) uint16 {
	s.lock.Lock()
	defer s.lock.Unlock()
	if int(ch) >= NumAnalog {
		return 0
	}
	return s.Analogs[ch] & 0x3ff
}

func (s *SimPeripherals) Servo(n, pos byte) {
	s.lock.Lock()
	if int(n) < NumServos {
		s.Servos[n] = int(pos)
	}
	s.lock.Unlock()
	glog.V(1).Infof("sim: servo %d pos %d", n, pos)
}

// Servo2 takes a position relative to center.
func (s *SimPeripherals) Servo2(n byte, pos int8) {
	s.Servo(n, byte(int(pos)+128))
}

func (s *SimPeripherals) ServoOff(n byte) {
	s.lock.Lock()
	if int(n) < NumServos {
		s.Servos[n] = -1
	}
	s.lock.Unlock()
	glog.V(1).Infof("sim: servo %d off", n)
}

func (s *SimPeripherals) SetServoRange(n byte, r ServoRange) ServoRange {
	s.lock.Lock()
	defer s.lock.Unlock()
	if int(n) >= NumServos {
		return 0
	}
	s.Ranges[n] = r
	return r
}

func (s *SimPeripherals) ServoRange(n byte) ServoRange {
	s.lock.Lock()
	defer s.lock.Unlock()
	if int(n) >= NumServos {
		return 0
	}
	return s.Ranges[n]
}

func (s *SimPeripherals) Motor(n byte, speed int8) {
	s.lock.Lock()
	if int(n) < NumMotors {
		s.Motors[n] = speed
		if s.Chassis != nil {
			s.Chassis.Drive(time.Now(), s.Motors[0], s.Motors[1])
		}
	}
	s.lock.Unlock()
	glog.V(1).Infof("sim: motor %d speed %d", n, speed)
}

func (s *SimPeripherals) PlaySound(n byte) {
	s.lock.Lock()
	s.Sound = int(n)
	s.lock.Unlock()
}

func (s *SimPeripherals) StopSound() {
	s.lock.Lock()
	s.Sound = -1
	s.lock.Unlock()
}

func (s *SimPeripherals) SoftReset() {
	s.lock.Lock()
	s.Resets++
	s.lock.Unlock()
	glog.Info("sim: soft reset")
}
