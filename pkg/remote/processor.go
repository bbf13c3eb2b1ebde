package remote

import (
	"context"
	"encoding/binary"
	"strings"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/polylink/pkg/l0/comm"
	"github.com/robotalks/polylink/pkg/launcher"
)

// Processor executes remote commands on the robot.
type Processor struct {
	Engine      *comm.Engine
	Peripherals Peripherals
	Version     string
	// OnExit is called on ExitRemote.
	OnExit func()
}

// NewProcessor creates a Processor.
func NewProcessor(engine *comm.Engine, periph Peripherals, version string) *Processor {
	return &Processor{Engine: engine, Peripherals: periph, Version: version}
}

// Configure installs the processor on the engine. Commands are executed
// by exec, which defaults to the processor itself.
func (p *Processor) Configure(exec comm.Executor) {
	if exec == nil {
		exec = p
	}
	p.Engine.Configure(comm.Processors{Validator: p, Executor: exec}, MaxCommand)
}

// SendBootNotification reports the remote system is ready.
func (p *Processor) SendBootNotification() error {
	return p.Engine.Send(comm.NewPacket(RespBootedUp))
}

// ValidateLength implements comm.Validator.
func (p *Processor) ValidateLength(cmd comm.PacketType, length int) bool {
	if ValidateLength(cmd, length) {
		return true
	}
	glog.Warningf("remote: reject %s len=%d", CommandName(cmd), length)
	return false
}

// ExecutePacket implements comm.Executor.
func (p *Processor) ExecutePacket(ctx context.Context, pkt *comm.Packet) {
	dev, data := p.Peripherals, pkt.Data
	switch pkt.Type {
	case GetVersion:
		p.reply(ctx, RespVersion, launcher.AppendString(nil, p.Version, comm.MaxPayload))
	case LEDOn, LEDOff:
		dev.SetLED(pkt.Type == LEDOn)
	case RelayOn, RelayOff:
		dev.SetRelay(pkt.Type == RelayOn)
	case LCDOn, LCDOff:
		dev.SetLCD(pkt.Type == LCDOn)
	case ClearScreen:
		dev.ClearScreen()
	case LowerLine:
		dev.LowerLine()
	case SoftReset:
		dev.SoftReset()
	case StopSound:
		dev.StopSound()
	case ExitRemote:
		if p.OnExit != nil {
			p.OnExit()
		}
	case DelayMs:
		sleep(ctx, time.Duration(binary.BigEndian.Uint16(data))*time.Millisecond)
	case DelayUs:
		sleep(ctx, time.Duration(binary.BigEndian.Uint16(data))*time.Microsecond)
	case PrintString:
		s := string(data)
		if i := strings.IndexByte(s, 0); i >= 0 {
			s = s[:i]
		}
		dev.PrintString(s)
	case ServoOff:
		dev.ServoOff(data[0])
	case PlaySound:
		dev.PlaySound(data[0])
	case Servo:
		dev.Servo(data[0], data[1])
	case Servo2:
		dev.Servo2(data[0], int8(data[1]))
	case Motor:
		dev.Motor(data[0], int8(data[1]))
	case LCDCursor:
		dev.LCDCursor(data[0], data[1])

	case SetServoRangeByIndex:
		p.value(ctx, pkt.Type, byte(dev.SetServoRange(data[0], NamedServoRange(data[1]))))
	case SetServoRange:
		p.value(ctx, pkt.Type, byte(dev.SetServoRange(data[0], ServoRange(data[1]))))
	case GetServoRange:
		p.value(ctx, pkt.Type, byte(dev.ServoRange(data[0])))
	case DigitalInput:
		p.value(ctx, pkt.Type, dev.DigitalInput(data[0]))
	case Analog:
		p.value(ctx, pkt.Type, dev.Analog(data[0]))
	case Analog10:
		p.value16(ctx, pkt.Type, dev.Analog10(data[0]))
	case GetButton1:
		p.value(ctx, pkt.Type, dev.Button1())
	case Knob:
		p.value(ctx, pkt.Type, dev.Knob())
	case Knob10:
		p.value16(ctx, pkt.Type, dev.Knob10())
	default:
		glog.Warningf("remote: unrecognized command %d len=%d", pkt.Type, len(data))
	}
}

func (p *Processor) value(ctx context.Context, cmd comm.PacketType, v byte) {
	p.reply(ctx, RespValue, []byte{byte(cmd), v})
}

func (p *Processor) value16(ctx context.Context, cmd comm.PacketType, v uint16) {
	p.reply(ctx, RespValue, []byte{byte(cmd), byte(v >> 8), byte(v)})
}

func (p *Processor) reply(ctx context.Context, typ comm.PacketType, payload []byte) {
	if err := p.Engine.SendFrame(ctx, typ, payload); err != nil {
		glog.Warningf("remote: reply %d failed: %v", typ, err)
	}
}

func sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
