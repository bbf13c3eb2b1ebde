package launcher

import (
	"context"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/polylink/pkg/l0/comm"
)

// Processor executes uplink launcher packets on the robot.
type Processor struct {
	Engine      *comm.Engine
	Competition Competition
	Logger      *LinkLogger
	// Version is reported on GetVersions, see VersionString.
	Version string
	// ShortStats reports only the overflow counter.
	ShortStats bool
}

// NewProcessor creates a Processor reporting through engine.
func NewProcessor(engine *comm.Engine, competition Competition, version string) *Processor {
	return &Processor{
		Engine:      engine,
		Competition: competition,
		Logger:      &LinkLogger{Sender: engine},
		Version:     version,
	}
}

// Configure installs the processor on the engine.
func (p *Processor) Configure() {
	p.Engine.Configure(p, MaxUplinkType)
}

// ValidateLength implements comm.Validator.
func (p *Processor) ValidateLength(typ comm.PacketType, length int) bool {
	if ValidateUplink(typ, length) {
		return true
	}
	p.Logger.SoftwareFault("invalid packet type", uint16(typ), uint16(length))
	return false
}

// ExecutePacket implements comm.Executor.
func (p *Processor) ExecutePacket(ctx context.Context, pkt *comm.Packet) {
	switch pkt.Type {
	case GetVersions:
		p.reply(ctx, VersionData, AppendString(nil, p.Version, comm.MaxPayload))
	case Pause:
		if p.Competition != nil {
			p.Competition.Pause()
		}
	case Resume:
		if p.Competition != nil {
			p.Competition.Resume()
		}
	case AbortToMenu:
		if p.Competition != nil {
			p.Competition.AbortToMenu()
		}
	case GetStats:
		stats := StatsFrom(p.Engine.Stats())
		stats.Short = p.ShortStats
		p.reply(ctx, StatsData, stats.Bytes())
	default:
		p.Logger.SoftwareFault("unknown packet", uint16(pkt.Type), uint16(len(pkt.Data)))
	}
}

func (p *Processor) reply(ctx context.Context, typ comm.PacketType, payload []byte) {
	if err := p.Engine.SendFrame(ctx, typ, payload); err != nil {
		glog.Warningf("reply %s failed: %v", TypeName(typ), err)
	}
}

// SendBootNotification reports the reset cause after start up.
func SendBootNotification(s Sender, resetCause byte) error {
	return s.Send(comm.NewPacket(BootedUp, resetCause))
}

// SendTelemetry reports engine counters.
func SendTelemetry(e *comm.Engine, uptime time.Duration) error {
	return e.Send(comm.NewPacket(TelemetryData, TelemetryFrom(uptime, e.Stats()).Bytes()...))
}
