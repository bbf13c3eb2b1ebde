// Package launcher implements the launcher packet set: competition control
// from the host, and boot, version, statistics, telemetry and log reports
// from the robot.
package launcher

import (
	"fmt"

	"github.com/robotalks/polylink/pkg/l0/comm"
)

// Uplink packet types, host to robot. All carry no payload.
const (
	GetVersions comm.PacketType = iota
	Pause
	Resume
	AbortToMenu
	GetStats
	numUplink

	MaxUplinkType = numUplink - 1
)

// Downlink packet types, robot to host.
const (
	BootedUp comm.PacketType = 128 + iota
	VersionData
	StatsData
	TelemetryData
	DebugLog
	WarningLog
	CriticalLog
	SoftwareFault
	numDownlink

	MaxDownlinkType = numDownlink - 1
)

var typeNames = map[comm.PacketType]string{
	GetVersions:   "GetVersions",
	Pause:         "Pause",
	Resume:        "Resume",
	AbortToMenu:   "AbortToMenu",
	GetStats:      "GetStats",
	BootedUp:      "BootedUp",
	VersionData:   "VersionData",
	StatsData:     "StatsData",
	TelemetryData: "TelemetryData",
	DebugLog:      "DebugLog",
	WarningLog:    "WarningLog",
	CriticalLog:   "CriticalLog",
	SoftwareFault: "SoftwareFault",
}

// TypeName returns the name of a launcher packet type.
func TypeName(typ comm.PacketType) string {
	if name, ok := typeNames[typ]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", typ)
}

// IsLog tells whether typ is one of the log packets.
func IsLog(typ comm.PacketType) bool {
	return typ >= DebugLog && typ <= CriticalLog
}

// Competition is the running competition program controlled by the host.
type Competition interface {
	Pause()
	Resume()
	AbortToMenu()
}

// Sender sends packets over a link, implemented by comm.Engine.
type Sender interface {
	Send(*comm.Packet) error
}
