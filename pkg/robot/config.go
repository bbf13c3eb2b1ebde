package robot

import (
	"flag"
	"fmt"
	"time"

	"github.com/robotalks/polylink/pkg/l0/comm"
	"github.com/robotalks/polylink/pkg/remote"
)

// Command set modes.
const (
	ModeLauncher = "launcher"
	ModeRemote   = "remote"
)

// Config defines the configurations of a Robot.
type Config struct {
	Mode              string
	TelemetryInterval time.Duration
	ResetCause        uint
	ShortStats        bool
}

var defaultConfig = Config{
	Mode:              ModeLauncher,
	TelemetryInterval: 5 * time.Second,
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Mode, "mode", defaultConfig.Mode, "Command set at start: launcher or remote.")
	flag.DurationVar(&defaultConfig.TelemetryInterval, "telemetry", defaultConfig.TelemetryInterval, "Telemetry report interval, 0 disables it.")
	flag.UintVar(&defaultConfig.ResetCause, "reset-cause", defaultConfig.ResetCause, "Reset cause reported in BootedUp.")
	flag.BoolVar(&defaultConfig.ShortStats, "short-stats", defaultConfig.ShortStats, "Report only the overflow counter in StatsData.")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a config with defaults.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Validate checks the config.
func (c *Config) Validate() error {
	if c.Mode != ModeLauncher && c.Mode != ModeRemote {
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	if c.ResetCause > 0xff {
		return fmt.Errorf("reset cause %d out of range", c.ResetCause)
	}
	return nil
}

// NewRobot creates a Robot using the config.
func (c *Config) NewRobot(engine *comm.Engine, periph remote.Peripherals, version string) (*Robot, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	r := New(engine, periph, version)
	r.StartMode = c.Mode
	r.TelemetryInterval = c.TelemetryInterval
	r.ResetCause = byte(c.ResetCause)
	r.Launcher.ShortStats = c.ShortStats
	return r, nil
}
