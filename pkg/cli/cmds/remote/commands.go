package remote

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/polylink/pkg/cli/sh"
	"github.com/robotalks/polylink/pkg/l0/comm"
	"github.com/robotalks/polylink/pkg/remote"
)

func parseByte(name, arg string) (byte, error) {
	v, err := strconv.ParseUint(arg, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", name, err)
	}
	return byte(v), nil
}

func parseArgs(c *ishell.Context, names ...string) ([]byte, bool) {
	if len(c.Args) < len(names) {
		c.Err(fmt.Errorf("%s required", strings.Join(names, " ")))
		return nil, false
	}
	vals := make([]byte, len(names))
	for n, name := range names {
		v, err := parseByte(name, c.Args[n])
		if err != nil {
			c.Err(err)
			return nil, false
		}
		vals[n] = v
	}
	return vals, true
}

func onOff(on, off comm.PacketType) func(c *ishell.Context) {
	return sh.MustBeConnected(sh.ModeRemote, func(c *ishell.Context) {
		cmd := on
		if len(c.Args) > 0 && c.Args[0] == "off" {
			cmd = off
		}
		sh.DoCommand(c, func(ctx context.Context, conn *sh.Conn) (interface{}, error) {
			return nil, conn.Remote.Command(ctx, cmd)
		})
	})
}

var (
	// RemoteCmd enters remote control from the launcher. The robot must
	// have started the remote program, this only switches the shell.
	RemoteCmd = ishell.Cmd{
		Name: "remote",
		Help: "switch to remote commands",
		Func: sh.MustBeConnected("", func(c *ishell.Context) {
			if err := sh.ShellFrom(c).SetMode(sh.ModeRemote); err != nil {
				c.Err(err)
			}
		}),
	}

	// RemoteVersionCmd queries the remote program version.
	RemoteVersionCmd = ishell.Cmd{
		Name:    "r.version",
		Aliases: []string{"rver"},
		Help:    "",
		Func: sh.MustBeConnected(sh.ModeRemote, func(c *ishell.Context) {
			sh.DoCommand(c, func(ctx context.Context, conn *sh.Conn) (interface{}, error) {
				return conn.Remote.Version(ctx)
			})
		}),
	}

	// LEDCmd turns the LED on or off.
	LEDCmd = ishell.Cmd{
		Name: "led",
		Help: "on|off",
		Func: onOff(remote.LEDOn, remote.LEDOff),
	}

	// RelayCmd turns the relay on or off.
	RelayCmd = ishell.Cmd{
		Name: "relay",
		Help: "on|off",
		Func: onOff(remote.RelayOn, remote.RelayOff),
	}

	// LCDCmd turns the LCD on or off.
	LCDCmd = ishell.Cmd{
		Name: "lcd",
		Help: "on|off",
		Func: onOff(remote.LCDOn, remote.LCDOff),
	}

	// PrintCmd prints text on the LCD.
	PrintCmd = ishell.Cmd{
		Name: "print",
		Help: "TEXT",
		Func: sh.MustBeConnected(sh.ModeRemote, func(c *ishell.Context) {
			text := strings.Join(c.Args, " ")
			if text == "" {
				c.Err(fmt.Errorf("TEXT required"))
				return
			}
			sh.DoCommand(c, func(ctx context.Context, conn *sh.Conn) (interface{}, error) {
				return nil, conn.Remote.Print(ctx, text)
			})
		}),
	}

	// ServoCmd moves a servo.
	ServoCmd = ishell.Cmd{
		Name: "servo",
		Help: "N POS",
		Func: sh.MustBeConnected(sh.ModeRemote, func(c *ishell.Context) {
			args, ok := parseArgs(c, "N", "POS")
			if !ok {
				return
			}
			sh.DoCommand(c, func(ctx context.Context, conn *sh.Conn) (interface{}, error) {
				return nil, conn.Remote.Servo(ctx, args[0], args[1])
			})
		}),
	}

	// MotorCmd sets the speed of a motor.
	MotorCmd = ishell.Cmd{
		Name: "motor",
		Help: "N SPEED(-128..127)",
		Func: sh.MustBeConnected(sh.ModeRemote, func(c *ishell.Context) {
			if len(c.Args) < 2 {
				c.Err(fmt.Errorf("N SPEED required"))
				return
			}
			n, err := parseByte("N", c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			speed, err := strconv.ParseInt(c.Args[1], 0, 8)
			if err != nil {
				c.Err(fmt.Errorf("invalid SPEED: %v", err))
				return
			}
			sh.DoCommand(c, func(ctx context.Context, conn *sh.Conn) (interface{}, error) {
				return nil, conn.Remote.Motor(ctx, n, int8(speed))
			})
		}),
	}

	// AnalogCmd reads a 10-bit ADC channel.
	AnalogCmd = ishell.Cmd{
		Name: "analog",
		Help: "CH",
		Func: sh.MustBeConnected(sh.ModeRemote, func(c *ishell.Context) {
			args, ok := parseArgs(c, "CH")
			if !ok {
				return
			}
			sh.DoCommand(c, func(ctx context.Context, conn *sh.Conn) (interface{}, error) {
				return conn.Remote.Analog10(ctx, args[0])
			})
		}),
	}

	// ButtonCmd reads the button.
	ButtonCmd = ishell.Cmd{
		Name: "button",
		Help: "",
		Func: sh.MustBeConnected(sh.ModeRemote, func(c *ishell.Context) {
			sh.DoCommand(c, func(ctx context.Context, conn *sh.Conn) (interface{}, error) {
				return conn.Remote.Query8(ctx, remote.GetButton1)
			})
		}),
	}

	// ExitCmd leaves remote control and switches back to launcher commands.
	ExitCmd = ishell.Cmd{
		Name: "exit-remote",
		Help: "",
		Func: sh.MustBeConnected(sh.ModeRemote, func(c *ishell.Context) {
			err := sh.DoCommand(c, func(ctx context.Context, conn *sh.Conn) (interface{}, error) {
				return nil, conn.Remote.Exit(ctx)
			})
			if err == nil {
				sh.ShellFrom(c).SetMode(sh.ModeLauncher)
			}
		}),
	}
)

func init() {
	sh.AddCmds(
		&RemoteCmd,
		&RemoteVersionCmd,
		&LEDCmd,
		&RelayCmd,
		&LCDCmd,
		&PrintCmd,
		&ServoCmd,
		&MotorCmd,
		&AnalogCmd,
		&ButtonCmd,
		&ExitCmd,
	)
}
