package launcher

import (
	"context"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/polylink/pkg/cli/sh"
)

var (
	// VersionCmd queries the version of the robot.
	VersionCmd = ishell.Cmd{
		Name:    "version",
		Aliases: []string{"ver"},
		Help:    "",
		Func: sh.MustBeConnected(sh.ModeLauncher, func(c *ishell.Context) {
			sh.DoCommand(c, func(ctx context.Context, conn *sh.Conn) (interface{}, error) {
				return conn.Launcher.Versions(ctx)
			})
		}),
	}

	// StatsCmd queries link statistics of the robot.
	StatsCmd = ishell.Cmd{
		Name:    "stats",
		Aliases: []string{"st"},
		Help:    "",
		Func: sh.MustBeConnected(sh.ModeLauncher, func(c *ishell.Context) {
			sh.DoCommand(c, func(ctx context.Context, conn *sh.Conn) (interface{}, error) {
				s, err := conn.Launcher.Stats(ctx)
				if err != nil {
					return nil, err
				}
				if sh.ShellFrom(c).OutputJSON {
					return s, nil
				}
				return s.String(), nil
			})
		}),
	}

	// PauseCmd pauses the competition.
	PauseCmd = ishell.Cmd{
		Name: "pause",
		Help: "",
		Func: sh.MustBeConnected(sh.ModeLauncher, func(c *ishell.Context) {
			sh.DoCommand(c, func(ctx context.Context, conn *sh.Conn) (interface{}, error) {
				return nil, conn.Launcher.Pause(ctx)
			})
		}),
	}

	// ResumeCmd resumes the competition.
	ResumeCmd = ishell.Cmd{
		Name: "resume",
		Help: "",
		Func: sh.MustBeConnected(sh.ModeLauncher, func(c *ishell.Context) {
			sh.DoCommand(c, func(ctx context.Context, conn *sh.Conn) (interface{}, error) {
				return nil, conn.Launcher.Resume(ctx)
			})
		}),
	}

	// AbortCmd aborts the competition to the menu.
	AbortCmd = ishell.Cmd{
		Name: "abort",
		Help: "",
		Func: sh.MustBeConnected(sh.ModeLauncher, func(c *ishell.Context) {
			sh.DoCommand(c, func(ctx context.Context, conn *sh.Conn) (interface{}, error) {
				return nil, conn.Launcher.AbortToMenu(ctx)
			})
		}),
	}
)

func init() {
	sh.AddCmds(
		&VersionCmd,
		&StatsCmd,
		&PauseCmd,
		&ResumeCmd,
		&AbortCmd,
	)
}
