package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/polylink/pkg/cli/sh"
	fx "github.com/robotalks/polylink/pkg/framework"
	"github.com/robotalks/polylink/pkg/l0/comm"
	"github.com/robotalks/polylink/pkg/l0/env"
	"github.com/robotalks/polylink/pkg/l0/uart"
	"github.com/robotalks/polylink/pkg/launcher"
	"github.com/robotalks/polylink/pkg/remote"
	"github.com/robotalks/polylink/pkg/robot"

	_ "github.com/robotalks/polylink/pkg/cli/cmds/all"
)

//go-build: CGO_ENABLED=0

var simulate bool

func init() {
	env.SetupFlags()
	robot.SetupFlags()
	flag.BoolVar(&simulate, "sim", false, "Talk to an in-process simulated robot instead of the serial device")
}

func poseCmd(board *remote.SimPeripherals) *ishell.Cmd {
	return &ishell.Cmd{
		Name: "sim.pose",
		Help: "show the pose of the simulated chassis",
		Func: func(c *ishell.Context) {
			now := time.Now()
			sh.ShellFrom(c).Print(c, map[string]interface{}{
				"pose":   board.Chassis.Pose(now).String(),
				"moving": board.Chassis.Moving(),
			})
		},
	}
}

// startSim runs a robot with simulated peripherals on one end of an
// in-memory wire and returns an engine attached to the other end.
func startSim(conf *env.Config) *comm.Engine {
	robotWire, hostWire := uart.NewWirePair()
	host := conf.MustNewEngine()
	host.Attach(hostWire)
	robotEngine := conf.MustNewEngine()
	robotEngine.Attach(robotWire)
	board := remote.NewSimPeripherals()
	sh.AddCmds(poseCmd(board))
	bot, err := robot.NewConfig().NewRobot(robotEngine, board,
		launcher.VersionString("sim", "local", time.Now()))
	if err != nil {
		log.Fatalln(err)
	}
	go fx.NewLoop().Add(bot).Run(context.Background())
	return host
}

func main() {
	flag.Parse()
	conf := env.MustNewConfig()
	if !simulate {
		sh.New(conf).WithAutoConnect(true).Run(flag.Args()...)
		return
	}
	host := startSim(conf)
	shell := sh.New(conf)
	shell.Connect("sim", host)
	shell.Run(flag.Args()...)
}
