package robot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	fx "github.com/robotalks/polylink/pkg/framework"
	"github.com/robotalks/polylink/pkg/l0/comm"
	"github.com/robotalks/polylink/pkg/l0/uart"
	"github.com/robotalks/polylink/pkg/launcher"
	"github.com/robotalks/polylink/pkg/remote"
)

type testEnv struct {
	t     *testing.T
	robot *Robot
	board *remote.SimPeripherals
	host  *comm.Engine
	ctx   context.Context
}

func newTestEnv(t *testing.T, conf *Config) *testEnv {
	robotWire, hostWire := uart.NewWirePair()
	robotEngine, err := comm.NewEngine(0)
	require.NoError(t, err)
	robotEngine.Attach(robotWire)
	host, err := comm.NewEngine(0)
	require.NoError(t, err)
	host.Attach(hostWire)

	board := remote.NewSimPeripherals()
	r, err := conf.NewRobot(robotEngine, board, "2.0|b1|go|2021-01-01")
	require.NoError(t, err)
	env := &testEnv{t: t, robot: r, board: board, host: host}
	return env
}

// start runs the robot and the host engine configured by hostFn.
func (env *testEnv) start(hostFn func(*comm.Engine)) {
	hostFn(env.host)
	loop := fx.NewLoop()
	loop.Add(env.robot, env.host)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		loop.Run(ctx)
	}()
	env.t.Cleanup(func() {
		cancel()
		<-done
	})
	var timeoutCancel context.CancelFunc
	env.ctx, timeoutCancel = context.WithTimeout(ctx, 5*time.Second)
	env.t.Cleanup(timeoutCancel)
}

func (env *testEnv) waitEvent(events <-chan *comm.Packet, typ comm.PacketType) *comm.Packet {
	for {
		select {
		case pkt := <-events:
			if pkt.Type == typ {
				return pkt
			}
		case <-env.ctx.Done():
			env.t.Fatalf("no event %d received", typ)
			return nil
		}
	}
}

func TestRobotLauncher(t *testing.T) {
	conf := NewConfig()
	conf.ResetCause = 2
	conf.TelemetryInterval = 0
	env := newTestEnv(t, conf)
	var host *launcher.Host
	env.start(func(e *comm.Engine) { host = launcher.NewHost(e) })

	pkt := env.waitEvent(host.Events(), launcher.BootedUp)
	require.Equal(t, []byte{2}, pkt.Data)
	require.Equal(t, ModeLauncher, env.robot.Mode())

	version, err := host.Versions(env.ctx)
	require.NoError(t, err)
	require.Equal(t, "2.0|b1|go|2021-01-01", version)

	require.NoError(t, host.Pause(env.ctx))
	pkt = env.waitEvent(host.Events(), launcher.WarningLog)
	text, err := launcher.DecodeLog(pkt)
	require.NoError(t, err)
	require.Equal(t, "can't switch to paused when not running", text)

	env.robot.Menu.Start("maze")
	require.NoError(t, host.Pause(env.ctx))
	require.Eventually(t, func() bool {
		state, _ := env.robot.Menu.State()
		return state == StatePaused
	}, time.Second, time.Millisecond)
	require.NoError(t, host.Resume(env.ctx))
	require.Eventually(t, func() bool {
		state, program := env.robot.Menu.State()
		return state == StateRunning && program == "maze"
	}, time.Second, time.Millisecond)
	require.NoError(t, host.AbortToMenu(env.ctx))
	require.Eventually(t, func() bool {
		state, program := env.robot.Menu.State()
		return state == StateMenu && program == ""
	}, time.Second, time.Millisecond)
}

func TestRobotRemote(t *testing.T) {
	conf := NewConfig()
	conf.Mode = ModeRemote
	env := newTestEnv(t, conf)
	var host *remote.Host
	env.start(func(e *comm.Engine) { host = remote.NewHost(e) })

	env.waitEvent(host.Events(), remote.RespBootedUp)
	require.Equal(t, ModeRemote, env.robot.Mode())
	require.NoError(t, host.Command(env.ctx, remote.LEDOn))
	version, err := host.Version(env.ctx)
	require.NoError(t, err)
	require.Equal(t, "2.0|b1|go|2021-01-01", version)
	env.board.Do(func(b *remote.SimPeripherals) { require.True(t, b.LED) })

	require.NoError(t, host.Exit(env.ctx))
	require.Eventually(t, func() bool { return env.robot.Mode() == ModeLauncher }, time.Second, time.Millisecond)

	launcherHost := launcher.NewHost(env.host)
	_, err = launcherHost.Versions(env.ctx)
	require.NoError(t, err)
}

func TestRobotTelemetry(t *testing.T) {
	conf := NewConfig()
	conf.TelemetryInterval = 5 * time.Millisecond
	env := newTestEnv(t, conf)
	var host *launcher.Host
	env.start(func(e *comm.Engine) { host = launcher.NewHost(e) })

	env.waitEvent(host.Events(), launcher.BootedUp)
	pkt := env.waitEvent(host.Events(), launcher.TelemetryData)
	tm, err := launcher.DecodeTelemetry(pkt.Data)
	require.NoError(t, err)
	require.NotZero(t, tm.FramesSent)
}

func TestConfigValidate(t *testing.T) {
	conf := NewConfig()
	require.NoError(t, conf.Validate())
	conf.Mode = "manual"
	require.Error(t, conf.Validate())
	conf = NewConfig()
	conf.ResetCause = 256
	require.Error(t, conf.Validate())
	_, err := conf.NewRobot(nil, nil, "")
	require.Error(t, err)
}
