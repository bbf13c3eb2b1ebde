package launcher

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	fx "github.com/robotalks/polylink/pkg/framework"
	"github.com/robotalks/polylink/pkg/l0/comm"
	"github.com/robotalks/polylink/pkg/l0/uart"
)

type fakeCompetition struct {
	calls []string
	lock  sync.Mutex
}

func (c *fakeCompetition) record(call string) {
	c.lock.Lock()
	c.calls = append(c.calls, call)
	c.lock.Unlock()
}

func (c *fakeCompetition) Pause()       { c.record("pause") }
func (c *fakeCompetition) Resume()      { c.record("resume") }
func (c *fakeCompetition) AbortToMenu() { c.record("abort") }

func (c *fakeCompetition) recorded() []string {
	c.lock.Lock()
	defer c.lock.Unlock()
	return append([]string(nil), c.calls...)
}

type testEnv struct {
	t           *testing.T
	robot       *comm.Engine
	robotWire   *uart.Wire
	proc        *Processor
	host        *Host
	competition *fakeCompetition
	ctx         context.Context
}

func newTestEnv(t *testing.T, setup func(*Processor)) *testEnv {
	robotWire, hostWire := uart.NewWirePair()
	robot, err := comm.NewEngine(0)
	require.NoError(t, err)
	robot.Attach(robotWire)
	hostEngine, err := comm.NewEngine(0)
	require.NoError(t, err)
	hostEngine.Attach(hostWire)

	env := &testEnv{
		t:           t,
		robot:       robot,
		robotWire:   robotWire,
		competition: &fakeCompetition{},
	}
	env.proc = NewProcessor(robot, env.competition, VersionString("1.2", "abc", time.Date(2020, 3, 4, 0, 0, 0, 0, time.UTC)))
	if setup != nil {
		setup(env.proc)
	}
	env.proc.Configure()
	env.host = NewHost(hostEngine)

	loop := fx.NewLoop()
	loop.Add(robot, hostEngine)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		loop.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	var timeoutCancel context.CancelFunc
	env.ctx, timeoutCancel = context.WithTimeout(ctx, 2*time.Second)
	t.Cleanup(timeoutCancel)
	return env
}

func (env *testEnv) event() *comm.Packet {
	select {
	case pkt := <-env.host.Events():
		return pkt
	case <-env.ctx.Done():
		env.t.Fatal("no event received")
		return nil
	}
}

func TestVersions(t *testing.T) {
	env := newTestEnv(t, nil)
	version, err := env.host.Versions(env.ctx)
	require.NoError(t, err)
	parts := strings.Split(version, "|")
	require.Len(t, parts, 4)
	require.Equal(t, "1.2", parts[0])
	require.Equal(t, "abc", parts[1])
	require.Equal(t, "2020-03-04", parts[3])
}

func TestStatsReport(t *testing.T) {
	env := newTestEnv(t, nil)
	bad, err := comm.NewPacket(GetStats).Bytes(nil)
	require.NoError(t, err)
	bad[len(bad)-1] ^= 0x01
	env.robotWire.Inject(bad...)

	stats, err := env.host.Stats(env.ctx)
	require.NoError(t, err)
	require.Equal(t, Stats{ChecksumErrors: 1, FramesReceived: 1}, stats)
}

func TestShortStatsReport(t *testing.T) {
	env := newTestEnv(t, func(p *Processor) { p.ShortStats = true })
	stats, err := env.host.Stats(env.ctx)
	require.NoError(t, err)
	require.Equal(t, Stats{Short: true}, stats)
}

func TestCompetitionControl(t *testing.T) {
	env := newTestEnv(t, nil)
	require.NoError(t, env.host.Pause(env.ctx))
	require.NoError(t, env.host.Resume(env.ctx))
	require.NoError(t, env.host.AbortToMenu(env.ctx))
	require.Eventually(t, func() bool {
		return len(env.competition.recorded()) == 3
	}, time.Second, time.Millisecond)
	require.Equal(t, []string{"pause", "resume", "abort"}, env.competition.recorded())
}

func TestBootNotification(t *testing.T) {
	env := newTestEnv(t, nil)
	require.NoError(t, SendBootNotification(env.robot, 0x04))
	pkt := env.event()
	require.Equal(t, BootedUp, pkt.Type)
	require.Equal(t, []byte{0x04}, pkt.Data)
}

func TestLinkLogger(t *testing.T) {
	env := newTestEnv(t, nil)
	logger := env.proc.Logger
	logger.Debugf("speed %d", 5)
	logger.Warningf("low battery")
	logger.Criticalf("%s", strings.Repeat("x", 300))

	pkt := env.event()
	require.Equal(t, DebugLog, pkt.Type)
	require.Equal(t, []byte("speed 5\x00"), pkt.Data)
	pkt = env.event()
	require.Equal(t, WarningLog, pkt.Type)
	pkt = env.event()
	require.Equal(t, CriticalLog, pkt.Type)
	require.Len(t, pkt.Data, comm.MaxPayload)

	logger.SoftwareFault("oops", 1, 2)
	pkt = env.event()
	require.Equal(t, SoftwareFault, pkt.Type)
	f, err := DecodeFault(pkt.Data)
	require.NoError(t, err)
	require.Equal(t, "processor_test.go", f.File)
	require.NotZero(t, f.Line)
	require.Equal(t, "oops", f.Message)
	require.Equal(t, uint16(1), f.Arg1)
	require.Equal(t, uint16(2), f.Arg2)
}

func TestValidateUnknownType(t *testing.T) {
	env := newTestEnv(t, nil)
	require.True(t, env.proc.ValidateLength(GetStats, 0))
	require.False(t, env.proc.ValidateLength(GetStats, 1))
	require.False(t, env.proc.ValidateLength(MaxUplinkType+1, 3))
	for _, want := range []struct{ typ, length uint16 }{
		{uint16(GetStats), 1},
		{uint16(MaxUplinkType + 1), 3},
	} {
		pkt := env.event()
		require.Equal(t, SoftwareFault, pkt.Type)
		f, err := DecodeFault(pkt.Data)
		require.NoError(t, err)
		require.Equal(t, want.typ, f.Arg1)
		require.Equal(t, want.length, f.Arg2)
	}
}

func TestNilLinkLogger(t *testing.T) {
	var logger *LinkLogger
	logger.Debugf("ignored")
	(&LinkLogger{}).Warningf("ignored")
}
