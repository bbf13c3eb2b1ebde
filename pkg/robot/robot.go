// Package robot assembles the robot side of a link: the launcher and the
// remote-control command sets sharing one engine.
package robot

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/polylink/pkg/framework"
	"github.com/robotalks/polylink/pkg/l0/comm"
	"github.com/robotalks/polylink/pkg/launcher"
	"github.com/robotalks/polylink/pkg/remote"
)

// Robot switches an engine between the launcher and the remote-control
// command sets. Remote commands are deferred to PrLvControl of the loop
// since delays block.
type Robot struct {
	Engine   *comm.Engine
	Launcher *launcher.Processor
	Remote   *remote.Processor
	Menu     *Menu
	Logger   *launcher.LinkLogger

	StartMode         string
	TelemetryInterval time.Duration
	ResetCause        byte

	deferred *comm.Deferred
	started  time.Time
	mode     string
	lock     sync.RWMutex
}

// New creates a Robot on engine.
func New(engine *comm.Engine, periph remote.Peripherals, version string) *Robot {
	logger := &launcher.LinkLogger{Sender: engine}
	r := &Robot{
		Engine:            engine,
		Menu:              &Menu{Logger: logger},
		Logger:            logger,
		StartMode:         ModeLauncher,
		TelemetryInterval: defaultConfig.TelemetryInterval,
	}
	r.Launcher = launcher.NewProcessor(engine, r.Menu, version)
	r.Launcher.Logger = logger
	r.Remote = remote.NewProcessor(engine, periph, version)
	r.Remote.OnExit = func() { r.EnterLauncher() }
	r.deferred = &comm.Deferred{Executor: r.Remote}
	return r
}

// Mode returns the active command set.
func (r *Robot) Mode() string {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.mode
}

// EnterLauncher configures the launcher command set.
func (r *Robot) EnterLauncher() {
	r.lock.Lock()
	r.mode = ModeLauncher
	r.lock.Unlock()
	r.Launcher.Configure()
	glog.Info("launcher mode")
}

// EnterRemote configures the remote-control command set and notifies
// the host.
func (r *Robot) EnterRemote() error {
	r.lock.Lock()
	r.mode = ModeRemote
	r.lock.Unlock()
	r.Remote.Configure(r.deferred)
	glog.Info("remote mode")
	return r.Remote.SendBootNotification()
}

// Start configures the StartMode command set and sends the boot
// notification.
func (r *Robot) Start() error {
	r.started = time.Now()
	if r.StartMode == ModeRemote {
		return r.EnterRemote()
	}
	r.EnterLauncher()
	return launcher.SendBootNotification(r.Engine, r.ResetCause)
}

// Uptime returns the time since Start.
func (r *Robot) Uptime() time.Duration {
	if r.started.IsZero() {
		return 0
	}
	return time.Since(r.started)
}

// AddToLoop implements LoopAdder.
func (r *Robot) AddToLoop(loop *fx.Loop) {
	loop.Add(r.Engine, r.deferred)
	loop.AddRunnable(r)
}

// Run implements Runnable. It starts the robot and sends telemetry
// periodically in launcher mode.
func (r *Robot) Run(ctx context.Context) error {
	if err := r.Start(); err != nil {
		glog.Warningf("boot notification: %v", err)
	}
	if r.TelemetryInterval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}
	ticker := time.NewTicker(r.TelemetryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if r.Mode() != ModeLauncher {
				continue
			}
			if err := launcher.SendTelemetry(r.Engine, r.Uptime()); err != nil {
				glog.Warningf("telemetry: %v", err)
			}
		}
	}
}
