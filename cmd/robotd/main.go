package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/polylink/pkg/framework"
	"github.com/robotalks/polylink/pkg/l0/env"
	"github.com/robotalks/polylink/pkg/l0/metrics"
	"github.com/robotalks/polylink/pkg/launcher"
	"github.com/robotalks/polylink/pkg/remote"
	"github.com/robotalks/polylink/pkg/robot"
)

var (
	version   = "dev"
	build     = "unknown"
	buildDate = ""
)

func init() {
	env.SetupFlags()
	robot.SetupFlags()
}

func versionString() string {
	date := time.Now()
	if t, err := time.Parse("2006-01-02", buildDate); err == nil {
		date = t
	}
	return launcher.VersionString(version, build, date)
}

func main() {
	flag.Parse()

	conf := env.MustNewConfig()
	engine, _ := conf.MustConnect()
	metrics.Init()
	metrics.Install(engine)
	if conf.MetricsAddr != "" {
		srv := metrics.StartHTTP(conf.MetricsAddr)
		defer srv.Shutdown(context.Background())
	}

	bot, err := robot.NewConfig().NewRobot(engine, remote.NewSimPeripherals(), versionString())
	if err != nil {
		log.Fatalln(err)
	}
	metrics.SetReadinessFunc(func() bool { return bot.Mode() != "" })
	glog.Infof("robot %s on %s at %d baud", conf.RobotID, conf.Device, conf.Baud)

	loop := fx.NewLoop().Add(bot)
	runner := fx.NewRunner().HandleSignals().WithStopOnError(true)
	runner.Go(fx.NamedRun("loop", loop))
	runner.GoFunc("metrics", func(ctx context.Context) error {
		metrics.LogPeriodically(ctx, time.Minute)
		return nil
	})
	if err := runner.Wait(); err != nil {
		glog.Errorf("link %s: %v", conf.Device, err)
		metrics.IncError(metrics.ErrSerialLink)
	}
	glog.Flush()
}
