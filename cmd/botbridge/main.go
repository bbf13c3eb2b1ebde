package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/polylink/pkg/bridge"
	"github.com/robotalks/polylink/pkg/bridge/mqtt"
	"github.com/robotalks/polylink/pkg/bridge/stream"
	"github.com/robotalks/polylink/pkg/bridge/websocket"
	fx "github.com/robotalks/polylink/pkg/framework"
	"github.com/robotalks/polylink/pkg/l0/comm"
	"github.com/robotalks/polylink/pkg/l0/env"
	"github.com/robotalks/polylink/pkg/l0/metrics"
	"github.com/robotalks/polylink/pkg/launcher"
	"github.com/robotalks/polylink/pkg/remote"
	"github.com/robotalks/polylink/pkg/robot"
)

//go-build: CGO_ENABLED=0

var (
	mode          = robot.ModeLauncher
	listenAddr    = ":7370"
	httpAddr      = ":7380"
	useMQTT       = true
	advertise     = true
	statsInterval = mqtt.DefaultStatsInterval
)

func init() {
	env.SetupFlags()
	flag.StringVar(&mode, "mode", mode, "Command set of the robot: launcher, remote")
	flag.StringVar(&listenAddr, "listen", listenAddr, "Stream listen address, empty disables it")
	flag.StringVar(&httpAddr, "http", httpAddr, "HTTP listen address of /ws, /metrics and /ready, empty disables it")
	flag.BoolVar(&useMQTT, "use-mqtt", useMQTT, "Relay over the MQTT broker")
	flag.BoolVar(&advertise, "advertise", advertise, "Advertise the stream endpoint via mDNS")
	flag.DurationVar(&statsInterval, "stats-interval", statsInterval, "Interval of stats published to MQTT")
}

// validators returns the uplink and downlink validators and the largest
// downlink type of a command set.
func validators(mode string) (uplink, downlink comm.Validator, maxType comm.PacketType, err error) {
	switch mode {
	case robot.ModeLauncher:
		return launcher.UplinkValidator, launcher.DownlinkValidator, launcher.MaxDownlinkType, nil
	case robot.ModeRemote:
		return comm.ValidateFunc(remote.ValidateLength), comm.ValidateFunc(remote.ValidateResponse), remote.MaxResponse, nil
	}
	return nil, nil, 0, fmt.Errorf("unknown mode %q", mode)
}

func httpRunnable(srv *http.Server) fx.Runnable {
	return fx.NamedRun("http", fx.RunFunc(func(ctx context.Context) error {
		glog.Infof("http listen on %s", srv.Addr)
		return fx.RunWithContextCloser(ctx, srv, func() error {
			if err := srv.ListenAndServe(); err != http.ErrServerClosed {
				return err
			}
			return nil
		})
	}))
}

func main() {
	flag.Parse()

	conf := env.MustNewConfig()
	uplink, downlink, maxType, err := validators(mode)
	if err != nil {
		log.Fatalln(err)
	}
	engine, _ := conf.MustConnect()
	metrics.Init()
	metrics.Install(engine)

	b := bridge.New(engine, conf.RobotID)
	b.Uplink = uplink
	engine.Configure(comm.Processors{Validator: downlink, Executor: b}, maxType)

	loop := fx.NewLoop().Add(engine)
	runner := fx.NewRunner().HandleSignals().WithStopOnError(true)

	var queue *mqtt.Queue
	if useMQTT {
		if queue, err = mqtt.NewQueueFromURL(conf.MQTTBrokerURL); err != nil {
			log.Fatalln(err)
		}
		if err = queue.Connect(); err != nil {
			log.Fatalf("mqtt connect %s: %v", conf.MQTTBrokerURL, err)
		}
		defer queue.Close()
		loop.Add(b.Pipe("mqtt", mqtt.NewPacketReadWriter(queue).ForRobot(conf.RobotID)))
		pub := mqtt.NewPublisher(queue, conf.RobotID, engine)
		pub.StatsInterval = statsInterval
		b.OnDownlink = pub.OnDownlink
		runner.Go(fx.NamedRun("publisher", pub))
	}

	if listenAddr != "" {
		srv, err := stream.Listen(listenAddr, b)
		if err != nil {
			log.Fatalln(err)
		}
		runner.Go(fx.NamedRun("stream", srv))
		if advertise {
			port := srv.Listener.Addr().(*net.TCPAddr).Port
			stop, err := bridge.Advertise(runner.Context, "", port,
				[]string{"robot=" + conf.RobotID, "mode=" + mode})
			if err != nil {
				glog.Warningf("advertise: %v", err)
			} else {
				defer stop()
			}
		}
	}

	if httpAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/ws", websocket.Handler(b))
		mux.Handle("/", metrics.Handler())
		runner.Go(httpRunnable(&http.Server{Addr: httpAddr, Handler: mux}))
	}
	metrics.SetReadinessFunc(func() bool {
		return queue == nil || queue.Client.IsConnected()
	})

	glog.Infof("bridge %s [%s] on %s at %d baud", conf.RobotID, mode, conf.Device, conf.Baud)
	runner.Go(fx.NamedRun("loop", loop))
	runner.GoFunc("metrics", func(ctx context.Context) error {
		metrics.LogPeriodically(ctx, time.Minute)
		return nil
	})
	if err := runner.Wait(); err != nil {
		glog.Errorf("bridge stopped: %v", err)
		metrics.IncError(metrics.ErrSerialLink)
	}
	glog.Flush()
}
