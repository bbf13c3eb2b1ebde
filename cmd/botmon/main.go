package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/robotalks/polylink/pkg/bridge/mqtt"
	"github.com/robotalks/polylink/pkg/bridge/msgs"
	"github.com/robotalks/polylink/pkg/l0/env"
	"github.com/robotalks/polylink/pkg/launcher"
	"github.com/robotalks/polylink/pkg/remote"
	"github.com/robotalks/polylink/pkg/robot"
)

var (
	mode  = robot.ModeLauncher
	robID = "+"
)

func init() {
	env.SetupFlags()
	flag.StringVar(&mode, "mode", mode, "Command set used to describe frames: launcher, remote")
	flag.StringVar(&robID, "robot", robID, "Robot ID to monitor, + for all")
}

var levelNames = map[uint32]string{
	msgs.LevelDebug:    "DEBUG",
	msgs.LevelWarning:  "WARN",
	msgs.LevelCritical: "CRIT",
	msgs.LevelFault:    "FAULT",
}

func describeFrame(f *msgs.Frame, uplink bool) string {
	pkt, err := f.Packet()
	if err != nil {
		return fmt.Sprintf("bad frame: %v", err)
	}
	switch {
	case mode == robot.ModeRemote && uplink:
		return fmt.Sprintf("#%d %s %x", f.Seq, remote.CommandName(pkt.Type), pkt.Data)
	case mode == robot.ModeRemote:
		return fmt.Sprintf("#%d %s %x", f.Seq, remote.ResponseName(pkt.Type), pkt.Data)
	case uplink:
		return fmt.Sprintf("#%d %s", f.Seq, launcher.TypeName(pkt.Type))
	}
	return fmt.Sprintf("#%d %s", f.Seq, launcher.Describe(pkt))
}

func describe(topic string, payload []byte) (string, error) {
	switch {
	case strings.HasSuffix(topic, "/"+mqtt.TopicFrames), strings.HasSuffix(topic, "/"+mqtt.TopicCmd):
		f, err := msgs.DecodeFrame(payload)
		if err != nil {
			return "", err
		}
		return describeFrame(f, strings.HasSuffix(topic, "/"+mqtt.TopicCmd)), nil
	case strings.HasSuffix(topic, "/"+mqtt.TopicLog):
		var m msgs.Log
		if err := msgs.Decode(payload, &m); err != nil {
			return "", err
		}
		if m.File != "" {
			return fmt.Sprintf("[%s] %s:%d: %s", levelNames[m.Level], m.File, m.Line, m.Text), nil
		}
		return fmt.Sprintf("[%s] %s", levelNames[m.Level], m.Text), nil
	case strings.HasSuffix(topic, "/"+mqtt.TopicStats):
		var m msgs.Stats
		if err := msgs.Decode(payload, &m); err != nil {
			return "", err
		}
		return m.String(), nil
	}
	return string(payload), nil
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	conf := env.MustNewConfig()
	q, err := mqtt.NewQueueFromURL(conf.MQTTBrokerURL)
	if err != nil {
		log.Fatalln(err)
	}
	if err = q.Connect(); err != nil {
		log.Fatalln(err)
	}
	defer q.Close()

	q.Sub(robID+"/#", func(topic string, payload []byte) {
		text, err := describe(topic, payload)
		if err != nil {
			log.Printf("%s: bad message: %v", topic, err)
			return
		}
		log.Printf("%s: %s", topic, text)
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	<-sigCh
	log.Printf("stopped at %s", time.Now().Format(time.RFC3339))
}
