package mqtt

import (
	"context"
	"time"

	"github.com/golang/glog"
	"github.com/golang/protobuf/proto"

	"github.com/robotalks/polylink/pkg/bridge/msgs"
	"github.com/robotalks/polylink/pkg/l0/comm"
)

// DefaultStatsInterval is the default period of Stats messages.
const DefaultStatsInterval = 10 * time.Second

// Publisher publishes Log messages of downlink packets and periodic Stats
// of an engine.
type Publisher struct {
	Queue         *Queue
	Robot         string
	Engine        *comm.Engine
	StatsInterval time.Duration
}

// NewPublisher creates a Publisher.
func NewPublisher(q *Queue, robot string, engine *comm.Engine) *Publisher {
	return &Publisher{Queue: q, Robot: robot, Engine: engine, StatsInterval: DefaultStatsInterval}
}

// OnDownlink publishes log and fault packets, it's used as
// bridge.Bridge.OnDownlink and doesn't wait for delivery.
func (p *Publisher) OnDownlink(pkt *comm.Packet) {
	if m, ok := msgs.LogFrom(p.Robot, pkt, time.Now()); ok {
		p.publish(TopicLog, m)
	}
}

// PublishStats publishes current engine counters.
func (p *Publisher) PublishStats() {
	p.publish(TopicStats, msgs.StatsFrom(p.Robot, p.Engine.Stats(), time.Now()))
}

func (p *Publisher) publish(suffix string, m proto.Message) {
	data, err := msgs.Encode(m)
	if err != nil {
		glog.Errorf("encode %s: %v", suffix, err)
		return
	}
	p.Queue.Pub(RobotTopic(p.Robot, suffix), data)
}

// Run implements Runnable.
func (p *Publisher) Run(ctx context.Context) error {
	interval := p.StatsInterval
	if interval <= 0 {
		interval = DefaultStatsInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.PublishStats()
		}
	}
}
