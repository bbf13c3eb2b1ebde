package launcher

import (
	"context"

	"github.com/robotalks/polylink/pkg/l0/comm"
)

// Host sends launcher commands from the host.
type Host struct {
	Client *comm.Client
}

// NewHost configures engine for downlink launcher packets.
func NewHost(engine *comm.Engine) *Host {
	client := comm.NewClient(engine)
	engine.Configure(comm.Processors{Validator: DownlinkValidator, Executor: client}, MaxDownlinkType)
	return &Host{Client: client}
}

// Events receives downlink packets which are not replies.
func (h *Host) Events() <-chan *comm.Packet {
	return h.Client.EventChan()
}

func (h *Host) do(ctx context.Context, typ, replyType comm.PacketType) (*comm.Packet, error) {
	res := h.Client.Wait(ctx, h.Client.Do(ctx, comm.NewPacket(typ), replyType))
	return res.Packet, res.Err
}

// Versions queries the version string.
func (h *Host) Versions(ctx context.Context) (string, error) {
	pkt, err := h.do(ctx, GetVersions, VersionData)
	if err != nil {
		return "", err
	}
	s, _, err := DecodeString(pkt.Data)
	return s, err
}

// Stats queries link statistics of the robot.
func (h *Host) Stats(ctx context.Context) (Stats, error) {
	pkt, err := h.do(ctx, GetStats, StatsData)
	if err != nil {
		return Stats{}, err
	}
	return DecodeStats(pkt.Data)
}

// Pause pauses the competition.
func (h *Host) Pause(ctx context.Context) error {
	return h.Client.Send(ctx, comm.NewPacket(Pause))
}

// Resume resumes the competition.
func (h *Host) Resume(ctx context.Context) error {
	return h.Client.Send(ctx, comm.NewPacket(Resume))
}

// AbortToMenu aborts the competition.
func (h *Host) AbortToMenu(ctx context.Context) error {
	return h.Client.Send(ctx, comm.NewPacket(AbortToMenu))
}
