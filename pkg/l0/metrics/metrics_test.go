package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/polylink/pkg/l0/comm"
)

type nopLink struct{ isr comm.ISR }

func (l *nopLink) Attach(isr comm.ISR) { l.isr = isr }

func (l *nopLink) ArmTransmit() {
	for {
		if _, ok := l.isr.OnTransmitReady(); !ok {
			return
		}
	}
}

func TestInstall(t *testing.T) {
	e, err := comm.NewEngine(comm.MinRingCapacity)
	require.NoError(t, err)
	var frames int
	e.Hooks.OnFrame = func(*comm.Packet) { frames++ }
	Install(e)
	e.Attach(&nopLink{})
	e.Configure(comm.Processors{
		Validator: comm.ValidateFunc(func(comm.PacketType, int) bool { return true }),
		Executor:  comm.ExecuteFunc(func(context.Context, *comm.Packet) {}),
	}, 1)

	pre := Snap()
	frame, err := comm.NewPacket(1, 2).Bytes(nil)
	require.NoError(t, err)
	for _, b := range append([]byte{0xa5, 0x5a, 0x09}, frame...) {
		e.OnByteReceived(b)
	}
	require.Equal(t, 1, e.Pump(context.TODO()))
	require.NoError(t, e.SendFrame(context.TODO(), 0, nil))
	for i := 0; i < comm.MinRingCapacity; i++ {
		e.OnByteReceived(0)
	}

	post := Snap()
	require.Equal(t, 1, frames)
	require.Equal(t, pre.RxFrames+1, post.RxFrames)
	require.Equal(t, pre.TxFrames+1, post.TxFrames)
	require.Equal(t, pre.Rejected+1, post.Rejected)
	require.Equal(t, pre.Overflows+1, post.Overflows)
}

func TestBridgeCounters(t *testing.T) {
	pre := Snap()
	IncBridge(DirUplink)
	IncBridge(DirDownlink)
	IncBridge(DirDownlink)
	IncBridge(DirDropped)
	IncError(ErrBridgeDecode)
	post := Snap()
	require.Equal(t, pre.Uplink+1, post.Uplink)
	require.Equal(t, pre.Downlink+2, post.Downlink)
	require.Equal(t, pre.Dropped+1, post.Dropped)
	require.Equal(t, pre.Errors+1, post.Errors)
}

func TestReady(t *testing.T) {
	Init()
	srv := httptest.NewServer(Handler())
	defer srv.Close()
	defer SetReadinessFunc(nil)

	ready := false
	SetReadinessFunc(func() bool { return ready })
	resp, err := http.Get(srv.URL + "/ready")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	ready = true
	resp, err = http.Get(srv.URL + "/ready")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
