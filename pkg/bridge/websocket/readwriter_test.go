package websocket

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/robotalks/polylink/pkg/bridge"
	"github.com/robotalks/polylink/pkg/bridge/msgs"
	"github.com/robotalks/polylink/pkg/l0/comm"
	"github.com/robotalks/polylink/pkg/l0/uart"
)

func TestHandler(t *testing.T) {
	robotWire, hostWire := uart.NewWirePair()
	robot, err := comm.NewEngine(0)
	require.NoError(t, err)
	robot.Attach(robotWire)
	host, err := comm.NewEngine(0)
	require.NoError(t, err)
	host.Attach(hostWire)

	b := bridge.New(host, "r1")
	srv := httptest.NewServer(Handler(b))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, err := websocket.Dial(url, "", srv.URL)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return b.NumPipes() == 1 }, 2*time.Second, time.Millisecond)

	b.ExecutePacket(context.Background(), comm.NewPacket(0x82, 0, 1, 0, 2))
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	data, err := New(conn).ReadPacket()
	require.NoError(t, err)
	f, err := msgs.DecodeFrame(data)
	require.NoError(t, err)
	require.Equal(t, "r1", f.Robot)
	require.Equal(t, uint32(0x82), f.Type)

	var received *comm.Packet
	robot.Configure(comm.Processors{
		Validator: comm.ValidateFunc(func(comm.PacketType, int) bool { return true }),
		Executor: comm.ExecuteFunc(func(_ context.Context, pkt *comm.Packet) {
			received = pkt.Clone()
		}),
	}, 10)
	data, err = msgs.Encode(&msgs.Frame{Type: 4, Payload: []byte{9}})
	require.NoError(t, err)
	require.NoError(t, New(conn).WritePacket(data))
	require.Eventually(t, func() bool {
		robot.Pump(context.Background())
		return received != nil
	}, 2*time.Second, time.Millisecond)
	require.Equal(t, comm.PacketType(4), received.Type)
	require.Equal(t, []byte{9}, received.Data)
}
