// Package websocket carries bridge messages as binary websocket messages.
package websocket

import (
	"net/http"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/robotalks/polylink/pkg/bridge"
)

// ReadWriter implements PacketReadWriter.
type ReadWriter websocket.Conn

// New wraps websocket.Conn.
func New(conn *websocket.Conn) *ReadWriter {
	return (*ReadWriter)(conn)
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() (pkt []byte, err error) {
	err = websocket.Message.Receive((*websocket.Conn)(p), &pkt)
	return
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	return websocket.Message.Send((*websocket.Conn)(p), pkt)
}

// Close implements io.Closer.
func (p *ReadWriter) Close() error {
	return (*websocket.Conn)(p).Close()
}

// Handler serves websocket clients of a Bridge.
func Handler(b *bridge.Bridge) http.Handler {
	return websocket.Handler(func(conn *websocket.Conn) {
		req := conn.Request()
		err := b.Pipe(req.RemoteAddr, New(conn)).Run(req.Context())
		glog.V(2).Infof("websocket %s closed: %v", req.RemoteAddr, err)
	})
}
