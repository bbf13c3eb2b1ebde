package stream

import (
	"context"
	"net"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/polylink/pkg/bridge"
	fx "github.com/robotalks/polylink/pkg/framework"
)

// Server accepts stream connections and attaches each to a Bridge.
type Server struct {
	Listener net.Listener
	Bridge   *bridge.Bridge
}

// Listen creates a Server listening on a TCP address.
func Listen(addr string, b *bridge.Bridge) (*Server, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{Listener: l, Bridge: b}, nil
}

// Run implements Runnable.
func (s *Server) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	defer wg.Wait()
	glog.Infof("stream listen on %s", s.Listener.Addr())
	return fx.RunWithContextCloser(ctx, s.Listener, func() error {
		for {
			conn, err := s.Listener.Accept()
			if err != nil {
				return err
			}
			wg.Add(1)
			go func(conn net.Conn) {
				defer wg.Done()
				err := s.Bridge.Pipe(conn.RemoteAddr().String(), New(conn)).Run(ctx)
				glog.V(2).Infof("stream %s closed: %v", conn.RemoteAddr(), err)
			}(conn)
		}
	})
}
