// Package uart provides byte transports for the L0 protocol engine.
package uart

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/polylink/pkg/l0/comm"
)

const (
	readBufSize = 256
	backoffMin  = 10 * time.Millisecond
	backoffMax  = time.Second
)

// Link runs an engine over a Port. Received bytes are fed to the engine
// from a reader goroutine, transmission is drained by a writer goroutine
// whenever the engine arms it.
type Link struct {
	Port Port

	isr   comm.ISR
	armCh chan struct{}
	txBuf []byte
}

// New creates a Link over port.
func New(port Port) *Link {
	return &Link{
		Port:  port,
		armCh: make(chan struct{}, 1),
		txBuf: make([]byte, 0, comm.MaxFrameSize),
	}
}

// Attach implements comm.Link.
func (l *Link) Attach(isr comm.ISR) {
	l.isr = isr
}

// ArmTransmit implements comm.Link.
func (l *Link) ArmTransmit() {
	select {
	case l.armCh <- struct{}{}:
	default:
	}
}

// Run implements fx.Runnable. The Port is closed when Run returns.
func (l *Link) Run(ctx context.Context) error {
	if l.isr == nil {
		return errors.New("link not attached")
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	errCh := make(chan error, 2)
	go func() { errCh <- l.receive(ctx) }()
	go func() { errCh <- l.transmit(ctx) }()
	err := <-errCh
	cancel()
	l.Port.Close()
	<-errCh
	return err
}

func (l *Link) receive(ctx context.Context) error {
	buf := make([]byte, readBufSize)
	backoff := backoffMin
	for {
		n, err := l.Port.Read(buf)
		for _, b := range buf[:n] {
			l.isr.OnByteReceived(b)
		}
		if n > 0 {
			backoff = backoffMin
		}
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var perr *os.PathError
		if errors.As(err, &perr) {
			return err
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			continue
		}
		glog.Warningf("uart read error: %v, retry in %s", err, backoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff *= 2; backoff > backoffMax {
			backoff = backoffMax
		}
	}
}

func (l *Link) transmit(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.armCh:
		}
		buf := l.txBuf[:0]
		for {
			b, ok := l.isr.OnTransmitReady()
			if !ok {
				break
			}
			buf = append(buf, b)
		}
		if len(buf) == 0 {
			continue
		}
		if _, err := l.Port.Write(buf); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			glog.Errorf("uart write error: %v", err)
		}
	}
}
