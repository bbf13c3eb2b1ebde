package uart

import (
	"io"
	"time"

	"github.com/tarm/serial"
)

// Port is the byte stream of a serial device.
type Port interface {
	io.ReadWriteCloser
}

// OpenSerial opens a serial device in 8N1 mode.
func OpenSerial(name string, baud int, readTimeout time.Duration) (Port, error) {
	return serial.OpenPort(&serial.Config{Name: name, Baud: baud, ReadTimeout: readTimeout})
}
