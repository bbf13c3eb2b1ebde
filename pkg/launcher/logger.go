package launcher

import (
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/golang/glog"

	"github.com/robotalks/polylink/pkg/l0/comm"
)

// LinkLogger sends log messages and fault reports to the host as
// downlink packets. Messages are also written to glog.
type LinkLogger struct {
	Sender Sender
}

// Debugf sends a DebugLog.
func (l *LinkLogger) Debugf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	glog.V(1).Info(msg)
	l.send(DebugLog, AppendString(nil, msg, comm.MaxPayload))
}

// Warningf sends a WarningLog.
func (l *LinkLogger) Warningf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	glog.Warning(msg)
	l.send(WarningLog, AppendString(nil, msg, comm.MaxPayload))
}

// Criticalf sends a CriticalLog.
func (l *LinkLogger) Criticalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	glog.Error(msg)
	l.send(CriticalLog, AppendString(nil, msg, comm.MaxPayload))
}

// SoftwareFault reports a bug at the caller's location.
func (l *LinkLogger) SoftwareFault(message string, arg1, arg2 uint16) {
	_, file, line, ok := runtime.Caller(1)
	if !ok {
		file, line = "???", 0
	}
	l.Fault(Fault{File: filepath.Base(file), Line: uint16(line), Arg1: arg1, Arg2: arg2, Message: message})
}

// Fault sends a SoftwareFault report.
func (l *LinkLogger) Fault(f Fault) {
	glog.Errorf("software fault %s", f)
	l.send(SoftwareFault, f.Bytes())
}

func (l *LinkLogger) send(typ comm.PacketType, payload []byte) {
	if l == nil || l.Sender == nil {
		return
	}
	if err := l.Sender.Send(comm.NewPacket(typ, payload...)); err != nil {
		glog.Warningf("send %s failed: %v", TypeName(typ), err)
	}
}
