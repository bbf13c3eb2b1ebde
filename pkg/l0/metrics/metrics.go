// Package metrics exports protocol engine counters to prometheus.
package metrics

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/robotalks/polylink/pkg/l0/comm"
)

// Prometheus counters
var (
	RxFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polylink_rx_frames_total",
		Help: "Total frames verified and dispatched.",
	})
	TxFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polylink_tx_frames_total",
		Help: "Total frames loaded for transmission.",
	})
	RxOverflows = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polylink_rx_overflow_bytes_total",
		Help: "Total received bytes discarded by a full receive ring.",
	})
	RejectedFrames = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polylink_rejected_frames_total",
		Help: "Frame candidates rejected by the parser, by reason.",
	}, []string{"reason"})
	BridgeMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polylink_bridge_messages_total",
		Help: "Packets forwarded by the bridge, by direction.",
	}, []string{"dir"})
	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polylink_errors_total",
		Help: "Error counters by subsystem.",
	}, []string{"where"})

	readinessMu sync.RWMutex
	readinessFn func() bool
)

// Label values.
const (
	ReasonBadType   = "bad_type"
	ReasonBadLength = "bad_length"
	ReasonChecksum  = "checksum"
	ReasonOverrun   = "overrun"
	ReasonState     = "parser_state"
	DirUplink       = "uplink"
	DirDownlink     = "downlink"
	DirDropped      = "dropped"
	ErrSend         = "send"
	ErrBridgeRead   = "bridge_read"
	ErrBridgeWrite  = "bridge_write"
	ErrBridgeDecode = "bridge_decode"
	ErrSerialLink   = "serial_link"
)

var reasons = map[error]string{
	comm.ErrBadType:     ReasonBadType,
	comm.ErrBadLength:   ReasonBadLength,
	comm.ErrChecksum:    ReasonChecksum,
	comm.ErrOverrun:     ReasonOverrun,
	comm.ErrParserState: ReasonState,
}

// Local mirrored counters.
var (
	localRx        uint64
	localTx        uint64
	localOverflows uint64
	localRejected  uint64
	localUplink    uint64
	localDownlink  uint64
	localDropped   uint64
	localErrors    uint64
)

// Snapshot is a copy of local counters.
type Snapshot struct {
	RxFrames  uint64
	TxFrames  uint64
	Overflows uint64
	Rejected  uint64
	Uplink    uint64
	Downlink  uint64
	Dropped   uint64
	Errors    uint64
}

// Snap returns current local counters.
func Snap() Snapshot {
	return Snapshot{
		RxFrames:  atomic.LoadUint64(&localRx),
		TxFrames:  atomic.LoadUint64(&localTx),
		Overflows: atomic.LoadUint64(&localOverflows),
		Rejected:  atomic.LoadUint64(&localRejected),
		Uplink:    atomic.LoadUint64(&localUplink),
		Downlink:  atomic.LoadUint64(&localDownlink),
		Dropped:   atomic.LoadUint64(&localDropped),
		Errors:    atomic.LoadUint64(&localErrors),
	}
}

func IncRx() {
	RxFrames.Inc()
	atomic.AddUint64(&localRx, 1)
}

func IncTx() {
	TxFrames.Inc()
	atomic.AddUint64(&localTx, 1)
}

func IncOverflow() {
	RxOverflows.Inc()
	atomic.AddUint64(&localOverflows, 1)
}

// IncRejected counts a parser rejection classified by err.
func IncRejected(err error) {
	reason, ok := reasons[err]
	if !ok {
		reason = "other"
	}
	RejectedFrames.WithLabelValues(reason).Inc()
	atomic.AddUint64(&localRejected, 1)
}

// IncBridge counts a bridged packet in direction dir.
func IncBridge(dir string) {
	BridgeMessages.WithLabelValues(dir).Inc()
	switch dir {
	case DirUplink:
		atomic.AddUint64(&localUplink, 1)
	case DirDownlink:
		atomic.AddUint64(&localDownlink, 1)
	case DirDropped:
		atomic.AddUint64(&localDropped, 1)
	}
}

func IncError(label string) {
	Errors.WithLabelValues(label).Inc()
	atomic.AddUint64(&localErrors, 1)
}

// Install chains engine hooks to the counters. Hooks already set are
// still called.
func Install(e *comm.Engine) {
	h := e.Hooks
	e.Hooks.OnFrame = func(pkt *comm.Packet) {
		IncRx()
		if h.OnFrame != nil {
			h.OnFrame(pkt)
		}
	}
	e.Hooks.OnSent = func(pkt *comm.Packet) {
		IncTx()
		if h.OnSent != nil {
			h.OnSent(pkt)
		}
	}
	e.Hooks.OnOverflow = func() {
		IncOverflow()
		if h.OnOverflow != nil {
			h.OnOverflow()
		}
	}
	e.Hooks.OnCorrupt = func(err error) {
		IncRejected(err)
		if h.OnCorrupt != nil {
			h.OnCorrupt(err)
		}
	}
}

// Init pre-registers label series.
func Init() {
	for _, r := range reasons {
		RejectedFrames.WithLabelValues(r).Add(0)
	}
	for _, d := range []string{DirUplink, DirDownlink, DirDropped} {
		BridgeMessages.WithLabelValues(d).Add(0)
	}
	for _, lbl := range []string{ErrSend, ErrBridgeRead, ErrBridgeWrite, ErrBridgeDecode, ErrSerialLink} {
		Errors.WithLabelValues(lbl).Add(0)
	}
}

// SetReadinessFunc registers a function used by /ready.
func SetReadinessFunc(fn func() bool) {
	readinessMu.Lock()
	readinessFn = fn
	readinessMu.Unlock()
}

// IsReady invokes the registered readiness function, true if not set.
func IsReady() bool {
	readinessMu.RLock()
	fn := readinessFn
	readinessMu.RUnlock()
	if fn == nil {
		return true
	}
	return fn()
}

// Handler serves /metrics and /ready.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if IsReady() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready\n"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready\n"))
	})
	return mux
}

// StartHTTP serves Handler on addr in background.
func StartHTTP(addr string) *http.Server {
	srv := &http.Server{Addr: addr, Handler: Handler()}
	go func() {
		glog.Infof("metrics listen on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			glog.Errorf("metrics http error: %v", err)
		}
	}()
	return srv
}

// LogPeriodically logs a snapshot every interval until ctx is done.
func LogPeriodically(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			s := Snap()
			glog.Infof("metrics rx=%d tx=%d overflows=%d rejected=%d uplink=%d downlink=%d dropped=%d errors=%d",
				s.RxFrames, s.TxFrames, s.Overflows, s.Rejected, s.Uplink, s.Downlink, s.Dropped, s.Errors)
		case <-ctx.Done():
			return
		}
	}
}
