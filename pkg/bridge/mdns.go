package bridge

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/grandcat/zeroconf"
)

// ServiceType is the mDNS service type of a bridge stream endpoint.
const ServiceType = "_polylink._tcp"

// Advertise registers the bridge via mDNS until ctx is done or the
// returned func is called.
func Advertise(ctx context.Context, instance string, port int, meta []string) (func(), error) {
	if instance == "" {
		host, _ := os.Hostname()
		instance = "polylink-" + host
	}
	svc, err := zeroconf.Register(instance, ServiceType, "local.", port, meta, nil)
	if err != nil {
		return nil, fmt.Errorf("mdns register: %w", err)
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		svc.Shutdown()
	}()
	return func() { close(done) }, nil
}

// Service is a discovered bridge.
type Service struct {
	Instance string
	Host     string
	Port     int
	Text     []string
}

// Address returns host:port of the stream endpoint.
func (s Service) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Discover browses bridges on the local network for the given duration.
func Discover(ctx context.Context, wait time.Duration) ([]Service, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("mdns resolver: %w", err)
	}
	entries := make(chan *zeroconf.ServiceEntry)
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	if err = resolver.Browse(ctx, ServiceType, "local.", entries); err != nil {
		return nil, fmt.Errorf("mdns browse: %w", err)
	}
	var found []Service
	for entry := range entries {
		svc := Service{Instance: entry.Instance, Host: entry.HostName, Port: entry.Port, Text: entry.Text}
		if len(entry.AddrIPv4) > 0 {
			svc.Host = entry.AddrIPv4[0].String()
		}
		found = append(found, svc)
	}
	return found, nil
}
