// Package mdns advertises and discovers taskboard servers on the local network.
package mdns

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/mdns"
)

const (
	// ServiceType is the mDNS service type for taskboard servers.
	ServiceType = "_taskboard._tcp"

	// APIVersion is the API version advertised in TXT records.
	APIVersion = "v1"
)

// Advertisement is what a server publishes about itself.
type Advertisement struct {
	Name    string
	Version string
	Port    int
}

// txtRecords builds the TXT payload for a.
func (a Advertisement) txtRecords() []string {
	return []string{
		"name=" + a.Name,
		"version=" + a.Version,
		"api=" + APIVersion,
	}
}

// Service manages mDNS advertisement for the server.
type Service struct {
	server *mdns.Server
	logger *slog.Logger
	mu     sync.Mutex
}

// NewService creates a new mDNS service.
func NewService(logger *slog.Logger) *Service {
	return &Service{logger: logger}
}

// Start begins advertising the server. It restarts the advertisement if one
// is already running. Errors are usually environmental (no multicast in
// containers) and callers treat them as non-fatal.
func (s *Service) Start(ad Advertisement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		_ = s.server.Shutdown()
		s.server = nil
	}

	host, err := os.Hostname()
	if err != nil {
		host = "taskboard-server"
	}

	service, err := mdns.NewMDNSService(host, ServiceType, "", "", ad.Port, nil, ad.txtRecords())
	if err != nil {
		return fmt.Errorf("create mDNS service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("start mDNS server: %w", err)
	}
	s.server = server

	s.logger.Info("mDNS advertisement started",
		"service", ServiceType,
		"port", ad.Port,
		"name", ad.Name,
	)
	return nil
}

// Stop stops advertising. Safe to call multiple times or if not started.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		_ = s.server.Shutdown()
		s.server = nil
		s.logger.Info("mDNS advertisement stopped")
	}
}

// Running reports whether an advertisement is active.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.server != nil
}

// Server is a discovered taskboard server.
type Server struct {
	Name    string
	Host    string
	Addr    net.IP
	Port    int
	Version string
	API     string
}

// URL returns the base URL clients use to reach the server.
func (s Server) URL() string {
	return "http://" + net.JoinHostPort(s.Addr.String(), strconv.Itoa(s.Port))
}

// Discover queries the local network for servers until timeout or ctx ends.
// Results are deduplicated by address and sorted by name.
func Discover(ctx context.Context, timeout time.Duration) ([]Server, error) {
	entries := make(chan *mdns.ServiceEntry, 16)
	found := make(map[string]Server)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for e := range entries {
			if srv, ok := fromEntry(e); ok {
				found[srv.URL()] = srv
			}
		}
	}()

	params := mdns.DefaultParams(ServiceType)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true

	errc := make(chan error, 1)
	go func() { errc <- mdns.Query(params) }()

	var err error
	select {
	case err = <-errc:
	case <-ctx.Done():
		err = ctx.Err()
		// Query owns the channel until it returns.
		<-errc
	}
	close(entries)
	<-done

	if err != nil {
		return nil, fmt.Errorf("mDNS query: %w", err)
	}

	servers := make([]Server, 0, len(found))
	for _, srv := range found {
		servers = append(servers, srv)
	}
	slices.SortFunc(servers, func(a, b Server) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.URL(), b.URL())
	})
	return servers, nil
}

// fromEntry converts a service entry, rejecting entries without an address
// or from other services.
func fromEntry(e *mdns.ServiceEntry) (Server, bool) {
	if e == nil || e.AddrV4 == nil || !strings.Contains(e.Name, ServiceType) {
		return Server{}, false
	}
	srv := Server{
		Host: e.Host,
		Addr: e.AddrV4,
		Port: e.Port,
	}
	for _, field := range e.InfoFields {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		switch key {
		case "name":
			srv.Name = value
		case "version":
			srv.Version = value
		case "api":
			srv.API = value
		}
	}
	if srv.Name == "" {
		srv.Name = strings.TrimSuffix(e.Host, ".")
	}
	return srv, true
}
