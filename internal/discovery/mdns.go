// ABOUTME: mDNS service discovery for mabridge stream servers
// ABOUTME: Serve mode advertises the websocket stream; players browse for it
package discovery

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/hashicorp/mdns"
	"github.com/sirupsen/logrus"
)

// ServiceType is the mDNS service stream servers advertise
const ServiceType = "_mabridge._tcp"

// Config holds advertisement configuration
type Config struct {
	ServiceName string
	Port        int
	Path        string
	Codec       string
}

// Manager handles mDNS operations
type Manager struct {
	config  Config
	ctx     context.Context
	cancel  context.CancelFunc
	servers chan *ServerInfo
	logger  *logrus.Entry
}

// ServerInfo describes a discovered stream server
type ServerInfo struct {
	Name  string
	Host  string
	Port  int
	Path  string
	Codec string
}

// URL returns the websocket URL of the stream
func (s *ServerInfo) URL() string {
	path := s.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return fmt.Sprintf("ws://%s%s", net.JoinHostPort(s.Host, fmt.Sprint(s.Port)), path)
}

// NewManager creates a discovery manager
func NewManager(config Config) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	if config.Path == "" {
		config.Path = "/stream"
	}

	return &Manager{
		config:  config,
		ctx:     ctx,
		cancel:  cancel,
		servers: make(chan *ServerInfo, 10),
		logger:  logrus.WithField("component", "discovery"),
	}
}

// txtRecords describes the stream to browsers
func (m *Manager) txtRecords() []string {
	txt := []string{"path=" + m.config.Path}
	if m.config.Codec != "" {
		txt = append(txt, "codec="+m.config.Codec)
	}
	return txt
}

// Advertise announces the stream server until Stop
func (m *Manager) Advertise() error {
	ips, err := getLocalIPs()
	if err != nil {
		return fmt.Errorf("failed to get local IPs: %w", err)
	}

	service, err := mdns.NewMDNSService(
		m.config.ServiceName,
		ServiceType,
		"",
		"",
		m.config.Port,
		ips,
		m.txtRecords(),
	)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("failed to create mdns server: %w", err)
	}

	m.logger.Infof("Advertising mDNS service: %s on port %d (type: %s)", m.config.ServiceName, m.config.Port, ServiceType)

	go func() {
		<-m.ctx.Done()
		if err := server.Shutdown(); err != nil {
			m.logger.WithError(err).Debug("mdns shutdown")
		}
	}()

	return nil
}

// Browse searches for stream servers until Stop
func (m *Manager) Browse() {
	go m.browseLoop()
}

// browseLoop continuously browses for servers
func (m *Manager) browseLoop() {
	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		entries := make(chan *mdns.ServiceEntry, 10)
		done := make(chan struct{})

		go func() {
			defer close(done)
			for entry := range entries {
				server := serverFromEntry(entry)
				if server == nil {
					continue
				}
				m.logger.Debugf("Discovered server: %s at %s", server.Name, server.URL())

				select {
				case m.servers <- server:
				case <-m.ctx.Done():
				}
			}
		}()

		params := mdns.DefaultParams(ServiceType)
		params.Timeout = 3 * time.Second
		params.Entries = entries
		params.DisableIPv6 = true
		if err := mdns.Query(params); err != nil {
			m.logger.WithError(err).Debug("mdns query failed")
		}
		close(entries)
		<-done
	}
}

// serverFromEntry converts an mDNS answer, skipping ones without an IPv4 address
func serverFromEntry(entry *mdns.ServiceEntry) *ServerInfo {
	if entry == nil || entry.AddrV4 == nil {
		return nil
	}
	server := &ServerInfo{
		Name: strings.TrimSuffix(entry.Name, "."+ServiceType+".local."),
		Host: entry.AddrV4.String(),
		Port: entry.Port,
		Path: "/stream",
	}
	for _, field := range entry.InfoFields {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		switch key {
		case "path":
			server.Path = value
		case "codec":
			server.Codec = value
		}
	}
	return server
}

// Servers returns the channel of discovered servers
func (m *Manager) Servers() <-chan *ServerInfo {
	return m.servers
}

// Find browses until a server is found or ctx ends
func (m *Manager) Find(ctx context.Context) (*ServerInfo, error) {
	m.Browse()
	select {
	case server := <-m.servers:
		return server, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("no stream server found: %w", ctx.Err())
	}
}

// Stop stops the discovery manager
func (m *Manager) Stop() {
	m.cancel()
}

// getLocalIPs returns local IPv4 addresses
func getLocalIPs() ([]net.IP, error) {
	var ips []net.IP

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() && ipnet.IP.To4() != nil {
				ips = append(ips, ipnet.IP)
			}
		}
	}

	return ips, nil
}
