// Package discovery announces the server on the local network over mDNS
// so client devices can find it without manual addressing.
package discovery

import (
	"fmt"
	"net"
	"os"

	"github.com/grandcat/zeroconf"

	"pbserver/internal/backup"
)

// ServiceType is the mDNS service type clients browse for.
const ServiceType = "_photobackup._tcp"

// Service is a registered mDNS announcement.
type Service struct {
	server *zeroconf.Server
	logger backup.Logger
}

// Register announces the service on the local domain. The TXT records
// carry the server identity so a paired client can tell servers apart.
func Register(serviceName string, port int, serverID string, logger backup.Logger) (*Service, error) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	srv, err := zeroconf.Register(serviceName, ServiceType, "local.", port, TXTRecords(hostname, serverID), nil)
	if err != nil {
		return nil, fmt.Errorf("registering mDNS service: %w", err)
	}

	logger.Info("mDNS service registered",
		"service", serviceName, "type", ServiceType, "address", LocalIP(), "port", port)
	return &Service{server: srv, logger: logger}, nil
}

// TXTRecords builds the announcement's TXT properties.
func TXTRecords(hostname, serverID string) []string {
	return []string{
		"version=1.0",
		"serverName=" + hostname,
		"serverId=" + serverID,
	}
}

// Shutdown withdraws the announcement.
func (s *Service) Shutdown() {
	s.logger.Info("unregistering mDNS service")
	s.server.Shutdown()
}

// LocalIP returns this machine's LAN address. It opens a UDP socket
// toward a public address purely to learn which local interface routing
// would pick; no packet is sent.
func LocalIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String()
}
