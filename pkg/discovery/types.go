package discovery

import (
	"errors"
	"net"
	"strconv"
	"time"
)

// Service type constants for mDNS.
const (
	// ServiceTypeProbe is the service type of remote probe servers.
	ServiceTypeProbe = "_ccmobs-probe._tcp"

	// Domain is the mDNS domain.
	Domain = "local"

	// DefaultPort is the default probe server port.
	DefaultPort = 4770
)

// TXT record key constants.
const (
	TXTKeyVariant  = "v"  // MCU variant served (e.g. "imxrt1170")
	TXTKeyProtocol = "pv" // Protocol version (e.g. "ccmobs/1.0")
	TXTKeyID       = "id" // Server ID
)

// Timing constants.
const (
	// BrowseTimeout is the default timeout for mDNS browsing.
	BrowseTimeout = 3 * time.Second

	// DefaultTTL is the default DNS record TTL.
	DefaultTTL = 120 * time.Second
)

// Limits.
const (
	// MaxInstanceNameLen is the DNS label limit.
	MaxInstanceNameLen = 63

	// MaxTXTRecordSize is the maximum total TXT record size.
	MaxTXTRecordSize = 400
)

// Discovery errors.
var (
	ErrInvalidTXTRecord    = errors.New("invalid TXT record format")
	ErrMissingRequired     = errors.New("missing required field")
	ErrInstanceNameTooLong = errors.New("instance name exceeds 63 characters")
	ErrNotFound            = errors.New("service not found")
	ErrNoAddress           = errors.New("service has no address")
)

// ProbeInfo is what a probe server advertises.
type ProbeInfo struct {
	// ID is the server ID.
	ID string

	// Variant is the MCU variant of the served target.
	Variant string

	// Protocol is the protocol identifier the server speaks.
	Protocol string

	// Port is the TCP port of the server.
	Port uint16
}

// InstanceName returns the mDNS instance name for the advertised server.
func (i *ProbeInfo) InstanceName() string {
	id := i.ID
	if len(id) > 8 {
		id = id[:8]
	}
	name := "ccmobs-" + i.Variant + "-" + id
	if len(name) > MaxInstanceNameLen {
		name = name[:MaxInstanceNameLen]
	}
	return name
}

// ProbeService is a discovered probe server.
type ProbeService struct {
	// InstanceName is the mDNS instance name.
	InstanceName string

	// Host is the hostname (e.g., "lab-bench-3.local").
	Host string

	// Port is the service port.
	Port uint16

	// Addresses contains resolved IP addresses.
	Addresses []string

	// ID is the server ID (from TXT "id").
	ID string

	// Variant is the served MCU variant (from TXT "v").
	Variant string

	// Protocol is the server protocol (from TXT "pv").
	Protocol string
}

// Address returns a dialable "host:port" for the service, preferring the
// first resolved IP address over the hostname.
func (s *ProbeService) Address() (string, error) {
	host := s.Host
	if len(s.Addresses) > 0 {
		host = s.Addresses[0]
	}
	if host == "" {
		return "", ErrNoAddress
	}
	return net.JoinHostPort(host, strconv.Itoa(int(s.Port))), nil
}
