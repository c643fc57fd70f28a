package discovery

import (
	"errors"
	"time"
)

// Service constants.
const (
	// ServiceType is the DNS-SD service type of the order server.
	ServiceType = "_easyorder._tcp"

	// Domain is the mDNS domain.
	Domain = "local"

	// DefaultPort is the default order server port.
	DefaultPort = 8080

	// DefaultTTL is the default DNS record TTL.
	DefaultTTL = 120 * time.Second

	// BrowseTimeout is the default lookup timeout.
	BrowseTimeout = 5 * time.Second

	// MaxInstanceNameLen is the DNS label limit.
	MaxInstanceNameLen = 63
)

// TXT record keys.
const (
	TXTKeyScheme     = "sch"
	TXTKeyPath       = "path"
	TXTKeyRestaurant = "rid"
	TXTKeyVersion    = "ver"
)

// ServerInfo is what the order server advertises.
type ServerInfo struct {
	// Instance is the advertised instance name.
	Instance string

	// Port the server listens on (default: DefaultPort).
	Port uint16

	// Scheme is ws, wss or tcp.
	Scheme string

	// Path is the WebSocket endpoint path. Ignored for tcp.
	Path string

	Restaurant string
	Version    string
}

// Service is a discovered order server.
type Service struct {
	Instance  string
	Host      string
	Port      uint16
	Addresses []string

	Scheme     string
	Path       string
	Restaurant string
	Version    string
}

// Errors.
var (
	ErrMissingRequired     = errors.New("missing required field")
	ErrInvalidScheme       = errors.New("invalid transport scheme")
	ErrInstanceNameTooLong = errors.New("instance name exceeds 63 characters")
	ErrNotFound            = errors.New("service not found")
)
