package model

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"
)

// -----------------------------------------------------------------------------
// Channel Connections
// -----------------------------------------------------------------------------

// ChannelType identifies the messaging channel behind a connection.
type ChannelType string

const (
	ChannelWhatsAppUnofficial ChannelType = "whatsapp_unofficial" // QR pairing
	ChannelWhatsAppOfficial   ChannelType = "whatsapp_official"   // Cloud API, not paired here
)

// ConnectionStatus is the backend-reported lifecycle status of a connection.
type ConnectionStatus string

const (
	StatusCreated      ConnectionStatus = "created"
	StatusConnecting   ConnectionStatus = "connecting"
	StatusQRCode       ConnectionStatus = "qr_code"
	StatusConnected    ConnectionStatus = "connected"
	StatusDisconnected ConnectionStatus = "disconnected"
	StatusError        ConnectionStatus = "error"
)

// ChannelConnection is one pairing between the platform and an external
// messaging account.
type ChannelConnection struct {
	ID            int64            // Primary key (backend assigned)
	ChannelType   ChannelType      // Channel variant
	AccountID     string           // Generated account identifier
	AccountName   string           // Operator-facing display name
	ProxyServerID *int64           // Optional proxy (nil = direct)
	Status        ConnectionStatus // Last known backend status
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsConnected reports whether the backend has confirmed the pairing.
func (c ChannelConnection) IsConnected() bool {
	return c.Status == StatusConnected
}

// -----------------------------------------------------------------------------
// Proxy Servers
// -----------------------------------------------------------------------------

// ProxyType is the protocol spoken by a proxy server.
type ProxyType string

const (
	ProxyHTTP   ProxyType = "http"
	ProxyHTTPS  ProxyType = "https"
	ProxySOCKS5 ProxyType = "socks5"
)

// Valid reports whether t is a supported proxy protocol.
func (t ProxyType) Valid() bool {
	switch t {
	case ProxyHTTP, ProxyHTTPS, ProxySOCKS5:
		return true
	}
	return false
}

// Proxy validation errors.
var (
	ErrProxyType = errors.New("unsupported proxy type")
	ErrProxyHost = errors.New("proxy host is required")
	ErrProxyPort = errors.New("proxy port out of range")
)

// ProxyServer is a network intermediary the backend can route a paired
// connection through.
type ProxyServer struct {
	ID       int64
	Name     string
	Type     ProxyType
	Host     string
	Port     int // 1-65535
	Username string
	Password string
	Enabled  bool
}

// Validate checks the fields required to dial the proxy.
func (p ProxyServer) Validate() error {
	if !p.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrProxyType, p.Type)
	}
	if p.Host == "" {
		return ErrProxyHost
	}
	if p.Port < 1 || p.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrProxyPort, p.Port)
	}
	return nil
}

// Address returns host:port.
func (p ProxyServer) Address() string {
	return net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}

// URL returns the proxy as a URL including credentials.
func (p ProxyServer) URL() *url.URL {
	u := &url.URL{
		Scheme: string(p.Type),
		Host:   p.Address(),
	}
	if p.Username != "" {
		if p.Password != "" {
			u.User = url.UserPassword(p.Username, p.Password)
		} else {
			u.User = url.User(p.Username)
		}
	}
	return u
}

// Redacted returns the proxy URL with the password masked, for display.
func (p ProxyServer) Redacted() string {
	return p.URL().Redacted()
}
