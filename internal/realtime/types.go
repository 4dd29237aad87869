package realtime

import (
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected   = errors.New("not connected")
	ErrAlreadyClosed  = errors.New("already closed")
	ErrAlreadyStarted = errors.New("already started")
	ErrMissingType    = errors.New("message missing type")
)

// MessageType identifies a server→client frame.
type MessageType string

const (
	TypeAuthenticate     MessageType = "authenticate"
	TypeQRCode           MessageType = "whatsappQrCode"
	TypeConnectionStatus MessageType = "whatsappConnectionStatus"
	TypeConnectionError  MessageType = "whatsappConnectionError"
)

// Message is a decoded server frame. Only the fields relevant to Type are set.
type Message struct {
	Type         MessageType `json:"type"`
	ConnectionID int64       `json:"connectionId"`
	QRCode       string      `json:"qrCode,omitempty"`
	Status       string      `json:"status,omitempty"`
	Error        string      `json:"error,omitempty"`
}

// Known reports whether the message type is one the console consumes.
func (m Message) Known() bool {
	switch m.Type {
	case TypeQRCode, TypeConnectionStatus, TypeConnectionError:
		return true
	}
	return false
}

// authenticateMessage is sent immediately after every successful dial.
type authenticateMessage struct {
	Type   MessageType `json:"type"`
	UserID int64       `json:"userId"`
}

// Handler receives decoded messages in arrival order.
type Handler func(Message)

// SocketState is a snapshot of the socket session.
type SocketState struct {
	Connected         bool
	ReconnectAttempts int
	CooldownActive    bool
}

// ClientConfig configures a realtime Client.
type ClientConfig struct {
	URL               string        // ws:// or wss:// endpoint
	ReconnectInterval time.Duration // Fixed wait between reconnect attempts
	MaxAttempts       int           // Attempts before cooldown
	CooldownInterval  time.Duration // Pause after MaxAttempts failures
	PingInterval      time.Duration // Keepalive ping period (0 = disabled)
	WriteTimeout      time.Duration // Write deadline for frames
	HandshakeTimeout  time.Duration
}

// DefaultClientConfig returns the production reconnect policy.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		ReconnectInterval: 2 * time.Second,
		MaxAttempts:       5,
		CooldownInterval:  60 * time.Second,
		PingInterval:      30 * time.Second,
		WriteTimeout:      5 * time.Second,
		HandshakeTimeout:  10 * time.Second,
	}
}

// Policy returns the reconnect policy described by the config.
func (c ClientConfig) Policy() Policy {
	return Policy{
		Interval:    c.ReconnectInterval,
		MaxAttempts: c.MaxAttempts,
		Cooldown:    c.CooldownInterval,
	}
}
