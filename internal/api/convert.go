package api

import (
	"time"

	"github.com/rickgao/channel-console/internal/model"
)

// ParseTimestamp parses an ISO 8601 timestamp. Returns the zero time on
// empty or malformed input.
func ParseTimestamp(iso string) time.Time {
	if iso == "" {
		return time.Time{}
	}

	t, err := time.Parse(time.RFC3339Nano, iso)
	if err != nil {
		// Try without fractional seconds or zone
		t, err = time.Parse("2006-01-02T15:04:05", iso)
		if err != nil {
			return time.Time{}
		}
	}

	return t.UTC()
}

// ToModel converts an APIConnection to a model.ChannelConnection.
func (c *APIConnection) ToModel() model.ChannelConnection {
	return model.ChannelConnection{
		ID:            c.ID,
		ChannelType:   model.ChannelType(c.ChannelType),
		AccountID:     c.AccountID,
		AccountName:   c.AccountName,
		ProxyServerID: c.ProxyServerID,
		Status:        model.ConnectionStatus(c.Status),
		CreatedAt:     ParseTimestamp(c.CreatedAt),
		UpdatedAt:     ParseTimestamp(c.UpdatedAt),
	}
}

// ToModel converts an APIProxyServer to a model.ProxyServer. A proxy with
// neither enabled flag present is treated as enabled.
func (p *APIProxyServer) ToModel() model.ProxyServer {
	enabled := true
	switch {
	case p.Enabled != nil:
		enabled = *p.Enabled
	case p.IsActive != nil:
		enabled = *p.IsActive
	}

	return model.ProxyServer{
		ID:       p.ID,
		Name:     p.Name,
		Type:     model.ProxyType(p.Type),
		Host:     p.Host,
		Port:     p.Port,
		Username: p.Username,
		Password: p.Password,
		Enabled:  enabled,
	}
}
