package api

// CreateConnectionRequest is the body of POST /channel-connections.
type CreateConnectionRequest struct {
	ChannelType    string         `json:"channelType"`
	AccountID      string         `json:"accountId"`
	AccountName    string         `json:"accountName"`
	ProxyServerID  *int64         `json:"proxyServerId"`
	ConnectionData map[string]any `json:"connectionData"`
}

// updateProxyRequest is the body of PUT /channel-connections/{id}/proxy.
type updateProxyRequest struct {
	ProxyServerID *int64 `json:"proxyServerId"`
}

// APIConnection is a channel connection record as returned by the backend.
type APIConnection struct {
	ID            int64  `json:"id"`
	ChannelType   string `json:"channelType"`
	AccountID     string `json:"accountId"`
	AccountName   string `json:"accountName"`
	ProxyServerID *int64 `json:"proxyServerId"`
	Status        string `json:"status"`

	// Timestamps (ISO 8601)
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// APIProxyServer is a proxy record from GET /whatsapp-proxy-servers.
type APIProxyServer struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`

	// Older backends report isActive instead of enabled.
	Enabled  *bool `json:"enabled,omitempty"`
	IsActive *bool `json:"isActive,omitempty"`
}
