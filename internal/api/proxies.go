package api

import (
	"context"
	"fmt"

	"github.com/rickgao/channel-console/internal/model"
)

// ListProxyServers fetches every proxy server known to the backend,
// including disabled ones. Filtering is the caller's concern.
func (c *Client) ListProxyServers(ctx context.Context) ([]model.ProxyServer, error) {
	var resp []APIProxyServer
	if err := c.get(ctx, "/whatsapp-proxy-servers", nil, &resp); err != nil {
		return nil, fmt.Errorf("list proxy servers: %w", err)
	}

	proxies := make([]model.ProxyServer, 0, len(resp))
	for i := range resp {
		proxies = append(proxies, resp[i].ToModel())
	}
	return proxies, nil
}
