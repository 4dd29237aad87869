package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rickgao/channel-console/internal/model"
)

// CreateConnection creates a pending channel connection record.
func (c *Client) CreateConnection(ctx context.Context, req CreateConnectionRequest) (*model.ChannelConnection, error) {
	if req.ConnectionData == nil {
		req.ConnectionData = map[string]any{}
	}

	var resp APIConnection
	if err := c.send(ctx, http.MethodPost, "/channel-connections", req, &resp); err != nil {
		return nil, fmt.Errorf("create connection: %w", err)
	}
	if resp.ID == 0 {
		return nil, fmt.Errorf("create connection: response missing id")
	}

	conn := resp.ToModel()
	return &conn, nil
}

// UpdateProxy reassigns the proxy of an existing connection. A nil proxyID
// clears the assignment.
func (c *Client) UpdateProxy(ctx context.Context, id int64, proxyID *int64) error {
	path := fmt.Sprintf("/channel-connections/%d/proxy", id)
	if err := c.send(ctx, http.MethodPut, path, updateProxyRequest{ProxyServerID: proxyID}, nil); err != nil {
		return fmt.Errorf("update proxy for connection %d: %w", id, err)
	}
	return nil
}

// Connect asks the backend to start pairing. The QR code arrives over the
// realtime channel.
func (c *Client) Connect(ctx context.Context, id int64) error {
	if err := c.send(ctx, http.MethodPost, fmt.Sprintf("/whatsapp/connect/%d", id), nil, nil); err != nil {
		return fmt.Errorf("connect %d: %w", id, err)
	}
	return nil
}

// Reconnect asks the backend to restart pairing for an existing record.
func (c *Client) Reconnect(ctx context.Context, id int64) error {
	if err := c.send(ctx, http.MethodPost, fmt.Sprintf("/channel-connections/%d/reconnect", id), nil, nil); err != nil {
		return fmt.Errorf("reconnect %d: %w", id, err)
	}
	return nil
}

// Disconnect tears down the backend pairing without removing the record.
func (c *Client) Disconnect(ctx context.Context, id int64) error {
	if err := c.send(ctx, http.MethodPost, fmt.Sprintf("/whatsapp/disconnect/%d", id), nil, nil); err != nil {
		return fmt.Errorf("disconnect %d: %w", id, err)
	}
	return nil
}

// DeleteConnection removes a connection record.
func (c *Client) DeleteConnection(ctx context.Context, id int64) error {
	if err := c.send(ctx, http.MethodDelete, fmt.Sprintf("/channel-connections/%d", id), nil, nil); err != nil {
		return fmt.Errorf("delete connection %d: %w", id, err)
	}
	return nil
}

// GetConnection fetches a single connection record.
func (c *Client) GetConnection(ctx context.Context, id int64) (*model.ChannelConnection, error) {
	var resp APIConnection
	if err := c.get(ctx, fmt.Sprintf("/channel-connections/%d", id), nil, &resp); err != nil {
		return nil, fmt.Errorf("get connection %d: %w", id, err)
	}

	conn := resp.ToModel()
	return &conn, nil
}

// ListConnections fetches all connection records visible to the caller.
func (c *Client) ListConnections(ctx context.Context) ([]model.ChannelConnection, error) {
	var resp []APIConnection
	if err := c.get(ctx, "/channel-connections", nil, &resp); err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}

	conns := make([]model.ChannelConnection, 0, len(resp))
	for i := range resp {
		conns = append(conns, resp[i].ToModel())
	}
	return conns, nil
}
