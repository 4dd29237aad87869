package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rickgao/channel-console/internal/auth"
	"github.com/rickgao/channel-console/internal/model"
)

// newTestClient returns a client against server with fast retries.
func newTestClient(server *httptest.Server) *Client {
	return NewClient(server.URL, &auth.Credentials{Token: "tok"},
		WithRetries(2, time.Millisecond),
	)
}

func TestNewClient(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		c := NewClient("https://api.example.com/", nil)

		if c.baseURL != "https://api.example.com" {
			t.Errorf("baseURL = %q, want %q", c.baseURL, "https://api.example.com")
		}
		if c.httpClient.Timeout != 30*time.Second {
			t.Errorf("Timeout = %v, want %v", c.httpClient.Timeout, 30*time.Second)
		}
		if c.maxRetries != 3 {
			t.Errorf("maxRetries = %d, want 3", c.maxRetries)
		}
		if c.logger == nil {
			t.Error("logger should not be nil")
		}
	})

	t.Run("with options", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		hc := &http.Client{}
		c := NewClient("https://api.example.com", nil,
			WithHTTPClient(hc),
			WithTimeout(15*time.Second),
			WithRetries(10, 500*time.Millisecond),
			WithLogger(logger),
		)

		if c.httpClient != hc {
			t.Error("custom HTTP client not set")
		}
		if c.httpClient.Timeout != 15*time.Second {
			t.Errorf("Timeout = %v, want 15s", c.httpClient.Timeout)
		}
		if c.maxRetries != 10 || c.retryBackoff != 500*time.Millisecond {
			t.Errorf("retries = %d/%v, want 10/500ms", c.maxRetries, c.retryBackoff)
		}
		if c.logger != logger {
			t.Error("logger not set correctly")
		}
	})
}

func TestAPIError(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
	}{
		{http.StatusBadRequest, false},
		{http.StatusNotFound, false},
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
	}

	for _, tt := range tests {
		err := &APIError{StatusCode: tt.status, Message: "x"}
		if got := err.IsRetryable(); got != tt.retryable {
			t.Errorf("IsRetryable(%d) = %v, want %v", tt.status, got, tt.retryable)
		}
	}

	if msg := (&APIError{StatusCode: 500, Message: "boom"}).Error(); msg != "connection api error 500: boom" {
		t.Errorf("Error() = %q", msg)
	}
}

func TestDoRequest(t *testing.T) {
	t.Run("sets headers and body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Authorization"); got != "Bearer tok" {
				t.Errorf("Authorization = %q", got)
			}
			if got := r.Header.Get("Accept"); got != "application/json" {
				t.Errorf("Accept = %q", got)
			}
			if got := r.Header.Get("Content-Type"); got != "application/json" {
				t.Errorf("Content-Type = %q", got)
			}
			body, _ := io.ReadAll(r.Body)
			if string(body) != `{"a":1}` {
				t.Errorf("body = %s", body)
			}
			w.Write([]byte(`{}`))
		}))
		defer server.Close()

		c := newTestClient(server)
		if _, err := c.doRequest(context.Background(), http.MethodPost, "/x", nil, map[string]int{"a": 1}); err != nil {
			t.Fatalf("doRequest: %v", err)
		}
	})

	t.Run("user agent", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("User-Agent"); got != "pairctl/test" {
				t.Errorf("User-Agent = %q", got)
			}
			w.Write([]byte(`{}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, nil, WithRetries(0, time.Millisecond), WithUserAgent("pairctl/test"))
		if _, err := c.doRequest(context.Background(), http.MethodGet, "/x", nil, nil); err != nil {
			t.Fatalf("doRequest: %v", err)
		}
	})

	t.Run("error message from json body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"message":"account already exists"}`))
		}))
		defer server.Close()

		_, err := newTestClient(server).doRequest(context.Background(), http.MethodGet, "/x", nil, nil)
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected *APIError, got %v", err)
		}
		if apiErr.Message != "account already exists" {
			t.Errorf("Message = %q", apiErr.Message)
		}
	})

	t.Run("error message falls back to status text", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`not json`))
		}))
		defer server.Close()

		_, err := newTestClient(server).doRequest(context.Background(), http.MethodGet, "/x", nil, nil)
		if !IsNotFound(err) {
			t.Fatalf("expected not found, got %v", err)
		}
		var apiErr *APIError
		errors.As(err, &apiErr)
		if apiErr.Message != "Not Found" {
			t.Errorf("Message = %q, want Not Found", apiErr.Message)
		}
	})
}

func TestDoWithRetry(t *testing.T) {
	t.Run("retries on 5xx", func(t *testing.T) {
		var attempts int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&attempts, 1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Write([]byte(`[]`))
		}))
		defer server.Close()

		if _, err := newTestClient(server).doWithRetry(context.Background(), "/x", nil); err != nil {
			t.Fatalf("doWithRetry: %v", err)
		}
		if got := atomic.LoadInt32(&attempts); got != 3 {
			t.Errorf("attempts = %d, want 3", got)
		}
	})

	t.Run("no retry on 4xx", func(t *testing.T) {
		var attempts int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&attempts, 1)
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer server.Close()

		if _, err := newTestClient(server).doWithRetry(context.Background(), "/x", nil); err == nil {
			t.Fatal("expected error")
		}
		if got := atomic.LoadInt32(&attempts); got != 1 {
			t.Errorf("attempts = %d, want 1", got)
		}
	})

	t.Run("max retries exceeded", func(t *testing.T) {
		var attempts int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&attempts, 1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		_, err := newTestClient(server).doWithRetry(context.Background(), "/x", nil)
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected wrapped *APIError, got %v", err)
		}
		if got := atomic.LoadInt32(&attempts); got != 3 {
			t.Errorf("attempts = %d, want 3", got)
		}
	})
}

func TestMutatingRequestsAreNotRetried(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	if err := newTestClient(server).Connect(context.Background(), 7); err == nil {
		t.Fatal("expected error")
	}
	if got := atomic.LoadInt32(&attempts); got != 1 {
		t.Errorf("attempts = %d, want exactly 1", got)
	}
}

func TestDecodeData(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int64
	}{
		{"bare", `{"id":5}`, 5},
		{"enveloped", `{"data":{"id":6}}`, 6},
		{"null data", `{"data":null,"id":7}`, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got APIConnection
			if err := decodeData([]byte(tt.body), &got); err != nil {
				t.Fatalf("decodeData: %v", err)
			}
			if got.ID != tt.want {
				t.Errorf("ID = %d, want %d", got.ID, tt.want)
			}
		})
	}

	var list []APIProxyServer
	if err := decodeData([]byte(`{"data":[{"id":1},{"id":2}]}`), &list); err != nil {
		t.Fatalf("decodeData list: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("len = %d, want 2", len(list))
	}
}

func TestCreateConnection(t *testing.T) {
	proxyID := int64(3)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/channel-connections" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
			return
		}
		if body["channelType"] != "whatsapp_unofficial" {
			t.Errorf("channelType = %v", body["channelType"])
		}
		if body["proxyServerId"] != float64(3) {
			t.Errorf("proxyServerId = %v", body["proxyServerId"])
		}
		if _, ok := body["connectionData"].(map[string]any); !ok {
			t.Errorf("connectionData = %v, want object", body["connectionData"])
		}

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data":{"id":42,"channelType":"whatsapp_unofficial","accountId":"whatsapp_x","accountName":"Sales","proxyServerId":3,"status":"created","createdAt":"2026-01-02T03:04:05Z"}}`))
	}))
	defer server.Close()

	conn, err := newTestClient(server).CreateConnection(context.Background(), CreateConnectionRequest{
		ChannelType:   string(model.ChannelWhatsAppUnofficial),
		AccountID:     "whatsapp_x",
		AccountName:   "Sales",
		ProxyServerID: &proxyID,
	})
	if err != nil {
		t.Fatalf("CreateConnection: %v", err)
	}
	if conn.ID != 42 || conn.Status != model.StatusCreated {
		t.Errorf("conn = %+v", conn)
	}
	if conn.ProxyServerID == nil || *conn.ProxyServerID != 3 {
		t.Errorf("ProxyServerID = %v, want 3", conn.ProxyServerID)
	}
	if conn.CreatedAt.IsZero() {
		t.Error("CreatedAt not parsed")
	}
}

func TestCreateConnectionMissingID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	if _, err := newTestClient(server).CreateConnection(context.Background(), CreateConnectionRequest{}); err == nil {
		t.Error("expected error for response without id")
	}
}

func TestConnectionEndpoints(t *testing.T) {
	tests := []struct {
		name       string
		call       func(c *Client) error
		wantMethod string
		wantPath   string
	}{
		{"connect", func(c *Client) error { return c.Connect(context.Background(), 9) }, http.MethodPost, "/whatsapp/connect/9"},
		{"reconnect", func(c *Client) error { return c.Reconnect(context.Background(), 9) }, http.MethodPost, "/channel-connections/9/reconnect"},
		{"disconnect", func(c *Client) error { return c.Disconnect(context.Background(), 9) }, http.MethodPost, "/whatsapp/disconnect/9"},
		{"delete", func(c *Client) error { return c.DeleteConnection(context.Background(), 9) }, http.MethodDelete, "/channel-connections/9"},
		{"update proxy", func(c *Client) error { return c.UpdateProxy(context.Background(), 9, nil) }, http.MethodPut, "/channel-connections/9/proxy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotMethod, gotPath string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotMethod, gotPath = r.Method, r.URL.Path
				w.WriteHeader(http.StatusNoContent)
			}))
			defer server.Close()

			if err := tt.call(newTestClient(server)); err != nil {
				t.Fatalf("call: %v", err)
			}
			if gotMethod != tt.wantMethod || gotPath != tt.wantPath {
				t.Errorf("request = %s %s, want %s %s", gotMethod, gotPath, tt.wantMethod, tt.wantPath)
			}
		})
	}
}

func TestUpdateProxyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"proxyServerId":null}` {
			t.Errorf("body = %s", body)
		}
	}))
	defer server.Close()

	if err := newTestClient(server).UpdateProxy(context.Background(), 1, nil); err != nil {
		t.Fatalf("UpdateProxy: %v", err)
	}
}

func TestListConnections(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":1,"status":"connected"},{"id":2,"status":"qr_code"}]`))
	}))
	defer server.Close()

	conns, err := newTestClient(server).ListConnections(context.Background())
	if err != nil {
		t.Fatalf("ListConnections: %v", err)
	}
	if len(conns) != 2 {
		t.Fatalf("len = %d, want 2", len(conns))
	}
	if !conns[0].IsConnected() || conns[1].IsConnected() {
		t.Errorf("unexpected statuses: %+v", conns)
	}
}

func TestGetConnectionNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, err := newTestClient(server).GetConnection(context.Background(), 99)
	if !IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestListProxyServers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/whatsapp-proxy-servers" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"data":[
			{"id":1,"name":"eu","type":"socks5","host":"10.0.0.1","port":1080,"enabled":true},
			{"id":2,"name":"us","type":"http","host":"10.0.0.2","port":3128,"isActive":false},
			{"id":3,"name":"legacy","type":"https","host":"10.0.0.3","port":443}
		]}`))
	}))
	defer server.Close()

	proxies, err := newTestClient(server).ListProxyServers(context.Background())
	if err != nil {
		t.Fatalf("ListProxyServers: %v", err)
	}
	if len(proxies) != 3 {
		t.Fatalf("len = %d, want 3", len(proxies))
	}

	wantEnabled := []bool{true, false, true}
	for i, p := range proxies {
		if p.Enabled != wantEnabled[i] {
			t.Errorf("proxies[%d].Enabled = %v, want %v", i, p.Enabled, wantEnabled[i])
		}
	}
	if proxies[0].Type != model.ProxySOCKS5 || proxies[0].Port != 1080 {
		t.Errorf("proxies[0] = %+v", proxies[0])
	}
}
