// Package auth provides bearer-token credentials for the connection backend.
//
// Authentication itself (login, token issuance) happens elsewhere; the console
// only carries a pre-issued token on REST requests and the socket handshake.
package auth

import (
	"fmt"
	"net/http"
	"os"
	"strings"
)

// Credentials holds the API token used to authorize requests.
type Credentials struct {
	Token string
}

// LoadCredentials resolves credentials from an inline token or a token file.
// Exactly one of token and tokenPath may be set; both empty yields anonymous
// credentials, which some self-hosted backends accept behind a session proxy.
func LoadCredentials(token, tokenPath string) (*Credentials, error) {
	if token != "" && tokenPath != "" {
		return nil, fmt.Errorf("token and token file are mutually exclusive")
	}
	if tokenPath == "" {
		return &Credentials{Token: strings.TrimSpace(token)}, nil
	}

	tok, err := LoadToken(tokenPath)
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}
	return &Credentials{Token: tok}, nil
}

// LoadToken reads a token from a file, trimming surrounding whitespace.
func LoadToken(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}

	tok := strings.TrimSpace(string(data))
	if tok == "" {
		return "", fmt.Errorf("token file %s is empty", path)
	}
	if strings.ContainsAny(tok, "\r\n") {
		return "", fmt.Errorf("token file %s must contain a single line", path)
	}
	return tok, nil
}

// Anonymous reports whether no token is configured.
func (c *Credentials) Anonymous() bool {
	return c == nil || c.Token == ""
}

// Header returns the authorization headers for a request or socket handshake.
func (c *Credentials) Header() http.Header {
	h := http.Header{}
	if !c.Anonymous() {
		h.Set("Authorization", "Bearer "+c.Token)
	}
	return h
}

// Apply sets the authorization headers on req.
func (c *Credentials) Apply(req *http.Request) {
	for k, v := range c.Header() {
		req.Header[k] = v
	}
}
