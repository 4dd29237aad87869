package auth

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCredentials(t *testing.T) {
	t.Run("inline token", func(t *testing.T) {
		creds, err := LoadCredentials("  tok-1  ", "")
		if err != nil {
			t.Fatalf("LoadCredentials failed: %v", err)
		}
		if creds.Token != "tok-1" {
			t.Errorf("Token = %q, want %q", creds.Token, "tok-1")
		}
	})

	t.Run("token file", func(t *testing.T) {
		path := writeToken(t, "tok-from-file\n")

		creds, err := LoadCredentials("", path)
		if err != nil {
			t.Fatalf("LoadCredentials failed: %v", err)
		}
		if creds.Token != "tok-from-file" {
			t.Errorf("Token = %q, want %q", creds.Token, "tok-from-file")
		}
	})

	t.Run("both set", func(t *testing.T) {
		if _, err := LoadCredentials("a", "/tmp/b"); err == nil {
			t.Error("expected error when both token and token file are set")
		}
	})

	t.Run("anonymous", func(t *testing.T) {
		creds, err := LoadCredentials("", "")
		if err != nil {
			t.Fatalf("LoadCredentials failed: %v", err)
		}
		if !creds.Anonymous() {
			t.Error("expected anonymous credentials")
		}
		if got := creds.Header().Get("Authorization"); got != "" {
			t.Errorf("Authorization = %q, want empty", got)
		}
	})
}

func TestLoadToken_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty file", "   \n"},
		{"multi line", "line1\nline2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeToken(t, tt.content)
			if _, err := LoadToken(path); err == nil {
				t.Error("expected error")
			}
		})
	}

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadToken(filepath.Join(t.TempDir(), "nope")); err == nil {
			t.Error("expected error for missing file")
		}
	})
}

func TestCredentials_Apply(t *testing.T) {
	creds := &Credentials{Token: "abc"}

	req, err := http.NewRequest(http.MethodGet, "https://crm.example.com/api/channel-connections", nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	creds.Apply(req)

	if got := req.Header.Get("Authorization"); got != "Bearer abc" {
		t.Errorf("Authorization = %q, want %q", got, "Bearer abc")
	}
}

func TestCredentials_NilIsAnonymous(t *testing.T) {
	var creds *Credentials
	if !creds.Anonymous() {
		t.Error("nil credentials should be anonymous")
	}
	if len(creds.Header()) != 0 {
		t.Errorf("Header() = %v, want empty", creds.Header())
	}
}

func writeToken(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write token: %v", err)
	}
	return path
}
