package version

import (
	"runtime"
	"testing"
)

func TestString(t *testing.T) {
	origV, origC, origB := Version, Commit, BuildTime
	t.Cleanup(func() { Version, Commit, BuildTime = origV, origC, origB })

	Version, Commit, BuildTime = "1.2.0", "abc1234", "2026-01-02T03:04:05Z"

	if got, want := String(), "1.2.0 (abc1234) built 2026-01-02T03:04:05Z"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestUserAgent(t *testing.T) {
	origV := Version
	t.Cleanup(func() { Version = origV })

	Version = "dev"
	want := "pairctl/dev (" + runtime.GOOS + "/" + runtime.GOARCH + ")"
	if got := UserAgent(); got != want {
		t.Errorf("UserAgent() = %q, want %q", got, want)
	}
}
