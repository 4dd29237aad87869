package terminal

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/rickgao/channel-console/internal/session"
)

const pngSize = 512

// Option configures a Presenter.
type Option func(*Presenter)

// WithPNGFile mirrors every displayed QR code to path.
func WithPNGFile(path string) Option {
	return func(p *Presenter) {
		p.pngPath = path
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Presenter) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Presenter implements session.Presenter on an io.Writer.
type Presenter struct {
	w       io.Writer
	pngPath string
	logger  *slog.Logger

	mu         sync.Mutex
	payload    string
	lastStatus session.Status
	lastLine   string
}

// New creates a Presenter writing to w.
func New(w io.Writer, opts ...Option) *Presenter {
	p := &Presenter{
		w:      w,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ShowQR draws the QR code. A payload that cannot be encoded is printed
// as text so the operator can still copy it.
func (p *Presenter) ShowQR(payload string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.payload = payload

	art, err := Render(payload)
	if err != nil {
		p.logger.Warn("failed to encode qr code", "error", err)
		fmt.Fprintf(p.w, "QR payload: %s\n", payload)
		return
	}

	fmt.Fprintln(p.w, "Scan with WhatsApp > Linked devices > Link a device:")
	fmt.Fprint(p.w, art)

	if p.pngPath != "" {
		if err := qrcode.WriteFile(payload, qrcode.Medium, pngSize, p.pngPath); err != nil {
			p.logger.Warn("failed to write qr png", "path", p.pngPath, "error", err)
		}
	}
}

// Close dismisses the current QR code.
func (p *Presenter) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.payload == "" {
		return
	}
	p.payload = ""
	fmt.Fprintln(p.w, "QR code closed.")
}

// Payload returns the QR payload on screen, or "".
func (p *Presenter) Payload() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.payload
}

// RenderState prints a status line when the status or message changed.
func (p *Presenter) RenderState(s session.State) {
	line := StatusLine(s)

	p.mu.Lock()
	defer p.mu.Unlock()

	if s.Status == p.lastStatus && line == p.lastLine {
		return
	}
	p.lastStatus = s.Status
	p.lastLine = line

	fmt.Fprintln(p.w, line)
}

// StatusLine formats a one-line summary of s.
func StatusLine(s session.State) string {
	var b strings.Builder

	fmt.Fprintf(&b, "[%s]", s.Status)
	if id := s.ActiveID(); id != 0 {
		fmt.Fprintf(&b, " connection=%d", id)
	}
	if s.BoundProxyID != nil {
		fmt.Fprintf(&b, " proxy=%d", *s.BoundProxyID)
	}
	if s.Message != "" {
		b.WriteString(" ")
		b.WriteString(s.Message)
	}
	if s.Warning != "" {
		b.WriteString(" (warning: ")
		b.WriteString(s.Warning)
		b.WriteString(")")
	}
	if s.AwaitingManualQR {
		b.WriteString(" Press r to generate a new QR code.")
	}

	return b.String()
}

// Render encodes payload as half-block terminal art.
func Render(payload string) (string, error) {
	q, err := qrcode.New(payload, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("encode qr: %w", err)
	}
	return q.ToSmallString(false), nil
}

var _ session.Presenter = (*Presenter)(nil)
