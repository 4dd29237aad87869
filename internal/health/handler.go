package health

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/rickgao/channel-console/internal/realtime"
	"github.com/rickgao/channel-console/internal/session"
)

// SessionSource reports the pairing session snapshot.
type SessionSource interface {
	State() session.State
}

// SocketSource reports the event socket state.
type SocketSource interface {
	State() realtime.SocketState
}

// Report is the /health response body.
type Report struct {
	Status     string         `json:"status"` // healthy, degraded, unhealthy
	Components map[string]any `json:"components"`
}

// Handler serves the local endpoints.
type Handler struct {
	session     SessionSource
	socket      SocketSource
	metrics     http.Handler
	metricsPath string
	logger      *slog.Logger
}

// NewHandler creates a Handler. metrics may be nil.
func NewHandler(sess SessionSource, sock SocketSource, metrics http.Handler, metricsPath string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	return &Handler{
		session:     sess,
		socket:      sock,
		metrics:     metrics,
		metricsPath: metricsPath,
		logger:      logger,
	}
}

// Mount registers all routes on r.
func (h *Handler) Mount(r chi.Router) {
	r.Get("/health", h.health)
	r.Get("/qr.png", h.qrPNG)
	if h.metrics != nil {
		r.Method(http.MethodGet, h.metricsPath, h.metrics)
	}
}

// Router returns a new router with all routes mounted.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	h.Mount(r)
	return r
}

// Check builds the health report. A socket in cooldown is unhealthy and a
// socket that is reconnecting is degraded.
func (h *Handler) Check() Report {
	report := Report{
		Status:     "healthy",
		Components: make(map[string]any),
	}

	sock := h.socket.State()
	report.Components["socket"] = map[string]any{
		"connected":          sock.Connected,
		"reconnect_attempts": sock.ReconnectAttempts,
		"cooldown":           sock.CooldownActive,
	}
	switch {
	case sock.CooldownActive:
		report.Status = "unhealthy"
	case !sock.Connected:
		report.Status = "degraded"
	}

	st := h.session.State()
	sess := map[string]any{
		"status": st.Status,
	}
	if id := st.ActiveID(); id != 0 {
		sess["connection_id"] = id
	}
	if st.Message != "" {
		sess["message"] = st.Message
	}
	if st.LastError != session.KindNone {
		sess["last_error"] = st.LastError
	}
	report.Components["session"] = sess

	return report
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	report := h.Check()

	w.Header().Set("Content-Type", "application/json")
	if report.Status == "unhealthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(report); err != nil {
		h.logger.Debug("failed to write health report", "error", err)
	}
}

func (h *Handler) qrPNG(w http.ResponseWriter, r *http.Request) {
	payload := h.session.State().QR()
	if payload == "" {
		http.Error(w, "no qr code", http.StatusNotFound)
		return
	}

	png, err := qrcode.Encode(payload, qrcode.Medium, 512)
	if err != nil {
		h.logger.Warn("failed to encode qr png", "error", err)
		http.Error(w, "failed to generate QR code", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(png)
}
