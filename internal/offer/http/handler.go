package offerhttp

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/curb360/offersite/internal/offer"
	"github.com/curb360/offersite/internal/platform/httpx"
)

const defaultKeepAlive = 15 * time.Second

// StreamRecorder tracks open event streams.
type StreamRecorder interface {
	StreamOpened()
	StreamClosed()
}

// Handler exposes the offer state as JSON and as a server-sent event stream.
type Handler struct {
	logger    *slog.Logger
	reader    offer.Reader
	recorder  StreamRecorder
	keepAlive time.Duration
}

// Option customises a Handler.
type Option func(*Handler)

// WithRecorder attaches stream metrics.
func WithRecorder(rec StreamRecorder) Option {
	return func(h *Handler) { h.recorder = rec }
}

// WithKeepAlive overrides the comment heartbeat period on idle streams.
func WithKeepAlive(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.keepAlive = d
		}
	}
}

// NewHandler constructs the offer handler.
func NewHandler(logger *slog.Logger, reader offer.Reader, opts ...Option) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{logger: logger, reader: reader, keepAlive: defaultKeepAlive}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// MountRoutes registers the snapshot endpoint.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/offer", h.snapshot)
}

// MountStream registers the event stream. It must sit outside response
// buffering and request timeout middleware.
func (h *Handler) MountStream(r chi.Router) {
	r.Get("/offer/stream", h.stream)
}

func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.reader.Snapshot()
	if !ok {
		w.Header().Set("Retry-After", "1")
		httpx.RespondError(w, fmt.Errorf("%w: offer state pending", httpx.ErrUnavailable))
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	httpx.JSON(w, http.StatusOK, snap)
}

func (h *Handler) stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		httpx.RespondError(w, errors.New("offer: streaming unsupported"))
		return
	}

	sub := h.reader.Subscribe()
	defer sub.Close()
	if h.recorder != nil {
		h.recorder.StreamOpened()
		defer h.recorder.StreamClosed()
	}

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	keepAlive := time.NewTicker(h.keepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case snap, ok := <-sub.C():
			if !ok {
				return
			}
			if err := writeEvent(w, snap); err != nil {
				h.logger.Debug("offer stream write", slog.String("subscription", sub.ID.String()), slog.Any("error", err))
				return
			}
			flusher.Flush()
			if snap.Expired {
				return
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, snap offer.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %s\nevent: offer\ndata: %s\n\n", uuid.NewString(), payload)
	return err
}
