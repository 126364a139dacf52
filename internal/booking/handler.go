package booking

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/curb360/offersite/internal/platform/httpx"
	"github.com/curb360/offersite/internal/view"
)

// Handler exposes the booking modal, booking page and form lookup API.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
}

// NewHandler constructs a booking handler.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, templates: templates}
}

// MountRoutes registers the HTML booking routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/booking", h.page)
	r.Get("/booking/modal", h.modal)
	r.Get("/more-credits", h.moreCredits)
}

// MountAPI registers the JSON booking routes.
func (h *Handler) MountAPI(r chi.Router) {
	r.Get("/booking", h.lookup)
	r.Get("/booking/{packageID}", h.lookup)
}

type bookingView struct {
	Selection Selection
	Ended     bool
}

func (h *Handler) page(w http.ResponseWriter, r *http.Request) {
	h.renderSelection(w, r, "pages/booking.html")
}

func (h *Handler) modal(w http.ResponseWriter, r *http.Request) {
	h.renderSelection(w, r, "booking_modal")
}

func (h *Handler) renderSelection(w http.ResponseWriter, r *http.Request, name string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	sel, err := h.service.Open(r.URL.Query().Get("package"))
	data := view.TemplateData{Title: "Secure Your Credits", CurrentPath: r.URL.Path}
	switch {
	case err == nil:
		data.Data = bookingView{Selection: sel}
	case errors.Is(err, ErrOfferExpired):
		w.WriteHeader(http.StatusGone)
		data.Data = bookingView{Ended: true}
	default:
		h.renderError(w, err)
		return
	}
	if err := h.templates.Execute(w, name, data); err != nil {
		h.logger.Error("render booking", slog.String("template", name), slog.Any("error", err))
	}
}

func (h *Handler) moreCredits(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	form, err := h.service.MoreCredits()
	data := view.TemplateData{CurrentPath: r.URL.Path}
	switch {
	case err == nil:
		data.Data = bookingView{Selection: Selection{Form: form}}
	case errors.Is(err, ErrOfferExpired):
		w.WriteHeader(http.StatusGone)
		data.Data = bookingView{Ended: true}
	default:
		h.renderError(w, err)
		return
	}
	if err := h.templates.Execute(w, "more_credits", data); err != nil {
		h.logger.Error("render more credits", slog.Any("error", err))
	}
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) {
	sel, err := h.service.Open(chi.URLParam(r, "packageID"))
	if err != nil {
		if httpx.StatusFor(err) == http.StatusInternalServerError {
			h.logger.Error("booking lookup", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sel)
}

func (h *Handler) renderError(w http.ResponseWriter, err error) {
	status := httpx.StatusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("booking request", slog.Any("error", err))
	}
	http.Error(w, http.StatusText(status), status)
}
