package site

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/singleflight"

	"github.com/curb360/offersite/internal/catalog"
	"github.com/curb360/offersite/internal/offer"
	"github.com/curb360/offersite/internal/view"
)

const (
	deadlineDisplayLayout = "January 2, 2006 at 3:04:05 PM MST"
	pageFillTimeout       = 5 * time.Second
)

// PageView is the data every page section renders from. Sections read the
// offer state only through it.
type PageView struct {
	Catalog  *catalog.Catalog
	Expired  bool
	Deadline string
}

// Handler renders the landing page.
type Handler struct {
	logger    *slog.Logger
	templates *view.Engine
	catalog   *catalog.Catalog
	offer     offer.Reader
	cache     *Cache
	group     singleflight.Group
}

// NewHandler constructs the landing page handler.
func NewHandler(logger *slog.Logger, templates *view.Engine, cat *catalog.Catalog, reader offer.Reader, cache *Cache) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, templates: templates, catalog: cat, offer: reader, cache: cache}
}

// MountRoutes registers the landing page.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.home)
}

func (h *Handler) home(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.offer.Snapshot()
	if !ok {
		w.Header().Set("Retry-After", "1")
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}

	body, err := h.renderHome(r.Context(), snap)
	if err != nil {
		h.logger.Error("render home", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(body)
}

func (h *Handler) renderHome(ctx context.Context, snap offer.Snapshot) ([]byte, error) {
	state := pageState(snap)
	key, err := h.cache.BuildKey(ctx, "site", "page", "home", state)
	if err != nil {
		h.logger.Warn("page cache key", slog.Any("error", err))
		return h.buildHome(snap)
	}

	ch := h.group.DoChan(key, func() (interface{}, error) {
		return h.fillHome(ctx, key, snap)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			h.logger.Warn("page cache fetch", slog.Any("error", res.Err))
			return h.buildHome(snap)
		}
		return res.Val.([]byte), nil
	}
}

// fillHome loads or renders the page for every caller waiting on key. It is
// detached from the first caller's cancellation.
func (h *Handler) fillHome(ctx context.Context, key string, snap offer.Snapshot) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pageFillTimeout)
	defer cancel()
	return h.cache.Fetch(ctx, key, func(context.Context) ([]byte, error) {
		return h.buildHome(snap)
	})
}

func (h *Handler) buildHome(snap offer.Snapshot) ([]byte, error) {
	return h.templates.RenderBytes("pages/home.html", view.TemplateData{
		Title:       h.catalog.Brand.Name + " | " + h.catalog.Hero.Badge,
		CurrentPath: "/",
		Year:        yearOf(snap),
		Data:        NewPageView(h.catalog, snap),
	})
}

// NewPageView derives the page data from a snapshot.
func NewPageView(cat *catalog.Catalog, snap offer.Snapshot) PageView {
	pv := PageView{Catalog: cat, Expired: snap.Expired}
	if !snap.Deadline.IsZero() {
		pv.Deadline = snap.Deadline.Format(deadlineDisplayLayout)
	}
	return pv
}

func pageState(snap offer.Snapshot) string {
	if snap.Expired {
		return "expired"
	}
	return "active"
}

func yearOf(snap offer.Snapshot) int {
	if !snap.EvaluatedAt.IsZero() {
		return snap.EvaluatedAt.Year()
	}
	return time.Now().Year()
}
