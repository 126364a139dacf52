package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/curb360/offersite/internal/booking"
	"github.com/curb360/offersite/internal/catalog"
	"github.com/curb360/offersite/internal/observability"
	offerhttp "github.com/curb360/offersite/internal/offer/http"
	"github.com/curb360/offersite/internal/site"
	"github.com/curb360/offersite/jobs"
	"github.com/curb360/offersite/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Catalog        *catalog.Catalog
	SiteHandler    *site.Handler
	BookingHandler *booking.Handler
	OfferHandler   *offerhttp.Handler
	JobHandler     *jobs.Handler
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router with site defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	mwCfg := MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Catalog: params.Catalog,
		Metrics: params.Metrics,
	}
	for _, mw := range BaseStack(mwCfg) {
		r.Use(mw)
	}
	r.Use(chimw.Logger)

	r.Route("/api", func(api chi.Router) {
		// Event streams stay open past the request timeout and must not be buffered.
		if params.OfferHandler != nil {
			params.OfferHandler.MountStream(api)
		}
		api.Group(func(api chi.Router) {
			for _, mw := range BufferedStack(mwCfg) {
				api.Use(mw)
			}
			if params.OfferHandler != nil {
				params.OfferHandler.MountRoutes(api)
			}
			if params.BookingHandler != nil {
				params.BookingHandler.MountAPI(api)
			}
		})
	})

	r.Group(func(r chi.Router) {
		for _, mw := range BufferedStack(mwCfg) {
			r.Use(mw)
		}

		r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})

		if params.SiteHandler != nil {
			params.SiteHandler.MountRoutes(r)
		}
		if params.BookingHandler != nil {
			params.BookingHandler.MountRoutes(r)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
		if params.Metrics != nil {
			r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
		}

		staticFS, err := fs.Sub(web.Static, "static")
		if err != nil {
			params.Logger.Error("create static sub filesystem", slog.Any("error", err))
		} else {
			fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
			r.Handle("/static/*", staticCacheHandler(fileServer))
		}
	})

	return r
}

// staticCacheHandler wraps a file server with Cache-Control headers.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
