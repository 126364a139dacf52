package app

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curb360/offersite/internal/booking"
	"github.com/curb360/offersite/internal/catalog"
	"github.com/curb360/offersite/internal/observability"
	"github.com/curb360/offersite/internal/offer"
	offerhttp "github.com/curb360/offersite/internal/offer/http"
	"github.com/curb360/offersite/internal/site"
	"github.com/curb360/offersite/internal/view"
	"github.com/curb360/offersite/jobs"
)

func newTestRouter(t *testing.T, snap offer.Snapshot) http.Handler {
	t.Helper()
	cfg := &Config{AppEnv: "development", AppRequestTimeout: time.Second, RateLimitPerMinute: 1000}
	cat, err := catalog.Default()
	require.NoError(t, err)
	templates, err := view.NewEngine()
	require.NoError(t, err)
	metrics := observability.NewMetrics()
	reader := offer.NewFixed(snap)

	return NewRouter(RouterParams{
		Logger:         newLogger(nil, &strings.Builder{}),
		Config:         cfg,
		Catalog:        cat,
		SiteHandler:    site.NewHandler(nil, templates, cat, reader, nil),
		BookingHandler: booking.NewHandler(nil, booking.NewService(reader, cat), templates),
		OfferHandler:   offerhttp.NewHandler(nil, reader, offerhttp.WithRecorder(metrics.Offer())),
		JobHandler:     jobs.NewHandler(nil, nil),
		Metrics:        metrics,
	})
}

func activeSnapshot() offer.Snapshot {
	return offer.Snapshot{Result: offer.Result{Remaining: offer.Remaining{Days: 1}}}
}

func TestRouterServesSiteRoutes(t *testing.T) {
	router := newTestRouter(t, activeSnapshot())

	cases := []struct {
		path   string
		status int
		body   string
	}{
		{"/healthz", http.StatusOK, `"status":"ok"`},
		{"/", http.StatusOK, "Book Now"},
		{"/booking/modal?package=p2", http.StatusOK, "<iframe"},
		{"/more-credits", http.StatusOK, "<iframe"},
		{"/api/offer", http.StatusOK, `"expired":false`},
		{"/api/booking/p1", http.StatusOK, `"key":"jumpstart"`},
		{"/api/booking/nope", http.StatusNotFound, ""},
		{"/jobs/health", http.StatusOK, `"queue":"default"`},
		{"/static/css/site.css", http.StatusOK, ".countdown"},
		{"/static/js/offer.js", http.StatusOK, "EventSource"},
		{"/metrics", http.StatusOK, "offersite_http_requests_total"},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tc.path, nil))
			require.Equal(t, tc.status, rr.Code)
			if tc.body != "" {
				assert.Contains(t, rr.Body.String(), tc.body)
			}
		})
	}
}

func TestRouterAppliesSecurityHeaders(t *testing.T) {
	router := newTestRouter(t, activeSnapshot())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	csp := rr.Header().Get("Content-Security-Policy")
	assert.Contains(t, csp, "frame-src 'self' https://forms.zohopublic.com")
	assert.Contains(t, csp, "https://curb360.com")
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "public, max-age=3600", func() string {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/static/css/site.css", nil))
		return rr.Header().Get("Cache-Control")
	}())
}

func TestRouterStreamIsNotCompressed(t *testing.T) {
	srv := httptest.NewServer(newTestRouter(t, offer.Snapshot{Result: offer.Result{Expired: true}}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/offer/stream", nil)
	require.NoError(t, err)
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := http.DefaultTransport.RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.Empty(t, resp.Header.Get("Content-Encoding"))

	line, err := bufio.NewReader(resp.Body).ReadString('\n')
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(line, "id: "))
}

func TestRouterRefusesBookingWhenExpired(t *testing.T) {
	router := newTestRouter(t, offer.Snapshot{Result: offer.Result{Expired: true}})

	for _, path := range []string{"/booking?package=p1", "/more-credits", "/api/booking/p1"} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusGone, rr.Code, path)
	}
}

func TestContentSecurityPolicyWithoutCatalog(t *testing.T) {
	csp := ContentSecurityPolicy(nil)
	assert.Contains(t, csp, "frame-src 'self';")
	assert.Contains(t, csp, "default-src 'self'")
}
