package site

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curb360/offersite/internal/catalog"
	"github.com/curb360/offersite/internal/offer"
	"github.com/curb360/offersite/internal/view"
)

func TestFillHomeIgnoresCallerCancellation(t *testing.T) {
	templates, err := view.NewEngine()
	require.NoError(t, err)
	cat, err := catalog.Default()
	require.NoError(t, err)
	cache, mr := newTestCache(t)
	h := NewHandler(nil, templates, cat, nil, cache)

	key, err := cache.BuildKey(context.Background(), "site", "page", "home", "active")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	snap := offer.Snapshot{
		Result:      offer.Result{Remaining: offer.Remaining{Days: 3}},
		Deadline:    time.Date(2026, time.January, 1, 7, 59, 59, 0, time.UTC),
		EvaluatedAt: time.Date(2025, time.December, 28, 12, 0, 0, 0, time.UTC),
	}
	body, err := h.fillHome(ctx, key, snap)
	require.NoError(t, err)
	assert.NotEmpty(t, body)
	assert.True(t, mr.Exists(key))
}
