package site

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/curb360/offersite/internal/offer"
)

func TestWatchExpiryBumpsOnce(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(t)
	_, err := cache.Version(ctx)
	require.NoError(t, err)

	reader := offer.NewFixed(offer.Snapshot{Result: offer.Result{Expired: true}})
	require.NoError(t, WatchExpiry(ctx, reader, cache, nil))

	ver, err := cache.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), ver)
}

func TestWatchExpiryIgnoresActiveSnapshots(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	cache, _ := newTestCache(t)

	reader := offer.NewFixed(offer.Snapshot{Result: offer.Result{Remaining: offer.Remaining{Hours: 1}}})
	require.NoError(t, WatchExpiry(ctx, reader, cache, nil))

	ver, err := cache.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), ver)
}

func TestWatchExpiryKeepsGroupRunningWhenRedisDown(t *testing.T) {
	cache, mr := newTestCache(t)
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	group, gctx := errgroup.WithContext(ctx)

	reader := offer.NewFixed(offer.Snapshot{Result: offer.Result{Expired: true}})
	group.Go(func() error {
		return watchExpiry(gctx, reader, cache, nil, 5*time.Millisecond, 20*time.Millisecond)
	})
	serverStopped := make(chan error, 1)
	group.Go(func() error {
		<-gctx.Done()
		serverStopped <- ctx.Err()
		return nil
	})

	require.NoError(t, group.Wait())
	// The group only ended because the outer deadline passed.
	assert.ErrorIs(t, <-serverStopped, context.DeadlineExceeded)
}

func TestWatchExpiryRetriesUntilRedisRecovers(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	cache, mr := newTestCache(t)
	_, err := cache.Version(ctx)
	require.NoError(t, err)
	mr.Close()

	reader := offer.NewFixed(offer.Snapshot{Result: offer.Result{Expired: true}})
	done := make(chan error, 1)
	go func() {
		done <- watchExpiry(ctx, reader, cache, nil, 5*time.Millisecond, 20*time.Millisecond)
	}()

	time.Sleep(30 * time.Millisecond)
	require.NoError(t, mr.Restart())

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("watcher did not finish after redis recovered")
	}
	ver, err := cache.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), ver)
}
