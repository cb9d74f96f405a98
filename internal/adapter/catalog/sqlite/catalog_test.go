package sqlite

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamhive/streamhive/internal/domain"
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return NewCatalog(store)
}

func addVideo(t *testing.T, c *Catalog, title string, createdAt time.Time) *domain.Video {
	t.Helper()
	v := domain.NewVideo(title, "/ingest/"+title+".mp4")
	v.CreatedAt = createdAt
	require.NoError(t, c.CreateVideo(context.Background(), v))
	return v
}

func TestCatalog_CreateAndGet(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	v := addVideo(t, c, "clip", time.Now().UTC())
	require.NotZero(t, v.ID)

	got, err := c.GetVideo(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, v.Token, got.Token)
	assert.Equal(t, "clip", got.Title)
	assert.Equal(t, domain.StatusUploaded, got.Status)
	assert.Empty(t, got.Renditions)
	assert.True(t, got.LeaseUntil.IsZero())

	byToken, err := c.GetVideoByToken(ctx, v.Token)
	require.NoError(t, err)
	assert.Equal(t, v.ID, byToken.ID)

	_, err = c.GetVideo(ctx, 9999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = c.GetVideoByToken(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCatalog_HasVideoWithSource(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	v := addVideo(t, c, "clip", time.Now().UTC())

	known, err := c.HasVideoWithSource(ctx, v.SourcePath)
	require.NoError(t, err)
	assert.True(t, known)

	known, err = c.HasVideoWithSource(ctx, "/ingest/other.mp4")
	require.NoError(t, err)
	assert.False(t, known)
}

func TestCatalog_ListVideos_NewestFirst(t *testing.T) {
	c := newTestCatalog(t)
	base := time.Now().UTC().Truncate(time.Second)

	addVideo(t, c, "oldest", base.Add(-2*time.Hour))
	addVideo(t, c, "middle", base.Add(-time.Hour))
	addVideo(t, c, "newest", base)

	videos, err := c.ListVideos(context.Background())
	require.NoError(t, err)
	require.Len(t, videos, 3)
	assert.Equal(t, "newest", videos[0].Title)
	assert.Equal(t, "middle", videos[1].Title)
	assert.Equal(t, "oldest", videos[2].Title)
}

func TestCatalog_NextPendingVideos_OldestFirst(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	first := addVideo(t, c, "first", base.Add(-2*time.Hour))
	second := addVideo(t, c, "second", base.Add(-time.Hour))
	ready := addVideo(t, c, "done", base.Add(-3*time.Hour))
	require.NoError(t, c.MarkReady(ctx, ready.ID))

	pending, err := c.NextPendingVideos(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].ID)
	assert.Equal(t, second.ID, pending[1].ID)

	limited, err := c.NextPendingVideos(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, first.ID, limited[0].ID)
}

func TestCatalog_NextPendingVideos_IncludesLapsedLeases(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	v := addVideo(t, c, "clip", time.Now().UTC())
	claimed, err := c.ClaimForTranscoding(ctx, v.ID, -time.Second)
	require.NoError(t, err)
	require.True(t, claimed)

	pending, err := c.NextPendingVideos(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, v.ID, pending[0].ID)
	assert.Equal(t, domain.StatusTranscoding, pending[0].Status)

	// A live lease keeps the video out of the pending set.
	held := addVideo(t, c, "held", time.Now().UTC())
	claimed, err = c.ClaimForTranscoding(ctx, held.ID, time.Hour)
	require.NoError(t, err)
	require.True(t, claimed)

	pending, err = c.NextPendingVideos(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
}

func TestCatalog_ClaimForTranscoding_ExactlyOnce(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	v := addVideo(t, c, "clip", time.Now().UTC())

	claimed, err := c.ClaimForTranscoding(ctx, v.ID, time.Hour)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = c.ClaimForTranscoding(ctx, v.ID, time.Hour)
	require.NoError(t, err)
	assert.False(t, claimed)

	got, err := c.GetVideo(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusTranscoding, got.Status)
	assert.False(t, got.LeaseUntil.IsZero())
}

func TestCatalog_ClaimForTranscoding_Concurrent(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	v := addVideo(t, c, "clip", time.Now().UTC())

	const workers = 8
	var wg sync.WaitGroup
	wins := make(chan bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claimed, err := c.ClaimForTranscoding(ctx, v.ID, time.Hour)
			if err == nil && claimed {
				wins <- true
			}
		}()
	}
	wg.Wait()
	close(wins)

	assert.Equal(t, 1, len(wins))
}

func TestCatalog_ClaimForTranscoding_ReclaimsLapsedLease(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	v := addVideo(t, c, "clip", time.Now().UTC())

	claimed, err := c.ClaimForTranscoding(ctx, v.ID, -time.Second)
	require.NoError(t, err)
	require.True(t, claimed)

	claimed, err = c.ClaimForTranscoding(ctx, v.ID, time.Hour)
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestCatalog_ExtendLease(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	v := addVideo(t, c, "clip", time.Now().UTC())

	// Only a held claim can be extended.
	err := c.ExtendLease(ctx, v.ID, time.Hour)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	claimed, err := c.ClaimForTranscoding(ctx, v.ID, time.Minute)
	require.NoError(t, err)
	require.True(t, claimed)
	before, err := c.GetVideo(ctx, v.ID)
	require.NoError(t, err)

	require.NoError(t, c.ExtendLease(ctx, v.ID, time.Hour))
	after, err := c.GetVideo(ctx, v.ID)
	require.NoError(t, err)
	assert.True(t, after.LeaseUntil.After(before.LeaseUntil))
}

func TestCatalog_RecordRenditionComplete(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	v := addVideo(t, c, "clip", time.Now().UTC())
	master := v.Token + "/master.m3u8"

	require.NoError(t, c.RecordRenditionComplete(ctx, v.ID, "480p", master))
	require.NoError(t, c.RecordRenditionComplete(ctx, v.ID, "720p", master))

	got, err := c.GetVideo(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"480p", "720p"}, got.Renditions)
	assert.Equal(t, master, got.MasterPath)

	// Re-recording a rendition does not duplicate it.
	require.NoError(t, c.RecordRenditionComplete(ctx, v.ID, "480p", master))
	got, err = c.GetVideo(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"480p", "720p"}, got.Renditions)

	err = c.RecordRenditionComplete(ctx, 9999, "480p", master)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCatalog_MarkReady_ClearsLease(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	v := addVideo(t, c, "clip", time.Now().UTC())

	claimed, err := c.ClaimForTranscoding(ctx, v.ID, time.Hour)
	require.NoError(t, err)
	require.True(t, claimed)

	require.NoError(t, c.MarkReady(ctx, v.ID))
	got, err := c.GetVideo(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReady, got.Status)
	assert.True(t, got.LeaseUntil.IsZero())
	assert.Empty(t, got.ErrorMessage)
}

func TestCatalog_MarkFailedAndResubmit(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	v := addVideo(t, c, "clip", time.Now().UTC())

	require.NoError(t, c.MarkFailed(ctx, v.ID, "encode 720p: exit status 1"))
	got, err := c.GetVideo(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, got.Status)
	assert.Equal(t, "encode 720p: exit status 1", got.ErrorMessage)

	require.NoError(t, c.Resubmit(ctx, v.ID))
	got, err = c.GetVideo(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusUploaded, got.Status)
	assert.Empty(t, got.ErrorMessage)

	// Resubmit applies to failed videos only.
	err = c.Resubmit(ctx, v.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCatalog_RecordView_Upsert(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	v := addVideo(t, c, "clip", time.Now().UTC())

	rec, err := c.RecordView(ctx, v.ID, 7, "2025-03-09", domain.ViewDelta{
		WatchTime:        30,
		PlaybackPosition: 120,
		PlaybackRate:     1.0,
		DeviceClass:      "desktop",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(30), rec.WatchTime)
	assert.Equal(t, int64(120), rec.MaxPlaybackPosition)

	// Same day merges: watch time accumulates, position keeps its
	// high-water mark, the rate takes the latest value.
	rec, err = c.RecordView(ctx, v.ID, 7, "2025-03-09", domain.ViewDelta{
		WatchTime:        45,
		PlaybackPosition: 80,
		PlaybackRate:     1.5,
		DeviceClass:      "mobile",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(75), rec.WatchTime)
	assert.Equal(t, int64(120), rec.MaxPlaybackPosition)
	assert.Equal(t, 1.5, rec.PlaybackRate)
	assert.Equal(t, "mobile", rec.DeviceClass)

	// A new day starts a fresh record.
	rec, err = c.RecordView(ctx, v.ID, 7, "2025-03-10", domain.ViewDelta{WatchTime: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(10), rec.WatchTime)
}

func TestCatalog_RefreshViewCount(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	v := addVideo(t, c, "clip", time.Now().UTC())

	count, err := c.RefreshViewCount(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	_, err = c.RecordView(ctx, v.ID, 7, "2025-03-09", domain.ViewDelta{WatchTime: 30})
	require.NoError(t, err)
	_, err = c.RecordView(ctx, v.ID, 8, "2025-03-09", domain.ViewDelta{WatchTime: 30})
	require.NoError(t, err)
	_, err = c.RecordView(ctx, v.ID, 7, "2025-03-10", domain.ViewDelta{WatchTime: 30})
	require.NoError(t, err)

	count, err = c.RefreshViewCount(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	got, err := c.GetVideo(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.ViewCount)

	_, err = c.RefreshViewCount(ctx, 9999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCatalog_ListViewTotals(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	base := time.Now().UTC()

	popular := addVideo(t, c, "popular", base)
	quiet := addVideo(t, c, "quiet", base)

	_, err := c.RecordView(ctx, popular.ID, 7, "2025-03-09", domain.ViewDelta{WatchTime: 30})
	require.NoError(t, err)
	_, err = c.RecordView(ctx, popular.ID, 8, "2025-03-09", domain.ViewDelta{WatchTime: 45})
	require.NoError(t, err)

	totals, err := c.ListViewTotals(ctx)
	require.NoError(t, err)
	require.Len(t, totals, 2)

	assert.Equal(t, popular.ID, totals[0].VideoID)
	assert.Equal(t, int64(2), totals[0].TotalViews)
	assert.Equal(t, int64(75), totals[0].TotalWatchTime)

	assert.Equal(t, quiet.ID, totals[1].VideoID)
	assert.Equal(t, int64(0), totals[1].TotalViews)
	assert.Equal(t, int64(0), totals[1].TotalWatchTime)
}

func TestCatalog_DeleteVideo_CascadesViews(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	v := addVideo(t, c, "clip", time.Now().UTC())

	_, err := c.RecordView(ctx, v.ID, 7, "2025-03-09", domain.ViewDelta{WatchTime: 30})
	require.NoError(t, err)

	require.NoError(t, c.DeleteVideo(ctx, v.ID))

	_, err = c.GetVideo(ctx, v.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	totals, err := c.ListViewTotals(ctx)
	require.NoError(t, err)
	assert.Empty(t, totals)

	err = c.DeleteVideo(ctx, v.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
