package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/streamhive/streamhive/internal/domain"
	"github.com/streamhive/streamhive/internal/port"
)

// fakeCatalog mirrors the SQLite catalog's conditional-update semantics in
// memory so pipeline and view tests exercise real claim behavior without a
// database.
type fakeCatalog struct {
	mu     sync.Mutex
	nextID int64
	videos map[int64]*domain.Video
	views  map[string]*domain.ViewRecord

	claimErr           error
	extendErr          error
	pendingErr         error
	recordViewFailures int
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		videos: make(map[int64]*domain.Video),
		views:  make(map[string]*domain.ViewRecord),
	}
}

func copyVideo(v *domain.Video) *domain.Video {
	out := *v
	out.Renditions = append([]string(nil), v.Renditions...)
	return &out
}

func (c *fakeCatalog) CreateVideo(_ context.Context, v *domain.Video) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	v.ID = c.nextID
	c.videos[v.ID] = copyVideo(v)
	return nil
}

func (c *fakeCatalog) GetVideo(_ context.Context, id int64) (*domain.Video, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.videos[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyVideo(v), nil
}

func (c *fakeCatalog) GetVideoByToken(_ context.Context, token string) (*domain.Video, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, v := range c.videos {
		if v.Token == token {
			return copyVideo(v), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (c *fakeCatalog) HasVideoWithSource(_ context.Context, sourcePath string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, v := range c.videos {
		if v.SourcePath == sourcePath {
			return true, nil
		}
	}
	return false, nil
}

func (c *fakeCatalog) ListVideos(_ context.Context) ([]*domain.Video, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*domain.Video, 0, len(c.videos))
	for _, v := range c.videos {
		out = append(out, copyVideo(v))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (c *fakeCatalog) DeleteVideo(_ context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.videos[id]; !ok {
		return domain.ErrNotFound
	}
	delete(c.videos, id)
	return nil
}

func (c *fakeCatalog) NextPendingVideos(_ context.Context, limit int) ([]*domain.Video, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pendingErr != nil {
		return nil, c.pendingErr
	}
	now := time.Now()
	var out []*domain.Video
	for _, v := range c.videos {
		if v.Status == domain.StatusUploaded || v.LeaseExpired(now) {
			out = append(out, copyVideo(v))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (c *fakeCatalog) ClaimForTranscoding(_ context.Context, id int64, leaseTTL time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.claimErr != nil {
		return false, c.claimErr
	}
	v, ok := c.videos[id]
	if !ok {
		return false, nil
	}
	now := time.Now()
	if v.Status != domain.StatusUploaded && !v.LeaseExpired(now) {
		return false, nil
	}
	v.Status = domain.StatusTranscoding
	v.LeaseUntil = now.Add(leaseTTL)
	v.ErrorMessage = ""
	return true, nil
}

func (c *fakeCatalog) ExtendLease(_ context.Context, id int64, leaseTTL time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.extendErr != nil {
		return c.extendErr
	}
	v, ok := c.videos[id]
	if !ok || v.Status != domain.StatusTranscoding {
		return domain.ErrNotFound
	}
	v.LeaseUntil = time.Now().Add(leaseTTL)
	return nil
}

func (c *fakeCatalog) RecordRenditionComplete(_ context.Context, id int64, rendition, masterPath string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.videos[id]
	if !ok {
		return domain.ErrNotFound
	}
	if !v.HasRendition(rendition) {
		v.Renditions = append(v.Renditions, rendition)
	}
	v.MasterPath = masterPath
	return nil
}

func (c *fakeCatalog) MarkReady(_ context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.videos[id]
	if !ok {
		return domain.ErrNotFound
	}
	v.Status = domain.StatusReady
	v.LeaseUntil = time.Time{}
	v.ErrorMessage = ""
	return nil
}

func (c *fakeCatalog) MarkFailed(_ context.Context, id int64, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.videos[id]
	if !ok {
		return domain.ErrNotFound
	}
	v.Status = domain.StatusFailed
	v.ErrorMessage = reason
	v.LeaseUntil = time.Time{}
	return nil
}

func (c *fakeCatalog) Resubmit(_ context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.videos[id]
	if !ok || v.Status != domain.StatusFailed {
		return domain.ErrNotFound
	}
	v.Status = domain.StatusUploaded
	v.ErrorMessage = ""
	return nil
}

func (c *fakeCatalog) RecordView(_ context.Context, videoID, userID int64, day string, delta domain.ViewDelta) (*domain.ViewRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.recordViewFailures > 0 {
		c.recordViewFailures--
		return nil, fmt.Errorf("database is locked")
	}
	key := fmt.Sprintf("%d:%d:%s", videoID, userID, day)
	rec, ok := c.views[key]
	if !ok {
		rec = &domain.ViewRecord{
			VideoID:   videoID,
			UserID:    userID,
			Day:       day,
			CreatedAt: time.Now(),
		}
		c.views[key] = rec
	}
	rec.WatchTime += delta.WatchTime
	if delta.PlaybackPosition > rec.MaxPlaybackPosition {
		rec.MaxPlaybackPosition = delta.PlaybackPosition
	}
	rec.PlaybackRate = delta.PlaybackRate
	rec.DeviceClass = delta.DeviceClass
	out := *rec
	return &out, nil
}

func (c *fakeCatalog) RefreshViewCount(_ context.Context, videoID int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.videos[videoID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	var count int64
	for _, rec := range c.views {
		if rec.VideoID == videoID {
			count++
		}
	}
	v.ViewCount = count
	return count, nil
}

func (c *fakeCatalog) ListViewTotals(_ context.Context) ([]domain.ViewTotals, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []domain.ViewTotals
	for _, v := range c.videos {
		t := domain.ViewTotals{VideoID: v.ID, Title: v.Title, ViewCount: v.ViewCount}
		for _, rec := range c.views {
			if rec.VideoID == v.ID {
				t.TotalViews++
				t.TotalWatchTime += rec.WatchTime
			}
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TotalViews > out[j].TotalViews })
	return out, nil
}

var _ port.Catalog = (*fakeCatalog)(nil)

// fakeBlob keeps blobs in a map keyed by slash paths.
type fakeBlob struct {
	mu    sync.Mutex
	blobs map[string][]byte

	putErr error
}

func newFakeBlob() *fakeBlob {
	return &fakeBlob{blobs: make(map[string][]byte)}
}

func (b *fakeBlob) Put(key string, r io.Reader) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.putErr != nil {
		return "", b.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	b.blobs[key] = data
	return "/fake/" + key, nil
}

func (b *fakeBlob) PutTree(rootKey string, files map[string]io.Reader) (string, error) {
	for rel, r := range files {
		if _, err := b.Put(rootKey+"/"+rel, r); err != nil {
			return "", err
		}
	}
	return "/fake/" + rootKey, nil
}

func (b *fakeBlob) Get(key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.blobs[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return data, nil
}

func (b *fakeBlob) Open(key string) (io.ReadSeekCloser, error) {
	data, err := b.Get(key)
	if err != nil {
		return nil, err
	}
	return nopReadSeekCloser{bytes.NewReader(data)}, nil
}

func (b *fakeBlob) List(prefix string) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var keys []string
	for k := range b.blobs {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (b *fakeBlob) Delete(key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.blobs[key]; !ok {
		return domain.ErrNotFound
	}
	delete(b.blobs, key)
	return nil
}

func (b *fakeBlob) DeleteTree(prefix string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for k := range b.blobs {
		if k == prefix || strings.HasPrefix(k, prefix+"/") {
			delete(b.blobs, k)
		}
	}
	return nil
}

type nopReadSeekCloser struct{ *bytes.Reader }

func (nopReadSeekCloser) Close() error { return nil }

var _ port.BlobStore = (*fakeBlob)(nil)

// fakeEncoder writes a minimal rendition tree to disk; per-rendition
// failure budgets simulate flaky encodes.
type fakeEncoder struct {
	mu       sync.Mutex
	calls    []string
	failures map[string]int
	err      error
}

func newFakeEncoder() *fakeEncoder {
	return &fakeEncoder{failures: make(map[string]int)}
}

func (e *fakeEncoder) EncodeRendition(_ context.Context, _, outputDir string, r domain.Rendition) error {
	e.mu.Lock()
	e.calls = append(e.calls, r.Name)
	remaining := e.failures[r.Name]
	if remaining > 0 {
		e.failures[r.Name] = remaining - 1
	}
	failErr := e.err
	e.mu.Unlock()

	if remaining > 0 {
		if failErr != nil {
			return failErr
		}
		return &domain.EncodeError{Rendition: r.Name, ExitReason: "exit status 1"}
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}
	playlist := "#EXTM3U\n#EXTINF:6.0,\nsegment0.ts\n#EXT-X-ENDLIST\n"
	if err := os.WriteFile(filepath.Join(outputDir, "playlist.m3u8"), []byte(playlist), 0644); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(outputDir, "segment0.ts"), []byte(r.Name+" segment data"), 0644)
}

func (e *fakeEncoder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

func (e *fakeEncoder) callNames() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

var _ port.Encoder = (*fakeEncoder)(nil)
