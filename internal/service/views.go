package service

import (
	"context"
	"fmt"
	"time"

	"github.com/streamhive/streamhive/internal/domain"
	"github.com/streamhive/streamhive/internal/infrastructure/logger"
	"github.com/streamhive/streamhive/internal/metrics"
	"github.com/streamhive/streamhive/internal/port"
)

// ViewService merges client playback reports into daily per-user-per-video
// records. It holds no state of its own beyond the dedup window; all
// synchronization happens through the catalog's atomic upsert, so any
// number of reports may be in flight concurrently.
type ViewService struct {
	catalog port.Catalog
	window  *ReportWindow
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewViewService(catalog port.Catalog, window *ReportWindow, m *metrics.Metrics) *ViewService {
	return &ViewService{
		catalog: catalog,
		window:  window,
		metrics: m,
		now:     time.Now,
	}
}

// Record applies one view report and returns the merged daily record plus
// the refreshed denormalized view count. Reports carrying a report ID are
// deduplicated within the window (ErrDuplicateReport); reports without one
// are merged as-is, which double-counts watch time if the client retries.
func (s *ViewService) Record(ctx context.Context, userID int64, report domain.ViewReport) (*domain.ViewRecord, int64, error) {
	if report.WatchTime < 0 || report.PlaybackPosition < 0 {
		return nil, 0, fmt.Errorf("negative watch time or playback position")
	}

	v, err := s.catalog.GetVideoByToken(ctx, report.VideoToken)
	if err != nil {
		s.metrics.RejectedReports.Inc()
		return nil, 0, fmt.Errorf("video %s: %w", report.VideoToken, err)
	}

	var key string
	if report.ReportID != "" {
		key = fmt.Sprintf("%d:%d:%s", v.ID, userID, report.ReportID)
		if !s.window.FirstSeen(key) {
			s.metrics.DuplicateReports.Inc()
			logger.Debug.Printf("dropped duplicate report %s for video %d user %d",
				logger.SanitizeForLog(report.ReportID), v.ID, userID)
			return nil, 0, domain.ErrDuplicateReport
		}
	}

	delta := domain.ViewDelta{
		WatchTime:        report.WatchTime,
		PlaybackPosition: report.PlaybackPosition,
		PlaybackRate:     report.PlaybackRate,
		DeviceClass:      domain.DeviceClassFor(report.UserAgent),
	}

	rec, err := s.catalog.RecordView(ctx, v.ID, userID, domain.Day(s.now()), delta)
	if err != nil {
		// Nothing was merged, so the retry the client will send must be
		// accepted rather than dropped as a duplicate. A failure after
		// this point keeps the key: the merge already happened.
		if key != "" {
			s.window.Forget(key)
		}
		return nil, 0, fmt.Errorf("record view: %w", err)
	}

	// The view records are the source of truth; the per-video counter is a
	// cache refreshed after every merge.
	count, err := s.catalog.RefreshViewCount(ctx, v.ID)
	if err != nil {
		return nil, 0, fmt.Errorf("refresh view count: %w", err)
	}

	s.metrics.ViewReports.Inc()
	return rec, count, nil
}

// Totals returns the per-video rollup for the analytics surface.
func (s *ViewService) Totals(ctx context.Context) ([]domain.ViewTotals, error) {
	return s.catalog.ListViewTotals(ctx)
}
