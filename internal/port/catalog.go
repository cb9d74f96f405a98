package port

import (
	"context"
	"time"

	"github.com/streamhive/streamhive/internal/domain"
)

// Catalog is the pipeline's only view of persistent video metadata. The
// status column doubles as the per-video mutation lock: claims and lease
// extensions must be single conditional updates, never read-then-write.
type Catalog interface {
	CreateVideo(ctx context.Context, v *domain.Video) error
	GetVideo(ctx context.Context, id int64) (*domain.Video, error)
	GetVideoByToken(ctx context.Context, token string) (*domain.Video, error)
	HasVideoWithSource(ctx context.Context, sourcePath string) (bool, error)
	ListVideos(ctx context.Context) ([]*domain.Video, error)
	DeleteVideo(ctx context.Context, id int64) error

	// NextPendingVideos returns up to limit claimable videos, oldest first:
	// status=uploaded plus transcoding rows whose lease has lapsed.
	NextPendingVideos(ctx context.Context, limit int) ([]*domain.Video, error)

	// ClaimForTranscoding atomically moves a video to transcoding and sets
	// its lease. Returns false when another worker holds a live claim.
	ClaimForTranscoding(ctx context.Context, id int64, leaseTTL time.Duration) (bool, error)

	// ExtendLease pushes the claim's expiry forward for the worker that
	// already owns it.
	ExtendLease(ctx context.Context, id int64, leaseTTL time.Duration) error

	RecordRenditionComplete(ctx context.Context, id int64, rendition, masterPath string) error
	MarkReady(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, reason string) error

	// Resubmit returns a failed video to uploaded for another pass.
	Resubmit(ctx context.Context, id int64) error

	// RecordView upserts the (video, user, day) record: watch time is
	// added, the playback position high-water mark is kept, the rate is
	// overwritten. Must be a single atomic statement.
	RecordView(ctx context.Context, videoID, userID int64, day string, delta domain.ViewDelta) (*domain.ViewRecord, error)

	// RefreshViewCount recomputes the denormalized counter from the view
	// records, which are the source of truth, and returns the new value.
	RefreshViewCount(ctx context.Context, videoID int64) (int64, error)

	ListViewTotals(ctx context.Context) ([]domain.ViewTotals, error)
}
