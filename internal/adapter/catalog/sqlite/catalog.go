package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/streamhive/streamhive/internal/domain"
	"github.com/streamhive/streamhive/internal/port"
)

// Catalog implements port.Catalog over the SQLite store. All claim and
// upsert paths are single statements so concurrent workers and view
// reporters cannot interleave between a read and a write.
type Catalog struct {
	db *sql.DB
}

func NewCatalog(store *Store) *Catalog {
	return &Catalog{db: store.db}
}

const videoColumns = `id, token, title, source_path, status, error_message,
	renditions, master_path, view_count, lease_until, created_at`

func (c *Catalog) CreateVideo(ctx context.Context, v *domain.Video) error {
	res, err := c.db.ExecContext(ctx, `
		INSERT INTO videos (token, title, source_path, status, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		v.Token, v.Title, v.SourcePath, string(v.Status), v.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert video: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert video id: %w", err)
	}
	v.ID = id
	return nil
}

func (c *Catalog) GetVideo(ctx context.Context, id int64) (*domain.Video, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT `+videoColumns+` FROM videos WHERE id = ?`, id)
	return scanVideo(row)
}

func (c *Catalog) GetVideoByToken(ctx context.Context, token string) (*domain.Video, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT `+videoColumns+` FROM videos WHERE token = ?`, token)
	return scanVideo(row)
}

func (c *Catalog) HasVideoWithSource(ctx context.Context, sourcePath string) (bool, error) {
	var one int
	err := c.db.QueryRowContext(ctx,
		`SELECT 1 FROM videos WHERE source_path = ?`, sourcePath).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *Catalog) ListVideos(ctx context.Context) ([]*domain.Video, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT `+videoColumns+` FROM videos ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanVideos(rows)
}

func (c *Catalog) DeleteVideo(ctx context.Context, id int64) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM videos WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (c *Catalog) NextPendingVideos(ctx context.Context, limit int) ([]*domain.Video, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT `+videoColumns+` FROM videos
		WHERE status = ? OR (status = ? AND lease_until < ?)
		ORDER BY created_at ASC, id ASC
		LIMIT ?`,
		string(domain.StatusUploaded), string(domain.StatusTranscoding),
		time.Now().UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanVideos(rows)
}

// ClaimForTranscoding is the sole mutual-exclusion mechanism for the
// pipeline: one conditional UPDATE that either takes the claim (fresh
// upload, or a transcoding row whose lease lapsed) or touches nothing.
func (c *Catalog) ClaimForTranscoding(ctx context.Context, id int64, leaseTTL time.Duration) (bool, error) {
	now := time.Now().UTC()
	res, err := c.db.ExecContext(ctx, `
		UPDATE videos SET status = ?, lease_until = ?, error_message = ''
		WHERE id = ? AND (status = ? OR (status = ? AND lease_until < ?))`,
		string(domain.StatusTranscoding), now.Add(leaseTTL),
		id, string(domain.StatusUploaded), string(domain.StatusTranscoding), now)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (c *Catalog) ExtendLease(ctx context.Context, id int64, leaseTTL time.Duration) error {
	res, err := c.db.ExecContext(ctx, `
		UPDATE videos SET lease_until = ?
		WHERE id = ? AND status = ?`,
		time.Now().UTC().Add(leaseTTL), id, string(domain.StatusTranscoding))
	if err != nil {
		return err
	}
	return requireRow(res)
}

// RecordRenditionComplete appends one rendition to the completed set and
// points the video at its master playlist. The instr guard makes a
// re-recorded rendition a no-op for the list while still refreshing the
// master path.
func (c *Catalog) RecordRenditionComplete(ctx context.Context, id int64, rendition, masterPath string) error {
	res, err := c.db.ExecContext(ctx, `
		UPDATE videos SET
			renditions = CASE
				WHEN renditions = '' THEN ?
				WHEN instr(',' || renditions || ',', ',' || ? || ',') > 0 THEN renditions
				ELSE renditions || ',' || ?
			END,
			master_path = ?
		WHERE id = ?`,
		rendition, rendition, rendition, masterPath, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (c *Catalog) MarkReady(ctx context.Context, id int64) error {
	res, err := c.db.ExecContext(ctx, `
		UPDATE videos SET status = ?, lease_until = NULL, error_message = ''
		WHERE id = ?`,
		string(domain.StatusReady), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (c *Catalog) MarkFailed(ctx context.Context, id int64, reason string) error {
	res, err := c.db.ExecContext(ctx, `
		UPDATE videos SET status = ?, error_message = ?, lease_until = NULL
		WHERE id = ?`,
		string(domain.StatusFailed), reason, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (c *Catalog) Resubmit(ctx context.Context, id int64) error {
	res, err := c.db.ExecContext(ctx, `
		UPDATE videos SET status = ?, error_message = ''
		WHERE id = ? AND status = ?`,
		string(domain.StatusUploaded), id, string(domain.StatusFailed))
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (c *Catalog) RecordView(ctx context.Context, videoID, userID int64, day string, delta domain.ViewDelta) (*domain.ViewRecord, error) {
	row := c.db.QueryRowContext(ctx, `
		INSERT INTO video_views (video_id, user_id, view_date, watch_time,
			max_playback_position, playback_rate, device_class, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (video_id, user_id, view_date) DO UPDATE SET
			watch_time = watch_time + excluded.watch_time,
			max_playback_position = MAX(max_playback_position, excluded.max_playback_position),
			playback_rate = excluded.playback_rate,
			device_class = excluded.device_class
		RETURNING video_id, user_id, view_date, watch_time,
			max_playback_position, playback_rate, device_class, created_at`,
		videoID, userID, day, delta.WatchTime, delta.PlaybackPosition,
		delta.PlaybackRate, delta.DeviceClass, time.Now().UTC())

	var rec domain.ViewRecord
	err := row.Scan(&rec.VideoID, &rec.UserID, &rec.Day, &rec.WatchTime,
		&rec.MaxPlaybackPosition, &rec.PlaybackRate, &rec.DeviceClass, &rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert view record: %w", err)
	}
	return &rec, nil
}

func (c *Catalog) RefreshViewCount(ctx context.Context, videoID int64) (int64, error) {
	row := c.db.QueryRowContext(ctx, `
		UPDATE videos SET view_count =
			(SELECT COUNT(*) FROM video_views WHERE video_id = ?)
		WHERE id = ?
		RETURNING view_count`,
		videoID, videoID)

	var count int64
	if err := row.Scan(&count); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.ErrNotFound
		}
		return 0, err
	}
	return count, nil
}

func (c *Catalog) ListViewTotals(ctx context.Context) ([]domain.ViewTotals, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT v.id, v.title,
			COUNT(vv.video_id) AS total_views,
			COALESCE(SUM(vv.watch_time), 0) AS total_watch_time,
			v.view_count
		FROM videos v
		LEFT JOIN video_views vv ON v.id = vv.video_id
		GROUP BY v.id
		ORDER BY total_views DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []domain.ViewTotals
	for rows.Next() {
		var t domain.ViewTotals
		if err := rows.Scan(&t.VideoID, &t.Title, &t.TotalViews, &t.TotalWatchTime, &t.ViewCount); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

// Helper conversions

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVideo(row rowScanner) (*domain.Video, error) {
	var v domain.Video
	var status, renditions string
	var lease sql.NullTime
	err := row.Scan(&v.ID, &v.Token, &v.Title, &v.SourcePath, &status,
		&v.ErrorMessage, &renditions, &v.MasterPath, &v.ViewCount,
		&lease, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	v.Status = domain.EncodeStatus(status)
	v.Renditions = domain.DecodeRenditions(renditions)
	if lease.Valid {
		v.LeaseUntil = lease.Time
	}
	return &v, nil
}

func scanVideos(rows *sql.Rows) ([]*domain.Video, error) {
	var videos []*domain.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, v)
	}
	return videos, rows.Err()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var _ port.Catalog = (*Catalog)(nil)
