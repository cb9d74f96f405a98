package domain

import (
	"regexp"
	"time"
)

// ViewRecord is the daily per-user-per-video viewing aggregate. At most one
// row exists per (video, user, day); watch time only grows within a day.
type ViewRecord struct {
	VideoID             int64     `json:"video_id"`
	UserID              int64     `json:"user_id"`
	Day                 string    `json:"day"`
	WatchTime           int64     `json:"watch_time"`
	MaxPlaybackPosition int64     `json:"max_playback_position"`
	PlaybackRate        float64   `json:"playback_rate"`
	DeviceClass         string    `json:"device_class"`
	CreatedAt           time.Time `json:"created_at"`
}

// ViewDelta is the portion of a client report merged into a ViewRecord.
type ViewDelta struct {
	WatchTime        int64
	PlaybackPosition int64
	PlaybackRate     float64
	DeviceClass      string
}

// ViewReport is one client-side playback report. ReportID is a per-session
// identifier used to drop retried reports; reports without one are merged
// as-is and may double-count watch time on client retries.
type ViewReport struct {
	VideoToken       string  `json:"video_token"`
	ReportID         string  `json:"report_id"`
	WatchTime        int64   `json:"watch_time"`
	PlaybackPosition int64   `json:"playback_position"`
	PlaybackRate     float64 `json:"playback_rate"`
	UserAgent        string  `json:"-"`
}

// ViewTotals is the admin-facing per-video rollup.
type ViewTotals struct {
	VideoID        int64  `json:"video_id"`
	Title          string `json:"title"`
	TotalViews     int64  `json:"total_views"`
	TotalWatchTime int64  `json:"total_watch_time"`
	ViewCount      int64  `json:"view_count"`
}

var mobileUA = regexp.MustCompile(`Mobile|Android|iOS`)

// DeviceClassFor maps a User-Agent header to a coarse device class.
func DeviceClassFor(userAgent string) string {
	if mobileUA.MatchString(userAgent) {
		return "mobile"
	}
	return "desktop"
}

// Day formats a timestamp as the calendar-day key used by ViewRecord.
func Day(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
