package domain

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

type EncodeStatus string

const (
	StatusUploaded    EncodeStatus = "uploaded"
	StatusTranscoding EncodeStatus = "transcoding"
	StatusReady       EncodeStatus = "ready"
	StatusFailed      EncodeStatus = "failed"
)

// Video is the catalog's record of one source file and its streaming
// derivatives. The numeric ID is internal; every externally reachable path
// uses Token instead.
type Video struct {
	ID           int64        `json:"id"`
	Token        string       `json:"token"`
	Title        string       `json:"title"`
	SourcePath   string       `json:"source_path"`
	Status       EncodeStatus `json:"status"`
	ErrorMessage string       `json:"error_message"`
	Renditions   []string     `json:"renditions"`
	MasterPath   string       `json:"master_path"`
	ViewCount    int64        `json:"view_count"`
	LeaseUntil   time.Time    `json:"lease_until"`
	CreatedAt    time.Time    `json:"created_at"`
}

func NewVideo(title, sourcePath string) *Video {
	return &Video{
		Token:      uuid.NewString(),
		Title:      title,
		SourcePath: sourcePath,
		Status:     StatusUploaded,
		CreatedAt:  time.Now().UTC(),
	}
}

func (v *Video) HasRendition(name string) bool {
	return slices.Contains(v.Renditions, name)
}

// Streamable reports whether a player can fetch a master playlist for this
// video. A video with at least one published rendition stays streamable
// even after later renditions fail.
func (v *Video) Streamable() bool {
	return v.MasterPath != "" && len(v.Renditions) > 0
}

// LeaseExpired reports whether a transcoding claim on this video has lapsed
// and the video may be reclaimed.
func (v *Video) LeaseExpired(now time.Time) bool {
	return v.Status == StatusTranscoding && now.After(v.LeaseUntil)
}

// EncodeRenditions joins completed rendition names for persistence.
func EncodeRenditions(names []string) string {
	return strings.Join(names, ",")
}

// DecodeRenditions splits a persisted rendition list.
func DecodeRenditions(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

var videoExtensions = map[string]bool{
	".mp4": true, ".mkv": true, ".avi": true, ".mov": true,
	".wmv": true, ".flv": true, ".mpg": true, ".webm": true,
}

// IsVideoFile reports whether a filename looks like an ingestible source.
func IsVideoFile(name string) bool {
	dot := strings.LastIndex(name, ".")
	if dot < 0 {
		return false
	}
	return videoExtensions[strings.ToLower(name[dot:])]
}
