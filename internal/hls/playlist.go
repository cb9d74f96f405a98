// Package hls renders master playlists and defines the public storage key
// layout for a video's streaming tree. Media playlists and segments come
// from the encoder; only the master manifest is assembled here.
package hls

import (
	"fmt"
	"strings"

	"github.com/streamhive/streamhive/internal/domain"
)

const (
	MasterPlaylistName = "master.m3u8"
	MediaPlaylistName  = "playlist.m3u8"
	SegmentPattern     = "segment%d.ts"
)

// MasterKey is the storage key of a video's master playlist. Keys are
// rooted at the public token so internal IDs never appear in URLs.
func MasterKey(token string) string {
	return token + "/" + MasterPlaylistName
}

// RenditionKey is the storage key prefix of one rendition's tree.
func RenditionKey(token, rendition string) string {
	return token + "/" + rendition
}

// SourceKey is the storage key of the uploaded source file.
func SourceKey(token, filename string) string {
	return token + "/source/" + filename
}

// MasterPlaylist renders the top-level manifest advertising the given
// renditions. Order must follow the ladder so players start on the lowest
// tier. Each entry references the rendition's media playlist relative to
// the master's own directory.
func MasterPlaylist(renditions []domain.Rendition) []byte {
	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	b.WriteString("#EXT-X-VERSION:3\n")
	for _, r := range renditions {
		fmt.Fprintf(&b, "#EXT-X-STREAM-INF:BANDWIDTH=%d,RESOLUTION=%s\n", r.Bandwidth(), r.Resolution())
		b.WriteString(r.Name + "/" + MediaPlaylistName + "\n")
	}
	return []byte(b.String())
}
