package domain

import "fmt"

// Rendition is one fixed-bitrate variant of a source video. The ladder is
// ordered lowest tier first so the cheapest rendition becomes playable
// soonest.
type Rendition struct {
	Name           string
	Width          int
	Height         int
	VideoBitrate   int // bits per second
	AudioBitrate   int // bits per second
	SegmentSeconds int
}

const DefaultSegmentSeconds = 6

var ladder = []Rendition{
	{Name: "480p", Width: 854, Height: 480, VideoBitrate: 1_000_000, AudioBitrate: 128_000, SegmentSeconds: DefaultSegmentSeconds},
	{Name: "720p", Width: 1280, Height: 720, VideoBitrate: 3_000_000, AudioBitrate: 128_000, SegmentSeconds: DefaultSegmentSeconds},
	{Name: "1080p", Width: 1920, Height: 1080, VideoBitrate: 5_000_000, AudioBitrate: 128_000, SegmentSeconds: DefaultSegmentSeconds},
}

// Ladder returns the fixed rendition catalog, ascending quality order.
func Ladder() []Rendition {
	out := make([]Rendition, len(ladder))
	copy(out, ladder)
	return out
}

// RenditionByName looks up a ladder entry.
func RenditionByName(name string) (Rendition, bool) {
	for _, r := range ladder {
		if r.Name == name {
			return r, true
		}
	}
	return Rendition{}, false
}

// Bandwidth is the peak bandwidth advertised for this rendition in the
// master playlist.
func (r Rendition) Bandwidth() int {
	return r.VideoBitrate + r.AudioBitrate
}

// Resolution renders the WxH attribute value for the master playlist.
func (r Rendition) Resolution() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}
