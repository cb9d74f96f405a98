package ffmpeg

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/streamhive/streamhive/internal/domain"
	"github.com/streamhive/streamhive/internal/hls"
)

// BuildArgs constructs the ffmpeg argument slice for one rendition. The
// command template is fixed; only source, rendition parameters, and output
// directory vary, so alternate encoders can swap in behind the port without
// touching pipeline logic.
//
// The scale+pad filter letterboxes sources whose aspect ratio differs from
// the target instead of distorting them.
func (e *Encoder) BuildArgs(sourcePath, outputDir string, r domain.Rendition) []string {
	args := make([]string, 0, 32)

	args = append(args,
		"-hide_banner", "-nostdin", "-y",
		"-loglevel", "error",
		"-i", sourcePath,
	)

	filter := fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2",
		r.Width, r.Height, r.Width, r.Height)
	args = append(args, "-filter:v", filter)

	args = append(args,
		"-c:v", e.videoCodec,
		"-b:v", strconv.Itoa(r.VideoBitrate),
		"-maxrate", strconv.Itoa(r.VideoBitrate),
		"-bufsize", strconv.Itoa(2*r.VideoBitrate),
	)

	args = append(args,
		"-c:a", "aac",
		"-b:a", strconv.Itoa(r.AudioBitrate),
		"-ac", "2",
	)

	args = append(args,
		"-f", "hls",
		"-hls_time", strconv.Itoa(r.SegmentSeconds),
		"-hls_list_size", "0",
		"-hls_segment_filename", filepath.Join(outputDir, hls.SegmentPattern),
		filepath.Join(outputDir, hls.MediaPlaylistName),
	)

	return args
}
