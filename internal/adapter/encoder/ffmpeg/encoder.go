// Package ffmpeg invokes the external encoder, one process per rendition.
// Success and failure are reported solely through process exit status;
// stderr is captured for failure classification.
package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/streamhive/streamhive/internal/domain"
	"github.com/streamhive/streamhive/internal/port"
)

const stderrTailBytes = 4096

type Encoder struct {
	bin        string
	videoCodec string
}

// NewEncoder builds an encoder around the given ffmpeg binary and video
// codec (libx264 for CPU encoding, h264_nvenc and friends for hardware).
func NewEncoder(bin, videoCodec string) *Encoder {
	if bin == "" {
		bin = "ffmpeg"
	}
	if videoCodec == "" {
		videoCodec = "libx264"
	}
	return &Encoder{bin: bin, videoCodec: videoCodec}
}

func (e *Encoder) EncodeRendition(ctx context.Context, sourcePath, outputDir string, r domain.Rendition) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create rendition directory: %w", err)
	}

	args := e.BuildArgs(sourcePath, outputDir, r)
	cmd := exec.CommandContext(ctx, e.bin, args...)

	var stderrBuf bytes.Buffer
	cmd.Stderr = &stderrBuf

	if err := cmd.Run(); err != nil {
		reason := err.Error()
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			reason = fmt.Sprintf("exit status %d", exitErr.ExitCode())
		}
		return &domain.EncodeError{
			Rendition:  r.Name,
			ExitReason: reason,
			Stderr:     stderrTail(stderrBuf.Bytes()),
			Err:        err,
		}
	}
	return nil
}

func stderrTail(b []byte) string {
	if len(b) > stderrTailBytes {
		b = b[len(b)-stderrTailBytes:]
	}
	return string(b)
}

var _ port.Encoder = (*Encoder)(nil)
