package port

import (
	"context"

	"github.com/streamhive/streamhive/internal/domain"
)

// Encoder is the external transcoding capability. One call produces one
// rendition's segmented stream plus its media playlist inside outputDir.
type Encoder interface {
	EncodeRendition(ctx context.Context, sourcePath, outputDir string, r domain.Rendition) error
}
