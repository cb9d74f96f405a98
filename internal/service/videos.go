package service

import (
	"context"
	"fmt"
	"os"

	"github.com/streamhive/streamhive/internal/domain"
	"github.com/streamhive/streamhive/internal/hls"
	"github.com/streamhive/streamhive/internal/infrastructure/logger"
	"github.com/streamhive/streamhive/internal/port"
)

// VideoService is the thin catalog-facing surface for uploads and video
// CRUD. The pipeline picks uploads up on its own; nothing here triggers
// transcoding directly.
type VideoService struct {
	catalog port.Catalog
	blobs   port.BlobStore
}

func NewVideoService(catalog port.Catalog, blobs port.BlobStore) *VideoService {
	return &VideoService{catalog: catalog, blobs: blobs}
}

// Upload stores the source file under the video's public token and creates
// the catalog row as uploaded, from where the scheduler will claim it. The
// filename is sanitized before it becomes part of a storage key so an
// upload can never write into another token's tree.
func (s *VideoService) Upload(ctx context.Context, title, filename string, file *os.File) (*domain.Video, error) {
	filename = domain.SanitizeFilename(filename)
	if title == "" {
		title = filename
	}
	v := domain.NewVideo(title, "")

	if _, err := file.Seek(0, 0); err != nil {
		return nil, fmt.Errorf("rewind upload: %w", err)
	}
	location, err := s.blobs.Put(hls.SourceKey(v.Token, filename), file)
	if err != nil {
		return nil, fmt.Errorf("store source: %w", err)
	}
	v.SourcePath = location

	if err := s.catalog.CreateVideo(ctx, v); err != nil {
		if derr := s.blobs.DeleteTree(v.Token); derr != nil {
			logger.Warn.Printf("orphaned source tree %s: %v", v.Token, derr)
		}
		return nil, fmt.Errorf("create video record: %w", err)
	}

	logger.Info.Printf("video uploaded: id=%d token=%s title=%s",
		v.ID, v.Token, logger.SanitizeForLog(title))
	return v, nil
}

func (s *VideoService) Get(ctx context.Context, token string) (*domain.Video, error) {
	return s.catalog.GetVideoByToken(ctx, token)
}

func (s *VideoService) List(ctx context.Context) ([]*domain.Video, error) {
	return s.catalog.ListVideos(ctx)
}

// Delete removes the catalog row and the video's whole storage tree.
func (s *VideoService) Delete(ctx context.Context, token string) error {
	v, err := s.catalog.GetVideoByToken(ctx, token)
	if err != nil {
		return err
	}
	if err := s.catalog.DeleteVideo(ctx, v.ID); err != nil {
		return err
	}
	if err := s.blobs.DeleteTree(v.Token); err != nil {
		logger.Warn.Printf("delete storage tree %s: %v", v.Token, err)
	}
	return nil
}

// Resubmit returns a failed video to the uploaded state for another pass.
// Completed renditions are kept; the next attempt fills in the missing
// tiers.
func (s *VideoService) Resubmit(ctx context.Context, token string) error {
	v, err := s.catalog.GetVideoByToken(ctx, token)
	if err != nil {
		return err
	}
	return s.catalog.Resubmit(ctx, v.ID)
}
