package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"

	"github.com/streamhive/streamhive/internal/domain"
	"github.com/streamhive/streamhive/internal/hls"
	"github.com/streamhive/streamhive/internal/infrastructure/logger"
	"github.com/streamhive/streamhive/internal/metrics"
	"github.com/streamhive/streamhive/internal/port"
)

// Transcoder drives one claimed video through its rendition ladder. Each
// tier is encoded into a scratch directory, published into the blob store,
// and only then advertised by rewriting the master playlist, so the master
// never references a rendition that is not fully in storage.
type Transcoder struct {
	catalog port.Catalog
	blobs   port.BlobStore
	encoder port.Encoder
	bus     *EventBus
	metrics *metrics.Metrics
}

func NewTranscoder(catalog port.Catalog, blobs port.BlobStore, encoder port.Encoder, bus *EventBus, m *metrics.Metrics) *Transcoder {
	return &Transcoder{
		catalog: catalog,
		blobs:   blobs,
		encoder: encoder,
		bus:     bus,
		metrics: m,
	}
}

// Process runs the job's renditions in ascending quality order. Tiers
// already published by an earlier attempt are skipped, and a tier failure
// aborts the remaining tiers while leaving completed ones referenced by the
// master playlist, so a partially transcoded video stays streamable.
//
// Process does not transition the video's status; the pipeline owns the
// retry-or-fail decision.
func (t *Transcoder) Process(ctx context.Context, job *domain.TranscodeJob) error {
	v, err := t.catalog.GetVideo(ctx, job.VideoID)
	if err != nil {
		return fmt.Errorf("load video %d: %w", job.VideoID, err)
	}

	workDir := filepath.Join(job.WorkDir, job.Token)
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return fmt.Errorf("create working directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			logger.Warn.Printf("cleanup working directory %s: %v", workDir, err)
		}
	}()

	var completed []domain.Rendition
	for _, r := range job.Renditions {
		if v.HasRendition(r.Name) {
			completed = append(completed, r)
			continue
		}

		outDir := filepath.Join(workDir, r.Name)
		if err := t.encoder.EncodeRendition(ctx, job.SourcePath, outDir, r); err != nil {
			return err
		}
		if err := t.publishRendition(job.Token, r, outDir); err != nil {
			return err
		}

		completed = append(completed, r)
		masterKey := hls.MasterKey(job.Token)
		master := hls.MasterPlaylist(completed)
		if _, err := t.blobs.Put(masterKey, bytes.NewReader(master)); err != nil {
			return fmt.Errorf("publish master playlist: %w", err)
		}
		if err := t.catalog.RecordRenditionComplete(ctx, job.VideoID, r.Name, masterKey); err != nil {
			return fmt.Errorf("record rendition %s: %w", r.Name, err)
		}

		if t.metrics != nil {
			t.metrics.RenditionsCompleted.WithLabelValues(r.Name).Inc()
		}
		if t.bus != nil {
			t.bus.Publish(job.Token, Event{
				Status:    string(domain.StatusTranscoding),
				Rendition: r.Name,
			})
		}
		logger.Info.Printf("video %s: rendition %s published", job.Token, r.Name)
	}

	return nil
}

// publishRendition moves one fully encoded rendition tree from the scratch
// directory into the blob store.
func (t *Transcoder) publishRendition(token string, r domain.Rendition, outDir string) error {
	files := make(map[string]io.Reader)
	var open []io.Closer
	defer func() {
		for _, c := range open {
			_ = c.Close()
		}
	}()

	err := filepath.WalkDir(outDir, func(p string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(outDir, p)
		if err != nil {
			return err
		}
		f, err := os.Open(p)
		if err != nil {
			return err
		}
		open = append(open, f)
		files[filepath.ToSlash(rel)] = f
		return nil
	})
	if err != nil {
		return fmt.Errorf("collect rendition %s output: %w", r.Name, err)
	}
	if len(files) == 0 {
		return fmt.Errorf("rendition %s produced no output", r.Name)
	}

	if _, err := t.blobs.PutTree(hls.RenditionKey(token, r.Name), files); err != nil {
		return fmt.Errorf("publish rendition %s: %w", r.Name, err)
	}
	return nil
}
