package service

import (
	"context"
	"time"

	"github.com/streamhive/streamhive/internal/domain"
	"github.com/streamhive/streamhive/internal/infrastructure/logger"
	"github.com/streamhive/streamhive/internal/metrics"
	"github.com/streamhive/streamhive/internal/port"
)

// PipelineConfig carries the scheduler's tuning knobs. Workers caps
// concurrent encodes to the available encoder slots, independent of how
// many videos are pending.
type PipelineConfig struct {
	Workers      int
	PollInterval time.Duration
	BatchSize    int
	LeaseTTL     time.Duration
	MaxAttempts  int
	WorkDir      string
}

// Pipeline polls the catalog for claimable videos and drives them through
// the transcoder under a fixed-size worker pool. The catalog's conditional
// claim update is the only lock; a worker that dies mid-job simply lets its
// lease lapse and the video becomes claimable again on a later poll.
type Pipeline struct {
	catalog    port.Catalog
	transcoder *Transcoder
	bus        *EventBus
	metrics    *metrics.Metrics
	renditions []domain.Rendition
	backoff    *Backoff
	cfg        PipelineConfig
	queue      chan *domain.Video
}

func NewPipeline(catalog port.Catalog, transcoder *Transcoder, bus *EventBus, m *metrics.Metrics, renditions []domain.Rendition, cfg PipelineConfig) *Pipeline {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 2 * cfg.Workers
	}
	return &Pipeline{
		catalog:    catalog,
		transcoder: transcoder,
		bus:        bus,
		metrics:    m,
		renditions: renditions,
		backoff:    NewBackoff(2*time.Second, 2*time.Minute, 2.0),
		cfg:        cfg,
		queue:      make(chan *domain.Video),
	}
}

func (p *Pipeline) Start(ctx context.Context) {
	go p.dispatch(ctx)
	for i := range p.cfg.Workers {
		go p.runWorker(ctx, i)
	}
	logger.Info.Printf("pipeline started: %d workers, poll every %s, lease %s",
		p.cfg.Workers, p.cfg.PollInterval, p.cfg.LeaseTTL)
}

// dispatch feeds claim candidates to the workers. Candidates are not yet
// claimed; each worker performs the atomic claim itself so a video queued
// behind busy workers does not burn lease time.
func (p *Pipeline) dispatch(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		pending, err := p.catalog.NextPendingVideos(ctx, p.cfg.BatchSize)
		if err != nil {
			// Catalog unavailable: stop handing out new claims, leave
			// in-flight jobs running.
			logger.Error.Printf("poll pending videos: %v", err)
		} else {
			p.metrics.PendingVideos.Set(float64(len(pending)))
			for _, v := range pending {
				select {
				case p.queue <- v:
				case <-ctx.Done():
					return
				}
			}
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

func (p *Pipeline) runWorker(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			logger.Info.Printf("pipeline worker %d shutting down", id)
			return
		case v := <-p.queue:
			p.processVideo(ctx, id, v)
		}
	}
}

func (p *Pipeline) processVideo(ctx context.Context, workerID int, v *domain.Video) {
	claimed, err := p.catalog.ClaimForTranscoding(ctx, v.ID, p.cfg.LeaseTTL)
	if err != nil {
		logger.Error.Printf("worker %d: claim video %d: %v", workerID, v.ID, err)
		return
	}
	if !claimed {
		// Another worker owns it; not an error.
		p.metrics.ClaimConflicts.Inc()
		return
	}

	p.metrics.JobsStarted.Inc()
	p.metrics.ActiveJobs.Inc()
	defer p.metrics.ActiveJobs.Dec()

	p.bus.Publish(v.Token, Event{Status: string(domain.StatusTranscoding)})
	logger.Info.Printf("worker %d: transcoding video %d (token=%s)", workerID, v.ID, v.Token)

	job := domain.NewTranscodeJob(v, p.renditions, p.cfg.WorkDir)

	var lastErr error
	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			p.metrics.JobRetries.Inc()
			select {
			case <-time.After(p.backoff.Duration(attempt - 1)):
			case <-ctx.Done():
				// Shutdown mid-job: leave the lease to expire so another
				// poll cycle reclaims the video.
				return
			}
			if err := p.catalog.ExtendLease(ctx, v.ID, p.cfg.LeaseTTL); err != nil {
				logger.Warn.Printf("worker %d: extend lease for video %d: %v", workerID, v.ID, err)
			}
		}

		job.Attempt = attempt
		lastErr = p.transcoder.Process(ctx, job)
		if lastErr == nil {
			if err := p.catalog.MarkReady(ctx, v.ID); err != nil {
				logger.Error.Printf("worker %d: mark video %d ready: %v", workerID, v.ID, err)
				return
			}
			p.metrics.JobsCompleted.Inc()
			p.bus.Publish(v.Token, Event{Status: string(domain.StatusReady)})
			logger.Info.Printf("worker %d: video %d ready", workerID, v.ID)
			return
		}

		if ctx.Err() != nil {
			return
		}
		logger.Error.Printf("worker %d: video %d attempt %d/%d failed: %v",
			workerID, v.ID, attempt, p.cfg.MaxAttempts, lastErr)
		if !domain.IsRetryable(lastErr) {
			break
		}
	}

	p.fail(ctx, v, lastErr)
}

// fail marks the video failed after a fatal error or an exhausted retry
// budget. Renditions published by earlier attempts stay referenced by the
// master playlist, so partial playback survives.
func (p *Pipeline) fail(ctx context.Context, v *domain.Video, cause error) {
	if err := p.catalog.MarkFailed(ctx, v.ID, cause.Error()); err != nil {
		logger.Error.Printf("mark video %d failed: %v", v.ID, err)
		return
	}
	p.metrics.JobsFailed.Inc()
	p.bus.Publish(v.Token, Event{
		Status:  string(domain.StatusFailed),
		Message: cause.Error(),
	})
}
