package worker

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"csv-exporter/internal/email"
	"csv-exporter/internal/exporter"
	"csv-exporter/internal/security"
	"csv-exporter/internal/server/hub"
	"csv-exporter/internal/source"
	"csv-exporter/internal/storage"
)

// Broadcaster receives job lifecycle events (normally the dashboard hub).
type Broadcaster interface {
	Broadcast(event hub.ExportEvent)
}

// Config holds the pool settings that do not change per job.
type Config struct {
	// Workers is the number of concurrent export jobs allowed.
	Workers int
	// MaxDBConcurrency caps concurrent dataset fetches against the database.
	MaxDBConcurrency int64
	// UseGzip compresses stored exports.
	UseGzip bool
	// TokenSecret signs download tokens; TokenTTL bounds their lifetime.
	TokenSecret []byte
	TokenTTL    time.Duration
	// BaseURL is the public address used to build download links.
	BaseURL string
}

// Pool runs export jobs: fetch dataset, encode, store, notify. A weighted
// semaphore keeps the database fan-out below the worker count.
type Pool struct {
	jobQueue chan *ExportJob
	cfg      Config
	dbSem    *semaphore.Weighted
	wg       sync.WaitGroup
	quit     chan struct{}

	source  source.Source
	storage storage.Provider
	emailer email.Sender
	events  Broadcaster
}

// NewPool wires a pool. Call Start to begin processing.
func NewPool(cfg Config, src source.Source, store storage.Provider, emailer email.Sender, events Broadcaster) *Pool {
	return &Pool{
		jobQueue: make(chan *ExportJob, 100), // bounded so bursts cannot grow memory unbounded
		cfg:      cfg,
		dbSem:    semaphore.NewWeighted(cfg.MaxDBConcurrency),
		quit:     make(chan struct{}),
		source:   src,
		storage:  store,
		emailer:  emailer,
		events:   events,
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.workerLoop(i)
	}
	slog.Info("Worker pool started", "workers", p.cfg.Workers)
}

// Submit enqueues a job. Returns false when the queue is full or the pool is
// shutting down.
func (p *Pool) Submit(job *ExportJob) bool {
	select {
	case p.jobQueue <- job:
		return true
	case <-p.quit:
		return false
	default:
		return false
	}
}

// Stop initiates graceful shutdown and waits for in-flight jobs.
func (p *Pool) Stop() {
	close(p.quit)
	p.wg.Wait()
	slog.Info("Worker pool stopped")
}

func (p *Pool) workerLoop(id int) {
	defer p.wg.Done()
	slog.Debug("Worker started", "worker_id", id)

	for {
		select {
		case job, ok := <-p.jobQueue:
			if !ok {
				return
			}
			p.processJob(id, job)
		case <-p.quit:
			return
		}
	}
}

func (p *Pool) processJob(workerID int, job *ExportJob) {
	slog.Info("Processing job", "worker_id", workerID, "job_id", job.ID)

	job.Started = time.Now()
	job.Status = StatusProcessing
	p.events.Broadcast(hub.ExportEvent{
		Type:   hub.EventJobStart,
		JobID:  job.ID,
		Status: string(StatusProcessing),
	})

	if err := p.executeExport(job); err != nil {
		p.failJob(job, err)
		return
	}

	job.Status = StatusCompleted
	job.Finished = time.Now()
	close(job.Done)

	slog.Info("Job completed", "job_id", job.ID, "rows", job.RowCount, "key", job.Key)
	p.events.Broadcast(hub.ExportEvent{
		Type:   hub.EventJobComplete,
		JobID:  job.ID,
		Rows:   job.RowCount,
		Key:    job.Key,
		Status: string(StatusCompleted),
	})

	if job.Email != "" {
		summary := fmt.Sprintf(
			"Job ID: %s\nRows exported: %d\nSubmitted: %s\nFinished: %s\nDuration: %v",
			job.ID,
			job.RowCount,
			job.Submitted.Format("2006-01-02 15:04:05"),
			job.Finished.Format("2006-01-02 15:04:05"),
			job.Finished.Sub(job.Started),
		)
		p.emailer.SendDownloadLink(job.Email, job.DownloadURL, summary)
	}
}

func (p *Pool) executeExport(job *ExportJob) error {
	if err := p.dbSem.Acquire(job.Ctx, 1); err != nil {
		return fmt.Errorf("failed to acquire db slot: %w", err)
	}
	rows, err := p.source.Fetch(job.Ctx, job.Query)
	p.dbSem.Release(1)
	if err != nil {
		return fmt.Errorf("dataset fetch failed: %w", err)
	}

	enc, err := exporter.ForFormat(job.Format, job.Options)
	if err != nil {
		return err
	}
	data, err := enc.Encode(rows)
	if err != nil {
		return fmt.Errorf("encode failed: %w", err)
	}

	key := fmt.Sprintf("exports/%s%s", job.ID, enc.FileExtension())
	if p.cfg.UseGzip {
		key += ".gz"
		var buf bytes.Buffer
		gw := gzip.NewWriter(&buf)
		if _, err := gw.Write(data); err != nil {
			return fmt.Errorf("gzip failed: %w", err)
		}
		if err := gw.Close(); err != nil {
			return fmt.Errorf("gzip close failed: %w", err)
		}
		data = buf.Bytes()
	}

	if err := p.storage.Save(job.Ctx, key, data); err != nil {
		return fmt.Errorf("storage save failed: %w", err)
	}

	job.Key = key
	job.RowCount = len(rows)
	job.DownloadURL, err = p.downloadURL(key)
	if err != nil {
		return err
	}
	return nil
}

// downloadURL builds the signed link for a stored export.
func (p *Pool) downloadURL(key string) (string, error) {
	if len(p.cfg.TokenSecret) == 0 {
		return fmt.Sprintf("%s/download?key=%s", p.cfg.BaseURL, url.QueryEscape(key)), nil
	}
	token, err := security.NewDownloadToken(p.cfg.TokenSecret, key, p.cfg.TokenTTL)
	if err != nil {
		return "", fmt.Errorf("failed to sign download token: %w", err)
	}
	return fmt.Sprintf("%s/download?key=%s&token=%s", p.cfg.BaseURL, url.QueryEscape(key), token), nil
}

func (p *Pool) failJob(job *ExportJob, err error) {
	job.Status = StatusFailed
	job.Err = err
	job.Finished = time.Now()
	close(job.Done)

	slog.Error("Job failed", "job_id", job.ID, "error", err)
	p.events.Broadcast(hub.ExportEvent{
		Type:   hub.EventJobFailed,
		JobID:  job.ID,
		Status: string(StatusFailed),
		Error:  err.Error(),
	})
}
