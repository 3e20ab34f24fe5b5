package worker

import (
	"context"
	"time"

	"github.com/google/uuid"

	"csv-exporter/internal/exporter"
)

type JobStatus string

const (
	StatusPending    JobStatus = "PENDING"
	StatusProcessing JobStatus = "PROCESSING"
	StatusCompleted  JobStatus = "COMPLETED"
	StatusFailed     JobStatus = "FAILED"
)

// ExportJob is one asynchronous query export: fetch, encode, store, notify.
type ExportJob struct {
	// ID is the unique UUID v4 for the job; it names the stored file.
	ID string
	// Query is the SELECT statement producing the dataset.
	Query string
	// Format selects the payload encoder ("csv", "json").
	Format string
	// Filename is the download filename hint; defaults to the job ID.
	Filename string
	// Email, when set, receives the download link on completion.
	Email string
	// Options configures the CSV encoder.
	Options exporter.Options

	Submitted time.Time
	Started   time.Time
	Finished  time.Time
	Status    JobStatus
	Err       error

	// Key is the storage location of the finished export.
	Key string
	// RowCount is the number of data rows exported.
	RowCount int
	// DownloadURL is the signed link handed to the requester.
	DownloadURL string

	// Done is closed when processing finishes, successfully or not.
	Done chan struct{}

	Ctx    context.Context
	Cancel context.CancelFunc
}

func NewExportJob(query, format, filename, email string, opts exporter.Options, timeout time.Duration) *ExportJob {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	if format == "" {
		format = "csv"
	}
	return &ExportJob{
		ID:        uuid.New().String(),
		Query:     query,
		Format:    format,
		Filename:  filename,
		Email:     email,
		Options:   opts,
		Submitted: time.Now(),
		Status:    StatusPending,
		Done:      make(chan struct{}),
		Ctx:       ctx,
		Cancel:    cancel,
	}
}
