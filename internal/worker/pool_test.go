package worker

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csv-exporter/internal/csvenc"
	"csv-exporter/internal/exporter"
	"csv-exporter/internal/server/hub"
	"csv-exporter/internal/storage"
)

type stubSource struct {
	rows []csvenc.Row
	err  error
}

func (s *stubSource) Fetch(ctx context.Context, query string) ([]csvenc.Row, error) {
	return s.rows, s.err
}

type captureEvents struct {
	mu     sync.Mutex
	events []hub.ExportEvent
}

func (c *captureEvents) Broadcast(event hub.ExportEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *captureEvents) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, e := range c.events {
		out = append(out, e.Type)
	}
	return out
}

type captureEmail struct {
	mu  sync.Mutex
	to  string
	url string
}

func (c *captureEmail) SendDownloadLink(email, downloadURL string, summary string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.to = email
	c.url = downloadURL
}

func waitDone(t *testing.T, job *ExportJob) {
	t.Helper()
	select {
	case <-job.Done:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not finish in time")
	}
}

func testPool(t *testing.T, cfg Config, src *stubSource) (*Pool, storage.Provider, *captureEvents, *captureEmail) {
	t.Helper()
	store := storage.NewLocalProvider(t.TempDir())
	events := &captureEvents{}
	emails := &captureEmail{}

	if cfg.Workers == 0 {
		cfg.Workers = 1
	}
	if cfg.MaxDBConcurrency == 0 {
		cfg.MaxDBConcurrency = 1
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080"
	}

	p := NewPool(cfg, src, store, emails, events)
	p.Start()
	t.Cleanup(p.Stop)
	return p, store, events, emails
}

func sampleDataset() []csvenc.Row {
	return []csvenc.Row{
		{{Name: "name", Value: "George"}, {Name: "age", Value: "15"}},
		{{Name: "name", Value: "Jack"}, {Name: "age", Value: "17"}},
	}
}

func TestPool_ProcessesJob(t *testing.T) {
	src := &stubSource{rows: sampleDataset()}
	cfg := Config{
		TokenSecret: []byte("secret"),
		TokenTTL:    time.Minute,
	}
	p, store, events, emails := testPool(t, cfg, src)

	job := NewExportJob("SELECT name, age FROM users", "csv", "users.csv", "user@example.com", exporter.DefaultOptions(), time.Minute)
	require.True(t, p.Submit(job))
	waitDone(t, job)

	assert.Equal(t, StatusCompleted, job.Status)
	assert.NoError(t, job.Err)
	assert.Equal(t, 2, job.RowCount)
	assert.Equal(t, fmt.Sprintf("exports/%s.csv", job.ID), job.Key)
	assert.Contains(t, job.DownloadURL, "token=")

	r, err := store.Open(context.Background(), job.Key)
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "Name,Age\nGeorge,15\nJack,17\n", string(data))

	assert.Equal(t, []string{hub.EventJobStart, hub.EventJobComplete}, events.types())

	emails.mu.Lock()
	defer emails.mu.Unlock()
	assert.Equal(t, "user@example.com", emails.to)
	assert.Equal(t, job.DownloadURL, emails.url)
}

func TestPool_GzipsStoredExport(t *testing.T) {
	src := &stubSource{rows: sampleDataset()}
	p, store, _, _ := testPool(t, Config{UseGzip: true}, src)

	job := NewExportJob("SELECT name, age FROM users", "", "", "", exporter.DefaultOptions(), time.Minute)
	require.True(t, p.Submit(job))
	waitDone(t, job)

	require.Equal(t, StatusCompleted, job.Status)
	assert.True(t, strings.HasSuffix(job.Key, ".csv.gz"))

	r, err := store.Open(context.Background(), job.Key)
	require.NoError(t, err)
	defer r.Close()
	gr, err := gzip.NewReader(r)
	require.NoError(t, err)
	data, err := io.ReadAll(gr)
	require.NoError(t, err)
	assert.Equal(t, "Name,Age\nGeorge,15\nJack,17\n", string(data))
}

func TestPool_FailsJobOnFetchError(t *testing.T) {
	src := &stubSource{err: errors.New("connection refused")}
	p, _, events, _ := testPool(t, Config{}, src)

	job := NewExportJob("SELECT 1 FROM t", "csv", "", "", exporter.DefaultOptions(), time.Minute)
	require.True(t, p.Submit(job))
	waitDone(t, job)

	assert.Equal(t, StatusFailed, job.Status)
	require.Error(t, job.Err)
	assert.Contains(t, job.Err.Error(), "connection refused")
	assert.Equal(t, []string{hub.EventJobStart, hub.EventJobFailed}, events.types())
}

func TestPool_FailsJobOnUnknownFormat(t *testing.T) {
	src := &stubSource{rows: sampleDataset()}
	p, _, _, _ := testPool(t, Config{}, src)

	job := NewExportJob("SELECT 1 FROM t", "xlsx", "", "", exporter.DefaultOptions(), time.Minute)
	require.True(t, p.Submit(job))
	waitDone(t, job)

	assert.Equal(t, StatusFailed, job.Status)
}

func TestPool_UnsignedURLWithoutSecret(t *testing.T) {
	src := &stubSource{rows: sampleDataset()}
	p, _, _, _ := testPool(t, Config{BaseURL: "https://exports.example.com"}, src)

	job := NewExportJob("SELECT 1 FROM t", "json", "", "", exporter.DefaultOptions(), time.Minute)
	require.True(t, p.Submit(job))
	waitDone(t, job)

	require.Equal(t, StatusCompleted, job.Status)
	assert.True(t, strings.HasSuffix(job.Key, ".json"))
	assert.NotContains(t, job.DownloadURL, "token=")
	assert.Contains(t, job.DownloadURL, "https://exports.example.com/download?key=")
}
