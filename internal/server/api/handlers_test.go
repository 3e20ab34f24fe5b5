package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csv-exporter/internal/csvenc"
	"csv-exporter/internal/email"
	"csv-exporter/internal/security"
	"csv-exporter/internal/server/hub"
	"csv-exporter/internal/storage"
	"csv-exporter/internal/worker"
)

type stubSource struct {
	rows []csvenc.Row
}

func (s *stubSource) Fetch(ctx context.Context, query string) ([]csvenc.Row, error) {
	return s.rows, nil
}

func newTestHandler(t *testing.T, withPool bool) (*Handler, storage.Provider) {
	t.Helper()
	store := storage.NewLocalProvider(t.TempDir())

	var pool *worker.Pool
	if withPool {
		src := &stubSource{rows: []csvenc.Row{
			{{Name: "name", Value: "George"}, {Name: "age", Value: "15"}},
		}}
		pool = worker.NewPool(worker.Config{
			Workers:          1,
			MaxDBConcurrency: 1,
			BaseURL:          "http://localhost:8080",
			TokenSecret:      []byte("test-secret"),
			TokenTTL:         time.Minute,
		}, src, store, email.NewLogSender(), hub.NewHub())
		pool.Start()
		t.Cleanup(pool.Stop)
	}

	return NewHandler(pool, store, hub.NewHub(), []byte("test-secret"), time.Minute), store
}

func postExport(h *Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/export", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.HandleExport(rec, req)
	return rec
}

func TestHandleExport_Defaults(t *testing.T) {
	h, _ := newTestHandler(t, false)

	rec := postExport(h, `{
		"columns": ["name", "age"],
		"rows": [["George", "15"], ["Jack", "17"]]
	}`)

	require.Equal(t, http.StatusOK, rec.Code)
	want := "Name,Age\nGeorge,15\nJack,17\n"
	assert.Equal(t, want, rec.Body.String())
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="output.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, fmt.Sprint(len(want)), rec.Header().Get("Content-Length"))
}

func TestHandleExport_CustomOptions(t *testing.T) {
	h, _ := newTestHandler(t, false)

	rec := postExport(h, `{
		"columns": ["name", "age"],
		"rows": [["George", "15"]],
		"filename": "people.csv",
		"delimiter": ";",
		"include_heading": false,
		"charset": "ISO-8859-1",
		"content_type": "text/plain"
	}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "George;15\n", rec.Body.String())
	assert.Equal(t, "text/plain; charset=ISO-8859-1", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="people.csv"`, rec.Header().Get("Content-Disposition"))
}

func TestHandleExport_EmptyDataset(t *testing.T) {
	h, _ := newTestHandler(t, false)

	rec := postExport(h, `{"columns": ["name"], "rows": []}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "", rec.Body.String())
	assert.Equal(t, "0", rec.Header().Get("Content-Length"))
}

func TestHandleExport_BadConfig(t *testing.T) {
	h, _ := newTestHandler(t, false)

	rec := postExport(h, `{
		"columns": ["name"],
		"rows": [["George"]],
		"delimiter": ";;"
	}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "delimiter")
}

func TestHandleExport_RowArityMismatch(t *testing.T) {
	h, _ := newTestHandler(t, false)

	rec := postExport(h, `{
		"columns": ["name", "age"],
		"rows": [["George"]]
	}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "row 0")
}

func TestHandleExport_MethodNotAllowed(t *testing.T) {
	h, _ := newTestHandler(t, false)

	req := httptest.NewRequest(http.MethodGet, "/export", nil)
	rec := httptest.NewRecorder()
	h.HandleExport(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleQueryExport(t *testing.T) {
	h, _ := newTestHandler(t, true)

	req := httptest.NewRequest(http.MethodPost, "/export/query",
		strings.NewReader(`{"query": "SELECT name, age FROM users", "format": "csv"}`))
	rec := httptest.NewRecorder()
	h.HandleQueryExport(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), "job_id")
	assert.Contains(t, rec.Body.String(), string(worker.StatusPending))
}

func TestHandleQueryExport_RejectsUnsafeQuery(t *testing.T) {
	h, _ := newTestHandler(t, true)

	req := httptest.NewRequest(http.MethodPost, "/export/query",
		strings.NewReader(`{"query": "DROP TABLE users"}`))
	rec := httptest.NewRecorder()
	h.HandleQueryExport(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleQueryExport_RejectsBadEmail(t *testing.T) {
	h, _ := newTestHandler(t, true)

	req := httptest.NewRequest(http.MethodPost, "/export/query",
		strings.NewReader(`{"query": "SELECT 1 FROM t", "email": "not-an-email"}`))
	rec := httptest.NewRecorder()
	h.HandleQueryExport(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleQueryExport_Unconfigured(t *testing.T) {
	h, _ := newTestHandler(t, false)

	req := httptest.NewRequest(http.MethodPost, "/export/query",
		strings.NewReader(`{"query": "SELECT 1 FROM t"}`))
	rec := httptest.NewRecorder()
	h.HandleQueryExport(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleDownload(t *testing.T) {
	h, store := newTestHandler(t, false)

	data := []byte("Name,Age\nGeorge,15\n")
	require.NoError(t, store.Save(context.Background(), "exports/abc.csv", data))

	token, err := security.NewDownloadToken(h.TokenSecret, "exports/abc.csv", time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/download?token="+token, nil)
	rec := httptest.NewRecorder()
	h.HandleDownload(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(data), rec.Body.String())
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="abc.csv"`, rec.Header().Get("Content-Disposition"))
}

func TestHandleDownload_InvalidToken(t *testing.T) {
	h, _ := newTestHandler(t, false)

	req := httptest.NewRequest(http.MethodGet, "/download?key=exports/abc.csv&token=garbage", nil)
	rec := httptest.NewRecorder()
	h.HandleDownload(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleDownload_NotFound(t *testing.T) {
	h, _ := newTestHandler(t, false)

	token, err := security.NewDownloadToken(h.TokenSecret, "exports/missing.csv", time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/download?token="+token, nil)
	rec := httptest.NewRecorder()
	h.HandleDownload(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleDownload_NoSecretUsesKeyParam(t *testing.T) {
	h, store := newTestHandler(t, false)
	h.TokenSecret = nil

	require.NoError(t, store.Save(context.Background(), "exports/open.json", []byte("{}\n")))

	req := httptest.NewRequest(http.MethodGet, "/download?key=exports%2Fopen.json", nil)
	rec := httptest.NewRecorder()
	h.HandleDownload(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/x-ndjson", rec.Header().Get("Content-Type"))
}

func TestHandleHealth(t *testing.T) {
	h, _ := newTestHandler(t, false)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.HandleHealth(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}
