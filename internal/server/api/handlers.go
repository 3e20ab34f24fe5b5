package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"time"

	"github.com/gorilla/websocket"

	"csv-exporter/internal/csvenc"
	"csv-exporter/internal/exporter"
	"csv-exporter/internal/security"
	"csv-exporter/internal/server/hub"
	"csv-exporter/internal/storage"
	"csv-exporter/internal/worker"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS middleware owns origin policy
	},
}

type Handler struct {
	Pool        *worker.Pool // nil when no database source is configured
	Storage     storage.Provider
	Hub         *hub.Hub
	TokenSecret []byte
	JobTimeout  time.Duration
}

func NewHandler(pool *worker.Pool, store storage.Provider, h *hub.Hub, tokenSecret []byte, jobTimeout time.Duration) *Handler {
	return &Handler{
		Pool:        pool,
		Storage:     store,
		Hub:         h,
		TokenSecret: tokenSecret,
		JobTimeout:  jobTimeout,
	}
}

// --- Synchronous export ---

// ExportRequest is a dataset shipped in the request body plus encoder
// settings. Rows are positional against Columns so field order survives JSON.
type ExportRequest struct {
	Columns        []string `json:"columns"`
	Rows           [][]any  `json:"rows"`
	Filename       string   `json:"filename"`
	IncludeHeading *bool    `json:"include_heading"`
	Delimiter      string   `json:"delimiter"`
	Enclosure      string   `json:"enclosure"`
	Escape         string   `json:"escape"`
	Charset        string   `json:"charset"`
	ContentType    string   `json:"content_type"`
}

// HandleExport encodes the posted dataset and responds with the CSV bytes as
// a file download.
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	rows := make([]csvenc.Row, 0, len(req.Rows))
	for i, values := range req.Rows {
		if len(values) != len(req.Columns) {
			http.Error(w, fmt.Sprintf("row %d has %d values, expected %d", i, len(values), len(req.Columns)), http.StatusBadRequest)
			return
		}
		row := make(csvenc.Row, len(values))
		for j, v := range values {
			row[j] = csvenc.Field{Name: req.Columns[j], Value: v}
		}
		rows = append(rows, row)
	}

	enc, err := csvenc.New(rows)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Filename != "" {
		enc.SetFilename(req.Filename)
	}
	if req.IncludeHeading != nil {
		enc.SetIncludeHeading(*req.IncludeHeading)
	}
	if req.Delimiter != "" {
		enc.SetDelimiter(req.Delimiter)
	}
	if req.Enclosure != "" {
		enc.SetEnclosure(req.Enclosure)
	}
	if req.Escape != "" {
		enc.SetEscapeChar(req.Escape)
	}
	if req.Charset != "" {
		enc.SetOutputCharset(req.Charset)
	}
	if req.ContentType != "" {
		enc.SetContentType(req.ContentType)
	}

	data, err := enc.Encode()
	if err != nil {
		if errors.Is(err, csvenc.ErrInvalidArgument) || errors.Is(err, csvenc.ErrInvalidInput) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		slog.Error("Export encode failed", "error", err)
		http.Error(w, "Export failed", http.StatusInternalServerError)
		return
	}

	writeDownload(w, data, enc.Filename(), enc.ContentType(), enc.OutputCharset())
}

// --- Asynchronous query export ---

type QueryExportRequest struct {
	Query            string `json:"query"`
	Format           string `json:"format"`
	Filename         string `json:"filename"`
	Email            string `json:"email"`
	Delimiter        string `json:"delimiter"`
	Enclosure        string `json:"enclosure"`
	Escape           string `json:"escape"`
	Charset          string `json:"charset"`
	IncludeHeading   *bool  `json:"include_heading"`
	SanitizeFormulas bool   `json:"sanitize_formulas"`
}

type QueryExportResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// HandleQueryExport validates and enqueues a database export job.
func (h *Handler) HandleQueryExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.Pool == nil {
		http.Error(w, "Query exports are not configured", http.StatusServiceUnavailable)
		return
	}

	var req QueryExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if err := security.ValidateQuery(req.Query); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Email != "" {
		if err := security.ValidateEmail(req.Email); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	opts := exporter.DefaultOptions()
	opts.Delimiter = req.Delimiter
	opts.Enclosure = req.Enclosure
	opts.Escape = req.Escape
	opts.Charset = req.Charset
	opts.SanitizeFormulas = req.SanitizeFormulas
	if req.IncludeHeading != nil {
		opts.IncludeHeading = *req.IncludeHeading
	}

	job := worker.NewExportJob(req.Query, req.Format, req.Filename, req.Email, opts, h.JobTimeout)
	if !h.Pool.Submit(job) {
		job.Cancel()
		http.Error(w, "Export queue is full, try again later", http.StatusServiceUnavailable)
		return
	}

	slog.Info("Export job accepted", "job_id", job.ID, "format", job.Format)
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(QueryExportResponse{
		JobID:  job.ID,
		Status: string(worker.StatusPending),
	})
}

// --- Stored export download ---

// HandleDownload serves a stored export. When a token secret is configured,
// the signed token is the sole authority on which key may be read.
func (h *Handler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	key := r.URL.Query().Get("key")
	if len(h.TokenSecret) > 0 {
		tokenKey, err := security.VerifyDownloadToken(h.TokenSecret, r.URL.Query().Get("token"))
		if err != nil {
			http.Error(w, "Invalid or expired download token", http.StatusUnauthorized)
			return
		}
		key = tokenKey
	}
	if key == "" {
		http.Error(w, "Missing key", http.StatusBadRequest)
		return
	}

	reader, err := h.Storage.Open(r.Context(), key)
	if err != nil {
		http.Error(w, "Export not found", http.StatusNotFound)
		return
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		slog.Error("Failed to read stored export", "key", key, "error", err)
		http.Error(w, "Failed to read export", http.StatusInternalServerError)
		return
	}

	writeDownload(w, data, path.Base(key), contentTypeForKey(key), "")
}

// --- Dashboard ---

func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Dashboard upgrade failed", "error", err)
		return
	}

	h.Hub.Register(conn)
	for {
		if _, _, err := conn.NextReader(); err != nil {
			h.Hub.Unregister(conn)
			break
		}
	}
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
