package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"csv-exporter/internal/config"
	"csv-exporter/internal/email"
	"csv-exporter/internal/server/api"
	"csv-exporter/internal/server/hub"
	"csv-exporter/internal/server/middleware"
	"csv-exporter/internal/source"
	"csv-exporter/internal/storage"
	"csv-exporter/internal/worker"
)

func main() {
	_ = godotenv.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load()
	slog.Info("Starting CSV exporter", "env", cfg.AppEnv)

	// Storage backend
	var store storage.Provider
	switch cfg.StorageType {
	case "s3":
		client, err := storage.NewS3Client(context.Background(), cfg.AWSRegion, cfg.S3Endpoint, cfg.S3PathStyle)
		if err != nil {
			slog.Error("Failed to initialize S3 client", "error", err)
			os.Exit(1)
		}
		store = storage.NewS3Provider(client, cfg.S3Bucket)
		slog.Info("Using S3 storage", "bucket", cfg.S3Bucket)
	default:
		store = storage.NewLocalProvider(cfg.LocalStoragePath)
		slog.Info("Using local storage", "path", cfg.LocalStoragePath)
	}

	// Email notifications
	var emailer email.Sender
	if cfg.SMTPHost != "" {
		emailer = email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom)
	} else {
		slog.Warn("SMTP not configured, download links will be logged instead")
		emailer = email.NewLogSender()
	}

	// Dashboard event hub
	h := hub.NewHub()

	// Query export pipeline. Disabled when no source database is configured;
	// the dataset endpoint keeps working either way.
	var pool *worker.Pool
	if cfg.MySQLDSN != "" {
		src, err := source.Open(cfg.MySQLDSN)
		if err != nil {
			slog.Error("Failed to connect to MySQL", "error", err)
			os.Exit(1)
		}
		defer src.Close()
		slog.Info("Database connected")

		pool = worker.NewPool(worker.Config{
			Workers:          cfg.WorkerCount,
			MaxDBConcurrency: cfg.MaxDBConcurrency,
			UseGzip:          cfg.Compression,
			TokenSecret:      []byte(cfg.APISecret),
			TokenTTL:         cfg.DownloadTokenTTL,
			BaseURL:          cfg.PublicBaseURL,
		}, src, store, emailer, h)
		pool.Start()
		defer pool.Stop()
	} else {
		slog.Warn("MYSQL_DSN not set, query exports disabled")
	}

	handler := api.NewHandler(pool, store, h, []byte(cfg.APISecret), cfg.DefaultTimeout)

	auth := middleware.Auth(cfg.APISecret, cfg.APIKeyHashes)
	mux := http.NewServeMux()
	mux.Handle("/export", auth(http.HandlerFunc(handler.HandleExport)))
	mux.Handle("/export/query", auth(http.HandlerFunc(handler.HandleQueryExport)))
	mux.HandleFunc("/download", handler.HandleDownload)
	mux.HandleFunc("/dashboard/stream", handler.HandleDashboard)
	mux.HandleFunc("/healthz", handler.HandleHealth)

	finalHandler := middleware.CORS(cfg.AllowedOrigins, cfg.AppEnv)(mux)

	slog.Info("Exporter listening", "port", cfg.ServerPort)
	if err := http.ListenAndServe(":"+cfg.ServerPort, finalHandler); err != nil {
		slog.Error("Server failed", "error", err)
	}
}
