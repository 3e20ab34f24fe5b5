package email

import (
	"log/slog"
	"time"
)

// Sender notifies a requester that their export is ready.
type Sender interface {
	SendDownloadLink(email, downloadURL string, summary string)
}

// LogSender logs instead of sending. Used when SMTP is not configured.
type LogSender struct{}

func NewLogSender() *LogSender {
	return &LogSender{}
}

func (s *LogSender) SendDownloadLink(email, downloadURL string, summary string) {
	go func() {
		time.Sleep(100 * time.Millisecond)
		slog.Info("EMAIL SENT",
			"to", email,
			"url", downloadURL,
			"summary", summary,
		)
	}()
}
