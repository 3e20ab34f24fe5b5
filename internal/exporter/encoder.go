// Package exporter selects the payload encoder for a requested export
// format. All encoders operate on a fully materialized dataset and return a
// single byte buffer; the caller decides where the bytes go (HTTP response,
// storage, email attachment).
package exporter

import (
	"fmt"

	"csv-exporter/internal/csvenc"
)

// Encoder converts a dataset into one export payload.
type Encoder interface {
	Encode(rows []csvenc.Row) ([]byte, error)

	// ContentType is the MIME type the HTTP layer should report.
	ContentType() string

	// FileExtension includes the leading dot, e.g. ".csv".
	FileExtension() string
}

// ForFormat returns the encoder for a format name. An empty format means CSV.
func ForFormat(format string, opts Options) (Encoder, error) {
	switch format {
	case "", "csv":
		return NewCSV(opts), nil
	case "json":
		return NewJSONLines(), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}
