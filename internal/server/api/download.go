package api

import (
	"net/http"
	"strconv"
	"strings"
)

// writeDownload emits an encoded export as a file attachment: content type
// (with charset when known), disposition with the suggested filename, and an
// exact content length.
func writeDownload(w http.ResponseWriter, data []byte, filename, contentType, charset string) {
	ct := contentType
	if charset != "" {
		ct += "; charset=" + charset
	}
	w.Header().Set("Content-Type", ct)
	if filename != "" {
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// contentTypeForKey maps a stored export's extension to its MIME type.
func contentTypeForKey(key string) string {
	switch {
	case strings.HasSuffix(key, ".gz"):
		return "application/gzip"
	case strings.HasSuffix(key, ".json"):
		return "application/x-ndjson"
	case strings.HasSuffix(key, ".csv"):
		return "text/csv"
	default:
		return "application/octet-stream"
	}
}
