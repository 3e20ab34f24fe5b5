package exporter

import (
	"bytes"
	"encoding/json"

	"csv-exporter/internal/csvenc"
)

// JSONLinesEncoder emits one JSON object per row.
type JSONLinesEncoder struct{}

func NewJSONLines() *JSONLinesEncoder {
	return &JSONLinesEncoder{}
}

func (e *JSONLinesEncoder) Encode(rows []csvenc.Row) ([]byte, error) {
	var buf bytes.Buffer
	for _, row := range rows {
		obj := make(map[string]any, len(row))
		for _, f := range row {
			// []byte would marshal as base64; exports want readable text.
			if b, ok := f.Value.([]byte); ok {
				obj[f.Name] = string(b)
			} else {
				obj[f.Name] = f.Value
			}
		}

		data, err := json.Marshal(obj)
		if err != nil {
			return nil, err
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

func (e *JSONLinesEncoder) ContentType() string { return "application/x-ndjson" }

func (e *JSONLinesEncoder) FileExtension() string { return ".json" }
