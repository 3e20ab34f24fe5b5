package exporter

import (
	"csv-exporter/internal/csvenc"
)

// Options carries the tunable CSV settings accepted from API requests and
// job definitions. Empty string fields fall back to the csvenc defaults.
type Options struct {
	Delimiter      string
	Enclosure      string
	Escape         string
	Charset        string
	ContentType    string
	IncludeHeading bool

	// SanitizeFormulas prefixes values starting with =, +, - or @ with a
	// single quote so spreadsheet applications do not evaluate them.
	// Off by default: it changes the data and breaks exact round-trips.
	SanitizeFormulas bool
}

// DefaultOptions returns Options with the heading record enabled.
func DefaultOptions() Options {
	return Options{IncludeHeading: true}
}

// CSVEncoder adapts the csvenc core to the format registry.
type CSVEncoder struct {
	opts Options
}

func NewCSV(opts Options) *CSVEncoder {
	return &CSVEncoder{opts: opts}
}

func (e *CSVEncoder) Encode(rows []csvenc.Row) ([]byte, error) {
	enc, err := csvenc.New(rows)
	if err != nil {
		return nil, err
	}

	enc.SetIncludeHeading(e.opts.IncludeHeading)
	if e.opts.Delimiter != "" {
		enc.SetDelimiter(e.opts.Delimiter)
	}
	if e.opts.Enclosure != "" {
		enc.SetEnclosure(e.opts.Enclosure)
	}
	if e.opts.Escape != "" {
		enc.SetEscapeChar(e.opts.Escape)
	}
	if e.opts.Charset != "" {
		enc.SetOutputCharset(e.opts.Charset)
	}
	if e.opts.SanitizeFormulas {
		enc.SetDataFormatter(SanitizeFormula)
	}

	return enc.Encode()
}

func (e *CSVEncoder) ContentType() string {
	if e.opts.ContentType != "" {
		return e.opts.ContentType
	}
	return csvenc.DefaultContentType
}

func (e *CSVEncoder) FileExtension() string { return ".csv" }

// SanitizeFormula is a csvenc data formatter that neutralizes spreadsheet
// formula injection by prefixing dangerous leading characters.
func SanitizeFormula(v any) string {
	s := csvenc.Stringify(v)
	if len(s) > 0 {
		switch s[0] {
		case '=', '+', '-', '@':
			return "'" + s
		}
	}
	return s
}
