// Package csvenc turns an in-memory dataset of named fields into a CSV byte
// buffer. It is the reusable core behind the HTTP export endpoints: callers
// construct an Encoder, chain configuration setters, and receive the encoded
// bytes plus the filename/content-type hints the response layer needs.
package csvenc

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Defaults applied by New.
const (
	DefaultFilename    = "output.csv"
	DefaultDelimiter   = ","
	DefaultEnclosure   = `"`
	DefaultEscape      = `\`
	DefaultCharset     = utf8Name
	DefaultContentType = "text/csv"
)

// Encoder encodes a fully materialized dataset into CSV. Setters return the
// encoder for chaining and record the first validation error; Encode and Err
// surface it. An Encoder is not safe for concurrent use, but encoding does
// not mutate it, so it may be reused for a second pass.
type Encoder struct {
	rows []any

	filename       string
	includeHeading bool
	delimiter      string
	enclosure      string
	escape         string
	charset        string
	contentType    string
	headingFmt     HeadingFormatter
	headingFmtSet  bool
	dataFmt        DataFormatter

	err error
}

// New builds an Encoder over the given dataset. Accepted shapes: []Row,
// [][]Field, []any (elements checked per row during Encode), iter.Seq[Row]
// and iter.Seq[any] (drained eagerly, since heading derivation needs the
// first row). Anything else is rejected with ErrInvalidInput.
func New(data any) (*Encoder, error) {
	rows, err := normalize(data)
	if err != nil {
		return nil, err
	}
	return &Encoder{
		rows:           rows,
		filename:       DefaultFilename,
		includeHeading: true,
		delimiter:      DefaultDelimiter,
		enclosure:      DefaultEnclosure,
		escape:         DefaultEscape,
		charset:        DefaultCharset,
		contentType:    DefaultContentType,
	}, nil
}

// SetDelimiter sets the field separator. Exactly one character, no CR/LF.
func (e *Encoder) SetDelimiter(d string) *Encoder {
	if err := validateControlChar("delimiter", d); err != nil {
		return e.fail(err)
	}
	e.delimiter = d
	return e
}

// SetEnclosure sets the quoting character. Exactly one character, no CR/LF.
func (e *Encoder) SetEnclosure(c string) *Encoder {
	if err := validateControlChar("enclosure", c); err != nil {
		return e.fail(err)
	}
	e.enclosure = c
	return e
}

// SetEscapeChar sets the character used to escape a literal enclosure inside
// an enclosed field. Exactly one character, no CR/LF.
func (e *Encoder) SetEscapeChar(c string) *Encoder {
	if err := validateControlChar("escape character", c); err != nil {
		return e.fail(err)
	}
	e.escape = c
	return e
}

// SetOutputCharset sets the target character encoding. Any string is
// accepted here; the name is resolved against the IANA registry when Encode
// runs, and an unknown charset fails there with ErrInvalidArgument.
func (e *Encoder) SetOutputCharset(charset string) *Encoder {
	e.charset = charset
	return e
}

// SetContentType sets the MIME type reported to the HTTP response layer.
func (e *Encoder) SetContentType(ct string) *Encoder {
	e.contentType = ct
	return e
}

// SetFilename sets the suggested download filename.
func (e *Encoder) SetFilename(name string) *Encoder {
	e.filename = name
	return e
}

// SetIncludeHeading controls whether the first record is a heading derived
// from the first row's field names.
func (e *Encoder) SetIncludeHeading(include bool) *Encoder {
	e.includeHeading = include
	return e
}

// SetHeadingFormatter sets the transform applied to each heading label.
// When never called, DefaultHeadingFormatter applies; passing nil disables
// formatting entirely.
func (e *Encoder) SetHeadingFormatter(f HeadingFormatter) *Encoder {
	e.headingFmt = f
	e.headingFmtSet = true
	return e
}

// SetDataFormatter sets the conversion applied to every field value. When
// nil, Stringify applies.
func (e *Encoder) SetDataFormatter(f DataFormatter) *Encoder {
	e.dataFmt = f
	return e
}

// Err returns the first configuration error recorded by a setter.
func (e *Encoder) Err() error { return e.err }

// Filename returns the suggested download filename.
func (e *Encoder) Filename() string { return e.filename }

// ContentType returns the configured MIME type.
func (e *Encoder) ContentType() string { return e.contentType }

// OutputCharset returns the configured output character encoding.
func (e *Encoder) OutputCharset() string { return e.charset }

// Encode renders the dataset as CSV. An empty dataset yields an empty byte
// slice. Values are assumed UTF-8; when the output charset differs, every
// label and value is transliterated (best effort, lossy) after formatting.
func (e *Encoder) Encode() ([]byte, error) {
	if e.err != nil {
		return nil, e.err
	}
	if len(e.rows) == 0 {
		return []byte{}, nil
	}

	var recode func(string) (string, error)
	if needsRecoding(e.charset) {
		var err error
		recode, err = newTransliterator(e.charset)
		if err != nil {
			return nil, err
		}
	}

	headingFmt := e.headingFmt
	if !e.headingFmtSet {
		headingFmt = DefaultHeadingFormatter
	}
	dataFmt := e.dataFmt
	if dataFmt == nil {
		dataFmt = Stringify
	}

	var buf bytes.Buffer
	for i, raw := range e.rows {
		row, err := asRow(raw, i)
		if err != nil {
			return nil, err
		}

		if i == 0 && e.includeHeading {
			labels := make([]string, len(row))
			for j, f := range row {
				label := f.Name
				if headingFmt != nil {
					label = headingFmt(label)
				}
				if recode != nil {
					if label, err = recode(label); err != nil {
						return nil, err
					}
				}
				labels[j] = label
			}
			e.writeRecord(&buf, labels)
		}

		values := make([]string, len(row))
		for j, f := range row {
			value := dataFmt(f.Value)
			if recode != nil {
				if value, err = recode(value); err != nil {
					return nil, err
				}
			}
			values[j] = value
		}
		e.writeRecord(&buf, values)
	}

	return buf.Bytes(), nil
}

// writeRecord joins fields with the delimiter and terminates the record with
// a line feed. A field containing the delimiter, the enclosure, CR or LF is
// wrapped in the enclosure, with inner enclosures escaped as escape+enclosure
// (plain doubling when the two are the same character), matching what a
// standard CSV reader expects.
func (e *Encoder) writeRecord(buf *bytes.Buffer, fields []string) {
	for j, f := range fields {
		if j > 0 {
			buf.WriteString(e.delimiter)
		}
		if strings.ContainsAny(f, e.delimiter+e.enclosure+"\r\n") {
			buf.WriteString(e.enclosure)
			buf.WriteString(strings.ReplaceAll(f, e.enclosure, e.escape+e.enclosure))
			buf.WriteString(e.enclosure)
		} else {
			buf.WriteString(f)
		}
	}
	buf.WriteByte('\n')
}

func (e *Encoder) fail(err error) *Encoder {
	if e.err == nil {
		e.err = err
	}
	return e
}

// validateControlChar enforces the single-character constraint by rune
// count, not byte length, so multi-byte characters are accepted.
func validateControlChar(name, s string) error {
	if utf8.RuneCountInString(s) != 1 {
		return fmt.Errorf("%w: %s must be exactly one character, got %q", ErrInvalidArgument, name, s)
	}
	if strings.ContainsAny(s, "\r\n") {
		return fmt.Errorf("%w: %s must not be a line break", ErrInvalidArgument, name)
	}
	return nil
}
