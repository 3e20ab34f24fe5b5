package csvenc

import (
	"fmt"
	"iter"
)

// Field is a single named value within a row.
type Field struct {
	Name  string
	Value any
}

// Row is an ordered list of fields. Order matters: the heading record is
// derived from the first row's field names in this order.
type Row []Field

// normalize drains the supported dataset shapes into a flat []any.
// Row-shape validation of []any elements is deferred to the encode pass so
// the error can name the row index.
func normalize(data any) ([]any, error) {
	switch d := data.(type) {
	case []Row:
		rows := make([]any, len(d))
		for i, r := range d {
			rows[i] = r
		}
		return rows, nil
	case [][]Field:
		rows := make([]any, len(d))
		for i, r := range d {
			rows[i] = Row(r)
		}
		return rows, nil
	case []any:
		return d, nil
	case iter.Seq[Row]:
		var rows []any
		for r := range d {
			rows = append(rows, r)
		}
		return rows, nil
	case iter.Seq[any]:
		var rows []any
		for r := range d {
			rows = append(rows, r)
		}
		return rows, nil
	default:
		return nil, fmt.Errorf("%w: dataset must be a sequence of rows, got %T", ErrInvalidInput, data)
	}
}

// asRow coerces a dataset element into a Row.
func asRow(v any, index int) (Row, error) {
	switch r := v.(type) {
	case Row:
		return r, nil
	case []Field:
		return Row(r), nil
	default:
		return nil, fmt.Errorf("%w: row %d is %T, not a record", ErrInvalidInput, index, v)
	}
}
