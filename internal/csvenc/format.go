package csvenc

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// HeadingFormatter transforms a column label before it is written to the
// heading record.
type HeadingFormatter func(label string) string

// DataFormatter converts a field value to its string form before encoding.
type DataFormatter func(value any) string

// DefaultHeadingFormatter replaces underscores with spaces and upper-cases
// the first character: "first_name" becomes "First name", "AGE" stays "AGE".
func DefaultHeadingFormatter(label string) string {
	label = strings.ReplaceAll(label, "_", " ")
	r, size := utf8.DecodeRuneInString(label)
	if r == utf8.RuneError && size <= 1 {
		return label
	}
	return string(unicode.ToUpper(r)) + label[size:]
}

// Stringify is the default value conversion used when no data formatter is
// configured. Nil becomes an empty field.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}
