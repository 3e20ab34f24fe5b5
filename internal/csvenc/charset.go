package csvenc

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

// utf8Name is the charset for which no recoding is performed. Input data is
// always assumed to be UTF-8.
const utf8Name = "utf-8"

func needsRecoding(charset string) bool {
	return !strings.EqualFold(charset, utf8Name)
}

// newTransliterator resolves the charset name against the IANA registry and
// returns a converter from UTF-8 to the target encoding. Conversion is lossy
// by design: runes the target cannot represent are substituted with the
// target encoding's replacement byte (ReplaceUnsupported).
func newTransliterator(charset string) (func(string) (string, error), error) {
	enc, err := ianaindex.IANA.Encoding(charset)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("%w: unknown output charset %q", ErrInvalidArgument, charset)
	}

	t := encoding.ReplaceUnsupported(enc.NewEncoder())
	return func(s string) (string, error) {
		out, _, err := transform.String(t, s)
		if err != nil {
			// With ReplaceUnsupported in place this only triggers on
			// ill-formed UTF-8 input, which violates the input contract.
			return "", fmt.Errorf("%w: transliterating to %s: %v", ErrEncodingFailure, charset, err)
		}
		return out, nil
	}, nil
}
