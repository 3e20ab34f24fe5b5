package csvenc

import "errors"

var (
	// ErrInvalidInput indicates the dataset (or one of its rows) is not a
	// sequence of records. Wrapped errors name the offending row index.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidArgument indicates a bad configuration value, such as a
	// multi-character delimiter or an unresolvable output charset.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrEncodingFailure indicates the output buffer could not be
	// finalized. It is a programming-error-level failure and should never
	// occur during normal operation.
	ErrEncodingFailure = errors.New("encoding failure")
)
