package insight

import "errors"

var (
	// ErrInvalidRange indicates both a single date and a range were given,
	// or the range is inverted.
	ErrInvalidRange = errors.New("insight: invalid date range")
	// ErrInvalidGranularity indicates an unrecognized bucket granularity.
	ErrInvalidGranularity = errors.New("insight: unknown granularity")
	// ErrMissingParameter indicates a required identifier or range is absent.
	ErrMissingParameter = errors.New("insight: required parameter missing")
	// ErrInvalidMetric indicates an unrecognized ranking metric.
	ErrInvalidMetric = errors.New("insight: unknown ranking metric")
)
