package pressure

import (
	"errors"
	"fmt"
)

// errors
var (
	// ErrHeaderMarkerNotFound is returned when the input ends before the data marker line.
	ErrHeaderMarkerNotFound = errors.New("header: data marker not found")

	// ErrTimezoneMissing is returned when the header has no usable time zone line.
	ErrTimezoneMissing = errors.New("header: time zone missing")

	// ErrUnknownTimezone is returned when a time zone label matches no known prefix.
	ErrUnknownTimezone = errors.New("unknown time zone")

	// ErrTimestampFormat is returned when the first data row's timestamp can not be parsed.
	ErrTimestampFormat = errors.New("invalid timestamp format")

	// ErrNoData is returned when the input ends right after the header.
	ErrNoData = errors.New("no data rows")

	// ErrRowParse is returned for a data row with missing or malformed numeric fields.
	ErrRowParse = errors.New("invalid data row")

	// ErrRange is returned when a metadata value is outside its valid range.
	ErrRange = errors.New("value out of range")

	// ErrOutputExists is returned when the output path is already taken.
	ErrOutputExists = errors.New("output already exists")

	// ErrCompress is returned when a written output could not be compressed.
	ErrCompress = errors.New("compress output")
)

// HeaderError reports a header failure together with the number of lines scanned.
type HeaderError struct {
	Err   error
	Lines int
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("%v (scanned %d lines)", e.Err, e.Lines)
}

func (e *HeaderError) Unwrap() error { return e.Err }

// TimestampError reports a timestamp that does not match the expected layout.
type TimestampError struct {
	Value  string // The offending timestamp string.
	Layout string // The expected layout.
	Err    error  // The underlying parse error.
}

func (e *TimestampError) Error() string {
	return fmt.Sprintf("%v: %q does not match %q: %v", ErrTimestampFormat, e.Value, e.Layout, e.Err)
}

func (e *TimestampError) Unwrap() []error { return []error{ErrTimestampFormat, e.Err} }

// RowError reports a malformed data row. Row is the 0-based index of the data row.
type RowError struct {
	Row  int
	Text string
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%v %d: %q: %v", ErrRowParse, e.Row, e.Text, e.Err)
}

func (e *RowError) Unwrap() []error { return []error{ErrRowParse, e.Err} }

// RangeError reports a metadata value outside its inclusive range.
type RangeError struct {
	Field string
	Value float64
	Range Range
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s: %v not in %s", e.Field, e.Value, e.Range)
}

func (e *RangeError) Unwrap() error { return ErrRange }

// reasons maps the error taxonomy to short labels, in matching order.
var reasons = []struct {
	err   error
	label string
}{
	{ErrHeaderMarkerNotFound, "header_marker_not_found"},
	{ErrTimezoneMissing, "timezone_missing"},
	{ErrUnknownTimezone, "unknown_timezone"},
	{ErrTimestampFormat, "timestamp_format"},
	{ErrNoData, "no_data"},
	{ErrRowParse, "row_parse"},
	{ErrRange, "range_validation"},
	{ErrOutputExists, "output_exists"},
	{ErrCompress, "compress"},
}

// Reason returns a short label for err, usable as a metric label.
// Errors outside the taxonomy are labelled "other".
func Reason(err error) string {
	if err == nil {
		return ""
	}
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.label
		}
	}
	return "other"
}
