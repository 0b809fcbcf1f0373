// Package pressure provides the data model and conversion pipeline for
// pressure logger time series: loading, UTC normalisation, metadata validation
// and handing complete records to an output sink.
package pressure

import (
	"fmt"
	"time"
)

// Epoch is the reference instant for all stored timestamps.
var Epoch = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

// Series holds the samples of one logger file.
// ElapsedSeconds, Pressure and Millis have the same length and must not be modified once loaded.
type Series struct {
	Source   string         // Path of the file the series was loaded from.
	Location *time.Location // The device time zone.
	Start    time.Time      // The local time of the first sample.
	Offset   int64          // Seconds between Start and the Epoch.

	ElapsedSeconds []float32 // Elapsed seconds as logged.
	Pressure       []float32 // Pressure as logged, in device units.
	Millis         []int64   // Absolute UTC milliseconds since the Epoch.

	Warnings []error // Non-fatal problems found while reading.
}

// Len returns the number of samples.
func (s *Series) Len() int {
	return len(s.Pressure)
}

// NewSeries builds a series from the raw columns and the start time of the first sample.
// The UTC millisecond axis is projected once from start.
func NewSeries(source string, start time.Time, elapsed, pres []float32) (*Series, error) {
	if len(elapsed) != len(pres) {
		return nil, fmt.Errorf("series %s: %d elapsed values but %d pressure values", source, len(elapsed), len(pres))
	}
	offset := EpochOffset(start)
	return &Series{
		Source:         source,
		Location:       start.Location(),
		Start:          start,
		Offset:         offset,
		ElapsedSeconds: elapsed,
		Pressure:       pres,
		Millis:         ProjectUTC(elapsed, offset),
	}, nil
}

// Reader loads a series from a file of a specific source layout.
type Reader interface {
	Load(path string) (*Series, error)
}

// ReaderFunc adapts a function to the Reader interface.
type ReaderFunc func(path string) (*Series, error)

// Load calls f(path).
func (f ReaderFunc) Load(path string) (*Series, error) { return f(path) }
