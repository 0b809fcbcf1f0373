// Package leveltroll reads the ASCII export of level troll pressure loggers.
//
// A file starts with a free-form header of any length. One header line carries the
// device time zone ("Time Zone: Eastern Standard Time"), and the header ends with the
// column line "Date and Time,Seconds,Pressure...". Data rows follow:
//
//	01/01/2020 12:00:00 AM ,0,14.7
//
// Only the timestamp of the first row is parsed, all samples are placed on the time
// axis by their elapsed seconds.
package leveltroll

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/de-bkg/trollnc/pkg/pressure"
)

const (
	// dataMarker starts the lower-cased column line that ends the header.
	dataMarker = "date and time,seconds"

	// zoneMarker starts the lower-cased header line with the device time zone.
	zoneMarker = "time zone"

	// TimestampLayout is the layout of the local timestamp in the first column.
	TimestampLayout = "1/2/2006 3:04:05 PM"

	// Column positions in a data row.
	colSeconds  = 1
	colPressure = 2

	maxLineSize = 1024 * 1024
)

// Field is a "key: value" line of the header.
type Field struct {
	Key, Value string
}

// A Header provides the level troll header information.
type Header struct {
	TimeZoneLabel string         // The time zone as written in the header.
	Location      *time.Location // The resolved time zone.
	Fields        []Field        // Other "key: value" lines in file order.
	Columns       []string       // Column names from the data marker line.
	Lines         int            // Number of lines up to and including the marker line.
	Warnings      []error        // Header lines that were ignored.
}

// Sample is one data row.
type Sample struct {
	Elapsed  float32 // Elapsed seconds since logging started.
	Pressure float32
}

// Decoder reads and decodes header and data rows from a level troll input stream.
type Decoder struct {
	// Header and Start are valid after NewDecoder.
	Header Header
	Start  time.Time // Time of the first data row in the device time zone.

	sc         *bufio.Scanner
	pending    string // the first data row, kept for NextRow
	hasPending bool
	row        Sample
	rowNum     int // number of data rows decoded
	lineNum    int
	err        error
}

// NewDecoder creates a new decoder for level troll data. The header and the timestamp of
// the first data row are read implicitly. If zones is nil, the default zone table is used.
//
// It is the caller's responsibility to call Close on the underlying reader when done!
func NewDecoder(r io.Reader, zones *ZoneTable) (*Decoder, error) {
	if zones == nil {
		zones = defaultZones
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	dec := &Decoder{sc: sc}

	if err := dec.readHeader(zones); err != nil {
		return nil, err
	}
	if err := dec.readStart(); err != nil {
		return nil, err
	}
	return dec, nil
}

// readHeader scans up to the data marker. Only the first time zone line counts.
func (dec *Decoder) readHeader(zones *ZoneTable) error {
	hdr := &dec.Header
	found := false
	zoneLine := 0
	for dec.readLine() {
		line := dec.line()
		if dec.lineNum == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		lower := strings.ToLower(line)

		if strings.HasPrefix(lower, dataMarker) {
			for _, col := range strings.Split(line, ",") {
				hdr.Columns = append(hdr.Columns, strings.TrimSpace(col))
			}
			found = true
			break
		}

		if strings.HasPrefix(lower, zoneMarker) {
			_, val, ok := strings.Cut(line, ":")
			val = strings.TrimSpace(val)
			switch {
			case !ok || val == "":
				hdr.Warnings = append(hdr.Warnings, fmt.Errorf("line %d: time zone without value: %q", dec.lineNum, line))
			case hdr.TimeZoneLabel != "":
				hdr.Warnings = append(hdr.Warnings, fmt.Errorf("line %d: additional time zone %q ignored", dec.lineNum, val))
			default:
				hdr.TimeZoneLabel = val
				zoneLine = dec.lineNum
			}
			continue
		}

		if key, val, ok := strings.Cut(line, ":"); ok && strings.TrimSpace(key) != "" {
			hdr.Fields = append(hdr.Fields, Field{Key: strings.TrimSpace(key), Value: strings.TrimSpace(val)})
		}
	}
	hdr.Lines = dec.lineNum

	if !found {
		if err := dec.sc.Err(); err != nil {
			return fmt.Errorf("leveltroll: read header: %w", err)
		}
		return &pressure.HeaderError{Err: pressure.ErrHeaderMarkerNotFound, Lines: hdr.Lines}
	}
	if hdr.TimeZoneLabel == "" {
		return &pressure.HeaderError{Err: pressure.ErrTimezoneMissing, Lines: hdr.Lines}
	}

	loc, err := zones.Resolve(hdr.TimeZoneLabel)
	if err != nil {
		return fmt.Errorf("leveltroll: header line %d: %w", zoneLine, err)
	}
	hdr.Location = loc
	return nil
}

// readStart reads the first data row and parses its timestamp.
// The row stays pending, so it is decoded again by NextRow.
func (dec *Decoder) readStart() error {
	for dec.readLine() {
		if line := dec.line(); strings.TrimSpace(line) != "" {
			dec.pending, dec.hasPending = line, true
			break
		}
	}
	if !dec.hasPending {
		if err := dec.sc.Err(); err != nil {
			return fmt.Errorf("leveltroll: read first row: %w", err)
		}
		return &pressure.HeaderError{Err: pressure.ErrNoData, Lines: dec.lineNum}
	}

	start, err := ParseTimestamp(dec.pending, dec.Header.Location)
	if err != nil {
		return fmt.Errorf("leveltroll: line %d: %w", dec.lineNum, err)
	}
	dec.Start = start
	return nil
}

// ParseTimestamp parses the local timestamp in the first column of row in loc.
// Surrounding whitespace of the column is ignored, AM/PM may be in any case.
func ParseTimestamp(row string, loc *time.Location) (time.Time, error) {
	field, _, _ := strings.Cut(row, ",")
	t, err := time.ParseInLocation(TimestampLayout, strings.ToUpper(strings.TrimSpace(field)), loc)
	if err != nil {
		return time.Time{}, &pressure.TimestampError{Value: field, Layout: TimestampLayout, Err: err}
	}
	return t, nil
}

// Err returns the first error that was encountered by the decoder.
func (dec *Decoder) Err() error {
	return dec.err
}

// setErr records the first error encountered.
func (dec *Decoder) setErr(err error) {
	if dec.err == nil {
		dec.err = err
	}
}

// readLine reads the next line into buffer. It returns false if an error
// occurs or EOF was reached.
func (dec *Decoder) readLine() bool {
	if ok := dec.sc.Scan(); !ok {
		return ok
	}
	dec.lineNum++
	return true
}

// line returns the current line.
func (dec *Decoder) line() string {
	return dec.sc.Text()
}

// NextRow decodes the next data row. Blank lines are skipped.
// It returns false when the scan stops, either by reaching the end of the input or an error.
// A malformed row stops the scan with a *pressure.RowError.
func (dec *Decoder) NextRow() bool {
	if dec.err != nil {
		return false
	}

	for {
		var line string
		if dec.hasPending {
			line, dec.hasPending = dec.pending, false
		} else {
			if !dec.readLine() {
				if err := dec.sc.Err(); err != nil {
					dec.setErr(fmt.Errorf("leveltroll: line %d: %w", dec.lineNum+1, err))
				}
				return false // EOF
			}
			line = dec.line()
		}

		if strings.TrimSpace(line) == "" {
			continue
		}

		smp, err := parseRow(line)
		if err != nil {
			dec.setErr(&pressure.RowError{Row: dec.rowNum, Text: line, Err: err})
			return false
		}
		dec.row = smp
		dec.rowNum++
		return true
	}
}

// Row returns the most recent row decoded by a call to NextRow.
func (dec *Decoder) Row() Sample {
	return dec.row
}

// Rows returns the number of data rows decoded so far.
func (dec *Decoder) Rows() int {
	return dec.rowNum
}

// Series decodes all remaining rows into a series with UTC millisecond timestamps.
func (dec *Decoder) Series() (*pressure.Series, error) {
	elapsed := make([]float32, 0, 1024)
	pres := make([]float32, 0, 1024)
	for dec.NextRow() {
		elapsed = append(elapsed, dec.row.Elapsed)
		pres = append(pres, dec.row.Pressure)
	}
	if err := dec.Err(); err != nil {
		return nil, err
	}
	return pressure.NewSeries("", dec.Start, elapsed, pres)
}

func parseRow(line string) (Sample, error) {
	fields := strings.Split(line, ",")
	if len(fields) <= colPressure {
		return Sample{}, fmt.Errorf("want at least %d columns, got %d", colPressure+1, len(fields))
	}

	sec, err := parseFloat32(fields[colSeconds])
	if err != nil {
		return Sample{}, fmt.Errorf("seconds: %w", err)
	}
	pr, err := parseFloat32(fields[colPressure])
	if err != nil {
		return Sample{}, fmt.Errorf("pressure: %w", err)
	}
	return Sample{Elapsed: sec, Pressure: pr}, nil
}

// parseFloat32 parses a finite number. NaN and infinities are rejected.
func parseFloat32(s string) (float32, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 32)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%q is not a finite number", strings.TrimSpace(s))
	}
	return float32(f), nil
}
