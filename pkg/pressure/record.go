package pressure

import (
	"fmt"
	"path/filepath"
	"time"
)

// TimeFillValue marks "no data" in the uint64 time variable (the NetCDF default uint64 fill).
const TimeFillValue uint64 = 18446744073709551614

// Record is the complete, validated output of one conversion.
// It is created once by NewRecord and must not be modified afterwards.
type Record struct {
	ID         string     // Unique dataset identifier.
	Created    time.Time  // Generation time (UTC).
	Source     string     // Path of the source file.
	SourceZone string     // Name of the device time zone.
	History    string     // Provenance: source file and generation time.
	Deployment Deployment // Validated deployment metadata.

	Millis    []int64   // Absolute UTC epoch milliseconds per sample.
	Pressure  []float32 // Raw pressure per sample.
	FillValue float32   // Fill value of the float32 variables.
}

// Len returns the number of samples.
func (r *Record) Len() int {
	return len(r.Millis)
}

// TimeUnits returns the human readable units of the time axis.
func (r *Record) TimeUnits() string {
	return fmt.Sprintf("milliseconds since %s UTC (converted from %s)", Epoch.Format("2006-01-02 15:04:05"), r.SourceZone)
}

// NewRecord bundles a loaded series and its deployment into an output record.
func NewRecord(s *Series, d Deployment, id, program string, created time.Time) (*Record, error) {
	if len(s.Millis) != len(s.Pressure) {
		return nil, fmt.Errorf("record %s: %d time values but %d pressure values", s.Source, len(s.Millis), len(s.Pressure))
	}
	created = created.UTC()
	zone := ""
	if s.Location != nil {
		zone = s.Location.String()
	}
	return &Record{
		ID:         id,
		Created:    created,
		Source:     s.Source,
		SourceZone: zone,
		History:    fmt.Sprintf("%s: created by %s from %s", created.Format(time.RFC3339), program, filepath.Base(s.Source)),
		Deployment: d,
		Millis:     s.Millis,
		Pressure:   s.Pressure,
		FillValue:  FillValue,
	}, nil
}

// Sink writes complete records to a storage format.
type Sink interface {
	// Write stores rec at path. It must fail if path already exists.
	Write(path string, rec *Record) error
	// Ext returns the file extension used by the format, e.g. ".nc".
	Ext() string
}
