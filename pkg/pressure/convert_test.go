package pressure

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memSink records written records and creates an empty file at the output path.
type memSink struct {
	records map[string]*Record
	err     error
}

func (s *memSink) Write(path string, rec *Record) error {
	if s.err != nil {
		return s.err
	}
	if s.records == nil {
		s.records = make(map[string]*Record)
	}
	s.records[path] = rec
	return os.WriteFile(path, nil, 0o644)
}

func (s *memSink) Ext() string { return ".mem" }

func fixedReader(elapsed, pres []float32) Reader {
	est, _ := time.LoadLocation("America/New_York")
	return ReaderFunc(func(path string) (*Series, error) {
		s, err := NewSeries(path, time.Date(2020, 1, 1, 0, 0, 0, 0, est), elapsed, pres)
		return s, err
	})
}

var fixedTime = time.Date(2024, time.April, 26, 15, 10, 0, 0, time.UTC)

func newTestConverter(r Reader, sink Sink) (*Converter, *test.Hook) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	return &Converter{
		Reader:  r,
		Sink:    sink,
		Program: "trollnc-test",
		Clock:   clockwork.NewFakeClockAt(fixedTime),
		Log:     log,
		NewID:   func() string { return "test-id" },
	}, hook
}

func TestConverter_Convert(t *testing.T) {
	assert := assert.New(t)
	sink := &memSink{}
	c, _ := newTestConverter(fixedReader([]float32{0, 30}, []float32{14.7, 14.8}), sink)
	out := filepath.Join(t.TempDir(), "out.mem")

	dep := validDeployment()
	dep.PressureUnits = "PSI"
	rec, err := c.Convert(Job{Input: "data/BB_WELL_07.csv", Output: out, Deployment: dep})
	require.NoError(t, err)
	assert.Same(rec, sink.records[out])

	assert.Equal("test-id", rec.ID)
	assert.Equal(fixedTime, rec.Created)
	assert.Equal("data/BB_WELL_07.csv", rec.Source)
	assert.Equal("America/New_York", rec.SourceZone)
	assert.Equal("2024-04-26T15:10:00Z: created by trollnc-test from BB_WELL_07.csv", rec.History)
	assert.Equal([]int64{1577854800000, 1577854830000}, rec.Millis)
	assert.Equal([]float32{14.7, 14.8}, rec.Pressure)
	assert.Equal(FillValue, rec.FillValue)
	assert.Equal("psi", rec.Deployment.PressureUnits, "normalized")
	assert.Equal("PSI", dep.PressureUnits, "caller copy untouched")
	assert.Equal("milliseconds since 1970-01-01 00:00:00 UTC (converted from America/New_York)", rec.TimeUnits())
}

func TestConverter_ConvertOutputExists(t *testing.T) {
	sink := &memSink{}
	loaded := false
	r := ReaderFunc(func(path string) (*Series, error) {
		loaded = true
		return nil, errors.New("must not be called")
	})
	c, _ := newTestConverter(r, sink)
	out := filepath.Join(t.TempDir(), "out.mem")
	require.NoError(t, os.WriteFile(out, []byte("keep"), 0o644))

	_, err := c.Convert(Job{Input: "in.csv", Output: out, Deployment: validDeployment()})
	assert.ErrorIs(t, err, ErrOutputExists)
	assert.False(t, loaded)
	assert.Empty(t, sink.records)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "keep", string(data))
}

func TestConverter_ConvertNothingWrittenOnFailure(t *testing.T) {
	dir := t.TempDir()
	readErr := &HeaderError{Err: ErrHeaderMarkerNotFound, Lines: 12}

	tests := []struct {
		name    string
		reader  Reader
		dep     Deployment
		wantErr error
	}{
		{
			name:    "reader fails",
			reader:  ReaderFunc(func(string) (*Series, error) { return nil, readErr }),
			dep:     validDeployment(),
			wantErr: ErrHeaderMarkerNotFound,
		},
		{
			name:    "invalid deployment",
			reader:  fixedReader([]float32{0}, []float32{1}),
			dep:     Deployment{Latitude: Float32(91), Longitude: Float32(0), Altitude: Float32(0), PressureUnits: "psi", AltitudeUnits: "meters", IsBarometric: true},
			wantErr: ErrRange,
		},
		{
			name:   "no position",
			reader: fixedReader([]float32{0}, []float32{1}),
			dep:    Deployment{PressureUnits: "psi", AltitudeUnits: "meters", Salinity: Float32(35000)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &memSink{}
			c, _ := newTestConverter(tt.reader, sink)
			out := filepath.Join(dir, tt.name+".mem")
			_, err := c.Convert(Job{Input: "in.csv", Output: out, Deployment: tt.dep})
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, sink.records)
			assert.NoFileExists(t, out)
		})
	}
}

func TestConverter_Run(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()
	good := fixedReader([]float32{0, 30, 60}, []float32{1, 2, 3})
	r := ReaderFunc(func(path string) (*Series, error) {
		if filepath.Base(path) == "bad.csv" {
			return nil, fmt.Errorf("leveltroll: %w", &RowError{Row: 4, Text: "x", Err: errors.New("boom")})
		}
		return good.Load(path)
	})

	reg := prometheus.NewRegistry()
	sink := &memSink{}
	c, hook := newTestConverter(r, sink)
	c.Metrics = NewMetrics(reg)

	jobs := []Job{
		{Input: "a.csv", Output: filepath.Join(dir, "a.mem"), Deployment: validDeployment()},
		{Input: "bad.csv", Output: filepath.Join(dir, "bad.mem"), Deployment: validDeployment()},
		{Input: "c.csv", Output: filepath.Join(dir, "c.mem"), Deployment: validDeployment()},
	}
	rep := c.Run(jobs)

	assert.Equal(1, rep.Failed)
	require.Len(t, rep.Results, 3)
	assert.NoError(rep.Results[0].Err)
	assert.ErrorIs(rep.Results[1].Err, ErrRowParse)
	assert.NoError(rep.Results[2].Err)
	assert.Equal(3, rep.Results[2].Samples)
	assert.Len(sink.records, 2)
	assert.ErrorIs(rep.Err(), ErrRowParse)
	assert.Contains(rep.Err().Error(), "bad.csv")

	assert.Equal(float64(2), testutil.ToFloat64(c.Metrics.FilesConverted))
	assert.Equal(float64(6), testutil.ToFloat64(c.Metrics.Samples))
	assert.Equal(float64(1), testutil.ToFloat64(c.Metrics.FilesFailed.WithLabelValues("row_parse")))
	assert.Equal(1, testutil.CollectAndCount(c.Metrics.Duration))

	var failed *logrus.Entry
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.ErrorLevel {
			failed = e
		}
	}
	require.NotNil(t, failed)
	assert.Equal("bad.csv", failed.Data["input"])
	assert.Equal("row_parse", failed.Data["reason"])
}

func TestConverter_ConvertLogsWarnings(t *testing.T) {
	r := ReaderFunc(func(path string) (*Series, error) {
		s, err := fixedReader([]float32{0}, []float32{1}).Load(path)
		if err == nil {
			s.Warnings = []error{errors.New("line 4: empty time zone")}
		}
		return s, err
	})
	c, hook := newTestConverter(r, &memSink{})
	_, err := c.Convert(Job{Input: "a.csv", Output: filepath.Join(t.TempDir(), "a.mem"), Deployment: validDeployment()})
	require.NoError(t, err)

	e := hook.LastEntry()
	require.NotNil(t, e)
	assert.Equal(t, logrus.WarnLevel, e.Level)
	assert.Equal(t, "line 4: empty time zone", e.Message)
	assert.Equal(t, "a.csv", e.Data["input"])
}

// noFileSink accepts records without creating the output file.
type noFileSink struct{}

func (noFileSink) Write(string, *Record) error { return nil }
func (noFileSink) Ext() string                 { return ".mem" }

func TestConverter_ConvertCompress(t *testing.T) {
	assert := assert.New(t)
	c, _ := newTestConverter(fixedReader([]float32{0}, []float32{1}), &memSink{})
	c.Compress = true
	out := filepath.Join(t.TempDir(), "a.mem")

	_, err := c.Convert(Job{Input: "a.csv", Output: out, Deployment: validDeployment()})
	require.NoError(t, err)
	assert.NoFileExists(out)
	assert.FileExists(out + ".gz")

	_, err = c.Convert(Job{Input: "a.csv", Output: out, Deployment: validDeployment()})
	assert.ErrorIs(err, ErrOutputExists, "existing .gz")
}

func TestConverter_RunCompressFailure(t *testing.T) {
	assert := assert.New(t)
	c, _ := newTestConverter(fixedReader([]float32{0, 30}, []float32{1, 2}), noFileSink{})
	c.Compress = true
	c.Metrics = NewMetrics(prometheus.NewRegistry())

	rep := c.Run([]Job{{Input: "a.csv", Output: filepath.Join(t.TempDir(), "a.mem"), Deployment: validDeployment()}})
	assert.Equal(1, rep.Failed)
	assert.ErrorIs(rep.Results[0].Err, ErrCompress)
	assert.Equal(0, rep.Results[0].Samples)

	assert.Equal(float64(0), testutil.ToFloat64(c.Metrics.FilesConverted))
	assert.Equal(float64(0), testutil.ToFloat64(c.Metrics.Samples))
	assert.Equal(float64(1), testutil.ToFloat64(c.Metrics.FilesFailed.WithLabelValues("compress")))
}

func TestConverter_RunAllGood(t *testing.T) {
	c, _ := newTestConverter(fixedReader([]float32{0}, []float32{1}), &memSink{})
	rep := c.Run([]Job{{Input: "a.csv", Output: filepath.Join(t.TempDir(), "a.mem"), Deployment: validDeployment()}})
	assert.Equal(t, 0, rep.Failed)
	assert.NoError(t, rep.Err())
}

func TestConverter_MissingPorts(t *testing.T) {
	c := &Converter{}
	_, err := c.Convert(Job{Input: "a", Output: "b"})
	assert.Error(t, err)
}
