// Package pqwriter stores pressure records as Parquet files, one row per sample.
// Deployment metadata and provenance go into the file footer as key/value metadata.
package pqwriter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/de-bkg/trollnc/pkg/pressure"
)

// Footer metadata keys.
const (
	KeyDeployment = "trollnc.deployment"
	KeyHistory    = "trollnc.history"
	KeySource     = "trollnc.source"
	KeySourceZone = "trollnc.source_zone"
	KeyID         = "trollnc.id"
	KeyTimeUnits  = "trollnc.time_units"
	KeyFillValue  = "trollnc.fill_value"
)

// Row is a single sample.
type Row struct {
	Time     int64   `parquet:"name=time, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	Pressure float32 `parquet:"name=pressure, type=FLOAT"`
}

type memFile struct {
	buffer *bytes.Buffer
}

func newMemFile() *memFile {
	return &memFile{buffer: &bytes.Buffer{}}
}

func (m *memFile) Create(string) (source.ParquetFile, error) { return m, nil }
func (m *memFile) Open(string) (source.ParquetFile, error)   { return m, nil }
func (m *memFile) Seek(int64, int) (int64, error)            { return int64(m.buffer.Len()), nil }
func (m *memFile) Read([]byte) (int, error)                  { return 0, fmt.Errorf("read not supported") }
func (m *memFile) Write(b []byte) (int, error)               { return m.buffer.Write(b) }
func (m *memFile) Close() error                              { return nil }
func (m *memFile) Bytes() []byte                             { return m.buffer.Bytes() }

// Writer writes snappy compressed Parquet files. It implements pressure.Sink.
type Writer struct{}

// Ext returns ".parquet".
func (Writer) Ext() string { return ".parquet" }

// Write encodes rec in memory and stores it at path. It fails if path exists.
func (w Writer) Write(path string, rec *pressure.Record) error {
	data, err := Encode(rec)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", pressure.ErrOutputExists, path)
		}
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

// Encode returns rec as a complete Parquet file.
func Encode(rec *pressure.Record) ([]byte, error) {
	dep, err := json.Marshal(rec.Deployment)
	if err != nil {
		return nil, fmt.Errorf("encode deployment: %w", err)
	}

	mem := newMemFile()
	pw, err := writer.NewParquetWriter(mem, new(Row), 1)
	if err != nil {
		return nil, fmt.Errorf("new parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for i, ms := range rec.Millis {
		if err := pw.Write(Row{Time: ms, Pressure: rec.Pressure[i]}); err != nil {
			pw.WriteStop()
			return nil, fmt.Errorf("write sample %d: %w", i, err)
		}
	}

	meta := []struct{ key, val string }{
		{KeyDeployment, string(dep)},
		{KeyHistory, rec.History},
		{KeySource, rec.Source},
		{KeySourceZone, rec.SourceZone},
		{KeyID, rec.ID},
		{KeyTimeUnits, rec.TimeUnits()},
		{KeyFillValue, strconv.FormatFloat(float64(rec.FillValue), 'g', -1, 32)},
	}
	for _, kv := range meta {
		val := kv.val
		pw.Footer.KeyValueMetadata = append(pw.Footer.KeyValueMetadata, &parquet.KeyValue{Key: kv.key, Value: &val})
	}

	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("finalize parquet: %w", err)
	}
	return mem.Bytes(), nil
}
