package leveltroll

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/mholt/archiver/v3"

	"github.com/de-bkg/trollnc/pkg/pressure"
)

// Reader loads level troll files. It implements pressure.Reader.
type Reader struct {
	Zones *ZoneTable // Time zone table, the default table if nil.
}

var _ pressure.Reader = Reader{}

// Load reads the file at path. Compressed files (.gz, .bz2, .xz, ...) are decompressed first.
// The file is closed before Load returns.
func (r Reader) Load(path string) (*pressure.Series, error) {
	in, err := openInput(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	dec, err := NewDecoder(in, r.Zones)
	if err != nil {
		return nil, err
	}
	s, err := dec.Series()
	if err != nil {
		return nil, err
	}
	s.Source = path
	s.Warnings = dec.Header.Warnings
	return s, nil
}

// IsCompressed reports whether the filename has the extension of a supported compression format.
func IsCompressed(filename string) bool {
	iface, err := archiver.ByExtension(filename)
	if err != nil {
		return false
	}
	_, ok := iface.(archiver.Decompressor)
	return ok
}

// openInput opens path. Compressed inputs are decompressed into memory.
func openInput(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	iface, err := archiver.ByExtension(path)
	if err != nil { // plain file
		return f, nil
	}
	defer f.Close()

	dc, ok := iface.(archiver.Decompressor)
	if !ok {
		return nil, fmt.Errorf("%s: archive formats are not supported, extract the file first", path)
	}
	var buf bytes.Buffer
	if err := dc.Decompress(f, &buf); err != nil {
		return nil, fmt.Errorf("decompress %s: %w", path, err)
	}
	return io.NopCloser(&buf), nil
}
