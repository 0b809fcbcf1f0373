package pressure

import (
	"fmt"
	"os"

	"github.com/mholt/archiver/v3"
)

// CompressFile compresses a written output file using the gzip format and returns the new path.
// The source file will be removed if the compression finishes without errors.
func CompressFile(path string) (string, error) {
	dst := path + ".gz"
	if _, err := os.Stat(dst); err == nil {
		return "", fmt.Errorf("%w: %s", ErrOutputExists, dst)
	}
	if err := archiver.CompressFile(path, dst); err != nil {
		return "", fmt.Errorf("compress %s: %w", path, err)
	}
	if err := os.Remove(path); err != nil {
		return dst, err
	}
	return dst, nil
}
