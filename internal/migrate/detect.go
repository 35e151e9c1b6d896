// ABOUTME: Format detection for voting_logs.csv.
// ABOUTME: Compares the first line of the file against the old header, exactly.
package migrate

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/harperreed/logmigrate/internal/models"
)

// Format is the outcome of inspecting a target file.
type Format string

const (
	FormatNotFound          Format = "not_found"
	FormatAlreadyNewOrEmpty Format = "already_new_or_empty"
	FormatOld               Format = "old"
)

// Detection holds the detected format and the header line that decided it.
type Detection struct {
	Format Format `json:"format" yaml:"format"`
	Header string `json:"header,omitempty" yaml:"header,omitempty"`
}

// Detect reads the first line of path and compares it with old.Header().
// Only an exact match reports FormatOld; anything else, including a header
// that is merely close, reports FormatAlreadyNewOrEmpty.
func Detect(path string, old models.Schema) (Detection, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Detection{Format: FormatNotFound}, nil
		}
		return Detection{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	line, err := firstLine(f)
	if err != nil {
		return Detection{}, fmt.Errorf("read header of %s: %w", path, err)
	}

	d := Detection{Format: FormatAlreadyNewOrEmpty, Header: line}
	if line == old.Header() {
		d.Format = FormatOld
	}
	return d, nil
}

// firstLine returns the first line with surrounding whitespace and the line
// terminator removed.
func firstLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
