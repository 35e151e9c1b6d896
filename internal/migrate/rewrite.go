// ABOUTME: Reading old rows and writing the migrated CSV.
// ABOUTME: The new file is staged in a temp file and renamed over the target.
package migrate

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/harperreed/logmigrate/internal/models"
)

// Row is one data row: the parsed fields and the exact text they were read
// from, without the line terminator.
type Row struct {
	Fields models.Record
	Raw    string
}

// ReadRows parses path as CSV and returns every data row after the header.
// Rows may have any number of fields and bare quotes are kept as text.
// Empty rows are dropped.
func ReadRows(path string) ([]Row, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	if _, err := r.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}

	var rows []Row
	for {
		start := r.InputOffset()
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		rec := models.Record(fields)
		if rec.IsEmpty() {
			continue
		}
		rows = append(rows, Row{Fields: rec, Raw: rawRecord(data[start:r.InputOffset()])})
	}
	return rows, nil
}

// rawRecord drops the blank lines the reader skipped before a record and
// the terminator after it.
func rawRecord(b []byte) string {
	for {
		switch {
		case bytes.HasPrefix(b, []byte("\n")):
			b = b[1:]
		case bytes.HasPrefix(b, []byte("\r\n")):
			b = b[2:]
		default:
			b = bytes.TrimSuffix(b, []byte("\n"))
			b = bytes.TrimSuffix(b, []byte("\r"))
			return string(b)
		}
	}
}

// Rewrite replaces target with the schema header followed by rows, in order.
// Rows with Raw text are copied byte for byte; others are CSV-encoded.
// The content is written to a temp file in the same directory, synced, and
// renamed over target, so target is either the old file or the complete new
// one. perm is applied to the new file. Failures wrap ErrRewrite.
func Rewrite(target string, schema models.Schema, rows []Row, perm fs.FileMode) error {
	dir := filepath.Dir(target)
	base := filepath.Base(target)
	tempFile, err := os.CreateTemp(dir, base+".tmp.*")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %v", ErrRewrite, err)
	}
	tempPath := tempFile.Name()
	defer func() {
		_ = tempFile.Close()
		_ = os.Remove(tempPath)
	}()

	if err := writeRows(tempFile, schema, rows); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrRewrite, tempPath, err)
	}
	if err := tempFile.Sync(); err != nil {
		return fmt.Errorf("%w: sync %s: %v", ErrRewrite, tempPath, err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", ErrRewrite, tempPath, err)
	}
	if err := os.Chmod(tempPath, perm); err != nil {
		return fmt.Errorf("%w: chmod %s: %v", ErrRewrite, tempPath, err)
	}
	if err := os.Rename(tempPath, target); err != nil {
		return fmt.Errorf("%w: replace %s: %v", ErrRewrite, target, err)
	}
	return nil
}

func writeRows(w io.Writer, schema models.Schema, rows []Row) error {
	bw := bufio.NewWriter(w)
	cw := csv.NewWriter(bw)
	if err := cw.Write(schema); err != nil {
		return err
	}
	for _, row := range rows {
		if row.Raw == "" {
			if err := cw.Write(row.Fields); err != nil {
				return err
			}
			continue
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			return err
		}
		if _, err := bw.WriteString(row.Raw + "\n"); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return bw.Flush()
}
