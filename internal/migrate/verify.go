// ABOUTME: Post-migration verification of the rewritten CSV.
// ABOUTME: Advisory only; problems become warnings, never errors.
package migrate

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/harperreed/logmigrate/internal/models"
)

// NotAvailable is reported for lookups that found no row or no value.
const NotAvailable = "N/A"

// Verification summarizes a re-read of the migrated file.
type Verification struct {
	Columns          int      `json:"columns" yaml:"columns"`
	HeaderMatches    bool     `json:"header_matches" yaml:"header_matches"`
	DataRows         int      `json:"data_rows" yaml:"data_rows"`
	FirstRowStatus   string   `json:"first_row_status" yaml:"first_row_status"`
	FirstRowInstance string   `json:"first_row_instance" yaml:"first_row_instance"`
	Warnings         []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// OK reports whether verification found nothing to warn about.
func (v *Verification) OK() bool {
	return len(v.Warnings) == 0
}

func (v *Verification) warn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}

// Verify re-opens path as CSV with a header, checks the header against schema,
// counts data rows, and looks up status and instance_name on the first row.
func Verify(path string, schema models.Schema) *Verification {
	v := &Verification{
		FirstRowStatus:   NotAvailable,
		FirstRowInstance: NotAvailable,
	}

	f, err := os.Open(path)
	if err != nil {
		v.warn("open %s: %v", path, err)
		return v
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		v.warn("read header: %v", err)
		return v
	}
	got := models.Schema(header)
	v.Columns = got.Len()
	v.HeaderMatches = got.Equal(schema)
	if v.Columns != schema.Len() {
		v.warn("header has %d columns, want %d", v.Columns, schema.Len())
	} else if !v.HeaderMatches {
		v.warn("header does not match the expected column names")
	}

	for {
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			v.warn("read row %d: %v", v.DataRows+1, err)
			break
		}
		if v.DataRows == 0 {
			first := models.Record(fields)
			v.FirstRowStatus = first.GetOr(got, models.FieldStatus, NotAvailable)
			v.FirstRowInstance = first.GetOr(got, models.FieldInstanceName, NotAvailable)
		}
		v.DataRows++
	}
	return v
}
