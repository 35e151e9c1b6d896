// ABOUTME: Log record model for voting_logs.csv rows.
// ABOUTME: Provides schema-aware field lookup tolerant of short rows.
package models

// Record is one data row of the log file, kept exactly as parsed.
type Record []string

// IsEmpty reports whether the row parsed to no fields.
func (r Record) IsEmpty() bool {
	return len(r) == 0
}

// Get returns the value of the named column under schema.
// ok is false when the schema has no such column or the row is too short.
func (r Record) Get(schema Schema, name string) (string, bool) {
	i := schema.Index(name)
	if i < 0 || i >= len(r) {
		return "", false
	}
	return r[i], true
}

// GetOr is Get with a fallback for missing values.
func (r Record) GetOr(schema Schema, name, fallback string) string {
	if v, ok := r.Get(schema, name); ok {
		return v
	}
	return fallback
}
