// ABOUTME: Column layouts for voting_logs.csv.
// ABOUTME: Defines the OLD 6-column and NEW 17-column schemas and comparison helpers.
package models

import "strings"

// Schema is an ordered list of CSV column names.
type Schema []string

// Field names shared by the voting log layouts.
const (
	FieldTimestamp        = "timestamp"
	FieldInstanceID       = "instance_id"
	FieldIP               = "ip"
	FieldStatus           = "status"
	FieldMessage          = "message"
	FieldVoteCount        = "vote_count"
	FieldInstanceName     = "instance_name"
	FieldTimeOfClick      = "time_of_click"
	FieldVotingURL        = "voting_url"
	FieldCooldownMessage  = "cooldown_message"
	FieldFailureType      = "failure_type"
	FieldFailureReason    = "failure_reason"
	FieldInitialVoteCount = "initial_vote_count"
	FieldFinalVoteCount   = "final_vote_count"
	FieldVoteCountChange  = "vote_count_change"
	FieldProxyIP          = "proxy_ip"
	FieldSessionID        = "session_id"
	FieldClickAttempts    = "click_attempts"
	FieldErrorMessage     = "error_message"
	FieldBrowserClosed    = "browser_closed"
)

var oldSchema = Schema{
	FieldTimestamp,
	FieldInstanceID,
	FieldIP,
	FieldStatus,
	FieldMessage,
	FieldVoteCount,
}

var newSchema = Schema{
	FieldTimestamp,
	FieldInstanceID,
	FieldInstanceName,
	FieldTimeOfClick,
	FieldStatus,
	FieldVotingURL,
	FieldCooldownMessage,
	FieldFailureType,
	FieldFailureReason,
	FieldInitialVoteCount,
	FieldFinalVoteCount,
	FieldVoteCountChange,
	FieldProxyIP,
	FieldSessionID,
	FieldClickAttempts,
	FieldErrorMessage,
	FieldBrowserClosed,
}

// OldSchema returns the 6-column layout written before the migration.
func OldSchema() Schema {
	return oldSchema.Clone()
}

// NewSchema returns the 17-column layout the migration establishes.
func NewSchema() Schema {
	return newSchema.Clone()
}

// ParseSchema splits a comma-joined header line into a Schema.
// Surrounding whitespace on the line is ignored; field names are kept as-is.
func ParseSchema(line string) Schema {
	line = strings.TrimSpace(line)
	if line == "" {
		return Schema{}
	}
	return Schema(strings.Split(line, ","))
}

// Clone returns an independent copy.
func (s Schema) Clone() Schema {
	out := make(Schema, len(s))
	copy(out, s)
	return out
}

// Len returns the number of columns.
func (s Schema) Len() int {
	return len(s)
}

// Header returns the comma-joined header line without a trailing newline.
func (s Schema) Header() string {
	return strings.Join(s, ",")
}

// Equal reports whether both schemas list the same names in the same order.
func (s Schema) Equal(other Schema) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Index returns the position of name, or -1.
func (s Schema) Index(name string) int {
	for i, f := range s {
		if f == name {
			return i
		}
	}
	return -1
}

// Mismatch describes a column position whose name differs between two schemas.
type Mismatch struct {
	Position int    `json:"position" yaml:"position"`
	From     string `json:"from" yaml:"from"`
	To       string `json:"to" yaml:"to"`
}

// Mismatches lists the positions both schemas share where the names differ.
// Positions are zero-based. Columns beyond the shorter schema are not reported.
func (s Schema) Mismatches(to Schema) []Mismatch {
	n := len(s)
	if len(to) < n {
		n = len(to)
	}
	var out []Mismatch
	for i := 0; i < n; i++ {
		if s[i] != to[i] {
			out = append(out, Mismatch{Position: i, From: s[i], To: to[i]})
		}
	}
	return out
}
