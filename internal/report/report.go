// Package report defines the aggregate JSON report written by the build
// and validation commands.
package report

import (
	"time"

	"github.com/zen-li/sing-box-rules/internal/fsutil"
)

// Entry describes one processed file. BuiltAt is the RFC 3339 time the
// build attempt started; validation entries leave it empty.
type Entry struct {
	Name    string `json:"name"`
	Type    string `json:"type,omitempty"`
	Source  string `json:"source,omitempty"`
	Output  string `json:"output,omitempty"`
	Outcome string `json:"outcome"`
	Rules   int    `json:"rules,omitempty"`
	BuiltAt string `json:"builtAt,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// Counts aggregates entry totals.
type Counts struct {
	Success int `json:"success"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
	Total   int `json:"total"`
}

// Report is the aggregate document. The three entry lists are kept non-nil
// so an empty run still serializes as arrays.
type Report struct {
	GeneratedAt string  `json:"generatedAt"`
	Counts      Counts  `json:"counts"`
	Success     []Entry `json:"success"`
	Failed      []Entry `json:"failed"`
	Skipped     []Entry `json:"skipped"`
}

// New returns an empty report stamped with the current UTC time.
func New() *Report {
	return &Report{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Success:     []Entry{},
		Failed:      []Entry{},
		Skipped:     []Entry{},
	}
}

// AddSuccess appends e to the success list.
func (r *Report) AddSuccess(e Entry) {
	r.Success = append(r.Success, e)
	r.Counts.Success++
	r.Counts.Total++
}

// AddFailed appends e to the failed list.
func (r *Report) AddFailed(e Entry) {
	r.Failed = append(r.Failed, e)
	r.Counts.Failed++
	r.Counts.Total++
}

// AddSkipped appends e to the skipped list.
func (r *Report) AddSkipped(e Entry) {
	r.Skipped = append(r.Skipped, e)
	r.Counts.Skipped++
	r.Counts.Total++
}

// Write stores the report as indented JSON at path.
func (r *Report) Write(path string) error {
	return fsutil.WriteJSON(path, r)
}
