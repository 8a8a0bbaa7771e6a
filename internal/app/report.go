package app

import (
	"fmt"
	"time"

	"github.com/rowjay/db-table-backup/internal/backup"
)

// DatabaseReport collects the outcome of every unit for one database.
type DatabaseReport struct {
	Name    string
	Tables  []string
	Err     error // enumeration failure
	Dumps   []backup.DumpResult
	Uploads []backup.UploadResult
}

func (d DatabaseReport) failures() int {
	n := 0
	if d.Err != nil {
		n++
	}
	for _, r := range d.Dumps {
		if !r.OK() {
			n++
		}
	}
	for _, r := range d.Uploads {
		if !r.OK() {
			n++
		}
	}
	return n
}

// Report is the in-memory result of one run. It is not persisted.
type Report struct {
	RunName        string
	RunRoot        string
	UploadEnabled  bool
	UploadLocation string
	Databases      []DatabaseReport
	StartedAt      time.Time
	EndedAt        time.Time
}

func (r *Report) Failures() int {
	n := 0
	for _, d := range r.Databases {
		n += d.failures()
	}
	return n
}

// Artifacts counts tables dumped successfully.
func (r *Report) Artifacts() int {
	n := 0
	for _, d := range r.Databases {
		for _, dump := range d.Dumps {
			if dump.OK() {
				n++
			}
		}
	}
	return n
}

func (r *Report) Uploaded() int {
	n := 0
	for _, d := range r.Databases {
		for _, up := range d.Uploads {
			if up.OK() {
				n++
			}
		}
	}
	return n
}

// UploadedBytes sums the stored size of every successful upload.
func (r *Report) UploadedBytes() int64 {
	var n int64
	for _, d := range r.Databases {
		for _, up := range d.Uploads {
			if up.OK() {
				n += up.Size
			}
		}
	}
	return n
}

// Errors returns every unit failure in loop order.
func (r *Report) Errors() []error {
	var errs []error
	for _, d := range r.Databases {
		if d.Err != nil {
			errs = append(errs, d.Err)
		}
		for _, dump := range d.Dumps {
			if dump.Err != nil {
				errs = append(errs, dump.Err)
			}
		}
		for _, up := range d.Uploads {
			if up.Err != nil {
				errs = append(errs, up.Err)
			}
		}
	}
	return errs
}

// Summary returns the completion lines printed after a run.
func (r *Report) Summary() []string {
	lines := []string{fmt.Sprintf("All backups saved to %s", r.RunRoot)}
	if r.UploadEnabled {
		lines = append(lines, fmt.Sprintf("Backups have also been uploaded to %s", r.UploadLocation))
	}
	return lines
}
