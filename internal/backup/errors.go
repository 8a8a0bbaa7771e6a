package backup

import (
	"errors"
	"fmt"
)

var (
	// ErrPartialFailure is returned by a run in which at least one database,
	// table or upload failed.
	ErrPartialFailure = errors.New("backup finished with failures")
	ErrInvalidName    = errors.New("invalid name")
	ErrMissingOutput  = errors.New("dump tool produced no output file")
)

type EnumerateError struct {
	Database string
	Err      error
}

func (e *EnumerateError) Error() string {
	return fmt.Sprintf("list tables failed for database '%s': %v", e.Database, e.Err)
}

func (e *EnumerateError) Unwrap() error {
	return e.Err
}

type DumpError struct {
	Database string
	Table    string
	Err      error
}

func (e *DumpError) Error() string {
	return fmt.Sprintf("dump failed for table '%s' in database '%s': %v", e.Table, e.Database, e.Err)
}

func (e *DumpError) Unwrap() error {
	return e.Err
}

type UploadError struct {
	Bucket string
	Key    string
	Err    error
}

func (e *UploadError) Error() string {
	if e.Bucket == "" {
		return fmt.Sprintf("upload failed for key '%s': %v", e.Key, e.Err)
	}
	return fmt.Sprintf("upload failed for bucket '%s', key '%s': %v", e.Bucket, e.Key, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}
