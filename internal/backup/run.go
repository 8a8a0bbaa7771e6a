package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	TimestampLayout = "20060102_150405"
	runDirPrefix    = "backup_"
	// ArtifactExt is the extension of every dump artifact.
	ArtifactExt = ".sql"
)

// Run identifies one backup execution. It is created once per process and is
// read-only afterwards.
type Run struct {
	timestamp string
	root      string
}

// NewRun creates <outputRoot>/backup_<timestamp>. Calling it again for the
// same second reuses the directory.
func NewRun(outputRoot string, now time.Time) (*Run, error) {
	if outputRoot == "" {
		return nil, fmt.Errorf("output root is empty")
	}
	base, err := filepath.Abs(outputRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve output root: %w", err)
	}
	ts := now.Format(TimestampLayout)
	root := filepath.Join(base, runDirPrefix+ts)
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create run directory: %w", err)
	}
	return &Run{timestamp: ts, root: root}, nil
}

func (r *Run) Timestamp() string { return r.timestamp }

// Name is the run directory name, also used as the object key segment.
func (r *Run) Name() string { return runDirPrefix + r.timestamp }

func (r *Run) Root() string { return r.root }

func (r *Run) DatabaseDir(database string) string {
	return filepath.Join(r.root, database)
}

func (r *Run) ArtifactPath(database, table string) string {
	return filepath.Join(r.root, database, table+ArtifactExt)
}
