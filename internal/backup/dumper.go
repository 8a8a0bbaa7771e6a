package backup

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// TableDumper is the dump tool collaborator.
type TableDumper interface {
	DumpTable(ctx context.Context, database, table, outPath string) error
}

type Dumper struct {
	dumper TableDumper
	log    zerolog.Logger
}

func NewDumper(dumper TableDumper, log zerolog.Logger) *Dumper {
	return &Dumper{dumper: dumper, log: log.With().Str("component", "dumper").Logger()}
}

// Dump writes one table to <run root>/<database>/<table>.sql. On failure no
// artifact is left behind.
func (d *Dumper) Dump(ctx context.Context, run *Run, database, table string) DumpResult {
	res := DumpResult{Database: database, Table: table}
	fail := func(err error) DumpResult {
		res.Err = &DumpError{Database: database, Table: table, Err: err}
		return res
	}

	if err := checkName(database); err != nil {
		return fail(err)
	}
	if err := checkName(table); err != nil {
		return fail(err)
	}

	if err := os.MkdirAll(run.DatabaseDir(database), 0o750); err != nil {
		return fail(fmt.Errorf("create database directory: %w", err))
	}

	out := run.ArtifactPath(database, table)
	if err := d.dumper.DumpTable(ctx, database, table, out); err != nil {
		removePartial(out)
		return fail(err)
	}
	if _, err := os.Stat(out); err != nil {
		return fail(fmt.Errorf("%w: %s", ErrMissingOutput, out))
	}

	d.log.Debug().Str("database", database).Str("table", table).Str("path", out).Msg("table dumped")
	res.Path = out
	return res
}

// A failed dump tool may leave a truncated result file.
func removePartial(path string) {
	_ = os.Remove(path)
}

// checkName rejects names that would escape or collapse the artifact layout.
func checkName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: empty", ErrInvalidName)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	case strings.ContainsRune(name, 0):
		return fmt.Errorf("%w: %q contains a NUL byte", ErrInvalidName, name)
	}
	return nil
}
