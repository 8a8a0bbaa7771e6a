package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/rowjay/db-table-backup/internal/config"
)

// Adapter drives the database client and dump tool for one database engine.
// Credentials are never parsed here; the configured file is passed through.
type Adapter interface {
	Name() string
	// Validate checks that the collaborator binaries can be found.
	Validate(ctx context.Context) error
	// ListTables returns table names in the order the client printed them.
	ListTables(ctx context.Context, database string) ([]string, error)
	// DumpTable writes one table to outPath.
	DumpTable(ctx context.Context, database, table, outPath string) error
}

func NewAdapter(cfg config.DatabaseConfig) (Adapter, error) {
	switch cfg.Type {
	case config.DatabasePostgres, "postgresql":
		return NewPostgresAdapter(cfg), nil
	case config.DatabaseMySQL, "mariadb", "":
		return NewMySQLAdapter(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
}

// parseTableList drops the header line and keeps every non-empty line after it.
func parseTableList(out []byte) []string {
	lines := strings.Split(string(out), "\n")
	if len(lines) <= 1 {
		return []string{}
	}
	tables := make([]string, 0, len(lines)-1)
	for _, line := range lines[1:] {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		tables = append(tables, line)
	}
	return tables
}
