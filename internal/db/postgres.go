package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/rowjay/db-table-backup/internal/config"
	"github.com/rowjay/db-table-backup/internal/util"
)

// PostgresAdapter treats the credentials file as a pgpass file.
type PostgresAdapter struct {
	cfg config.DatabaseConfig
}

func NewPostgresAdapter(cfg config.DatabaseConfig) *PostgresAdapter {
	if cfg.ClientBin == "" {
		cfg.ClientBin = "psql"
	}
	if cfg.DumpBin == "" {
		cfg.DumpBin = "pg_dump"
	}
	if cfg.Schema == "" {
		cfg.Schema = "public"
	}
	return &PostgresAdapter{cfg: cfg}
}

func (p *PostgresAdapter) Name() string { return config.DatabasePostgres }

func (p *PostgresAdapter) Validate(ctx context.Context) error {
	if err := util.RequireBinary(p.cfg.ClientBin); err != nil {
		return err
	}
	return util.RequireBinary(p.cfg.DumpBin)
}

func (p *PostgresAdapter) ListTables(ctx context.Context, database string) ([]string, error) {
	cmd := util.Command(ctx, p.cfg.ClientBin, p.listArgs(database), p.env())
	out, err := util.Output(cmd)
	if err != nil {
		return nil, err
	}
	return parseTableList(out), nil
}

func (p *PostgresAdapter) DumpTable(ctx context.Context, database, table, outPath string) error {
	return util.Run(util.Command(ctx, p.cfg.DumpBin, p.dumpArgs(database, table, outPath), p.env()))
}

// Unaligned output keeps the header line and drops the row-count footer.
func (p *PostgresAdapter) listArgs(database string) []string {
	query := fmt.Sprintf(
		"SELECT tablename FROM pg_catalog.pg_tables WHERE schemaname = %s ORDER BY tablename;",
		quoteLiteral(p.cfg.Schema),
	)
	return []string{"--no-psqlrc", "-A", "-P", "footer=off", "-d", database, "-c", query}
}

func (p *PostgresAdapter) dumpArgs(database, table, outPath string) []string {
	args := []string{"--no-owner", "--no-privileges"}
	args = append(args, p.cfg.DumpArgs...)
	return append(args,
		"--table="+quotePattern(p.cfg.Schema)+"."+quotePattern(table),
		"--file="+outPath,
		database,
	)
}

func (p *PostgresAdapter) env() map[string]string {
	if p.cfg.CredentialsFile == "" {
		return nil
	}
	return map[string]string{"PGPASSFILE": p.cfg.CredentialsFile}
}

func quoteLiteral(v string) string {
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}

// Double quotes stop pg_dump from treating the name as a pattern.
func quotePattern(v string) string {
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}
