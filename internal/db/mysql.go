package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/rowjay/db-table-backup/internal/config"
	"github.com/rowjay/db-table-backup/internal/util"
)

type MySQLAdapter struct {
	cfg config.DatabaseConfig
}

func NewMySQLAdapter(cfg config.DatabaseConfig) *MySQLAdapter {
	if cfg.ClientBin == "" {
		cfg.ClientBin = "mysql"
	}
	if cfg.DumpBin == "" {
		cfg.DumpBin = "mysqldump"
	}
	return &MySQLAdapter{cfg: cfg}
}

func (m *MySQLAdapter) Name() string { return config.DatabaseMySQL }

func (m *MySQLAdapter) Validate(ctx context.Context) error {
	if err := util.RequireBinary(m.cfg.ClientBin); err != nil {
		return err
	}
	return util.RequireBinary(m.cfg.DumpBin)
}

func (m *MySQLAdapter) ListTables(ctx context.Context, database string) ([]string, error) {
	cmd := util.Command(ctx, m.cfg.ClientBin, m.listArgs(database), nil)
	out, err := util.Output(cmd)
	if err != nil {
		return nil, err
	}
	return parseTableList(out), nil
}

func (m *MySQLAdapter) DumpTable(ctx context.Context, database, table, outPath string) error {
	return util.Run(util.Command(ctx, m.cfg.DumpBin, m.dumpArgs(database, table, outPath), nil))
}

// --defaults-extra-file must be the first option the mysql tools see.
func (m *MySQLAdapter) baseArgs() []string {
	if m.cfg.CredentialsFile == "" {
		return []string{}
	}
	return []string{"--defaults-extra-file=" + m.cfg.CredentialsFile}
}

func (m *MySQLAdapter) listArgs(database string) []string {
	return append(m.baseArgs(), "-e", fmt.Sprintf("SHOW TABLES IN %s;", quoteIdent(database)))
}

func (m *MySQLAdapter) dumpArgs(database, table, outPath string) []string {
	args := m.baseArgs()
	args = append(args, m.cfg.DumpArgs...)
	return append(args, database, table, "--result-file="+outPath)
}

func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
