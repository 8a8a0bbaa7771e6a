package backup

import (
	"context"

	"github.com/rs/zerolog"
)

// TableLister is the database client collaborator.
type TableLister interface {
	ListTables(ctx context.Context, database string) ([]string, error)
}

type Enumerator struct {
	lister TableLister
	log    zerolog.Logger
}

func NewEnumerator(lister TableLister, log zerolog.Logger) *Enumerator {
	return &Enumerator{lister: lister, log: log.With().Str("component", "enumerator").Logger()}
}

// Enumerate lists the tables of database in the order the client returned them.
func (e *Enumerator) Enumerate(ctx context.Context, database string) EnumerateResult {
	res := EnumerateResult{Database: database, Tables: []string{}}
	if err := checkName(database); err != nil {
		res.Err = &EnumerateError{Database: database, Err: err}
		return res
	}

	tables, err := e.lister.ListTables(ctx, database)
	if err != nil {
		res.Err = &EnumerateError{Database: database, Err: err}
		return res
	}
	if tables != nil {
		res.Tables = tables
	}
	e.log.Debug().Str("database", database).Int("tables", len(res.Tables)).Msg("tables listed")
	return res
}
