package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rowjay/db-table-backup/internal/backup"
	"github.com/rowjay/db-table-backup/internal/config"
	"github.com/rowjay/db-table-backup/internal/cryptoutil"
	"github.com/rowjay/db-table-backup/internal/db"
	"github.com/rowjay/db-table-backup/internal/lock"
	"github.com/rowjay/db-table-backup/internal/notify"
	"github.com/rowjay/db-table-backup/internal/progress"
	"github.com/rowjay/db-table-backup/internal/storage"
	"github.com/rowjay/db-table-backup/internal/util"
)

type Enumerator interface {
	Enumerate(ctx context.Context, database string) backup.EnumerateResult
}

type Dumper interface {
	Dump(ctx context.Context, run *backup.Run, database, table string) backup.DumpResult
}

type Uploader interface {
	Key(run *backup.Run, database, localPath string) string
	Upload(ctx context.Context, localPath, key string) backup.UploadResult
	RunLocation(run *backup.Run) string
}

type App struct {
	Cfg        *config.Config
	Adapter    db.Adapter
	Storage    storage.Storage // nil when upload is disabled
	Enumerator Enumerator
	Dumper     Dumper
	Uploader   Uploader // nil when upload is disabled
	Log        zerolog.Logger
	Notifier   notify.Notifier
	Progress   progress.Tracker
	Now        func() time.Time
}

// New wires the backup components around adapter. store may be nil; the
// uploader is only built when upload is enabled and a store is given.
func New(cfg *config.Config, adapter db.Adapter, store storage.Storage, log zerolog.Logger, notifier notify.Notifier) (*App, error) {
	a := &App{
		Cfg:        cfg,
		Adapter:    adapter,
		Storage:    store,
		Enumerator: backup.NewEnumerator(adapter, log),
		Dumper:     backup.NewDumper(adapter, log),
		Log:        log,
		Notifier:   notifier,
		Progress:   progress.Nop{},
		Now:        time.Now,
	}
	if cfg.Upload.Enabled && store != nil {
		opts := backup.UploadOptions{
			Prefix:      cfg.Upload.Prefix,
			Bucket:      cfg.Upload.Bucket,
			Compression: cfg.Upload.Compression,
		}
		if cfg.Upload.Encryption {
			key, err := cryptoutil.ParseKey(cfg.Upload.EncryptionKey)
			if err != nil {
				return nil, fmt.Errorf("upload encryption key: %w", err)
			}
			opts.EncryptionKey = key
		}
		a.Uploader = backup.NewUploader(store, opts, log)
	}
	return a, nil
}

// Backup runs the enumerate, dump and upload loop over every configured
// database. Unit failures never stop the loop; they are collected in the
// report. The returned error is non-nil for fatal setup failures, and wraps
// backup.ErrPartialFailure when strict exit is on and any unit failed.
func (a *App) Backup(ctx context.Context) (report *Report, opErr error) {
	start := a.Now()
	defer func() { a.notify(start, report, opErr) }()

	guard, err := lock.Acquire(a.Cfg.Global.LockFile)
	if err != nil {
		return nil, err
	}
	defer guard.Release()

	run, err := backup.NewRun(a.Cfg.Output.Root, start)
	if err != nil {
		return nil, err
	}

	uploading := a.Cfg.Upload.Enabled && a.Uploader != nil
	report = &Report{
		RunName:       run.Name(),
		RunRoot:       run.Root(),
		UploadEnabled: uploading,
		StartedAt:     start,
	}
	if uploading {
		report.UploadLocation = a.Uploader.RunLocation(run)
	}

	log := a.Log.With().Str("run", run.Name()).Logger()
	log.Info().Str("root", run.Root()).Int("databases", len(a.Cfg.Databases)).Bool("upload", uploading).Msg("backup run started")

	total := len(a.Cfg.Databases)
	for i, database := range a.Cfg.Databases {
		if err := ctx.Err(); err != nil {
			log.Warn().Err(err).Msg("backup run interrupted")
			a.Progress.Finish()
			report.EndedAt = a.Now()
			return report, err
		}
		a.Progress.Describe(database)
		log.Info().Msgf("[%d/%d] Processing database: %s", i+1, total, database)
		report.Databases = append(report.Databases, a.backupDatabase(ctx, log, run, database, uploading))
		a.Progress.Add(1)
	}
	a.Progress.Finish()

	report.EndedAt = a.Now()
	if err := ctx.Err(); err != nil {
		log.Warn().Err(err).Msg("backup run interrupted")
		return report, err
	}
	log.Info().
		Int("artifacts", report.Artifacts()).
		Int("uploaded", report.Uploaded()).
		Int("failures", report.Failures()).
		Dur("duration", report.EndedAt.Sub(start)).
		Msg("backup run finished")

	if a.Cfg.Global.StrictExit && report.Failures() > 0 {
		return report, fmt.Errorf("%w: %d failed units", backup.ErrPartialFailure, report.Failures())
	}
	return report, nil
}

func (a *App) backupDatabase(ctx context.Context, log zerolog.Logger, run *backup.Run, database string, uploading bool) DatabaseReport {
	dr := DatabaseReport{Name: database}

	listed := a.Enumerator.Enumerate(ctx, database)
	if !listed.OK() {
		log.Error().Err(listed.Err).Str("database", database).Msg("error fetching tables")
		dr.Err = listed.Err
		return dr
	}
	dr.Tables = listed.Tables
	if len(listed.Tables) == 0 {
		log.Warn().Str("database", database).Msg("no tables found")
		return dr
	}

	for _, table := range listed.Tables {
		if ctx.Err() != nil {
			return dr
		}
		dumped := a.Dumper.Dump(ctx, run, database, table)
		dr.Dumps = append(dr.Dumps, dumped)
		if !dumped.OK() {
			log.Error().Err(dumped.Err).Str("database", database).Str("table", table).Msg("error backing up table")
			continue
		}
		log.Debug().Str("database", database).Str("table", table).Str("path", dumped.Path).Msg("table backed up")

		if !uploading {
			continue
		}
		key := a.Uploader.Key(run, database, dumped.Path)
		uploaded := a.Uploader.Upload(ctx, dumped.Path, key)
		dr.Uploads = append(dr.Uploads, uploaded)
		if !uploaded.OK() {
			log.Error().Err(uploaded.Err).Str("path", dumped.Path).Str("key", key).Msg("error uploading backup")
			continue
		}
		log.Info().Str("path", dumped.Path).Str("destination", uploaded.Location).Int64("size", uploaded.Size).Msg("uploaded")
	}
	return dr
}

func (a *App) notify(start time.Time, report *Report, opErr error) {
	if a.Notifier == nil {
		return
	}
	end := a.Now()
	event := notify.Event{
		ID:        uuid.NewString(),
		Type:      "backup",
		Status:    notify.StatusSuccess,
		DBType:    a.Cfg.Database.Type,
		Databases: len(a.Cfg.Databases),
		StartedAt: start,
		EndedAt:   end,
		Duration:  end.Sub(start).String(),
	}
	if report != nil {
		event.Run = report.RunName
		event.Root = report.RunRoot
		event.Tables = report.Artifacts()
		event.Failures = report.Failures()
		event.Uploaded = report.Uploaded()
		event.UploadedBytes = report.UploadedBytes()
		event.Message = fmt.Sprintf("backup %s: %d tables dumped, %d failures", report.RunName, event.Tables, event.Failures)
		if event.Failures > 0 {
			event.Status = notify.StatusPartial
		}
	}
	if opErr != nil && !errors.Is(opErr, backup.ErrPartialFailure) {
		event.Status = notify.StatusFailed
		event.Error = opErr.Error()
		if event.Message == "" {
			event.Message = "backup run failed"
		}
	}
	if err := a.Notifier.Notify(context.Background(), event); err != nil {
		a.Log.Warn().Err(err).Msg("notification failed")
	}
}

// Tables lists the tables of one database without dumping anything.
func (a *App) Tables(ctx context.Context, database string) ([]string, error) {
	res := a.Enumerator.Enumerate(ctx, database)
	return res.Tables, res.Err
}

// Validate checks the collaborator binaries and, when upload is on, that the
// destination can be listed.
func (a *App) Validate(ctx context.Context) error {
	if err := a.Adapter.Validate(ctx); err != nil {
		return err
	}
	if a.Storage == nil {
		return nil
	}
	_, err := a.Storage.List(ctx, util.BuildPrefix(a.Cfg.Upload.Prefix))
	return err
}

// List returns uploaded objects, optionally narrowed to one run directory.
func (a *App) List(ctx context.Context, run string) ([]storage.ObjectInfo, error) {
	if a.Storage == nil {
		return nil, errors.New("no upload destination configured")
	}
	return a.Storage.List(ctx, util.BuildPrefix(a.Cfg.Upload.Prefix, run))
}
