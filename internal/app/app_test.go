package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rowjay/db-table-backup/internal/backup"
	"github.com/rowjay/db-table-backup/internal/config"
	"github.com/rowjay/db-table-backup/internal/lock"
	"github.com/rowjay/db-table-backup/internal/notify"
	"github.com/rowjay/db-table-backup/internal/storage"
)

var testNow = time.Date(2024, 3, 9, 14, 5, 30, 0, time.Local)

type fakeAdapter struct {
	tables      map[string][]string
	listErr     map[string]error
	dumpErr     map[string]error // keyed by database.table
	validateErr error
	dumped      []string
}

func (f *fakeAdapter) Name() string { return "fake" }

func (f *fakeAdapter) Validate(context.Context) error { return f.validateErr }

func (f *fakeAdapter) ListTables(_ context.Context, database string) ([]string, error) {
	if err := f.listErr[database]; err != nil {
		return nil, err
	}
	return f.tables[database], nil
}

func (f *fakeAdapter) DumpTable(_ context.Context, database, table, outPath string) error {
	f.dumped = append(f.dumped, database+"."+table)
	if err := f.dumpErr[database+"."+table]; err != nil {
		return err
	}
	return os.WriteFile(outPath, []byte("-- "+database+"."+table+"\n"), 0o600)
}

type countingUploader struct {
	calls int
	keys  []string
	err   error
}

func (c *countingUploader) Key(run *backup.Run, database, localPath string) string {
	return "backups/" + run.Name() + "/" + database + "/" + filepath.Base(localPath)
}

func (c *countingUploader) Upload(_ context.Context, localPath, key string) backup.UploadResult {
	c.calls++
	c.keys = append(c.keys, key)
	if c.err != nil {
		return backup.UploadResult{Path: localPath, Key: key, Err: &backup.UploadError{Bucket: "nightly", Key: key, Err: c.err}}
	}
	return backup.UploadResult{Path: localPath, Key: key, Location: "s3://nightly/" + key}
}

func (c *countingUploader) RunLocation(run *backup.Run) string {
	return "s3://nightly/backups/" + run.Name()
}

type recordingNotifier struct {
	events []notify.Event
}

func (r *recordingNotifier) Notify(_ context.Context, e notify.Event) error {
	r.events = append(r.events, e)
	return nil
}

func testConfig(t *testing.T, databases ...string) *config.Config {
	t.Helper()
	return &config.Config{
		Global:    config.GlobalConfig{StrictExit: true},
		Databases: databases,
		Database:  config.DatabaseConfig{Type: config.DatabaseMySQL},
		Output:    config.OutputConfig{Root: t.TempDir()},
		Upload:    config.UploadConfig{Prefix: "backups", Compression: "none"},
	}
}

func newTestApp(t *testing.T, cfg *config.Config, adapter *fakeAdapter, store storage.Storage, log zerolog.Logger) *App {
	t.Helper()
	a, err := New(cfg, adapter, store, log, nil)
	require.NoError(t, err)
	a.Now = func() time.Time { return testNow }
	return a
}

func runRoot(cfg *config.Config) string {
	return filepath.Join(cfg.Output.Root, "backup_20240309_140530")
}

func TestBackupWithoutUpload(t *testing.T) {
	cfg := testConfig(t, "app_db")
	adapter := &fakeAdapter{tables: map[string][]string{"app_db": {"users", "orders"}}}
	a := newTestApp(t, cfg, adapter, nil, zerolog.Nop())
	uploader := &countingUploader{}
	a.Uploader = uploader

	report, err := a.Backup(context.Background())
	require.NoError(t, err)

	root := runRoot(cfg)
	for _, table := range []string{"users", "orders"} {
		info, statErr := os.Stat(filepath.Join(root, "app_db", table+".sql"))
		require.NoError(t, statErr)
		assert.Positive(t, info.Size())
	}
	assert.Zero(t, uploader.calls)
	assert.Equal(t, 2, report.Artifacts())
	assert.Zero(t, report.Failures())
	assert.Equal(t, []string{"All backups saved to " + root}, report.Summary())

	for _, dump := range report.Databases[0].Dumps {
		assert.Equal(t, filepath.Join(root, "app_db", dump.Table+".sql"), dump.Path)
	}
}

func TestBackupEnumerationFailure(t *testing.T) {
	cfg := testConfig(t, "legacy_db")
	adapter := &fakeAdapter{listErr: map[string]error{"legacy_db": errors.New("ERROR 1049 (42000): Unknown database 'legacy_db'")}}
	var logs bytes.Buffer
	a := newTestApp(t, cfg, adapter, nil, zerolog.New(&logs))

	report, err := a.Backup(context.Background())
	require.ErrorIs(t, err, backup.ErrPartialFailure)
	require.NotNil(t, report)

	entries, readErr := os.ReadDir(runRoot(cfg))
	require.NoError(t, readErr)
	assert.Empty(t, entries)
	assert.Empty(t, adapter.dumped)
	assert.Equal(t, 1, report.Failures())
	assert.Equal(t, []string{"All backups saved to " + runRoot(cfg)}, report.Summary())

	errorLines := 0
	for _, line := range strings.Split(logs.String(), "\n") {
		if strings.Contains(line, `"level":"error"`) {
			errorLines++
			assert.Contains(t, line, "legacy_db")
		}
	}
	assert.Equal(t, 1, errorLines)

	var enumErr *backup.EnumerateError
	require.Len(t, report.Errors(), 1)
	assert.ErrorAs(t, report.Errors()[0], &enumErr)
}

func TestBackupLenientExit(t *testing.T) {
	cfg := testConfig(t, "legacy_db")
	cfg.Global.StrictExit = false
	adapter := &fakeAdapter{listErr: map[string]error{"legacy_db": errors.New("access denied")}}

	report, err := newTestApp(t, cfg, adapter, nil, zerolog.Nop()).Backup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failures())
}

func TestBackupZeroTablesCreatesNoDirectory(t *testing.T) {
	cfg := testConfig(t, "empty_db")
	adapter := &fakeAdapter{tables: map[string][]string{"empty_db": {}}}

	report, err := newTestApp(t, cfg, adapter, nil, zerolog.Nop()).Backup(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Artifacts())
	assert.NoDirExists(t, filepath.Join(runRoot(cfg), "empty_db"))
}

func TestBackupContinuesAfterDumpFailure(t *testing.T) {
	cfg := testConfig(t, "app_db", "shop_db")
	cfg.Upload.Enabled = true
	adapter := &fakeAdapter{
		tables: map[string][]string{
			"app_db":  {"users", "orders"},
			"shop_db": {"carts"},
		},
		dumpErr: map[string]error{"app_db.users": errors.New("mysqldump: Got error: 1146")},
	}
	a := newTestApp(t, cfg, adapter, nil, zerolog.Nop())
	uploader := &countingUploader{}
	a.Uploader = uploader

	report, err := a.Backup(context.Background())
	require.ErrorIs(t, err, backup.ErrPartialFailure)

	assert.Equal(t, []string{"app_db.users", "app_db.orders", "shop_db.carts"}, adapter.dumped)
	assert.NoFileExists(t, filepath.Join(runRoot(cfg), "app_db", "users.sql"))
	assert.FileExists(t, filepath.Join(runRoot(cfg), "app_db", "orders.sql"))
	assert.FileExists(t, filepath.Join(runRoot(cfg), "shop_db", "carts.sql"))

	assert.Equal(t, 2, uploader.calls)
	assert.Equal(t, []string{
		"backups/backup_20240309_140530/app_db/orders.sql",
		"backups/backup_20240309_140530/shop_db/carts.sql",
	}, uploader.keys)
	assert.Equal(t, 1, report.Failures())
}

func TestBackupUploadFailureKeepsGoing(t *testing.T) {
	cfg := testConfig(t, "app_db")
	cfg.Upload.Enabled = true
	adapter := &fakeAdapter{tables: map[string][]string{"app_db": {"users", "orders"}}}
	a := newTestApp(t, cfg, adapter, nil, zerolog.Nop())
	uploader := &countingUploader{err: errors.New("AccessDenied")}
	a.Uploader = uploader

	report, err := a.Backup(context.Background())
	require.ErrorIs(t, err, backup.ErrPartialFailure)
	assert.Equal(t, 2, uploader.calls)
	assert.Equal(t, 2, report.Failures())
	assert.Equal(t, 2, report.Artifacts())
	assert.FileExists(t, filepath.Join(runRoot(cfg), "app_db", "users.sql"))
}

func TestBackupUploadsToLocalStore(t *testing.T) {
	cfg := testConfig(t, "app_db")
	cfg.Upload.Enabled = true
	cfg.Upload.Backend = config.BackendLocal
	cfg.Upload.LocalPath = t.TempDir()
	adapter := &fakeAdapter{tables: map[string][]string{"app_db": {"users"}}}

	a := newTestApp(t, cfg, adapter, storage.NewLocal(cfg.Upload.LocalPath), zerolog.Nop())
	report, err := a.Backup(context.Background())
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(cfg.Upload.LocalPath, "backups", "backup_20240309_140530", "app_db", "users.sql"))
	assert.Equal(t, 1, report.Uploaded())
	assert.Equal(t, int64(len("-- app_db.users\n")), report.UploadedBytes())
	assert.Equal(t, []string{
		"All backups saved to " + runRoot(cfg),
		"Backups have also been uploaded to " + filepath.Join(cfg.Upload.LocalPath, "backups", "backup_20240309_140530"),
	}, report.Summary())

	objects, err := a.List(context.Background(), "backup_20240309_140530")
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "backups/backup_20240309_140530/app_db/users.sql", objects[0].Key)
}

func TestNewRejectsBadEncryptionKey(t *testing.T) {
	cfg := testConfig(t, "app_db")
	cfg.Upload.Enabled = true
	cfg.Upload.Encryption = true
	cfg.Upload.EncryptionKey = "short"

	_, err := New(cfg, &fakeAdapter{}, storage.NewLocal(t.TempDir()), zerolog.Nop(), nil)
	assert.Error(t, err)
}

func TestBackupHeldLockIsFatal(t *testing.T) {
	cfg := testConfig(t, "app_db")
	cfg.Global.LockFile = filepath.Join(t.TempDir(), "tbu.lock")
	held, err := lock.Acquire(cfg.Global.LockFile)
	require.NoError(t, err)
	defer held.Release()

	adapter := &fakeAdapter{tables: map[string][]string{"app_db": {"users"}}}
	report, err := newTestApp(t, cfg, adapter, nil, zerolog.Nop()).Backup(context.Background())
	assert.ErrorIs(t, err, lock.ErrLocked)
	assert.Nil(t, report)
	assert.Empty(t, adapter.dumped)
}

func TestBackupStopsWhenCancelled(t *testing.T) {
	cfg := testConfig(t, "app_db", "shop_db")
	adapter := &fakeAdapter{tables: map[string][]string{"app_db": {"users"}, "shop_db": {"carts"}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := newTestApp(t, cfg, adapter, nil, zerolog.Nop()).Backup(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.Empty(t, adapter.dumped)
}

func TestBackupNotifies(t *testing.T) {
	cfg := testConfig(t, "app_db", "legacy_db")
	adapter := &fakeAdapter{
		tables:  map[string][]string{"app_db": {"users"}},
		listErr: map[string]error{"legacy_db": errors.New("unknown database")},
	}
	a := newTestApp(t, cfg, adapter, nil, zerolog.Nop())
	rec := &recordingNotifier{}
	a.Notifier = rec

	_, err := a.Backup(context.Background())
	require.ErrorIs(t, err, backup.ErrPartialFailure)

	require.Len(t, rec.events, 1)
	event := rec.events[0]
	assert.Equal(t, notify.StatusPartial, event.Status)
	assert.Equal(t, "backup_20240309_140530", event.Run)
	assert.Equal(t, 2, event.Databases)
	assert.Equal(t, 1, event.Tables)
	assert.Equal(t, 1, event.Failures)
	assert.Empty(t, event.Error)
	assert.Len(t, event.ID, 36)
}

func TestTablesAndValidate(t *testing.T) {
	cfg := testConfig(t, "app_db")
	adapter := &fakeAdapter{tables: map[string][]string{"app_db": {"users", "orders"}}}
	a := newTestApp(t, cfg, adapter, nil, zerolog.Nop())

	tables, err := a.Tables(context.Background(), "app_db")
	require.NoError(t, err)
	assert.Equal(t, []string{"users", "orders"}, tables)

	require.NoError(t, a.Validate(context.Background()))
	adapter.validateErr = errors.New("required binary not found: mysqldump")
	assert.Error(t, a.Validate(context.Background()))

	_, err = a.List(context.Background(), "")
	assert.Error(t, err)
}
