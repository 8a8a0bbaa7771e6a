package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rowjay/db-table-backup/internal/compress"
	"github.com/rowjay/db-table-backup/internal/cryptoutil"
	"github.com/rowjay/db-table-backup/internal/storage"
	"github.com/rowjay/db-table-backup/internal/util"
)

// UploadOptions control key layout and the optional stream transforms. The
// transforms only apply to the uploaded copy; local artifacts stay plain SQL.
type UploadOptions struct {
	Prefix        string
	Bucket        string
	Compression   string
	EncryptionKey []byte // nil disables encryption
}

func (o UploadOptions) transformed() bool {
	return compress.Extension(o.Compression) != "" || o.EncryptionKey != nil
}

type Uploader struct {
	store storage.Storage
	opts  UploadOptions
	log   zerolog.Logger
}

func NewUploader(store storage.Storage, opts UploadOptions, log zerolog.Logger) *Uploader {
	return &Uploader{store: store, opts: opts, log: log.With().Str("component", "uploader").Logger()}
}

// Key derives <prefix>/<run dir>/<database>/<artifact file>, plus the suffixes
// of any enabled transforms.
func (u *Uploader) Key(run *Run, database, localPath string) string {
	key := util.BuildObjectKey(u.opts.Prefix, run.Name(), database, filepath.Base(localPath))
	key += compress.Extension(u.opts.Compression)
	if u.opts.EncryptionKey != nil {
		key += cryptoutil.Extension
	}
	return key
}

// RunLocation describes where the objects of run end up.
func (u *Uploader) RunLocation(run *Run) string {
	return u.store.Location(util.BuildPrefix(u.opts.Prefix, run.Name()))
}

// Upload sends localPath to key and confirms the object landed. The local
// file is never modified.
func (u *Uploader) Upload(ctx context.Context, localPath, key string) UploadResult {
	res := UploadResult{Path: localPath, Key: key}
	if err := u.put(ctx, localPath, key); err != nil {
		res.Err = &UploadError{Bucket: u.opts.Bucket, Key: key, Err: err}
		return res
	}
	info, err := u.store.Stat(ctx, key)
	if err != nil {
		res.Err = &UploadError{Bucket: u.opts.Bucket, Key: key, Err: fmt.Errorf("verify stored object: %w", err)}
		return res
	}
	res.Size = info.Size
	res.Location = u.store.Location(key)
	u.log.Debug().Str("key", key).Str("location", res.Location).Int64("size", res.Size).Msg("object stored")
	return res
}

func (u *Uploader) put(ctx context.Context, localPath, key string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open artifact: %w", err)
	}
	defer file.Close()

	metadata := map[string]string{"tbu-source": filepath.Base(localPath)}

	if !u.opts.transformed() {
		info, err := file.Stat()
		if err != nil {
			return fmt.Errorf("stat artifact: %w", err)
		}
		return u.store.Put(ctx, key, file, info.Size(), metadata)
	}

	if u.opts.Compression != "" {
		metadata["tbu-compression"] = u.opts.Compression
	}
	if u.opts.EncryptionKey != nil {
		metadata["tbu-encryption"] = "dare"
	}

	pipeReader, pipeWriter := io.Pipe()
	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		defer pipeReader.Close()
		return u.store.Put(egCtx, key, pipeReader, -1, metadata)
	})

	eg.Go(func() error {
		if err := u.encode(pipeWriter, file); err != nil {
			_ = pipeWriter.CloseWithError(err)
			return err
		}
		return pipeWriter.Close()
	})

	return eg.Wait()
}

// encode writes src to dst compressed first and then encrypted. The chain
// is built from dst outwards and closed from the outermost writer in.
func (u *Uploader) encode(dst io.Writer, src io.Reader) error {
	writer := dst
	closers := []io.Closer{}

	if u.opts.EncryptionKey != nil {
		encWriter, err := cryptoutil.EncryptWriter(writer, u.opts.EncryptionKey)
		if err != nil {
			return err
		}
		writer = encWriter
		closers = append(closers, encWriter)
	}
	if compress.Extension(u.opts.Compression) != "" {
		compWriter, err := compress.WrapWriter(u.opts.Compression, writer)
		if err != nil {
			return err
		}
		writer = compWriter
		closers = append(closers, compWriter)
	}

	if _, err := io.Copy(writer, src); err != nil {
		return err
	}
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			return err
		}
	}
	return nil
}
