package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"unicode/utf8"

	"github.com/openpim/catalog-bulk/internal/storage"
	"github.com/openpim/catalog-bulk/internal/store/model"
	"github.com/openpim/catalog-bulk/internal/tabular"
)

// Upload is a file handed in by a caller. Content is read once.
type Upload struct {
	Name    string
	Content io.Reader
}

// Download is a file handed back to a caller, who must close Body.
type Download struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.ReadCloser
}

// spooled keeps an upload in a temp file so it can be read more than once.
type spooled struct {
	name string
	file *os.File
	size int64
}

func spool(u Upload) (*spooled, error) {
	if u.Content == nil {
		return nil, NewErrInvalidRequest("no file content")
	}
	if _, err := tabular.DetectFormat(u.Name, ""); err != nil {
		return nil, NewErrFileFormat(err)
	}
	f, err := os.CreateTemp("", "catalog-bulk-upload-*")
	if err != nil {
		return nil, err
	}
	size, err := io.Copy(f, u.Content)
	if err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return nil, err
	}
	return &spooled{name: path.Base(u.Name), file: f, size: size}, nil
}

// open rewinds the spool and opens a fresh reader over it.
func (s *spooled) open(opts tabular.Options) (tabular.Reader, error) {
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	rd, err := tabular.Open(s.file, s.name, "", opts)
	if err != nil {
		return nil, asFileFormatError(err)
	}
	return rd, nil
}

func (s *spooled) rewind() (io.Reader, error) {
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return s.file, nil
}

func (s *spooled) Close() error {
	err := s.file.Close()
	if rmErr := os.Remove(s.file.Name()); rmErr != nil && err == nil {
		err = rmErr
	}
	return err
}

func asFileFormatError(err error) error {
	if errors.Is(err, tabular.ErrFileFormat) {
		return NewErrFileFormat(err)
	}
	return err
}

func readerOptions(opts model.ImportOptions) (tabular.Options, error) {
	ro := tabular.Options{NoHeader: !opts.SkipHeader, Encoding: opts.Encoding}
	if opts.Delimiter != "" {
		r, size := utf8.DecodeRuneInString(opts.Delimiter)
		if size != len(opts.Delimiter) || r == utf8.RuneError {
			return ro, NewErrInvalidRequest("delimiter must be a single character, got %q", opts.Delimiter)
		}
		ro.Delimiter = r
	}
	return ro, nil
}

func importKey(job *model.ImportJob) string {
	return fmt.Sprintf("imports/%s/%s", job.ID, job.FileName)
}

func exportKey(job *model.ExportJob) string {
	return fmt.Sprintf("exports/%s/%s", job.ID, job.FileName)
}

// deleteBlob is best effort, a leftover blob is only wasted space.
func deleteBlob(ctx context.Context, blob storage.Blob, key string) error {
	if key == "" {
		return nil
	}
	return blob.Delete(context.WithoutCancel(ctx), key)
}
