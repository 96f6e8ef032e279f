package attachment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/praveenrathi4/complain-app/internal/domain"
)

// DiskStore writes blobs under a local directory.
type DiskStore struct {
	dir       string
	publicURL string
	now       func() time.Time
}

// NewDiskStore creates dir if needed.
func NewDiskStore(dir, publicURL string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskStore{dir: dir, publicURL: strings.TrimRight(publicURL, "/"), now: time.Now}, nil
}

// Dir returns the storage directory.
func (s *DiskStore) Dir() string { return s.dir }

func (s *DiskStore) Put(ctx context.Context, file Inspected) (domain.Attachment, error) {
	if err := ctx.Err(); err != nil {
		return domain.Attachment{}, err
	}
	id := uuid.NewString()
	filename := id + file.MIME.Extension()

	src, err := file.Open()
	if err != nil {
		return domain.Attachment{}, err
	}
	defer src.Close()

	dst, err := os.OpenFile(filepath.Join(s.dir, filename), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return domain.Attachment{}, err
	}
	written, err := io.Copy(dst, io.LimitReader(src, MaxFileSize+1))
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err == nil && written > MaxFileSize {
		err = fmt.Errorf("%s exceeds the size limit", file.OriginalName)
	}
	if err != nil {
		_ = os.Remove(filepath.Join(s.dir, filename))
		return domain.Attachment{}, err
	}

	return domain.Attachment{
		ID:           id,
		Filename:     filename,
		OriginalName: file.OriginalName,
		MimeType:     file.MIME.String(),
		Size:         written,
		URL:          s.publicURL + "/" + filename,
		UploadedAt:   s.now().UTC(),
	}, nil
}

// Open streams a stored blob. Only bare filenames are accepted.
func (s *DiskStore) Open(_ context.Context, filename string) (*Blob, error) {
	if filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		return nil, ErrNotFound
	}
	path := filepath.Join(s.dir, filename)
	mime, err := mimetype.DetectFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("detect %s: %w", filename, err)
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Blob{ReadCloser: f, Filename: filename, MimeType: mime.String(), Size: info.Size()}, nil
}
