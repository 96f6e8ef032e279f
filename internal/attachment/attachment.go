// Package attachment validates uploaded files and stores them as opaque
// blobs, returning references that complaints keep.
package attachment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/gabriel-vasile/mimetype"

	"github.com/praveenrathi4/complain-app/internal/domain"
	apperrors "github.com/praveenrathi4/complain-app/pkg/util/errorutil"
)

const (
	// MaxFiles is the most attachments one complaint may carry.
	MaxFiles = 5
	// MaxFileSize is the per-file upper bound in bytes.
	MaxFileSize int64 = 5 << 20
)

// AllowedTypes are the accepted content types, matched on sniffed bytes.
var AllowedTypes = []string{"image/jpeg", "image/png", "image/gif", "application/pdf", "text/plain"}

// ErrNotFound is returned when a stored blob does not exist.
var ErrNotFound = errors.New("attachment not found")

// Upload is one incoming file.
type Upload struct {
	OriginalName string
	Size         int64
	Open         func() (io.ReadCloser, error)
}

// FromFileHeaders adapts multipart form files.
func FromFileHeaders(headers []*multipart.FileHeader) []Upload {
	uploads := make([]Upload, 0, len(headers))
	for _, fh := range headers {
		fh := fh
		uploads = append(uploads, Upload{
			OriginalName: fh.Filename,
			Size:         fh.Size,
			Open:         func() (io.ReadCloser, error) { return fh.Open() },
		})
	}
	return uploads
}

// Inspected is an Upload whose content type has been sniffed.
type Inspected struct {
	Upload
	MIME *mimetype.MIME
}

// Store persists blobs.
type Store interface {
	Put(ctx context.Context, file Inspected) (domain.Attachment, error)
}

// Blob is a stored file opened for reading.
type Blob struct {
	io.ReadCloser
	Filename string
	MimeType string
	Size     int64
}

// Opener is implemented by stores that serve their own blobs.
type Opener interface {
	Open(ctx context.Context, id string) (*Blob, error)
}

// Inspect checks size limits and sniffs the content type of every upload.
// Nothing is stored unless the whole batch is acceptable.
func Inspect(uploads []Upload) ([]Inspected, error) {
	if len(uploads) > MaxFiles {
		return nil, apperrors.NewFieldValidationError("attachments", fmt.Sprintf("attachments cannot contain more than %d items", MaxFiles))
	}
	out := make([]Inspected, 0, len(uploads))
	for _, u := range uploads {
		if u.Size > MaxFileSize {
			return nil, apperrors.NewFieldValidationError("attachments", fmt.Sprintf("%s exceeds the 5MB limit", u.OriginalName))
		}
		detected, err := sniff(u)
		if err != nil {
			return nil, err
		}
		if !allowed(detected) {
			return nil, apperrors.NewFieldValidationError("attachments",
				fmt.Sprintf("Invalid file type for %s. Only images, PDFs, and text files are allowed.", u.OriginalName))
		}
		out = append(out, Inspected{Upload: u, MIME: detected})
	}
	return out, nil
}

// SaveAll inspects then stores a batch of uploads.
func SaveAll(ctx context.Context, store Store, uploads []Upload) ([]domain.Attachment, error) {
	if len(uploads) == 0 {
		return []domain.Attachment{}, nil
	}
	inspected, err := Inspect(uploads)
	if err != nil {
		return nil, err
	}
	saved := make([]domain.Attachment, 0, len(inspected))
	for _, file := range inspected {
		att, err := store.Put(ctx, file)
		if err != nil {
			return nil, fmt.Errorf("store %s: %w", file.OriginalName, err)
		}
		saved = append(saved, att)
	}
	return saved, nil
}

func sniff(u Upload) (*mimetype.MIME, error) {
	rc, err := u.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", u.OriginalName, err)
	}
	defer rc.Close()
	detected, err := mimetype.DetectReader(rc)
	if err != nil {
		return nil, fmt.Errorf("sniff %s: %w", u.OriginalName, err)
	}
	return detected, nil
}

func allowed(m *mimetype.MIME) bool {
	for _, t := range AllowedTypes {
		if m.Is(t) {
			return true
		}
	}
	return false
}
