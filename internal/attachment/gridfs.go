package attachment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/praveenrathi4/complain-app/internal/domain"
)

const gridFSTimeout = 30 * time.Second

// GridFSStore keeps blobs in a MongoDB GridFS bucket.
type GridFSStore struct {
	bucket    *gridfs.Bucket
	publicURL string
	now       func() time.Time
}

// NewGridFSStore opens the named bucket.
func NewGridFSStore(db *mongo.Database, bucketName, publicURL string) (*GridFSStore, error) {
	bucket, err := gridfs.NewBucket(db, options.GridFSBucket().SetName(bucketName))
	if err != nil {
		return nil, fmt.Errorf("open gridfs bucket: %w", err)
	}
	return &GridFSStore{bucket: bucket, publicURL: strings.TrimRight(publicURL, "/"), now: time.Now}, nil
}

type blobMetadata struct {
	ID           string `bson:"attachmentId"`
	OriginalName string `bson:"originalName"`
	MimeType     string `bson:"mimeType"`
}

func deadline(ctx context.Context) time.Time {
	if d, ok := ctx.Deadline(); ok {
		return d
	}
	return time.Now().Add(gridFSTimeout)
}

func (s *GridFSStore) Put(ctx context.Context, file Inspected) (domain.Attachment, error) {
	id := uuid.NewString()
	filename := id + file.MIME.Extension()

	src, err := file.Open()
	if err != nil {
		return domain.Attachment{}, err
	}
	defer src.Close()

	if err := s.bucket.SetWriteDeadline(deadline(ctx)); err != nil {
		return domain.Attachment{}, err
	}
	meta := blobMetadata{ID: id, OriginalName: file.OriginalName, MimeType: file.MIME.String()}
	opts := options.GridFSUpload().SetMetadata(meta)
	if _, err := s.bucket.UploadFromStream(filename, io.LimitReader(src, MaxFileSize), opts); err != nil {
		return domain.Attachment{}, fmt.Errorf("gridfs upload: %w", err)
	}

	return domain.Attachment{
		ID:           id,
		Filename:     filename,
		OriginalName: file.OriginalName,
		MimeType:     meta.MimeType,
		Size:         file.Size,
		URL:          s.publicURL + "/" + filename,
		UploadedAt:   s.now().UTC(),
	}, nil
}

// Open streams a stored blob by its filename.
func (s *GridFSStore) Open(ctx context.Context, filename string) (*Blob, error) {
	if err := s.bucket.SetReadDeadline(deadline(ctx)); err != nil {
		return nil, err
	}
	stream, err := s.bucket.OpenDownloadStreamByName(filename)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("gridfs open: %w", err)
	}
	file := stream.GetFile()
	var meta blobMetadata
	if len(file.Metadata) > 0 {
		_ = bson.Unmarshal(file.Metadata, &meta)
	}
	return &Blob{ReadCloser: stream, Filename: file.Name, MimeType: meta.MimeType, Size: file.Length}, nil
}
