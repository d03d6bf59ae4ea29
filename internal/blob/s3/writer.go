package s3blob

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/alanyoungcy/flipbot/internal/domain"
)

// minPartSize is the S3 minimum multipart part size (5 MiB).
const minPartSize int64 = 5 * 1024 * 1024

// Writer implements domain.BlobWriter.
type Writer struct {
	c *Client
}

// NewWriter creates a Writer over c's bucket and prefix.
func NewWriter(c *Client) *Writer {
	return &Writer{c: c}
}

// Put uploads data to path. Bodies that fit in one part go through a
// single PutObject; larger ones (a busy identity cache snapshot) use the
// multipart upload manager.
func (w *Writer) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	if br, ok := data.(*bytes.Reader); ok && br.Size() < minPartSize {
		_, err := w.c.S3().PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(w.c.Bucket()),
			Key:         aws.String(w.c.ObjectKey(path)),
			Body:        data,
			ContentType: aws.String(contentType),
		})
		if err != nil {
			return fmt.Errorf("s3blob: put object %s: %w", path, err)
		}
		return nil
	}
	return w.PutMultipart(ctx, path, data, contentType, minPartSize)
}

// PutMultipart uploads data in parts of partSize bytes, clamped to the S3
// minimum.
func (w *Writer) PutMultipart(ctx context.Context, path string, data io.Reader, contentType string, partSize int64) error {
	if partSize < minPartSize {
		partSize = minPartSize
	}

	uploader := manager.NewUploader(w.c.S3(), func(u *manager.Uploader) {
		u.PartSize = partSize
	})
	_, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(w.c.Bucket()),
		Key:         aws.String(w.c.ObjectKey(path)),
		Body:        data,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("s3blob: multipart upload %s: %w", path, err)
	}
	return nil
}

var _ domain.BlobWriter = (*Writer)(nil)
