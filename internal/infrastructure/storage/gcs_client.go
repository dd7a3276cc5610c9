package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"unimarket/pkg/errors"
)

// CloudStorageClient stores evidence binaries in GCS and hands back object
// references of the form gs://<bucket>/<object>.
type CloudStorageClient struct {
	client     *storage.Client
	bucketName string
}

func NewCloudStorageClient(ctx context.Context, bucketName string, opts ...option.ClientOption) (*CloudStorageClient, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &CloudStorageClient{
		client:     client,
		bucketName: bucketName,
	}, nil
}

func (c *CloudStorageClient) Put(ctx context.Context, r io.Reader, contentType, folder string) (string, error) {
	ext := extensionForContentType(contentType)
	objectName := fmt.Sprintf("%s/%s%s", strings.Trim(folder, "/"), uuid.New().String(), ext)

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	w := c.client.Bucket(c.bucketName).Object(objectName).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return "", errors.Unavailable("Failed to upload evidence object", err)
	}
	if err := w.Close(); err != nil {
		return "", errors.Unavailable("Failed to finalize evidence object", err)
	}

	return fmt.Sprintf("gs://%s/%s", c.bucketName, objectName), nil
}

func (c *CloudStorageClient) Delete(ctx context.Context, ref string) error {
	objectName, err := c.objectName(ref)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := c.client.Bucket(c.bucketName).Object(objectName).Delete(ctx); err != nil {
		if err == storage.ErrObjectNotExist {
			return nil
		}
		return errors.Unavailable("Failed to delete evidence object", err)
	}
	return nil
}

func (c *CloudStorageClient) Close() error {
	return c.client.Close()
}

func (c *CloudStorageClient) objectName(ref string) (string, error) {
	prefix := fmt.Sprintf("gs://%s/", c.bucketName)
	if !strings.HasPrefix(ref, prefix) {
		return "", errors.BadRequest("Invalid evidence reference", nil)
	}
	return strings.TrimPrefix(ref, prefix), nil
}

func extensionForContentType(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "application/pdf":
		return ".pdf"
	default:
		return ""
	}
}
