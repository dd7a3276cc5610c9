package service

import (
	"context"
	"io"
)

// EvidenceStorage stores evidence binaries (receipts, delivery photos) and
// hands back opaque references. Only references are persisted on entities.
type EvidenceStorage interface {
	Put(ctx context.Context, r io.Reader, contentType, folder string) (string, error)
	Delete(ctx context.Context, ref string) error
}
