package ports

import (
	"context"
	"io"
	"time"
)

// Buckets used by the bot.
const (
	BucketInstructions  = "order-instructions"
	BucketPaymentProofs = "payment-proofs"
)

// FileStore is the blob store files are re-uploaded into.
type FileStore interface {
	// Put stores body under bucket/key and returns the stored path.
	Put(ctx context.Context, bucket, key, contentType string, body io.Reader, size int64) (string, error)
}

// FetchedFile is a downloaded chat attachment. Body must be closed.
type FetchedFile struct {
	Body        io.ReadCloser
	Size        int64
	ContentType string
}

// FileFetcher downloads a file from a chat-platform URL.
type FileFetcher interface {
	Fetch(ctx context.Context, url string) (*FetchedFile, error)
}

// UpdateDeduper remembers which inbound updates were fully processed.
type UpdateDeduper interface {
	Seen(ctx context.Context, updateID int) (bool, error)
	MarkProcessed(ctx context.Context, updateID int, ttl time.Duration) error
}
