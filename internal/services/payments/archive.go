package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"

	"github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/domain/enums"
)

// S3Archive keeps a copy of every verification verdict in object storage, so
// a disputed purchase can be audited long after the ledger row was written.
type S3Archive struct {
	client *minio.Client
	bucket string

	ensureOnce sync.Once
	ensureErr  error
}

func NewS3Archive(client *minio.Client, bucket string) *S3Archive {
	return &S3Archive{
		client: client,
		bucket: strings.TrimSpace(bucket),
	}
}

func (a *S3Archive) EnsureBucket(ctx context.Context) error {
	if a.client == nil {
		return fmt.Errorf("s3 client is nil")
	}
	if a.bucket == "" {
		return fmt.Errorf("s3 bucket is empty")
	}

	a.ensureOnce.Do(func() {
		exists, err := a.client.BucketExists(ctx, a.bucket)
		if err != nil {
			a.ensureErr = err
			return
		}
		if exists {
			return
		}
		a.ensureErr = a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{})
	})

	if a.ensureErr != nil {
		return fmt.Errorf("ensure s3 bucket %q: %w", a.bucket, a.ensureErr)
	}

	return nil
}

// StoreVerdict writes the verdict under receipts/<provider>/<hash>.json.
// Objects are never overwritten with different content in practice: the hash
// is the dedup key, so a second write for the same receipt carries the same
// verdict.
func (a *S3Archive) StoreVerdict(ctx context.Context, provider enums.PaymentProvider, receiptHash string, verdict map[string]any) error {
	if a.client == nil {
		return fmt.Errorf("s3 client is nil")
	}
	if receiptHash == "" {
		return fmt.Errorf("receipt hash is empty")
	}

	payload, err := json.Marshal(verdict)
	if err != nil {
		return fmt.Errorf("marshal verdict: %w", err)
	}

	key := fmt.Sprintf("receipts/%s/%s.json", provider, receiptHash)
	_, err = a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(payload), int64(len(payload)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("put verdict to s3: %w", err)
	}

	return nil
}
