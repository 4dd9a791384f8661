// Package services implements the record, reconciliation and statistics
// operations on top of the repository and the two image stores.
package services

import (
	"context"
	"time"

	"equiptrack/internal/blob"
)

// timeNow is replaceable in tests.
var timeNow = time.Now

// BlobStore is the object-store surface the services need.
type BlobStore interface {
	Upload(ctx context.Context, data []byte, namespace string, seq int, subtype string) (*blob.UploadResult, error)
	PublicURL(key string) string
	Ready(ctx context.Context) bool
}

// LocalFiles is the local fallback surface the services need.
type LocalFiles interface {
	Exists(key string) bool
	Delete(key string) bool
}

// Pinger reports backing-store reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}
