// Package storage abstracts object storage for uploaded learning resources.
//
// Two backends implement the Storage interface: LocalStorage writes to a
// directory on disk for development, and R2Storage targets a Cloudflare R2
// bucket for production. Both share the key layout produced by the helpers
// at the bottom of this file, so resources can move between backends.
package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Storage is the object store used for resource files and thumbnails.
// Every method honors context cancellation.
type Storage interface {
	// Put stores data at key. Without Overwrite, a key that already holds
	// an object yields ErrKeyExists.
	Put(ctx context.Context, key string, data io.Reader, opts PutOptions) error

	// Get opens the object at key for reading. The caller closes the
	// returned reader. A missing key yields ErrNotFound.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)

	// Delete removes the object at key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error

	// URL returns a URL for the object: permanent for public objects,
	// presigned for the given duration otherwise.
	URL(ctx context.Context, key string, expires time.Duration) (string, error)

	// Exists reports whether an object is stored at key.
	Exists(ctx context.Context, key string) (bool, error)
}

// PutOptions controls a single Put call.
type PutOptions struct {
	// ContentType is the MIME type to record. Empty means detect it from
	// the key's extension.
	ContentType string

	// MaxSize caps the object size in bytes; larger input yields
	// ErrTooLarge. Zero disables the cap.
	MaxSize int64

	// Overwrite permits replacing an object already stored at the key.
	Overwrite bool

	// Public marks the object world-readable. R2 applies a public-read
	// ACL; local storage serves everything it holds regardless.
	Public bool
}

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
	ETag         string
}

// LocalConfig configures filesystem storage.
type LocalConfig struct {
	// BasePath is the directory objects are written under, for example
	// "/var/lib/translearn/files".
	BasePath string

	// BaseURL is the URL prefix the server mounts the directory at, for
	// example "http://localhost:8080/files".
	BaseURL string
}

// R2Config configures Cloudflare R2 storage.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string

	// PublicURL is the bucket's custom domain, for example
	// "https://files.translearn.app". When empty, all access goes
	// through presigned URLs.
	PublicURL string

	// Region is passed to the AWS SDK. R2 accepts "auto", which is the
	// default when empty.
	Region string
}

// Storage provider names as they appear in configuration.
const (
	ProviderLocal = "local"
	ProviderR2    = "r2"
)

// ResourceFileKey builds the storage key for an uploaded resource file:
// resources/{resourceID}/files/{uuid}{ext}. A fresh UUID per upload keeps
// re-uploads of the same filename from colliding.
func ResourceFileKey(resourceID uuid.UUID, filename string) string {
	ext := filepath.Ext(filename)
	return fmt.Sprintf("resources/%s/files/%s%s", resourceID, uuid.New(), ext)
}

// ResourceThumbnailKey builds the storage key for a resource thumbnail.
// Thumbnails are re-encoded as JPEG whatever the source format.
func ResourceThumbnailKey(resourceID uuid.UUID) string {
	return fmt.Sprintf("resources/%s/thumbnails/%s.jpg", resourceID, uuid.New())
}
