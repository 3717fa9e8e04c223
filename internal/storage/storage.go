// Package storage provides access to the bucket holding the raw audio
// corpus. It defines the ObjectStore interface (port) and an S3-compatible
// implementation used against the dataset bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Object is an immutable record describing one stored item.
type Object struct {
	// Key is the full object name within the bucket.
	Key string
	// Size is the object's size in bytes.
	Size int64
}

// ObjectStore defines the bucket operations the pipeline needs.
// Implementations are constructed once at process start and passed to each
// stage; there is no package-level client.
type ObjectStore interface {
	// List enumerates objects under prefix, in lexical key order, skipping
	// zero-byte directory markers. limit > 0 caps the number of objects
	// returned (for testing); limit <= 0 means no cap.
	List(ctx context.Context, prefix string, limit int) ([]Object, error)

	// Copy performs a server-side copy from srcKey to dstKey within the
	// same bucket. Existing destinations are overwritten.
	Copy(ctx context.Context, srcKey, dstKey string) error

	// Download streams the object at key into w.
	Download(ctx context.Context, key string, w io.Writer) (int64, error)

	// Bucket returns the bucket name this store operates on.
	Bucket() string
}

// ErrBadURI is returned when an object URI cannot be parsed.
var ErrBadURI = errors.New("storage: malformed object URI")

// URI renders a bucket/key pair as a gs:// identifier, the form used in
// manifests and dataset CSVs.
func URI(bucket, key string) string {
	return fmt.Sprintf("gs://%s/%s", bucket, key)
}

// ParseURI splits a gs:// or s3:// identifier into bucket and key.
func ParseURI(uri string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(uri, "gs://")
	if !ok {
		rest, ok = strings.CutPrefix(uri, "s3://")
	}
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrBadURI, uri)
	}

	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("%w: %q", ErrBadURI, uri)
	}
	return bucket, key, nil
}

// NormalizePrefix ensures a non-empty prefix ends with a separator, the
// form List and the chunk planner expect.
func NormalizePrefix(prefix string) string {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		return prefix + "/"
	}
	return prefix
}
