// Package docstore stages uploaded source documents and their parsed
// markdown. Backends cover a local directory and an S3-compatible bucket;
// Cached wraps either with an in-memory LRU for repeat reads.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
)

// Store persists staged objects under flat keys produced by SafeKey.
type Store interface {
	Put(ctx context.Context, key string, content []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
}

// ErrNotFound reports a missing staged object.
var ErrNotFound = errors.New("docstore: object not found")

// Keys are flat: no separators, no traversal. The file backend joins keys
// directly under its root, so this is load-bearing.
var keyRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("docstore: key is required")
	}
	if !keyRe.MatchString(key) {
		return fmt.Errorf("docstore: invalid key %q", key)
	}
	return nil
}

func contentTypeFor(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".md":
		return "text/markdown"
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}
