// Package storage holds the blob storage used for profile photos. Photos are
// write-once: the service uploads them and hands public URLs back, it never
// reads them again.
package storage

import "context"

// FileStore uploads a blob under a key derived from keyPrefix and returns the
// public URL the blob is reachable at.
type FileStore interface {
	Upload(ctx context.Context, data []byte, contentType, keyPrefix string) (string, error)
}
