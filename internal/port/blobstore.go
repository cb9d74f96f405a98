package port

import "io"

// BlobStore is uniform access to named byte blobs and directory trees.
// Keys are slash-separated hierarchical paths; implementations map them
// onto a local filesystem root, a mounted network path, or an object
// store. Callers never branch on backend type. Directory creation is
// implicit and idempotent.
type BlobStore interface {
	// Put writes one blob atomically (no partial file is ever visible at
	// the final key) and returns its backend location.
	Put(key string, r io.Reader) (string, error)

	// PutTree writes a set of files under rootKey and returns the tree's
	// backend location. Paths in files are relative to rootKey.
	PutTree(rootKey string, files map[string]io.Reader) (string, error)

	Get(key string) ([]byte, error)

	// Open streams a blob for delivery.
	Open(key string) (io.ReadSeekCloser, error)

	// List returns the keys under prefix, sorted.
	List(prefix string) ([]string, error)

	Delete(key string) error
	DeleteTree(prefix string) error
}
