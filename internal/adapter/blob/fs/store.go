// Package fs maps the blob store contract onto a filesystem root. The same
// implementation serves local disk and network-attached mounts; only the
// root differs, so pipeline code never branches on backend type.
package fs

import (
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/streamhive/streamhive/internal/domain"
	"github.com/streamhive/streamhive/internal/port"
)

type Store struct {
	root string
}

// NewLocal opens a blob store rooted at a local directory, creating it if
// absent.
func NewLocal(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Store{root: root}, nil
}

// NewMount opens a blob store on an existing mount point. Unlike NewLocal
// it refuses to create the root: silently writing into an unmounted path
// would scatter output across the local disk.
func NewMount(mountPoint string) (*Store, error) {
	info, err := os.Stat(mountPoint)
	if err != nil {
		return nil, fmt.Errorf("stat mount point: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("mount point %s is not a directory", mountPoint)
	}
	return &Store{root: mountPoint}, nil
}

func (s *Store) Root() string {
	return s.root
}

func (s *Store) resolve(key string) (string, error) {
	if key == "" {
		return "", &domain.StorageError{Op: "resolve", Key: key, Err: errors.New("empty key")}
	}
	// Keys are built from tokens and fixed names; a parent reference is
	// never legitimate and would let one key address another token's tree.
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return "", &domain.StorageError{Op: "resolve", Key: key, Err: errors.New("parent reference in key")}
		}
	}
	clean := filepath.Clean(filepath.FromSlash(key))
	if filepath.IsAbs(clean) {
		return "", &domain.StorageError{Op: "resolve", Key: key, Err: errors.New("key escapes storage root")}
	}
	return filepath.Join(s.root, clean), nil
}

// Put writes one blob via a temp file plus rename so no partial content is
// ever visible at the final key. Parent directories are created as needed.
func (s *Store) Put(key string, r io.Reader) (string, error) {
	path, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", mapErr("put", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".put-*")
	if err != nil {
		return "", mapErr("put", key, err)
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return "", mapErr("put", key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", mapErr("put", key, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return "", mapErr("put", key, err)
	}
	return path, nil
}

func (s *Store) PutTree(rootKey string, files map[string]io.Reader) (string, error) {
	rootPath, err := s.resolve(rootKey)
	if err != nil {
		return "", err
	}
	for rel, r := range files {
		if _, err := s.Put(rootKey+"/"+rel, r); err != nil {
			return "", err
		}
	}
	return rootPath, nil
}

func (s *Store) Get(key string) ([]byte, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, mapErr("get", key, err)
	}
	return data, nil
}

func (s *Store) Open(key string) (io.ReadSeekCloser, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, mapErr("open", key, err)
	}
	return f, nil
}

func (s *Store) List(prefix string) ([]string, error) {
	path, err := s.resolve(prefix)
	if err != nil {
		return nil, err
	}

	var keys []string
	walkErr := filepath.WalkDir(path, func(p string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if walkErr != nil {
		return nil, mapErr("list", prefix, walkErr)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) Delete(key string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return mapErr("delete", key, err)
	}
	return nil
}

func (s *Store) DeleteTree(prefix string) error {
	path, err := s.resolve(prefix)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(path); err != nil {
		return mapErr("delete-tree", prefix, err)
	}
	return nil
}

// mapErr translates OS errors into the storage taxonomy: missing keys are
// ErrNotFound, a full target is ErrCapacityExceeded (fatal, never retried),
// everything else is a retryable I/O failure.
func mapErr(op, key string, err error) error {
	switch {
	case errors.Is(err, iofs.ErrNotExist):
		return domain.ErrNotFound
	case errors.Is(err, syscall.ENOSPC) || errors.Is(err, syscall.EDQUOT):
		return &domain.StorageError{Op: op, Key: key, Err: domain.ErrCapacityExceeded, Retryable: false}
	default:
		return &domain.StorageError{Op: op, Key: key, Err: err, Retryable: true}
	}
}

var _ port.BlobStore = (*Store)(nil)
