package blockstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore is the reference blockstore.Store implementation: content
// blobs live under <dir>/blocks/<id>.blob, heads under
// <dir>/heads/<node_id>, and named refs under <dir>/refs/<name>. Grounded
// on a plain local-filesystem content-addressed layout; it exists for the
// package's own tests and as a worked example, not as a production
// transport.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore returns a FileStore rooted at dir, creating its
// subdirectories if needed.
func NewFileStore(dir string) (*FileStore, error) {
	fs := &FileStore{dir: dir}
	for _, sub := range []string{"blocks", "heads", "refs"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0700); err != nil {
			return nil, fmt.Errorf("blockstore: create %s: %w", sub, err)
		}
	}
	return fs, nil
}

func (fs *FileStore) blockPath(id string) string {
	return filepath.Join(fs.dir, "blocks", id+".blob")
}

func (fs *FileStore) headPath(nodeID string) string {
	return filepath.Join(fs.dir, "heads", nodeID)
}

func (fs *FileStore) refPath(ref Ref) string {
	return filepath.Join(fs.dir, "refs", string(ref))
}

func (fs *FileStore) Put(_ context.Context, blockBytes []byte) (string, error) {
	id := contentID(blockBytes)

	fs.mu.Lock()
	defer fs.mu.Unlock()

	path := fs.blockPath(id)
	if _, err := os.Stat(path); err == nil {
		return id, nil
	}
	if err := os.WriteFile(path, blockBytes, 0600); err != nil {
		return "", fmt.Errorf("blockstore: write block %s: %w", id, err)
	}
	return id, nil
}

func (fs *FileStore) Get(_ context.Context, blockID string) ([]byte, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := os.ReadFile(fs.blockPath(blockID))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("blockstore: read block %s: %w", blockID, err)
	}
	return data, nil
}

func (fs *FileStore) ListHeads(_ context.Context) (map[string]string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	entries, err := os.ReadDir(filepath.Join(fs.dir, "heads"))
	if err != nil {
		return nil, fmt.Errorf("blockstore: list heads: %w", err)
	}

	heads := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(fs.dir, "heads", e.Name()))
		if err != nil {
			return nil, fmt.Errorf("blockstore: read head %s: %w", e.Name(), err)
		}
		heads[e.Name()] = string(data)
	}
	return heads, nil
}

func (fs *FileStore) SetHead(_ context.Context, nodeID, blockID, expectedPrev string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	path := fs.headPath(nodeID)
	current, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		if expectedPrev != "" {
			return ErrConflict
		}
	case err != nil:
		return fmt.Errorf("blockstore: read head %s: %w", nodeID, err)
	default:
		if string(current) != expectedPrev {
			return ErrConflict
		}
	}

	if err := os.WriteFile(path, []byte(blockID), 0600); err != nil {
		return fmt.Errorf("blockstore: write head %s: %w", nodeID, err)
	}
	return nil
}

func (fs *FileStore) Named(_ context.Context, ref Ref) (string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := os.ReadFile(fs.refPath(ref))
	if os.IsNotExist(err) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("blockstore: read ref %s: %w", ref, err)
	}
	return string(data), nil
}

func (fs *FileStore) SetNamed(_ context.Context, ref Ref, blockID string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := os.WriteFile(fs.refPath(ref), []byte(blockID), 0600); err != nil {
		return fmt.Errorf("blockstore: write ref %s: %w", ref, err)
	}
	return nil
}
