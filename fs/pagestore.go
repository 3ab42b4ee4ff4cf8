package fs

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/htmlinclude"
)

// Ensure FileStore implements htmlinclude.PageStore at compile time.
var _ htmlinclude.PageStore = (*FileStore)(nil)

// FileStore implements htmlinclude.PageStore with atomic update semantics.
// Pages are saved to a temporary directory and moved into place on Commit.
// Files whose content is unchanged are left alone, so their modification
// times survive a rebuild.
type FileStore struct {
	baseDir string
	name    string

	mu     sync.Mutex
	hashes map[string]uint64 // relative path → content hash
}

// NewFileStore creates a new FileStore.
// baseDir is the parent directory, name is the output directory name.
// Files are saved to baseDir/name.tmp and moved to baseDir/name on Commit.
func NewFileStore(baseDir, name string) *FileStore {
	return &FileStore{
		baseDir: baseDir,
		name:    name,
		hashes:  make(map[string]uint64),
	}
}

func (s *FileStore) tempDir() string {
	return filepath.Join(s.baseDir, s.name+".tmp")
}

func (s *FileStore) finalDir() string {
	return filepath.Join(s.baseDir, s.name)
}

func (s *FileStore) Save(ctx context.Context, page *htmlinclude.Page) error {
	relPath := filepath.FromSlash(page.Path)
	if !filepath.IsLocal(relPath) {
		return htmlinclude.Errorf(htmlinclude.EINVALID, "page path %q must be relative to the output directory", page.Path)
	}

	fullPath := filepath.Join(s.tempDir(), relPath)

	// Create parent directories
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return err
	}

	if err := os.WriteFile(fullPath, []byte(page.HTML), 0644); err != nil {
		return err
	}

	s.mu.Lock()
	s.hashes[relPath] = xxhash.Sum64String(page.HTML)
	s.mu.Unlock()
	return nil
}

// Commit publishes staged pages in path order. Commit is not atomic across
// pages: if a move fails, pages before it are already published and the rest
// stay staged, so Commit can be called again once the cause is fixed.
func (s *FileStore) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, relPath := range slices.Sorted(maps.Keys(s.hashes)) {
		if err := s.publish(relPath, s.hashes[relPath]); err != nil {
			return fmt.Errorf("publishing %s: %w", filepath.ToSlash(relPath), err)
		}
		delete(s.hashes, relPath)
	}

	return os.RemoveAll(s.tempDir())
}

// publish moves one staged page into the output directory unless the file
// already there has the same content.
func (s *FileStore) publish(relPath string, hash uint64) error {
	dst := filepath.Join(s.finalDir(), relPath)

	if existing, err := os.ReadFile(dst); err == nil && xxhash.Sum64(existing) == hash {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	return os.Rename(filepath.Join(s.tempDir(), relPath), dst)
}

func (s *FileStore) Abort() error {
	s.mu.Lock()
	clear(s.hashes)
	s.mu.Unlock()

	return os.RemoveAll(s.tempDir())
}
