package cache

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zeebo/blake3"
)

// Cache lays out per-package output directories under a root
type Cache struct {
	root string
}

// New returns a cache rooted at root, or at ~/.bg3pak/cache when root is empty
func New(root string) *Cache {
	if root == "" {
		root = DefaultRoot()
	}
	return &Cache{root: root}
}

// DefaultRoot returns the default cache directory
func DefaultRoot() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".bg3pak", "cache")
	}
	return filepath.Join(homeDir, ".bg3pak", "cache")
}

// Root returns the cache root directory
func (c *Cache) Root() string {
	return c.root
}

// PackageDir returns the directory for a package. Packages with the same
// base name in different locations get different directories.
func (c *Cache) PackageDir(pkgPath string) string {
	abs, err := filepath.Abs(pkgPath)
	if err != nil {
		abs = pkgPath
	}
	base := strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs))
	sum := blake3.Sum256([]byte(abs))
	return filepath.Join(c.root, fmt.Sprintf("%s-%s", base, hex.EncodeToString(sum[:4])))
}

// EntryPath maps an entry name inside dir. Names that would escape dir are rejected.
func EntryPath(dir, entry string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(entry))
	if clean == "." || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("entry name %q escapes output directory", entry)
	}
	return filepath.Join(dir, clean), nil
}

// EnsureDir creates a directory and all parent directories
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}

// Hash returns the hex blake3 digest of data
func Hash(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Unchanged reports whether the file at path exists and hashes to digest
func Unchanged(path, digest string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return Hash(data) == digest
}

// WriteFile writes data to path, creating parent directories
func WriteFile(path string, data []byte) error {
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
