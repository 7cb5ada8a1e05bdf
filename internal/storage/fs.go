package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/starford/tortoise/internal/apperr"
	"github.com/starford/tortoise/internal/models"
	"github.com/starford/tortoise/internal/parser"
)

const (
	// Ext is the extension of account and portfolio files.
	Ext = ".yaml"
	// PortfolioDir holds portfolio definitions, relative to the root.
	PortfolioDir = "portfolios"
)

// FS implements Provider backed by the local file system.
type FS struct {
	root string // absolute path to the accounts directory
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute storage root.
func (f *FS) Root() string { return f.root }

// ValidName rejects account names that cannot be used as a file stem.
func ValidName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: empty name", apperr.ErrInvalidName)
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("%w: %q starts with a dot", apperr.ErrInvalidName, name)
	case strings.ContainsAny(name, `/\`+"\x00"):
		return fmt.Errorf("%w: %q contains a path separator", apperr.ErrInvalidName, name)
	}
	return nil
}

// FileName returns the file name an account is stored under.
func FileName(name string) string { return name + Ext }

// NameFromPath returns the account name for a path relative to the root, or
// false when the path is not a top-level account file.
func NameFromPath(rel string) (string, bool) {
	rel = filepath.ToSlash(filepath.Clean(rel))
	if strings.Contains(rel, "/") || !strings.HasSuffix(rel, Ext) {
		return "", false
	}
	name := strings.TrimSuffix(rel, Ext)
	if ValidName(name) != nil {
		return "", false
	}
	return name, true
}

// safePath resolves a relative path against the root and rejects any result
// that escapes it (directory traversal).
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	joined := filepath.Join(f.root, cleaned)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("storage: path escapes root: %s", rel)
	}
	return abs, nil
}

func (f *FS) accountPath(name string) (string, error) {
	if err := ValidName(name); err != nil {
		return "", err
	}
	return f.safePath(FileName(name))
}

// List returns metadata for every account file in the root directory.
func (f *FS) List() ([]FileInfo, error) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	out := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name, ok := NameFromPath(e.Name())
		if !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("storage: list: %w", err)
		}
		data, err := os.ReadFile(filepath.Join(f.root, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("storage: list: %w", err)
		}
		out = append(out, FileInfo{
			Name:      name,
			Path:      e.Name(),
			Checksum:  Checksum(data),
			UpdatedAt: info.ModTime(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Read returns the raw bytes of an account file.
func (f *FS) Read(name string) ([]byte, error) {
	abs, err := f.accountPath(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("storage: read %s: %w", name, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", name, err)
	}
	return data, nil
}

// Load reads and decodes an account.
func (f *FS) Load(name string) (models.Account, error) {
	data, err := f.Read(name)
	if err != nil {
		return models.Account{}, err
	}
	r, err := parser.Parse(data)
	if err != nil {
		return models.Account{}, fmt.Errorf("storage: load %s: %w", name, err)
	}
	return r.Account, nil
}

// Save encodes a and writes it under a.Name.
func (f *FS) Save(a models.Account) error {
	abs, err := f.accountPath(a.Name)
	if err != nil {
		return err
	}
	data, err := parser.Encode(a)
	if err != nil {
		return fmt.Errorf("storage: save %s: %w", a.Name, err)
	}
	return writeAtomic(abs, data)
}

// Delete removes an account file.
func (f *FS) Delete(name string) error {
	abs, err := f.accountPath(name)
	if err != nil {
		return err
	}
	err = os.Remove(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: delete %s: %w", name, apperr.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("storage: delete %s: %w", name, err)
	}
	return nil
}

// Exists reports whether an account file exists.
func (f *FS) Exists(name string) bool {
	abs, err := f.accountPath(name)
	if err != nil {
		return false
	}
	info, err := os.Stat(abs)
	return err == nil && !info.IsDir()
}

// Portfolios lists portfolio names. A missing portfolios directory yields an
// empty list.
func (f *FS) Portfolios() ([]string, error) {
	dir, err := f.safePath(PortfolioDir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: portfolios: %w", err)
	}
	out := []string{}
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") || !strings.HasSuffix(e.Name(), Ext) {
			continue
		}
		out = append(out, strings.TrimSuffix(e.Name(), Ext))
	}
	sort.Strings(out)
	return out, nil
}

// writeAtomic writes content: tmp file → fsync → rename.
func writeAtomic(abs string, content []byte) error {
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tortoise-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// Checksum returns the hex-encoded SHA-256 digest of data.
func Checksum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
