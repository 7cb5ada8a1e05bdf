// Package storage keeps account files on disk.
package storage

import (
	"time"

	"github.com/starford/tortoise/internal/models"
)

// FileInfo describes one stored account file.
type FileInfo struct {
	Name      string    // account name, the file stem
	Path      string    // relative to the storage root
	Checksum  string    // hex SHA-256 of the content
	UpdatedAt time.Time
}

// Provider is the interface for account file operations.
type Provider interface {
	// List returns metadata for every account file, sorted by name.
	List() ([]FileInfo, error)
	// Read returns the raw bytes of the named account file.
	Read(name string) ([]byte, error)
	// Load decodes the named account.
	Load(name string) (models.Account, error)
	// Save atomically writes a under its own name.
	Save(a models.Account) error
	// Delete removes the named account file.
	Delete(name string) error
	// Exists reports whether the named account file exists.
	Exists(name string) bool
	// Portfolios lists the portfolio names under portfolios/.
	Portfolios() ([]string, error)
}
