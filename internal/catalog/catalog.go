package catalog

import "github.com/starford/tortoise/internal/models"

// Catalog defines the account catalog operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type Catalog interface {
	Upsert(r AccountRow, body []byte) error
	Delete(name string) error
	GetChecksum(name string) (string, error)
	Get(name string) (*AccountRow, error)
	List(tag string) ([]AccountRow, error)
	Names() ([]string, error)
	Details() ([]models.Account, error)
	Tags() ([]TagCount, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies Catalog at compile time.
var _ Catalog = (*DB)(nil)
