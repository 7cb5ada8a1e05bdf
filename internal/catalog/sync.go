package catalog

import (
	"log/slog"
	"math"
	"time"

	"github.com/starford/tortoise/internal/parser"
	"github.com/starford/tortoise/internal/storage"
)

// Sync lists the account files and brings the catalog up to date:
//   - new/changed files are parsed and upserted
//   - files removed from disk are deleted from the catalog
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	files, err := store.List()
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(files))
	for _, f := range files {
		disk[f.Name] = struct{}{}

		if checksums[f.Name] == f.Checksum {
			continue
		}

		data, err := store.Read(f.Name)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("account", f.Name), slog.String("error", err.Error()))
			continue
		}
		if err := Record(db, f, data); err != nil {
			logger.Warn("sync: catalog failed", slog.String("account", f.Name), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: catalogued", slog.String("account", f.Name))
		}
	}

	for name := range checksums {
		if _, ok := disk[name]; !ok {
			if err := db.Delete(name); err != nil {
				logger.Warn("sync: delete failed", slog.String("account", name), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("account", name))
			}
		}
	}

	return nil
}

// Record parses an account file and upserts its summary into the DB.
func Record(db Catalog, f storage.FileInfo, data []byte) error {
	res, err := parser.Parse(data)
	if err != nil {
		return err
	}
	a := res.Account

	row := AccountRow{
		Name:      f.Name,
		File:      f.Path,
		Checksum:  storage.Checksum(data),
		StartDate: a.StartDate,
		EndDate:   a.EndDate,
		CashFlows: res.CashFlows,
		Issues:    res.Issues,
		Tags:      res.Tags,
		UpdatedAt: f.UpdatedAt,
	}
	if !math.IsNaN(a.Balance) && !math.IsInf(a.Balance, 0) {
		row.Balance = &a.Balance
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = time.Now()
	}
	return db.Upsert(row, data)
}
