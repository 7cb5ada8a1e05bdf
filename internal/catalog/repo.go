package catalog

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/starford/tortoise/internal/apperr"
	"github.com/starford/tortoise/internal/models"
	"github.com/starford/tortoise/internal/parser"
)

// AccountRow is the summary of one stored account.
type AccountRow struct {
	Name      string    `json:"name"`
	File      string    `json:"file"`
	Checksum  string    `json:"checksum"`
	Balance   *float64  `json:"balance"` // nil when not a finite number
	StartDate string    `json:"start_date"`
	EndDate   string    `json:"end_date"`
	CashFlows int       `json:"cash_flows"`
	Issues    int       `json:"issues"`
	Tags      []string  `json:"tags"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TagCount is a tag and the number of accounts using it.
type TagCount struct {
	Tag      string `json:"tag"`
	Accounts int    `json:"accounts"`
}

const rowColumns = `name, file, checksum, balance, start_date, end_date, cash_flows, issues, tags, updated_at`

// Upsert inserts or replaces an account row and its tags within a transaction.
// body is the raw account file.
func (db *DB) Upsert(r AccountRow, body []byte) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if r.Tags == nil {
		r.Tags = []string{}
	}
	tagsJSON, _ := json.Marshal(r.Tags)

	var balance sql.NullFloat64
	if r.Balance != nil && !math.IsNaN(*r.Balance) && !math.IsInf(*r.Balance, 0) {
		balance = sql.NullFloat64{Float64: *r.Balance, Valid: true}
	}

	_, err = tx.Exec(`
		INSERT INTO accounts (`+rowColumns+`, body)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			file       = excluded.file,
			checksum   = excluded.checksum,
			balance    = excluded.balance,
			start_date = excluded.start_date,
			end_date   = excluded.end_date,
			cash_flows = excluded.cash_flows,
			issues     = excluded.issues,
			tags       = excluded.tags,
			updated_at = excluded.updated_at,
			body       = excluded.body
	`, r.Name, r.File, r.Checksum, balance, r.StartDate, r.EndDate, r.CashFlows, r.Issues,
		string(tagsJSON), r.UpdatedAt, body)
	if err != nil {
		return fmt.Errorf("catalog: upsert account: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM account_tags WHERE account = ?`, r.Name); err != nil {
		return fmt.Errorf("catalog: clear tags: %w", err)
	}
	if len(r.Tags) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO account_tags (account, tag) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("catalog: prepare tag insert: %w", err)
		}
		defer stmt.Close()
		for _, tag := range r.Tags {
			if _, err := stmt.Exec(r.Name, tag); err != nil {
				return fmt.Errorf("catalog: insert tag: %w", err)
			}
		}
	}

	return tx.Commit()
}

// Delete removes an account row and its tags.
func (db *DB) Delete(name string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, _ = tx.Exec(`DELETE FROM account_tags WHERE account = ?`, name)
	_, _ = tx.Exec(`DELETE FROM accounts WHERE name = ?`, name)

	return tx.Commit()
}

// GetChecksum returns the stored checksum for an account, or empty string if not found.
func (db *DB) GetChecksum(name string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM accounts WHERE name = ?`, name).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

// Get returns the summary row of one account.
func (db *DB) Get(name string) (*AccountRow, error) {
	row := db.conn.QueryRow(`SELECT `+rowColumns+` FROM accounts WHERE name = ?`, name)
	r, err := scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("catalog: get %s: %w", name, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: get %s: %w", name, err)
	}
	return r, nil
}

// List returns account rows sorted by name. A non-empty tag restricts the
// result to accounts carrying it.
func (db *DB) List(tag string) ([]AccountRow, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if tag == "" {
		rows, err = db.conn.Query(`SELECT ` + rowColumns + ` FROM accounts ORDER BY name`)
	} else {
		rows, err = db.conn.Query(`
			SELECT `+rowColumns+` FROM accounts
			WHERE name IN (SELECT account FROM account_tags WHERE tag = ?)
			ORDER BY name`, tag)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: list: %w", err)
	}
	defer rows.Close()

	out := []AccountRow{}
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("catalog: list: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// Names returns every catalogued account name, sorted.
func (db *DB) Names() ([]string, error) {
	rows, err := db.conn.Query(`SELECT name FROM accounts ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("catalog: names: %w", err)
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// Details decodes the stored body of every account, sorted by name. Bodies
// that no longer decode are skipped.
func (db *DB) Details() ([]models.Account, error) {
	rows, err := db.conn.Query(`SELECT body FROM accounts ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("catalog: details: %w", err)
	}
	defer rows.Close()
	out := []models.Account{}
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		res, err := parser.Parse(body)
		if err != nil {
			continue
		}
		out = append(out, res.Account)
	}
	return out, rows.Err()
}

// Tags returns every tag with the number of accounts using it, sorted by tag.
func (db *DB) Tags() ([]TagCount, error) {
	rows, err := db.conn.Query(`SELECT tag, count(*) FROM account_tags GROUP BY tag ORDER BY tag`)
	if err != nil {
		return nil, fmt.Errorf("catalog: tags: %w", err)
	}
	defer rows.Close()
	out := []TagCount{}
	for rows.Next() {
		var tc TagCount
		if err := rows.Scan(&tc.Tag, &tc.Accounts); err != nil {
			return nil, err
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

// AllChecksums maps every catalogued account name to its checksum.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT name, checksum FROM accounts`)
	if err != nil {
		return nil, fmt.Errorf("catalog: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var n, cs string
		if err := rows.Scan(&n, &cs); err != nil {
			return nil, err
		}
		out[n] = cs
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRow(s scanner) (*AccountRow, error) {
	var (
		r       AccountRow
		balance sql.NullFloat64
		tags    string
	)
	if err := s.Scan(&r.Name, &r.File, &r.Checksum, &balance, &r.StartDate, &r.EndDate,
		&r.CashFlows, &r.Issues, &tags, &r.UpdatedAt); err != nil {
		return nil, err
	}
	if balance.Valid {
		r.Balance = &balance.Float64
	}
	if err := json.Unmarshal([]byte(tags), &r.Tags); err != nil || r.Tags == nil {
		r.Tags = []string{}
	}
	return &r, nil
}
