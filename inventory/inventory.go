// Package inventory indexes product file references in PostgreSQL so
// observation sets can be looked up by acquisition time.
package inventory

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/eoproc/surfobs/utils"
)

const defaultTable = "file_refs"

type Inventory struct {
	db    *sql.DB
	table string
}

// Open connects to the postgres instance named by the config. The
// connection is lazy; the first query surfaces connectivity errors.
func Open(config utils.InventoryConfig) (*Inventory, error) {
	if len(config.DSN) == 0 {
		return nil, fmt.Errorf("inventory dsn not configured")
	}
	db, err := sql.Open("postgres", config.DSN)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(8)

	table := config.Table
	if len(table) == 0 {
		table = defaultTable
	}
	return &Inventory{db: db, table: table}, nil
}

func (inv *Inventory) Close() error {
	return inv.db.Close()
}

// EnsureSchema creates the backing table when it does not exist yet.
func (inv *Inventory) EnsureSchema() error {
	_, err := inv.db.Exec(fmt.Sprintf(
		`create table if not exists %s (
			url text primary key,
			start_time timestamptz not null,
			end_time timestamptz,
			mime_type text
		)`, inv.table))
	if err != nil {
		return err
	}
	_, err = inv.db.Exec(fmt.Sprintf(
		`create index if not exists %s_start_time_idx on %s (start_time)`,
		inv.table, inv.table))
	return err
}

// Index upserts one file reference keyed on its url.
func (inv *Inventory) Index(fileRef utils.FileRef) error {
	_, err := inv.db.Exec(fmt.Sprintf(
		`insert into %s (url, start_time, end_time, mime_type)
		 values ($1, $2, $3, $4)
		 on conflict (url) do update
		 set start_time = excluded.start_time,
		     end_time = excluded.end_time,
		     mime_type = excluded.mime_type`, inv.table),
		fileRef.Url, fileRef.StartTime, fileRef.EndTime, fileRef.MimeType)
	return err
}

// IndexAll upserts a batch inside one transaction.
func (inv *Inventory) IndexAll(fileRefs []utils.FileRef) error {
	tx, err := inv.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(fmt.Sprintf(
		`insert into %s (url, start_time, end_time, mime_type)
		 values ($1, $2, $3, $4)
		 on conflict (url) do update
		 set start_time = excluded.start_time,
		     end_time = excluded.end_time,
		     mime_type = excluded.mime_type`, inv.table))
	if err != nil {
		tx.Rollback()
		return err
	}
	for _, fileRef := range fileRefs {
		if _, err := stmt.Exec(fileRef.Url, fileRef.StartTime, fileRef.EndTime, fileRef.MimeType); err != nil {
			stmt.Close()
			tx.Rollback()
			return err
		}
	}
	stmt.Close()
	return tx.Commit()
}

// FileRefsBetween returns the references acquired in [start, end),
// ordered by acquisition time.
func (inv *Inventory) FileRefsBetween(start, end time.Time) ([]utils.FileRef, error) {
	rows, err := inv.db.Query(fmt.Sprintf(
		`select url, start_time, coalesce(end_time, start_time), coalesce(mime_type, '')
		 from %s
		 where start_time >= $1 and start_time < $2
		 order by start_time`, inv.table),
		start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fileRefs []utils.FileRef
	for rows.Next() {
		var fileRef utils.FileRef
		if err := rows.Scan(&fileRef.Url, &fileRef.StartTime, &fileRef.EndTime, &fileRef.MimeType); err != nil {
			return nil, err
		}
		fileRefs = append(fileRefs, fileRef)
	}
	return fileRefs, rows.Err()
}
