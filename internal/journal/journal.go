// Package journal persists the Mutation Engine's applied-mutation log to a
// local sqlite database, independent of and outliving any one
// provision.Transaction's in-process rollback log. It exists purely for
// operator audit and crash-diagnosis: "what did the last provisioning run
// for this service actually do to the host."
package journal

import (
	"database/sql"
	"embed"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// Register migrate's sqlite3 driver.
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	// Register the sqlite3 driver used by database/sql.
	_ "github.com/mattn/go-sqlite3"

	"github.com/aryonoco/divban/internal/direrr"
	"github.com/aryonoco/divban/internal/provision"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Journal records provisioning mutations for later inspection.
type Journal struct {
	db *sql.DB
}

// Entry is one recorded mutation, as returned by List.
type Entry struct {
	ID        int64
	Service   string
	Kind      string
	Subject   string
	Extra     string
	AppliedAt time.Time
}

// Open connects to the sqlite database at path and applies any pending
// schema migrations, creating the file (and its schema) if it doesn't
// already exist.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, direrr.NewExec("journal open "+path, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, direrr.NewExec("journal ping "+path, err)
	}

	if err := migrateUp(path); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Journal{db: db}, nil
}

func migrateUp(path string) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return direrr.NewExec("journal migration source", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", sourceDriver, "sqlite3://"+path)
	if err != nil {
		return direrr.NewExec("journal migration instance", err)
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return direrr.NewExec("journal migrate up", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record appends every mutation in log to the journal under service, in
// order. It does not clear or otherwise touch the transaction's in-process
// log -- that log's lifetime stays scoped to one provisioning call.
func (j *Journal) Record(service string, log []provision.AppliedMutation) error {
	if len(log) == 0 {
		return nil
	}

	tx, err := j.db.Begin()
	if err != nil {
		return direrr.NewExec("journal begin", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO mutations (service, kind, subject, extra) VALUES (?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return direrr.NewExec("journal prepare", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, m := range log {
		if _, err := stmt.Exec(service, kindName(m.Kind), m.Subject, m.Extra); err != nil {
			_ = tx.Rollback()
			return direrr.NewExec("journal insert", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return direrr.NewExec("journal commit", err)
	}
	return nil
}

// List returns every recorded mutation for service, oldest first.
func (j *Journal) List(service string) ([]Entry, error) {
	rows, err := j.db.Query(
		`SELECT id, service, kind, subject, extra, applied_at FROM mutations WHERE service = ? ORDER BY id ASC`,
		service,
	)
	if err != nil {
		return nil, direrr.NewExec("journal list", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Service, &e.Kind, &e.Subject, &e.Extra, &e.AppliedAt); err != nil {
			return nil, direrr.NewExec("journal scan", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, direrr.NewExec("journal rows", err)
	}
	return out, nil
}

func kindName(k provision.MutationKind) string {
	switch k {
	case provision.MutationAllocatedUID:
		return "allocated_uid"
	case provision.MutationCreatedUser:
		return "created_user"
	case provision.MutationAppendedSubRange:
		return "appended_subrange"
	case provision.MutationCreatedDirectory:
		return "created_directory"
	case provision.MutationEnabledLinger:
		return "enabled_linger"
	default:
		return strings.ToLower("unknown")
	}
}
