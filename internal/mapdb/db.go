// Package mapdb is the SQLite catalog of saved map snapshots.
package mapdb

import (
	"database/sql"
	"fmt"
	"net/http"

	"github.com/tailscale/tailsql/server/tailsql"
	_ "modernc.org/sqlite"
	"tailscale.com/tsweb"

	"github.com/banshee-data/armap/internal/monitoring"
	"github.com/banshee-data/armap/internal/timeutil"
)

// DB wraps the catalog database.
type DB struct {
	*sql.DB
	path  string
	clock timeutil.Clock
}

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA temp_store=MEMORY",
}

// Open opens (creating if needed) the catalog at path and applies any
// pending migrations.
func Open(path string) (*DB, error) {
	return OpenWithClock(path, timeutil.RealClock{})
}

// OpenWithClock is Open with an explicit clock for capture timestamps.
func OpenWithClock(path string, clock timeutil.Clock) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}
	// One writer keeps WAL pragmas and migrations on the same connection.
	sqlDB.SetMaxOpenConns(1)

	for _, p := range pragmas {
		if _, err := sqlDB.Exec(p); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("execute %q: %w", p, err)
		}
	}

	db := &DB{DB: sqlDB, path: path, clock: clock}
	if err := db.MigrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	version, dirty, err := db.MigrateVersion()
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("read schema version of %s: %w", path, err)
	}
	monitoring.Logf("[MapDB] catalog opened: path=%s schema=%d dirty=%t", path, version, dirty)
	return db, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// AttachAdminRoutes mounts the tailsql console and a snapshot listing under
// the tsweb debug page of mux.
func (db *DB) AttachAdminRoutes(mux *http.ServeMux) error {
	debug := tsweb.Debugger(mux)

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return fmt.Errorf("create tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://"+db.path, db.DB, &tailsql.DBOptions{
		Label: "Map catalog",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())
	debug.Handle("snapshots", "Recently saved map snapshots", http.HandlerFunc(db.handleRecentSnapshots))
	return nil
}
