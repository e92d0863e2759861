// Package database opens the SQLite file that holds the lot's event
// history and keeps its schema current.
//
// The database is optional. It backs the queryable event history
// (internal/activity); the plain-text activity log written by the lot is
// always kept regardless.
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Migrations are named YYYYMMDD_HHMMSS_description.up.sql with a matching
// .down.sql, and are applied oldest first, one transaction each.
package database
