// Package database provides SQLite connectivity for robotd.
//
// It manages the connection (WAL mode, busy timeout, foreign keys),
// transactional helpers, and forward/backward schema migrations read from
// any fs.FS. The binary embeds its migrations via the migrations package.
//
// Usage:
//
//	db, err := database.Open(ctx, cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
package database
