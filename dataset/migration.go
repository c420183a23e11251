// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package dataset

import (
	"database/sql"

	"github.com/rubenv/sql-migrate"
)

// This file maintains the dataset schema.  See
// https://github.com/rubenv/sql-migrate for details of what goes in
// here.

var migrationSource = &migrate.MemoryMigrationSource{
	Migrations: []*migrate.Migration{
		{
			Id: "1-layers",
			Up: []string{
				`CREATE TABLE layers(
					name TEXT PRIMARY KEY,
					kind TEXT NOT NULL,
					geometry_type TEXT NOT NULL,
					wkid INTEGER NOT NULL,
					fields TEXT NOT NULL DEFAULT '[]',
					created INTEGER NOT NULL
				)`,
				`CREATE TABLE extents(
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					layer TEXT NOT NULL,
					event_time INTEGER NOT NULL,
					min_x REAL NOT NULL,
					min_y REAL NOT NULL,
					max_x REAL NOT NULL,
					max_y REAL NOT NULL,
					scale REAL,
					inv_scale REAL,
					width REAL,
					height REAL
				)`,
				`CREATE INDEX extents_layer ON extents(layer)`,
				`CREATE TABLE features(
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					layer TEXT NOT NULL,
					object_id INTEGER,
					geometry TEXT,
					attributes TEXT NOT NULL,
					min_x REAL,
					min_y REAL,
					max_x REAL,
					max_y REAL
				)`,
				`CREATE INDEX features_layer ON features(layer)`,
			},
			Down: []string{
				`DROP TABLE features`,
				`DROP TABLE extents`,
				`DROP TABLE layers`,
			},
		},
	},
}

// Upgrade upgrades a dataset to the latest schema version.
func Upgrade(db *sql.DB) error {
	_, err := migrate.Exec(db, "sqlite3", migrationSource, migrate.Up)
	return err
}

// Drop clears a dataset by running all of the migrations in reverse.
func Drop(db *sql.DB) error {
	_, err := migrate.Exec(db, "sqlite3", migrationSource, migrate.Down)
	return err
}
