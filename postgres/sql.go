// Copyright 2015-2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package postgres

// This file contains generic support code for database/sql on
// PostgreSQL: connection string cleanup, identifier quoting, and a
// row-scanning loop.

import (
	"database/sql"
	"strings"

	"github.com/lib/pq"
)

// normalizeConnectionString turns a destructured URL such as
// "//user@host/db" back into a proper URL.  Key/value connection
// strings and full URLs pass through unchanged.
func normalizeConnectionString(connectionString string) string {
	if strings.HasPrefix(connectionString, "//") {
		return "postgres:" + connectionString
	}
	return connectionString
}

// quoteQualified quotes a schema-qualified name for use in a
// statement.
func quoteQualified(schema, name string) string {
	if schema == "" {
		return pq.QuoteIdentifier(name)
	}
	return pq.QuoteIdentifier(schema) + "." + pq.QuoteIdentifier(name)
}

// scanRows calls a function for each row in a result.  The callback
// function should only call the Scan() method on the provided Rows
// object; this function will take care of advancing through the list
// of rows and closing the iterator as required.
func scanRows(rows *sql.Rows, f func() error) (err error) {
	var done bool
	defer func() {
		if !done {
			err2 := rows.Close()
			if err == nil {
				err = err2
			}
		}
	}()

	for rows.Next() {
		err = f()
		if err != nil {
			return
		}
	}
	done = true
	err = rows.Err()
	return
}
