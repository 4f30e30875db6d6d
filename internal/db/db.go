package db

import (
	"database/sql"

	_ "modernc.org/sqlite"
)

// MustOpen opens (creating if absent) the local SQLite session database.
// A single connection serializes writers; SQLite only allows one anyway and
// this avoids SQLITE_BUSY churn under concurrent requests.
func MustOpen(path string) *sql.DB {
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		panic(err)
	}
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		panic(err)
	}
	return conn
}
