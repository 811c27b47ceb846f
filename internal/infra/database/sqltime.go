// internal/infra/database/sqltime.go
package database

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Timestamps are stored as fixed-width UTC text so that the same column type
// and ORDER BY behave identically on SQLite and Postgres, and so values sort
// lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func encodeTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func encodeNullTime(t sql.NullTime) any {
	if !t.Valid {
		return nil
	}
	return encodeTime(t.Time)
}

func nullStr(s sql.NullString) any {
	if !s.Valid {
		return nil
	}
	return s.String
}

func decodeTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored timestamp %q: %w", s, err)
	}
	return t, nil
}

func decodeNullTime(s sql.NullString) (sql.NullTime, error) {
	if !s.Valid {
		return sql.NullTime{}, nil
	}
	t, err := decodeTime(s.String)
	if err != nil {
		return sql.NullTime{}, err
	}
	return sql.NullTime{Time: t, Valid: true}, nil
}

// rebind translates ? placeholders to the $n form lib/pq expects. SQLite
// queries pass through untouched.
func (db *DB) rebind(query string) string {
	if db.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
