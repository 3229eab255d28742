package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
)

// Dialect captures the few places where SQLite and PostgreSQL disagree.
type Dialect struct {
	Name        string
	DriverName  string
	Placeholder squirrel.PlaceholderFormat

	PrimaryKeyDDL string
	TimestampType string

	tableExistsSQL string
	columnsSQL     string
	addColumnSQL   string
	migrateLockSQL string
}

var SQLite = Dialect{
	Name:          "sqlite",
	DriverName:    "sqlite3",
	Placeholder:   squirrel.Question,
	PrimaryKeyDDL: "INTEGER PRIMARY KEY AUTOINCREMENT",
	TimestampType: "TIMESTAMP",

	tableExistsSQL: `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`,
	columnsSQL:     `SELECT name FROM pragma_table_info(?)`,
	addColumnSQL:   `ALTER TABLE %s ADD COLUMN %s %s`,
	// a no-op write takes the reserved lock before the marker is read
	migrateLockSQL: `UPDATE ` + MigrationsTable + ` SET version = version WHERE 1 = 0`,
}

var Postgres = Dialect{
	Name:          "postgres",
	DriverName:    "pgx",
	Placeholder:   squirrel.Dollar,
	PrimaryKeyDDL: "BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY",
	TimestampType: "TIMESTAMPTZ",

	tableExistsSQL: `SELECT COUNT(*) FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_name = $1`,
	columnsSQL: `SELECT column_name FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1`,
	// a failed statement would abort the surrounding transaction
	addColumnSQL:   `ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s`,
	migrateLockSQL: `SELECT pg_advisory_xact_lock(7302119)`,
}

// Builder returns a squirrel builder bound to the dialect's placeholders.
func (d Dialect) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(d.Placeholder)
}

func (d Dialect) AddColumnSQL(table string, col Column) string {
	typ := col.Type
	if typ == TypeTimestamp {
		typ = d.TimestampType
	}
	return fmt.Sprintf(d.addColumnSQL, table, col.Name, typ)
}

// IsDuplicateColumn reports an ADD COLUMN that lost a race with a peer.
func (d Dialect) IsDuplicateColumn(err error) bool {
	if err == nil {
		return false
	}
	var pge *pgconn.PgError
	if errors.As(err, &pge) {
		return pge.Code == "42701"
	}
	return strings.Contains(strings.ToLower(err.Error()), "duplicate column name")
}

// IsUniqueViolation reports a primary key / unique constraint failure.
func (d Dialect) IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pge *pgconn.PgError
	if errors.As(err, &pge) {
		return pge.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	}
	return Dialect{}, fmt.Errorf("unsupported store driver %q", driver)
}
