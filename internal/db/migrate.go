package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"todo_api/internal/logger"

	"github.com/jmoiron/sqlx"
)

const (
	TodosTable      = "todos"
	MigrationsTable = "schema_migrations"

	// LegacyTodosTable is the singular table name older deployments used.
	LegacyTodosTable = "todo"

	// TypeTimestamp is replaced by the dialect's timestamp type.
	TypeTimestamp = "TIMESTAMP"
)

// Column is a nullable column added by EnsureColumns.
type Column struct {
	Name string
	Type string
}

// OptionalTodoColumns are the columns added on top of the base todos table.
var OptionalTodoColumns = []Column{
	{Name: "due_at", Type: TypeTimestamp},
	{Name: "priority", Type: "VARCHAR(16)"},
	{Name: "deleted_at", Type: TypeTimestamp},
}

type step struct {
	version int
	name    string
	apply   func(ctx context.Context, tx *sqlx.Tx) error
}

// Migrator evolves the schema forward only. Every step is additive and the
// applied version is recorded in schema_migrations, so a started service
// never inspects the schema again.
type Migrator struct {
	db      *sqlx.DB
	dialect Dialect
	steps   []step
}

func NewMigrator(db *sqlx.DB, dialect Dialect) *Migrator {
	m := &Migrator{db: db, dialect: dialect}
	m.steps = []step{
		{version: 1, name: "create_todos", apply: m.createTodos},
		{version: 2, name: "todo_optional_columns", apply: func(ctx context.Context, tx *sqlx.Tx) error {
			_, err := m.EnsureColumns(ctx, tx, TodosTable, OptionalTodoColumns)
			return err
		}},
		{version: 3, name: "todo_indexes", apply: m.createIndexes},
	}
	return m
}

// Latest is the version a fully migrated store reports.
func (m *Migrator) Latest() int {
	return m.steps[len(m.steps)-1].version
}

// Migrate applies every pending step and returns the resulting version.
// Concurrent callers are tolerated: a step recorded by a peer first is
// rolled back locally and skipped.
func (m *Migrator) Migrate(ctx context.Context) (int, error) {
	if err := m.createMigrationsTable(ctx); err != nil {
		return 0, fmt.Errorf("create migrations table: %w", err)
	}

	current, err := m.Version(ctx)
	if err != nil {
		return 0, err
	}
	if current >= m.Latest() {
		return current, nil
	}

	for _, s := range m.steps {
		if s.version <= current {
			continue
		}
		applied, err := m.applyStep(ctx, s)
		if err != nil {
			return current, fmt.Errorf("migration %d (%s): %w", s.version, s.name, err)
		}
		if applied {
			logger.Info("schema migration applied", "version", s.version, "name", s.name)
		}
		current = s.version
	}
	return current, nil
}

func (m *Migrator) applyStep(ctx context.Context, s step) (bool, error) {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.dialect.migrateLockSQL); err != nil {
		return false, fmt.Errorf("lock: %w", err)
	}

	var done int
	q, args, err := m.dialect.Builder().
		Select("COUNT(*)").From(MigrationsTable).
		Where("version = ?", s.version).ToSql()
	if err != nil {
		return false, err
	}
	if err := tx.GetContext(ctx, &done, q, args...); err != nil {
		return false, fmt.Errorf("check marker: %w", err)
	}
	if done > 0 {
		return false, nil
	}

	if err := s.apply(ctx, tx); err != nil {
		return false, err
	}

	q, args, err = m.dialect.Builder().
		Insert(MigrationsTable).
		Columns("version", "name", "applied_at").
		Values(s.version, s.name, time.Now().UTC()).ToSql()
	if err != nil {
		return false, err
	}
	if _, err := tx.ExecContext(ctx, q, args...); err != nil {
		if m.dialect.IsUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("record marker: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if m.dialect.IsUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

// Version returns the highest applied version, 0 for a fresh store.
func (m *Migrator) Version(ctx context.Context) (int, error) {
	exists, err := m.tableExists(ctx, m.db, MigrationsTable)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, nil
	}
	var v int
	if err := m.db.GetContext(ctx, &v, `SELECT COALESCE(MAX(version), 0) FROM `+MigrationsTable); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}

// EnsureColumns adds every column of cols missing from table and returns the
// names it added. Repeated calls are no-ops; a column added concurrently by
// another caller is not an error.
func (m *Migrator) EnsureColumns(ctx context.Context, q sqlx.ExtContext, table string, cols []Column) ([]string, error) {
	existing, err := m.columns(ctx, q, table)
	if err != nil {
		return nil, err
	}

	var added []string
	for _, col := range cols {
		if existing[strings.ToLower(col.Name)] {
			continue
		}
		if _, err := q.ExecContext(ctx, m.dialect.AddColumnSQL(table, col)); err != nil {
			if m.dialect.IsDuplicateColumn(err) {
				continue
			}
			return added, fmt.Errorf("add column %s.%s: %w", table, col.Name, err)
		}
		added = append(added, col.Name)
	}
	return added, nil
}

// Columns lists the live column names of table.
func (m *Migrator) Columns(ctx context.Context, table string) ([]string, error) {
	var names []string
	if err := sqlx.SelectContext(ctx, m.db, &names, m.dialect.columnsSQL, table); err != nil {
		return nil, fmt.Errorf("inspect %s: %w", table, err)
	}
	return names, nil
}

// Reset drops the todo table and the version marker and migrates again.
// Only the operator CLI and tests call it.
func (m *Migrator) Reset(ctx context.Context) (int, error) {
	for _, table := range []string{TodosTable, MigrationsTable} {
		if _, err := m.db.ExecContext(ctx, `DROP TABLE IF EXISTS `+table); err != nil {
			return 0, fmt.Errorf("drop %s: %w", table, err)
		}
	}
	return m.Migrate(ctx)
}

func (m *Migrator) createMigrationsTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version INTEGER PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			applied_at %s NOT NULL
		)`, MigrationsTable, m.dialect.TimestampType))
	return err
}

// createTodos adopts a legacy "todo" table by renaming it when no "todos"
// table exists yet; later steps add whatever columns it lacks.
func (m *Migrator) createTodos(ctx context.Context, tx *sqlx.Tx) error {
	legacy, err := m.tableExists(ctx, tx, LegacyTodosTable)
	if err != nil {
		return err
	}
	current, err := m.tableExists(ctx, tx, TodosTable)
	if err != nil {
		return err
	}
	if legacy && !current {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`ALTER TABLE %s RENAME TO %s`, LegacyTodosTable, TodosTable)); err != nil {
			return fmt.Errorf("adopt %s: %w", LegacyTodosTable, err)
		}
		logger.Info("adopted legacy table", "from", LegacyTodosTable, "to", TodosTable)
	}

	_, err = tx.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id %s,
			title VARCHAR(200) NOT NULL,
			completed BOOLEAN NOT NULL DEFAULT FALSE,
			created_at %s NOT NULL
		)`, TodosTable, m.dialect.PrimaryKeyDDL, m.dialect.TimestampType))
	return err
}

func (m *Migrator) createIndexes(ctx context.Context, tx *sqlx.Tx) error {
	for _, col := range []string{"title", "due_at", "deleted_at"} {
		stmt := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s (%s)`, TodosTable, col, TodosTable, col)
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (m *Migrator) tableExists(ctx context.Context, q sqlx.QueryerContext, table string) (bool, error) {
	var n int
	if err := sqlx.GetContext(ctx, q, &n, m.dialect.tableExistsSQL, table); err != nil {
		return false, fmt.Errorf("check table %s: %w", table, err)
	}
	return n > 0, nil
}

func (m *Migrator) columns(ctx context.Context, q sqlx.QueryerContext, table string) (map[string]bool, error) {
	var names []string
	if err := sqlx.SelectContext(ctx, q, &names, m.dialect.columnsSQL, table); err != nil {
		return nil, fmt.Errorf("inspect %s: %w", table, err)
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[strings.ToLower(n)] = true
	}
	return set, nil
}
