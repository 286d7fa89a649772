package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

const migrationsDir = "sql"

//go:embed sql/*.sql
var migrationsFS embed.FS

type Migration struct {
	Name       string
	Statements []string
}

// Executor is the dialect-specific half of a migration run.
type Executor interface {
	CreateHistoryTable(ctx context.Context) error
	IsApplied(ctx context.Context, name string) (bool, error)
	Exec(ctx context.Context, stmt string) error
	Record(ctx context.Context, name string) error
}

// Load reads every .sql file in dir, ordered by file name, and splits each on ";".
func Load(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	out := make([]Migration, 0, len(names))
	for _, name := range names {
		content, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read migration file %s: %w", name, err)
		}

		m := Migration{Name: name}
		for stmt := range strings.SplitSeq(string(content), ";") {
			if stmt = strings.TrimSpace(stmt); stmt != "" {
				m.Statements = append(m.Statements, stmt)
			}
		}
		out = append(out, m)
	}
	return out, nil
}

// Run applies every migration not yet recorded and returns the names it applied.
func Run(ctx context.Context, exec Executor, ms []Migration) ([]string, error) {
	if err := exec.CreateHistoryTable(ctx); err != nil {
		return nil, fmt.Errorf("creating migrations history table: %w", err)
	}

	var applied []string
	for _, m := range ms {
		done, err := exec.IsApplied(ctx, m.Name)
		if err != nil {
			return applied, fmt.Errorf("checking if migration applied: %w", err)
		}
		if done {
			continue
		}

		for _, stmt := range m.Statements {
			if err := exec.Exec(ctx, stmt); err != nil {
				return applied, fmt.Errorf("failed to execute migration %s: %w", m.Name, err)
			}
		}

		if err := exec.Record(ctx, m.Name); err != nil {
			return applied, fmt.Errorf("recording migration %s: %w", m.Name, err)
		}
		applied = append(applied, m.Name)
	}
	return applied, nil
}

// Apply migrates a SQLite database.
func Apply(ctx context.Context, db *sql.DB) error {
	_, err := ApplySQLite(ctx, db)
	return err
}

func ApplySQLite(ctx context.Context, db *sql.DB) ([]string, error) {
	ms, err := Load(migrationsFS, migrationsDir)
	if err != nil {
		return nil, err
	}
	return Run(ctx, sqliteExecutor{db: db}, ms)
}

type sqliteExecutor struct {
	db *sql.DB
}

func (e sqliteExecutor) CreateHistoryTable(ctx context.Context) error {
	_, err := e.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS migrations_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

func (e sqliteExecutor) IsApplied(ctx context.Context, name string) (bool, error) {
	var count int
	err := e.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM migrations_history WHERE name = ?", name).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (e sqliteExecutor) Exec(ctx context.Context, stmt string) error {
	_, err := e.db.ExecContext(ctx, stmt)
	return err
}

func (e sqliteExecutor) Record(ctx context.Context, name string) error {
	_, err := e.db.ExecContext(ctx, "INSERT INTO migrations_history (name) VALUES (?)", name)
	return err
}
