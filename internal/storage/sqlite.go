package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is the interaction log backed by SQLite. A single connection plus WAL
// serializes writers, so concurrent request handlers cannot drop or corrupt
// log entries the way a whole-file rewrite would.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the log database in dataDir and runs pending
// migrations. Pass ":memory:" as dataDir for an in-memory database (tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "intentd.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// SaveInteraction appends one record and evicts anything past the cap, oldest
// first by insertion order. Both steps run in one transaction so a crash
// cannot leave the log over the cap with the new record half-applied.
func (s *Store) SaveInteraction(i Interaction) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning append transaction: %w", err)
	}
	defer tx.Rollback()

	var intentTag sql.NullString
	if i.Intent != "" {
		intentTag = sql.NullString{String: i.Intent, Valid: true}
	}
	var score sql.NullFloat64
	if i.Score != nil {
		score = sql.NullFloat64{Float64: *i.Score, Valid: true}
	}

	if _, err := tx.Exec(`
		INSERT INTO interactions (id, created_at, question, answer, source, intent, score)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		i.ID, i.CreatedAt.UTC().Format(time.RFC3339), i.Question, i.Answer, i.Source, intentTag, score,
	); err != nil {
		return fmt.Errorf("inserting interaction: %w", err)
	}

	// rowid is the authoritative insertion order, not created_at.
	if _, err := tx.Exec(`
		DELETE FROM interactions WHERE rowid NOT IN (
			SELECT rowid FROM interactions ORDER BY rowid DESC LIMIT ?
		)`, MaxInteractions,
	); err != nil {
		return fmt.Errorf("evicting old interactions: %w", err)
	}

	return tx.Commit()
}

// RecentInteractions returns up to limit records, newest first.
func (s *Store) RecentInteractions(limit int) ([]Interaction, error) {
	if limit <= 0 || limit > MaxInteractions {
		limit = MaxInteractions
	}
	rows, err := s.db.Query(`
		SELECT id, created_at, question, answer, source, intent, score
		FROM interactions ORDER BY rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Interaction
	for rows.Next() {
		var (
			i         Interaction
			createdAt string
			intentTag sql.NullString
			score     sql.NullFloat64
		)
		if err := rows.Scan(&i.ID, &createdAt, &i.Question, &i.Answer, &i.Source, &intentTag, &score); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		i.CreatedAt = t
		i.Intent = intentTag.String
		if score.Valid {
			v := score.Float64
			i.Score = &v
		}
		results = append(results, i)
	}
	return results, rows.Err()
}

// GetInteraction loads a single record by ID.
func (s *Store) GetInteraction(id string) (Interaction, error) {
	var (
		i         Interaction
		createdAt string
		intentTag sql.NullString
		score     sql.NullFloat64
	)
	err := s.db.QueryRow(`
		SELECT id, created_at, question, answer, source, intent, score
		FROM interactions WHERE id = ?`, id,
	).Scan(&i.ID, &createdAt, &i.Question, &i.Answer, &i.Source, &intentTag, &score)
	if err == sql.ErrNoRows {
		return Interaction{}, ErrNotFound
	}
	if err != nil {
		return Interaction{}, err
	}
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return Interaction{}, fmt.Errorf("parsing created_at: %w", err)
	}
	i.CreatedAt = t
	i.Intent = intentTag.String
	if score.Valid {
		v := score.Float64
		i.Score = &v
	}
	return i, nil
}

// CountInteractions returns the current number of logged records.
func (s *Store) CountInteractions() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM interactions").Scan(&n)
	return n, err
}
