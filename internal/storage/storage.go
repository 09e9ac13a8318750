package storage

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/mukeshyadav-sketch/cricbuzz-webscraping/internal/schema"
)

// DriverName is the database/sql driver used for SQLite
const DriverName = "sqlite"

func init() {
	sqlx.BindDriver(DriverName, sqlx.QUESTION)
}

// ErrNotFound is returned when a requested match or player is not stored
var ErrNotFound = errors.New("not found")

// Storage handles persistence of matches, players and scorecards
type Storage struct {
	db   *sqlx.DB
	path string
}

// New opens (and creates, if needed) the SQLite database at path
func New(path string) (*Storage, error) {
	// Expand ~ to home directory
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, errors.Wrap(err, "getting home directory")
		}
		path = filepath.Join(home, path[2:])
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, errors.Wrap(err, "creating data directory")
		}
	}

	db, err := sqlx.Open(DriverName, path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening database %s", path)
	}
	// Single writer
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "opening database %s", path)
	}

	return &Storage{db: db, path: path}, nil
}

// NewWithDB wraps an already opened database
func NewWithDB(db *sqlx.DB) *Storage {
	return &Storage{db: db}
}

// Path returns the database file path
func (s *Storage) Path() string {
	return s.path
}

// DB exposes the underlying handle
func (s *Storage) DB() *sqlx.DB {
	return s.db
}

// Close closes the database
func (s *Storage) Close() error {
	return s.db.Close()
}

// Migrate ensures the schema is current
func (s *Storage) Migrate(ctx context.Context) (schema.Report, error) {
	return schema.NewManager(s.db).Ensure(ctx)
}

// Update runs fn in a transaction, committing when fn returns nil
func (s *Storage) Update(ctx context.Context, fn func(tx *Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err := fn(&Tx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.WithSecondaryError(err, rbErr)
		}
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

func notFound(err error, what string, id int64) error {
	if errors.Is(err, sql.ErrNoRows) {
		return errors.Mark(errors.Newf("%s %d not found", what, id), ErrNotFound)
	}
	return errors.Wrapf(err, "loading %s %d", what, id)
}
