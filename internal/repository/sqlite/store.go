package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	perrors "github.com/pkg/errors"
	"go.uber.org/zap"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/NordCoder/Alive/internal/domain/user"
	"github.com/NordCoder/Alive/internal/repository/migrations"
)

// Fixed width so that text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type Config struct {
	// Path is a file path or ":memory:".
	Path         string
	QueryTimeout time.Duration
}

// Store is a single-connection SQLite database. Every statement, including those issued inside
// WithTx, goes through that connection, so transactions are serialized.
type Store struct {
	db           *sqlx.DB
	builder      sq.StatementBuilderType
	queryTimeout time.Duration
	log          *zap.Logger
}

func Open(ctx context.Context, cfg Config, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, perrors.Wrap(err, "open sqlite")
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, perrors.Wrapf(err, "exec %q", pragma)
		}
	}

	return &Store{
		db:           db,
		builder:      sq.StatementBuilder.PlaceholderFormat(sq.Question),
		queryTimeout: cfg.QueryTimeout,
		log:          log.With(zap.String("component", "sqlite")),
	}, nil
}

func (s *Store) Migrate(ctx context.Context) error {
	return migrations.Up(ctx, s.db.DB, migrations.SQLite)
}

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// SQL exposes the underlying handle for migration tooling. Closing the store closes it.
func (s *Store) SQL() *sql.DB { return s.db.DB }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.queryTimeout)
}

type builder interface {
	ToSql() (string, []interface{}, error)
}

func (s *Store) getBuilder(ctx context.Context, dest interface{}, b builder) error {
	query, args, err := b.ToSql()
	if err != nil {
		return perrors.Wrap(err, "build sql")
	}
	return sqlx.GetContext(ctx, s.ext(ctx), dest, query, args...)
}

func (s *Store) selectBuilder(ctx context.Context, dest interface{}, b builder) error {
	query, args, err := b.ToSql()
	if err != nil {
		return perrors.Wrap(err, "build sql")
	}
	return sqlx.SelectContext(ctx, s.ext(ctx), dest, query, args...)
}

func (s *Store) execBuilder(ctx context.Context, b builder) (int64, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, perrors.Wrap(err, "build sql")
	}
	res, err := s.ext(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) insertBuilder(ctx context.Context, b builder) (int64, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, perrors.Wrap(err, "build sql")
	}
	res, err := s.ext(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

var ErrNotFound = user.ErrNotFound
