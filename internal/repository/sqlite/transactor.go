package sqlite

import (
	"context"

	"github.com/jmoiron/sqlx"
	perrors "github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/NordCoder/Alive/internal/domain/user"
)

var _ user.Transactor = (*Store)(nil)

type txKey struct{}

// WithTx runs function inside a transaction carried by ctx. Nested calls join the outer transaction.
func (s *Store) WithTx(ctx context.Context, function func(ctx context.Context) error) (txErr error) {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return function(ctx)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return perrors.Wrap(err, "begin tx")
	}

	defer func() {
		if txErr != nil {
			if err := tx.Rollback(); err != nil {
				s.log.Error("rollback", zap.Error(err))
			}
			return
		}
		if err := tx.Commit(); err != nil {
			s.log.Error("commit", zap.Error(err))
			txErr = perrors.Wrap(err, "commit")
		}
	}()

	if err := function(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return perrors.WithMessage(err, "function execution error")
	}
	return nil
}

func (s *Store) ext(ctx context.Context) sqlx.ExtContext {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return s.db
}
