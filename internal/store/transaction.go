package store

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var errNoTransaction = errors.New("no transaction in progress")

type txKey struct{}

// unitOfWork is the transaction bound to a context by NewTransactionContext. Every
// store call made with that context joins it.
type unitOfWork struct {
	db       *gorm.DB
	finished bool
}

func newTransactionContext(ctx context.Context, db *gorm.DB) (context.Context, error) {
	if _, found := ctx.Value(txKey{}).(*unitOfWork); found {
		return ctx, nil
	}

	tx := db.Session(&gorm.Session{Context: ctx}).Begin()
	if tx.Error != nil {
		return ctx, tx.Error
	}
	return context.WithValue(ctx, txKey{}, &unitOfWork{db: tx}), nil
}

// FromContext returns the open transaction of ctx or nil.
func FromContext(ctx context.Context) *gorm.DB {
	if u, found := ctx.Value(txKey{}).(*unitOfWork); found && !u.finished {
		return u.db
	}
	return nil
}

// Commit ends the transaction of ctx. A context without one is left untouched.
func Commit(ctx context.Context) (context.Context, error) {
	return finish(ctx, "commit", func(db *gorm.DB) error { return db.Commit().Error })
}

func Rollback(ctx context.Context) (context.Context, error) {
	return finish(ctx, "rollback", func(db *gorm.DB) error { return db.Rollback().Error })
}

func finish(ctx context.Context, op string, fn func(db *gorm.DB) error) (context.Context, error) {
	u, ok := ctx.Value(txKey{}).(*unitOfWork)
	if !ok {
		return ctx, nil
	}
	next := context.WithValue(ctx, txKey{}, nil)
	if u.finished {
		return next, errNoTransaction
	}
	u.finished = true

	if err := fn(u.db); err != nil {
		zap.S().Named("store").Errorw("transaction "+op+" failed", "error", err)
		return next, err
	}
	return next, nil
}

// Atomic runs fn in a transaction. An error or a panic from fn rolls it back. When
// ctx already carries a transaction fn simply joins it and the outer caller decides.
func Atomic(ctx context.Context, s Store, fn func(ctx context.Context) error) (err error) {
	if FromContext(ctx) != nil {
		return fn(ctx)
	}

	txCtx, err := s.NewTransactionContext(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			_, _ = Rollback(txCtx)
			panic(r)
		}
	}()

	if err := fn(txCtx); err != nil {
		if _, rbErr := Rollback(txCtx); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	_, err = Commit(txCtx)
	return err
}
