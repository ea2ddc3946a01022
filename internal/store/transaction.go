package store

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type contextKey int

const (
	transactionKey contextKey = iota
)

var errNoTransaction = errors.New("transaction already finished")

// Tx is the transaction carried by a context. Every store reached with that context joins it.
type Tx struct {
	tx  *gorm.DB
	log *zap.SugaredLogger
}

// WithTransaction runs fn in a transaction, committing when fn returns nil and rolling back
// otherwise. A transaction already in ctx is joined and left for its owner to finish.
func WithTransaction(ctx context.Context, s Store, fn func(ctx context.Context) error) error {
	if _, found := ctx.Value(transactionKey).(*Tx); found {
		return fn(ctx)
	}

	txCtx, err := s.NewTransactionContext(ctx)
	if err != nil {
		return err
	}

	if err := fn(txCtx); err != nil {
		if _, rerr := Rollback(txCtx); rerr != nil {
			return errors.Join(err, rerr)
		}
		return err
	}

	_, err = Commit(txCtx)
	return err
}

func Commit(ctx context.Context) (context.Context, error) {
	tx, ok := ctx.Value(transactionKey).(*Tx)
	if !ok {
		return ctx, nil
	}
	return context.WithValue(ctx, transactionKey, nil), tx.finish(true)
}

func Rollback(ctx context.Context) (context.Context, error) {
	tx, ok := ctx.Value(transactionKey).(*Tx)
	if !ok {
		return ctx, nil
	}
	return context.WithValue(ctx, transactionKey, nil), tx.finish(false)
}

// FromContext returns the open transaction of ctx, nil when there is none.
func FromContext(ctx context.Context) *gorm.DB {
	if tx, found := ctx.Value(transactionKey).(*Tx); found && tx.tx != nil {
		return tx.tx
	}
	return nil
}

func newTransactionContext(ctx context.Context, db *gorm.DB) (context.Context, error) {
	// nested calls join the transaction already in the context
	if _, found := ctx.Value(transactionKey).(*Tx); found {
		return ctx, nil
	}

	tx := db.Session(&gorm.Session{Context: ctx}).Begin()
	if tx.Error != nil {
		return ctx, tx.Error
	}

	return context.WithValue(ctx, transactionKey, &Tx{tx: tx, log: zap.S().Named("transaction")}), nil
}

func (t *Tx) finish(commit bool) error {
	if t.tx == nil {
		return errNoTransaction
	}

	var (
		op  string
		res *gorm.DB
	)
	if commit {
		op, res = "commit", t.tx.Commit()
	} else {
		op, res = "rollback", t.tx.Rollback()
	}
	if res.Error != nil {
		t.log.Errorw("failed to finish transaction", "op", op, "error", res.Error)
		return res.Error
	}

	t.log.Debugw("transaction finished", "op", op)
	t.tx = nil
	return nil
}
