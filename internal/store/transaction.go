package store

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type contextKey int

const (
	transactionKey contextKey = iota
)

var ErrNoTransaction = errors.New("transaction hasn't started yet")

// Tx is a gorm transaction carried in a context. Store methods called with
// that context join it through getDB.
type Tx struct {
	id  int64
	db  *gorm.DB
	log *zap.SugaredLogger
}

// WithTransaction runs fn inside a transaction, committing when fn returns nil
// and rolling back otherwise. A transaction already in ctx is joined and left
// for its owner to finish.
func WithTransaction(ctx context.Context, s Store, fn func(ctx context.Context) error) (err error) {
	if FromContext(ctx) != nil {
		return fn(ctx)
	}

	txCtx, err := s.NewTransactionContext(ctx)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_, _ = Rollback(txCtx)
			panic(p)
		}
	}()

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
	return context.WithValue(ctx, transactionKey, nil), tx.Commit()
}

func Rollback(ctx context.Context) (context.Context, error) {
	tx, ok := ctx.Value(transactionKey).(*Tx)
	if !ok {
		return ctx, nil
	}
	return context.WithValue(ctx, transactionKey, nil), tx.Rollback()
}

// FromContext returns the open transaction in ctx, or nil.
func FromContext(ctx context.Context) *gorm.DB {
	if tx, found := ctx.Value(transactionKey).(*Tx); found && tx.db != nil {
		return tx.db
	}
	return nil
}

func newTransactionContext(ctx context.Context, db *gorm.DB) (context.Context, error) {
	if FromContext(ctx) != nil {
		return ctx, nil
	}

	tx := db.Session(&gorm.Session{Context: ctx}).Begin()
	if tx.Error != nil {
		return ctx, tx.Error
	}

	// postgres ids are only used to correlate log lines; they wrap after vacuuming.
	var txid struct{ ID int64 }
	if tx.Dialector.Name() == "postgres" {
		tx.Raw("select txid_current() as id").Scan(&txid)
	}

	return context.WithValue(ctx, transactionKey, &Tx{
		id:  txid.ID,
		db:  tx,
		log: zap.S().Named("transaction"),
	}), nil
}

func (t *Tx) Commit() error {
	if t.db == nil {
		return ErrNoTransaction
	}
	if err := t.db.Commit().Error; err != nil {
		t.log.Errorw("failed to commit transaction", "txid", t.id, "error", err)
		return err
	}
	t.log.Debugw("transaction committed", "txid", t.id)
	t.db = nil
	return nil
}

func (t *Tx) Rollback() error {
	if t.db == nil {
		return ErrNoTransaction
	}
	if err := t.db.Rollback().Error; err != nil {
		t.log.Errorw("failed to rollback transaction", "txid", t.id, "error", err)
		return err
	}
	t.log.Debugw("transaction rolled back", "txid", t.id)
	t.db = nil
	return nil
}
