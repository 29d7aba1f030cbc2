package database

import (
	"context"
	"database/sql"
	"fmt"
)

// TxRunner runs a function inside one logical transaction. Repositories that
// receive the resulting context participate in that transaction; OnCommit
// hooks queued during the function run after, and only after, a durable
// commit.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type txKey struct{}
type hooksKey struct{}

// Hooks collects callbacks to run once the enclosing transaction commits
type Hooks struct {
	fns []func()
}

// Add queues a callback
func (h *Hooks) Add(fn func()) {
	h.fns = append(h.fns, fn)
}

// Run fires all queued callbacks in order and clears the queue
func (h *Hooks) Run() {
	fns := h.fns
	h.fns = nil
	for _, fn := range fns {
		fn()
	}
}

// Len returns the number of queued callbacks
func (h *Hooks) Len() int {
	return len(h.fns)
}

// ContextWithHooks attaches a fresh post-commit hook collector to the
// context. Used by InTx and by transaction test doubles.
func ContextWithHooks(ctx context.Context) (context.Context, *Hooks) {
	h := &Hooks{}
	return context.WithValue(ctx, hooksKey{}, h), h
}

func hooksFromContext(ctx context.Context) *Hooks {
	h, _ := ctx.Value(hooksKey{}).(*Hooks)
	return h
}

func txFromContext(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txKey{}).(*sql.Tx)
	return tx
}

// OnCommit queues fn to run after the ambient transaction commits. If the
// transaction rolls back the hook is dropped. Without an ambient transaction
// the state is already durable and fn runs immediately.
func OnCommit(ctx context.Context, fn func()) {
	if h := hooksFromContext(ctx); h != nil {
		h.Add(fn)
		return
	}
	fn()
}

// InTx runs fn inside a single database transaction. A nested call joins the
// ambient transaction of the outer one. Post-commit hooks run outside the
// transaction, after Commit returns.
func (db *DB) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	ctx = context.WithValue(ctx, txKey{}, tx)
	ctx, hooks := ContextWithHooks(ctx)

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
				db.log.Error().Err(rbErr).Msg("Transaction rollback failed")
			}
		}
	}()

	if err := fn(ctx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true

	hooks.Run()
	return nil
}
