package tx

import (
	"context"

	"gorm.io/gorm"
)

type ctxKey struct{}

var txKey = ctxKey{}

// scope is the transaction shared by every store call made with the same context.
type scope struct {
	db          *gorm.DB
	afterCommit []func()
}

// WithTx stores an already open gorm transaction in context so downstream
// stores and nested Run calls join it instead of opening their own.
// The caller owns commit; call Committed afterwards to fire AfterCommit callbacks.
func WithTx(ctx context.Context, db *gorm.DB) context.Context {
	if db == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, &scope{db: db})
}

// From extracts the transaction from context if present.
func From(ctx context.Context) (*gorm.DB, bool) {
	s, ok := ctx.Value(txKey).(*scope)
	if !ok || s.db == nil {
		return nil, false
	}
	return s.db, true
}

// DB returns the ambient transaction, or fallback bound to ctx.
func DB(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if db, ok := From(ctx); ok {
		return db
	}
	return fallback.WithContext(ctx)
}

// Run executes fn as one unit of work. When ctx already carries a transaction
// fn participates in it and the outermost Run decides commit or rollback;
// otherwise a new transaction is opened on db. Any error returned by fn rolls
// everything back. Callbacks registered with AfterCommit run only after the
// outermost transaction committed.
func Run(ctx context.Context, db *gorm.DB, fn func(ctx context.Context) error) error {
	if _, ok := From(ctx); ok {
		return fn(ctx)
	}

	s := &scope{}
	err := db.WithContext(ctx).Transaction(func(txDB *gorm.DB) error {
		s.db = txDB
		return fn(context.WithValue(ctx, txKey, s))
	})
	if err != nil {
		return err
	}

	for _, f := range s.afterCommit {
		f()
	}
	return nil
}

// AfterCommit defers f until the enclosing transaction commits. It is dropped
// on rollback. Outside a transaction f runs immediately.
func AfterCommit(ctx context.Context, f func()) {
	s, ok := ctx.Value(txKey).(*scope)
	if !ok {
		f()
		return
	}
	s.afterCommit = append(s.afterCommit, f)
}

// Committed runs the AfterCommit callbacks collected under a WithTx context.
// Callers that own the transaction invoke it after a successful commit.
func Committed(ctx context.Context) {
	s, ok := ctx.Value(txKey).(*scope)
	if !ok {
		return
	}
	callbacks := s.afterCommit
	s.afterCommit = nil
	for _, f := range callbacks {
		f()
	}
}
