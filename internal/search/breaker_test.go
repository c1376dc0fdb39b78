package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type flakyRemover struct {
	calls int
	err   error
}

func (f *flakyRemover) RemoveDocuments(context.Context, []string) error {
	f.calls++
	return f.err
}

func TestCircuitBreaker(t *testing.T) {
	backend := &flakyRemover{err: errors.New("unavailable")}
	cb := NewCircuitBreaker(backend, 2, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cb.now = func() time.Time { return now }
	ctx := context.Background()

	assert.Error(t, cb.RemoveDocuments(ctx, []string{"1"}))
	assert.Error(t, cb.RemoveDocuments(ctx, []string{"1"}))
	isOpen, failures := cb.GetStatus()
	assert.True(t, isOpen)
	assert.Equal(t, 2, failures)

	// Open: the backend is not called.
	assert.ErrorIs(t, cb.RemoveDocuments(ctx, []string{"1"}), ErrCircuitOpen)
	assert.Equal(t, 2, backend.calls)

	// Half-open failure reopens at once.
	now = now.Add(2 * time.Minute)
	assert.Error(t, cb.RemoveDocuments(ctx, []string{"1"}))
	assert.Equal(t, 3, backend.calls)
	assert.ErrorIs(t, cb.RemoveDocuments(ctx, []string{"1"}), ErrCircuitOpen)

	// Half-open success closes it.
	now = now.Add(2 * time.Minute)
	backend.err = nil
	assert.NoError(t, cb.RemoveDocuments(ctx, []string{"1"}))
	isOpen, failures = cb.GetStatus()
	assert.False(t, isOpen)
	assert.Zero(t, failures)
}
