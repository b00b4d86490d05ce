package store

import (
	"context"
	"sync"

	"github.com/xkilldash9x/uiharness/internal/interact"
)

// Buffer collects outcomes in memory and writes them in one batch on Flush,
// keeping database round trips out of the interaction path.
type Buffer struct {
	store *Store
	mu    sync.Mutex
	items []interact.Outcome
}

var _ interact.OutcomeSink = (*Buffer)(nil)

// NewBuffer returns a Buffer flushing to s.
func NewBuffer(s *Store) *Buffer {
	return &Buffer{store: s}
}

func (b *Buffer) Record(_ context.Context, o interact.Outcome) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(b.items, o)
	return nil
}

// Len returns the number of buffered outcomes.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// Flush writes every buffered outcome. On failure the outcomes stay buffered.
func (b *Buffer) Flush(ctx context.Context) error {
	b.mu.Lock()
	pending := b.items
	b.mu.Unlock()

	if err := b.store.RecordBatch(ctx, pending); err != nil {
		return err
	}

	b.mu.Lock()
	b.items = b.items[len(pending):]
	b.mu.Unlock()
	return nil
}
