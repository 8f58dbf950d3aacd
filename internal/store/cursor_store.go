package store

import (
	"context"
	"fmt"
)

//go:generate mockgen -source=cursor_store.go -destination=../mocks/cursor_store.go -package=mocks -mock_names=CursorStore=MockCursorStore

// CursorStore defines the interface for storing and retrieving block cursors.
// The emitter only needs this subset of Store.
type CursorStore interface {
	// GetBlockCursor retrieves the last processed block number for a chain
	GetBlockCursor(ctx context.Context, chain string) (uint64, error)
	// SetBlockCursor stores the last processed block number for a chain
	SetBlockCursor(ctx context.Context, chain string, blockNumber uint64) error
}

// NewCursorStore returns the cursor subset of a store
func NewCursorStore(s Store) CursorStore {
	return s
}

// blockCursorKey is the key-value store key holding a chain's block cursor
func blockCursorKey(chain string) string {
	return fmt.Sprintf("block_cursor:%s", chain)
}
