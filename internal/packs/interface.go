package packs

import (
	"context"
)

// Store keeps saved content packs. Only content documents are stored;
// live game state never is.
type Store interface {
	// Save validates and stores a new pack under a fresh id
	Save(ctx context.Context, input *SaveInput) (*Pack, error)

	// Get retrieves a pack by id
	Get(ctx context.Context, input *GetInput) (*Pack, error)

	// List returns summaries of all packs, newest first
	List(ctx context.Context, input *ListInput) (*ListOutput, error)

	// Delete removes a pack
	Delete(ctx context.Context, input *DeleteInput) error
}
