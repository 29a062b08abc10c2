package ports

import "context"

// BlockListPort stores per-player block sets. The set is append-only from
// the player's perspective and never auto-expires.
type BlockListPort interface {
	// Block adds blockedID to ownerID's block list.
	Block(ctx context.Context, ownerID, blockedID string) error

	// IsBlocked reports whether ownerID has blocked otherID.
	IsBlocked(ctx context.Context, ownerID, otherID string) (bool, error)
}
