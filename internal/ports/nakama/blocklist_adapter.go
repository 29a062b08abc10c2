package nakama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/AnAtoliy-AA/arcadeum-sub008/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

const (
	blockListCollection = "social"
	blockListKey        = "block_list_v1"
	blockListRetries    = 3
)

// blockListDoc is the stored per-user block set.
type blockListDoc struct {
	Blocked []string `json:"blocked"`
}

// NakamaBlockListAdapter stores per-user block sets in Nakama storage. Writes
// go through the storage version so concurrent blocks retry instead of
// overwriting each other.
type NakamaBlockListAdapter struct {
	nk runtime.NakamaModule
}

// NewNakamaBlockListAdapter creates a new block list adapter.
func NewNakamaBlockListAdapter(nk runtime.NakamaModule) *NakamaBlockListAdapter {
	return &NakamaBlockListAdapter{nk: nk}
}

// Block adds blockedID to ownerID's block list. Adding an id that is already
// present is a no-op.
func (a *NakamaBlockListAdapter) Block(ctx context.Context, ownerID, blockedID string) error {
	if ownerID == "" || blockedID == "" {
		return fmt.Errorf("owner and blocked ids are required")
	}

	var lastErr error
	for attempt := 0; attempt < blockListRetries; attempt++ {
		doc, version, err := a.read(ctx, ownerID)
		if err != nil {
			return err
		}
		for _, id := range doc.Blocked {
			if id == blockedID {
				return nil
			}
		}
		doc.Blocked = append(doc.Blocked, blockedID)

		value, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to marshal block list: %w", err)
		}
		write := &runtime.StorageWrite{
			Collection:      blockListCollection,
			Key:             blockListKey,
			UserID:          ownerID,
			Value:           string(value),
			Version:         version,
			PermissionRead:  runtime.STORAGE_PERMISSION_NO_READ,
			PermissionWrite: runtime.STORAGE_PERMISSION_NO_WRITE,
		}
		if version == "" {
			write.Version = "*"
		}
		if _, err := a.nk.StorageWrite(ctx, []*runtime.StorageWrite{write}); err != nil {
			if errors.Is(err, runtime.ErrStorageRejectedVersion) {
				lastErr = err
				continue
			}
			return fmt.Errorf("failed to write block list for %s: %w", ownerID, err)
		}
		return nil
	}
	return fmt.Errorf("failed to write block list for %s after retries: %w", ownerID, lastErr)
}

// IsBlocked reports whether ownerID has blocked otherID.
func (a *NakamaBlockListAdapter) IsBlocked(ctx context.Context, ownerID, otherID string) (bool, error) {
	doc, _, err := a.read(ctx, ownerID)
	if err != nil {
		return false, err
	}
	for _, id := range doc.Blocked {
		if id == otherID {
			return true, nil
		}
	}
	return false, nil
}

func (a *NakamaBlockListAdapter) read(ctx context.Context, ownerID string) (blockListDoc, string, error) {
	reads := []*runtime.StorageRead{
		{Collection: blockListCollection, Key: blockListKey, UserID: ownerID},
	}
	objects, err := a.nk.StorageRead(ctx, reads)
	if err != nil {
		return blockListDoc{}, "", fmt.Errorf("failed to read block list for %s: %w", ownerID, err)
	}
	if len(objects) == 0 {
		return blockListDoc{}, "", nil
	}

	var doc blockListDoc
	if err := json.Unmarshal([]byte(objects[0].Value), &doc); err != nil {
		return blockListDoc{}, "", fmt.Errorf("failed to unmarshal block list for %s: %w", ownerID, err)
	}
	return doc, objects[0].Version, nil
}

var _ ports.BlockListPort = (*NakamaBlockListAdapter)(nil)
