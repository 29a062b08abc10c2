package nakama

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/AnAtoliy-AA/arcadeum-sub008/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

const historyCollection = "session_history"

// NakamaHistoryAdapter archives completed sessions into Nakama storage,
// keyed by room id under the system user.
type NakamaHistoryAdapter struct {
	nk runtime.NakamaModule
}

// NewNakamaHistoryAdapter creates a new history adapter.
func NewNakamaHistoryAdapter(nk runtime.NakamaModule) *NakamaHistoryAdapter {
	return &NakamaHistoryAdapter{nk: nk}
}

// ArchiveSession persists the completed-session record.
func (a *NakamaHistoryAdapter) ArchiveSession(ctx context.Context, record ports.SessionRecord) error {
	if record.RoomID == "" {
		return fmt.Errorf("room id is required")
	}

	value, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal session record: %w", err)
	}

	writes := []*runtime.StorageWrite{
		{
			Collection:      historyCollection,
			Key:             record.RoomID,
			Value:           string(value),
			PermissionRead:  runtime.STORAGE_PERMISSION_PUBLIC_READ,
			PermissionWrite: runtime.STORAGE_PERMISSION_NO_WRITE,
		},
	}
	if _, err := a.nk.StorageWrite(ctx, writes); err != nil {
		return fmt.Errorf("failed to archive session %s: %w", record.RoomID, err)
	}
	return nil
}

// GetSession returns the archived record for a room.
func (a *NakamaHistoryAdapter) GetSession(ctx context.Context, roomID string) (ports.SessionRecord, bool, error) {
	reads := []*runtime.StorageRead{
		{Collection: historyCollection, Key: roomID},
	}
	objects, err := a.nk.StorageRead(ctx, reads)
	if err != nil {
		return ports.SessionRecord{}, false, fmt.Errorf("failed to read session %s: %w", roomID, err)
	}
	if len(objects) == 0 {
		return ports.SessionRecord{}, false, nil
	}

	var record ports.SessionRecord
	if err := json.Unmarshal([]byte(objects[0].Value), &record); err != nil {
		return ports.SessionRecord{}, false, fmt.Errorf("failed to unmarshal session %s: %w", roomID, err)
	}
	return record, true, nil
}

var _ ports.HistoryPort = (*NakamaHistoryAdapter)(nil)
