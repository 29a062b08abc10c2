package nakama

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/AnAtoliy-AA/arcadeum-sub008/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

const invitationCollection = "rematch_invitations"

// NakamaInvitationAdapter persists rematch invitations in Nakama storage
// under the system user, keyed by invitation id.
type NakamaInvitationAdapter struct {
	nk runtime.NakamaModule
}

// NewNakamaInvitationAdapter creates a new invitation store adapter.
func NewNakamaInvitationAdapter(nk runtime.NakamaModule) *NakamaInvitationAdapter {
	return &NakamaInvitationAdapter{nk: nk}
}

func (a *NakamaInvitationAdapter) Put(ctx context.Context, inv ports.RematchInvitation) error {
	value, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("failed to marshal invitation: %w", err)
	}

	writes := []*runtime.StorageWrite{
		{
			Collection:      invitationCollection,
			Key:             inv.ID,
			Value:           string(value),
			PermissionRead:  runtime.STORAGE_PERMISSION_NO_READ,
			PermissionWrite: runtime.STORAGE_PERMISSION_NO_WRITE,
		},
	}
	if _, err := a.nk.StorageWrite(ctx, writes); err != nil {
		return fmt.Errorf("failed to write invitation %s: %w", inv.ID, err)
	}
	return nil
}

func (a *NakamaInvitationAdapter) Get(ctx context.Context, id string) (ports.RematchInvitation, bool, error) {
	reads := []*runtime.StorageRead{
		{Collection: invitationCollection, Key: id},
	}
	objects, err := a.nk.StorageRead(ctx, reads)
	if err != nil {
		return ports.RematchInvitation{}, false, fmt.Errorf("failed to read invitation %s: %w", id, err)
	}
	if len(objects) == 0 {
		return ports.RematchInvitation{}, false, nil
	}

	var inv ports.RematchInvitation
	if err := json.Unmarshal([]byte(objects[0].Value), &inv); err != nil {
		return ports.RematchInvitation{}, false, fmt.Errorf("failed to unmarshal invitation %s: %w", id, err)
	}
	return inv, true, nil
}

func (a *NakamaInvitationAdapter) List(ctx context.Context) ([]ports.RematchInvitation, error) {
	var out []ports.RematchInvitation
	cursor := ""
	for {
		objects, next, err := a.nk.StorageList(ctx, "", "", invitationCollection, 100, cursor)
		if err != nil {
			return nil, fmt.Errorf("failed to list invitations: %w", err)
		}
		for _, obj := range objects {
			var inv ports.RematchInvitation
			if err := json.Unmarshal([]byte(obj.Value), &inv); err != nil {
				return nil, fmt.Errorf("failed to unmarshal invitation %s: %w", obj.Key, err)
			}
			out = append(out, inv)
		}
		if next == "" {
			break
		}
		cursor = next
	}
	return out, nil
}

func (a *NakamaInvitationAdapter) Delete(ctx context.Context, id string) error {
	deletes := []*runtime.StorageDelete{
		{Collection: invitationCollection, Key: id},
	}
	if err := a.nk.StorageDelete(ctx, deletes); err != nil {
		return fmt.Errorf("failed to delete invitation %s: %w", id, err)
	}
	return nil
}

var _ ports.InvitationStorePort = (*NakamaInvitationAdapter)(nil)
