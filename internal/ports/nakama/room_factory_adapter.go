package nakama

import (
	"context"
	"fmt"

	"github.com/AnAtoliy-AA/arcadeum-sub008/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

// NakamaRoomFactoryAdapter creates authoritative matches for room variants.
type NakamaRoomFactoryAdapter struct {
	nk runtime.NakamaModule
}

// NewNakamaRoomFactoryAdapter creates a new room factory adapter.
func NewNakamaRoomFactoryAdapter(nk runtime.NakamaModule) *NakamaRoomFactoryAdapter {
	return &NakamaRoomFactoryAdapter{nk: nk}
}

// CreateRoom creates a room for the variant and returns its match id.
func (a *NakamaRoomFactoryAdapter) CreateRoom(ctx context.Context, variant string, params map[string]interface{}) (string, error) {
	moduleName, err := matchNameForVariant(variant)
	if err != nil {
		return "", err
	}
	matchID, err := a.nk.MatchCreate(ctx, moduleName, params)
	if err != nil {
		return "", fmt.Errorf("failed to create %s room: %w", variant, err)
	}
	return matchID, nil
}

// matchNameForVariant maps a room variant to its registered match handler.
// The sea_battle variant is declared in the data model but has no handler
// yet, so creating one is rejected here.
func matchNameForVariant(variant string) (string, error) {
	switch variant {
	case "critical":
		return MatchNameCritical, nil
	case "holdem":
		return MatchNameHoldem, nil
	default:
		return "", fmt.Errorf("unsupported room variant: %s", variant)
	}
}

var _ ports.RoomFactoryPort = (*NakamaRoomFactoryAdapter)(nil)
