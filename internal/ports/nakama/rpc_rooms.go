package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/AnAtoliy-AA/arcadeum-sub008/internal/config"

	"github.com/google/uuid"
	"github.com/heroiclabs/nakama-common/runtime"
)

// CreateRoomRequest is the payload clients send to create a room.
type CreateRoomRequest struct {
	Variant    string   `json:"variant"`
	Visibility string   `json:"visibility,omitempty"` // "public" (default) or "private"
	Tier       string   `json:"tier,omitempty"`
	Expansions []string `json:"expansions,omitempty"`
}

// CreateRoomResponse returns the created match and, for private rooms, the
// invite code friends need to join.
type CreateRoomResponse struct {
	MatchID    string `json:"match_id"`
	InviteCode string `json:"invite_code,omitempty"`
}

// QuickMatchRequest narrows the search to one variant, defaulting to critical.
type QuickMatchRequest struct {
	Variant string `json:"variant,omitempty"`
	Tier    string `json:"tier,omitempty"`
}

// QuickMatchResponse is the payload returned to clients requesting a
// lobby-capable room.
type QuickMatchResponse struct {
	MatchID string `json:"match_id"`
	IsNew   bool   `json:"is_new"`
}

// JoinByCodeRequest resolves a private room's match id from its invite code.
type JoinByCodeRequest struct {
	InviteCode string `json:"invite_code"`
}

type JoinByCodeResponse struct {
	MatchID string `json:"match_id"`
}

func rpcCreateRoom(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)

	request := &CreateRoomRequest{}
	if payload != "" {
		if err := json.Unmarshal([]byte(payload), request); err != nil {
			return "", runtime.NewError("invalid payload", 3) // INVALID_ARGUMENT
		}
	}
	if request.Variant == "" {
		request.Variant = "critical"
	}
	if _, err := matchNameForVariant(request.Variant); err != nil {
		return "", runtime.NewError(err.Error(), 3)
	}
	for _, id := range request.Expansions {
		if !config.IsKnownExpansion(id) {
			return "", runtime.NewError(fmt.Sprintf("unknown expansion: %s", id), 3)
		}
	}

	params := map[string]interface{}{
		"host_id":    userID,
		"tier":       request.Tier,
		"visibility": request.Visibility,
	}
	if len(request.Expansions) > 0 {
		expansions := make([]interface{}, len(request.Expansions))
		for i, e := range request.Expansions {
			expansions[i] = e
		}
		params["expansions"] = expansions
	}

	inviteCode := ""
	if request.Visibility == "private" {
		// Short, uppercase, shareable.
		inviteCode = strings.ToUpper(uuid.NewString()[:8])
		params["invite_code"] = inviteCode
	}

	moduleName, _ := matchNameForVariant(request.Variant)
	matchID, err := nk.MatchCreate(ctx, moduleName, params)
	if err != nil {
		logger.Error("rpcCreateRoom [User:%s]: Failed to create match: %v", userID, err)
		return "", runtime.NewError("failed to create room", 13) // INTERNAL
	}

	logger.Info("rpcCreateRoom [User:%s]: Created %s room %s", userID, request.Variant, matchID)
	resp := CreateRoomResponse{MatchID: matchID, InviteCode: inviteCode}
	b, _ := json.Marshal(resp)
	return string(b), nil
}

func rpcQuickMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)

	request := &QuickMatchRequest{}
	if payload != "" {
		if err := json.Unmarshal([]byte(payload), request); err != nil {
			return "", runtime.NewError("invalid payload", 3)
		}
	}
	if request.Variant == "" {
		request.Variant = "critical"
	}
	if _, err := matchNameForVariant(request.Variant); err != nil {
		return "", runtime.NewError(err.Error(), 3)
	}

	// Search for lobby-phase rooms of the variant with at least one open seat.
	query := fmt.Sprintf("+label.%s:>=1 +label.game:%s +label.phase:lobby", MatchLabelKey_OpenSeats, request.Variant)
	if request.Tier != "" {
		query += fmt.Sprintf(" +label.tier:%s", request.Tier)
	}

	limit := 1
	authoritative := true
	minSize := 0
	maxSize := maxSeats

	matches, err := nk.MatchList(ctx, limit, authoritative, "", &minSize, &maxSize, query)
	if err != nil {
		logger.Error("rpcQuickMatch [User:%s]: Failed to list matches: %v", userID, err)
		return "", runtime.NewError("failed to list rooms", 13)
	}

	if len(matches) > 0 {
		resp := QuickMatchResponse{MatchID: matches[0].MatchId, IsNew: false}
		b, _ := json.Marshal(resp)
		return string(b), nil
	}

	moduleName, _ := matchNameForVariant(request.Variant)
	matchID, err := nk.MatchCreate(ctx, moduleName, map[string]interface{}{
		"host_id": userID,
		"tier":    request.Tier,
	})
	if err != nil {
		logger.Error("rpcQuickMatch [User:%s]: Failed to create match: %v", userID, err)
		return "", runtime.NewError("failed to create room", 13)
	}

	logger.Info("rpcQuickMatch [User:%s]: Created new %s room %s", userID, request.Variant, matchID)
	resp := QuickMatchResponse{MatchID: matchID, IsNew: true}
	b, _ := json.Marshal(resp)
	return string(b), nil
}

func rpcJoinByCode(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	request := &JoinByCodeRequest{}
	if err := json.Unmarshal([]byte(payload), request); err != nil {
		return "", runtime.NewError("invalid payload", 3)
	}
	if request.InviteCode == "" {
		return "", runtime.NewError("invite_code is required", 3)
	}

	query := fmt.Sprintf("+label.code:%s", request.InviteCode)
	limit := 1
	authoritative := true

	matches, err := nk.MatchList(ctx, limit, authoritative, "", nil, nil, query)
	if err != nil {
		logger.Error("rpcJoinByCode: Failed to list matches: %v", err)
		return "", runtime.NewError("failed to look up room", 13)
	}
	if len(matches) == 0 {
		return "", runtime.NewError("room not found", 5) // NOT_FOUND
	}

	resp := JoinByCodeResponse{MatchID: matches[0].MatchId}
	b, _ := json.Marshal(resp)
	return string(b), nil
}
