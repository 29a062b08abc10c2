package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/AnAtoliy-AA/arcadeum-sub008/internal/app/rematch"
	"github.com/AnAtoliy-AA/arcadeum-sub008/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

type RematchRequestPayload struct {
	SourceRoomID   string   `json:"source_room_id"`
	ParticipantIDs []string `json:"participant_ids"`
	Message        string   `json:"message,omitempty"`
}

type RematchRespondPayload struct {
	InvitationID string `json:"invitation_id"`
	Accept       bool   `json:"accept"`
}

type RematchReinvitePayload struct {
	InvitationID string   `json:"invitation_id"`
	UserIDs      []string `json:"user_ids"`
}

type RematchBlockPayload struct {
	// BlockedID blocks a user directly.
	BlockedID string `json:"blocked_id,omitempty"`
	// InvitationID declines the open invitation and blocks its host.
	InvitationID string `json:"invitation_id,omitempty"`
}

type RematchInvitationResponse struct {
	Invitation ports.RematchInvitation `json:"invitation"`
}

// newRematchService wires the coordinator to Nakama-backed collaborators.
func newRematchService(nk runtime.NakamaModule) *rematch.Service {
	return rematch.NewService(
		NewNakamaHistoryAdapter(nk),
		NewNakamaInvitationAdapter(nk),
		NewNakamaRoomFactoryAdapter(nk),
		NewNakamaBlockListAdapter(nk),
		NewNakamaNotifierAdapter(nk),
	)
}

func rpcRematchRequest(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)

	request := &RematchRequestPayload{}
	if err := json.Unmarshal([]byte(payload), request); err != nil {
		return "", runtime.NewError("invalid payload", 3)
	}
	if request.SourceRoomID == "" {
		return "", runtime.NewError("source_room_id is required", 3)
	}

	inv, err := newRematchService(nk).RequestRematch(ctx, userID, request.SourceRoomID, request.ParticipantIDs, request.Message)
	if err != nil {
		return "", rematchError(logger, userID, err)
	}

	b, _ := json.Marshal(RematchInvitationResponse{Invitation: inv})
	return string(b), nil
}

func rpcRematchRespond(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)

	request := &RematchRespondPayload{}
	if err := json.Unmarshal([]byte(payload), request); err != nil {
		return "", runtime.NewError("invalid payload", 3)
	}

	inv, err := newRematchService(nk).Respond(ctx, request.InvitationID, userID, request.Accept)
	if err != nil {
		return "", rematchError(logger, userID, err)
	}

	b, _ := json.Marshal(RematchInvitationResponse{Invitation: inv})
	return string(b), nil
}

func rpcRematchReinvite(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)

	request := &RematchReinvitePayload{}
	if err := json.Unmarshal([]byte(payload), request); err != nil {
		return "", runtime.NewError("invalid payload", 3)
	}

	inv, err := newRematchService(nk).Reinvite(ctx, request.InvitationID, userID, request.UserIDs)
	if err != nil {
		return "", rematchError(logger, userID, err)
	}

	b, _ := json.Marshal(RematchInvitationResponse{Invitation: inv})
	return string(b), nil
}

func rpcRematchBlock(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)

	request := &RematchBlockPayload{}
	if err := json.Unmarshal([]byte(payload), request); err != nil {
		return "", runtime.NewError("invalid payload", 3)
	}

	service := newRematchService(nk)
	switch {
	case request.InvitationID != "":
		if err := service.BlockRematchForRoom(ctx, request.InvitationID, userID); err != nil {
			return "", rematchError(logger, userID, err)
		}
	case request.BlockedID != "":
		if err := service.BlockUser(ctx, userID, request.BlockedID); err != nil {
			return "", rematchError(logger, userID, err)
		}
	default:
		return "", runtime.NewError("blocked_id or invitation_id is required", 3)
	}

	return "{}", nil
}

// rematchError maps coordinator errors onto gRPC-style status codes.
func rematchError(logger runtime.Logger, userID string, err error) error {
	switch {
	case errors.Is(err, rematch.ErrNotCompleted),
		errors.Is(err, rematch.ErrAlreadyResponded),
		errors.Is(err, rematch.ErrInvitationExpired):
		return runtime.NewError(err.Error(), 9) // FAILED_PRECONDITION
	case errors.Is(err, rematch.ErrInvitationNotFound):
		return runtime.NewError(err.Error(), 5) // NOT_FOUND
	case errors.Is(err, rematch.ErrNotInvited), errors.Is(err, rematch.ErrNotHost):
		return runtime.NewError(err.Error(), 7) // PERMISSION_DENIED
	case errors.Is(err, rematch.ErrNoInvitees):
		return runtime.NewError(err.Error(), 3) // INVALID_ARGUMENT
	default:
		logger.Error("Rematch RPC failed for user %s: %v", userID, err)
		return runtime.NewError("rematch operation failed", 13) // INTERNAL
	}
}
