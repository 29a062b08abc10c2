package nakama

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/AnAtoliy-AA/arcadeum-sub008/internal/app"

	"github.com/heroiclabs/nakama-common/runtime"
)

type VoiceTokenRequest struct {
	Action string `json:"action"` // "login" or "join"
	RoomID string `json:"room_id,omitempty"`
}

type VoiceTokenResponse struct {
	Token string `json:"token"`
}

// rpcVoiceToken issues a signed token for the room audio channel. Signing
// config comes from the runtime environment.
func rpcVoiceToken(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if userID == "" {
		return "", runtime.NewError("unauthenticated", 16) // UNAUTHENTICATED
	}

	request := &VoiceTokenRequest{}
	if payload != "" {
		if err := json.Unmarshal([]byte(payload), request); err != nil {
			return "", runtime.NewError("invalid payload", 3)
		}
	}
	if request.Action == "" {
		request.Action = app.VoiceTokenActionLogin
	}

	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	service := app.NewVoiceService(env["voice_secret"], env["voice_issuer"], env["voice_domain"])

	token, err := service.GenerateToken(userID, request.Action, request.RoomID)
	if err != nil {
		logger.Warn("rpcVoiceToken [User:%s]: %v", userID, err)
		return "", runtime.NewError(err.Error(), 3)
	}

	b, _ := json.Marshal(VoiceTokenResponse{Token: token})
	return string(b), nil
}
