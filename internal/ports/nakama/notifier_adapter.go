package nakama

import (
	"context"
	"fmt"

	"github.com/AnAtoliy-AA/arcadeum-sub008/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

// Notification codes for out-of-room events.
const (
	notificationCodeRematchInvited = 1001
	notificationCodeRematchUpdated = 1002
)

// NakamaNotifierAdapter delivers out-of-room events as persistent Nakama
// notifications.
type NakamaNotifierAdapter struct {
	nk runtime.NakamaModule
}

// NewNakamaNotifierAdapter creates a new notifier adapter.
func NewNakamaNotifierAdapter(nk runtime.NakamaModule) *NakamaNotifierAdapter {
	return &NakamaNotifierAdapter{nk: nk}
}

// Notify sends one persistent notification to the user.
func (a *NakamaNotifierAdapter) Notify(ctx context.Context, userID, subject string, content map[string]interface{}) error {
	code := notificationCode(subject)
	if err := a.nk.NotificationSend(ctx, userID, subject, content, code, "", true); err != nil {
		return fmt.Errorf("failed to notify %s: %w", userID, err)
	}
	return nil
}

func notificationCode(subject string) int {
	switch subject {
	case "rematch.invited":
		return notificationCodeRematchInvited
	case "rematch.updated":
		return notificationCodeRematchUpdated
	default:
		return 1000
	}
}

var _ ports.NotifierPort = (*NakamaNotifierAdapter)(nil)
