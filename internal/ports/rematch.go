package ports

import (
	"context"
	"time"
)

// InviteeStatus is the per-invitee response state of a rematch invitation.
type InviteeStatus string

const (
	InviteePending  InviteeStatus = "pending"
	InviteeAccepted InviteeStatus = "accepted"
	InviteeDeclined InviteeStatus = "declined"
	InviteeExpired  InviteeStatus = "expired"
)

// RematchInvitation tracks one rematch handshake between a completed room
// and its successor.
type RematchInvitation struct {
	ID           string                   `json:"id"`
	SourceRoomID string                   `json:"source_room_id"`
	TargetRoomID string                   `json:"target_room_id"`
	HostID       string                   `json:"host_id"`
	Message      string                   `json:"message,omitempty"`
	Invitees     map[string]InviteeStatus `json:"invitees"`
	Deadline     time.Time                `json:"deadline"`
}

// InvitationStorePort persists rematch invitations.
type InvitationStorePort interface {
	Put(ctx context.Context, inv RematchInvitation) error
	Get(ctx context.Context, id string) (RematchInvitation, bool, error)
	// List returns every stored invitation, expired ones included.
	List(ctx context.Context) ([]RematchInvitation, error)
	Delete(ctx context.Context, id string) error
}

// RoomFactoryPort creates the successor room for an accepted rematch.
type RoomFactoryPort interface {
	// CreateRoom creates a room for the variant and returns its id.
	CreateRoom(ctx context.Context, variant string, params map[string]interface{}) (string, error)
}

// NotifierPort delivers out-of-room domain events, e.g. rematch.invited.
type NotifierPort interface {
	Notify(ctx context.Context, userID, subject string, content map[string]interface{}) error
}
