// Package rematch coordinates successor-room invitations for completed
// sessions.
package rematch

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/AnAtoliy-AA/arcadeum-sub008/internal/config"
	"github.com/AnAtoliy-AA/arcadeum-sub008/internal/ports"
)

var (
	ErrNotCompleted       = errors.New("source room is not completed")
	ErrInvitationNotFound = errors.New("invitation not found")
	ErrInvitationExpired  = errors.New("invitation expired")
	ErrNotInvited         = errors.New("user is not an invitee")
	ErrAlreadyResponded   = errors.New("invitee already responded")
	ErrNoInvitees         = errors.New("no eligible invitees")
	ErrNotHost            = errors.New("only the host may reinvite")
)

// Service owns the rematch invitation lifecycle: creation against a completed
// session, per-invitee responses, reinvites, and block-list maintenance.
type Service struct {
	history ports.HistoryPort
	store   ports.InvitationStorePort
	rooms   ports.RoomFactoryPort
	blocks  ports.BlockListPort
	notify  ports.NotifierPort

	timeout time.Duration
	now     func() time.Time
}

func NewService(history ports.HistoryPort, store ports.InvitationStorePort, rooms ports.RoomFactoryPort, blocks ports.BlockListPort, notify ports.NotifierPort) *Service {
	return &Service{
		history: history,
		store:   store,
		rooms:   rooms,
		blocks:  blocks,
		notify:  notify,
		timeout: time.Duration(config.RematchTimeoutSeconds()) * time.Second,
		now:     time.Now,
	}
}

// RequestRematch creates a successor room and an invitation for the prior
// participants. Pairs blocked in either direction with the host are silently
// dropped before anything is created.
func (s *Service) RequestRematch(ctx context.Context, hostID, sourceRoomID string, participantIDs []string, message string) (ports.RematchInvitation, error) {
	record, found, err := s.history.GetSession(ctx, sourceRoomID)
	if err != nil {
		return ports.RematchInvitation{}, err
	}
	if !found {
		return ports.RematchInvitation{}, ErrNotCompleted
	}

	invitees := map[string]ports.InviteeStatus{}
	for _, id := range participantIDs {
		if id == "" || id == hostID {
			continue
		}
		blocked, err := s.blockedEitherWay(ctx, hostID, id)
		if err != nil {
			return ports.RematchInvitation{}, err
		}
		if blocked {
			continue
		}
		invitees[id] = ports.InviteePending
	}
	if len(invitees) == 0 {
		return ports.RematchInvitation{}, ErrNoInvitees
	}

	targetRoomID, err := s.rooms.CreateRoom(ctx, record.Variant, map[string]interface{}{
		"host_id":        hostID,
		"source_room_id": sourceRoomID,
	})
	if err != nil {
		return ports.RematchInvitation{}, err
	}

	inv := ports.RematchInvitation{
		ID:           uuid.NewString(),
		SourceRoomID: sourceRoomID,
		TargetRoomID: targetRoomID,
		HostID:       hostID,
		Message:      message,
		Invitees:     invitees,
		Deadline:     s.now().Add(s.timeout),
	}
	if err := s.store.Put(ctx, inv); err != nil {
		return ports.RematchInvitation{}, err
	}

	for id := range invitees {
		s.notifyInvited(ctx, id, inv)
	}
	return inv, nil
}

// Respond records accept/decline for one invitee. Accepting returns the
// target room to join. The invitation is removed once every invitee has
// responded.
func (s *Service) Respond(ctx context.Context, invitationID, userID string, accept bool) (ports.RematchInvitation, error) {
	inv, err := s.load(ctx, invitationID)
	if err != nil {
		return ports.RematchInvitation{}, err
	}

	status, ok := inv.Invitees[userID]
	if !ok {
		return ports.RematchInvitation{}, ErrNotInvited
	}
	if status != ports.InviteePending {
		return ports.RematchInvitation{}, ErrAlreadyResponded
	}

	if accept {
		inv.Invitees[userID] = ports.InviteeAccepted
	} else {
		inv.Invitees[userID] = ports.InviteeDeclined
	}

	if s.allResponded(inv) {
		if err := s.store.Delete(ctx, inv.ID); err != nil {
			return ports.RematchInvitation{}, err
		}
	} else if err := s.store.Put(ctx, inv); err != nil {
		return ports.RematchInvitation{}, err
	}

	s.notifyHost(ctx, inv, userID)
	return inv, nil
}

// Reinvite re-opens the listed invitees when they previously declined or
// expired. Accepted invitees are left untouched. The shared deadline restarts.
func (s *Service) Reinvite(ctx context.Context, invitationID, hostID string, userIDs []string) (ports.RematchInvitation, error) {
	inv, err := s.load(ctx, invitationID)
	if err != nil {
		return ports.RematchInvitation{}, err
	}
	if inv.HostID != hostID {
		return ports.RematchInvitation{}, ErrNotHost
	}

	reopened := false
	for _, id := range userIDs {
		switch inv.Invitees[id] {
		case ports.InviteeDeclined, ports.InviteeExpired, ports.InviteePending:
			inv.Invitees[id] = ports.InviteePending
			reopened = true
		}
	}
	if !reopened {
		return inv, nil
	}

	inv.Deadline = s.now().Add(s.timeout)
	if err := s.store.Put(ctx, inv); err != nil {
		return ports.RematchInvitation{}, err
	}
	for _, id := range userIDs {
		if inv.Invitees[id] == ports.InviteePending {
			s.notifyInvited(ctx, id, inv)
		}
	}
	return inv, nil
}

// BlockUser adds blockedID to the caller's block list and immediately
// declines the pair out of any invitation still open between them. Future
// invitation lists drop the pair in either direction.
func (s *Service) BlockUser(ctx context.Context, callerID, blockedID string) error {
	if err := s.blocks.Block(ctx, callerID, blockedID); err != nil {
		return err
	}

	invs, err := s.store.List(ctx)
	if err != nil {
		return err
	}
	for _, inv := range invs {
		if s.now().After(inv.Deadline) {
			continue
		}
		var decliner string
		switch {
		case inv.HostID == blockedID && inv.Invitees[callerID] == ports.InviteePending:
			decliner = callerID
		case inv.HostID == callerID && inv.Invitees[blockedID] == ports.InviteePending:
			decliner = blockedID
		default:
			continue
		}
		inv.Invitees[decliner] = ports.InviteeDeclined
		if s.allResponded(inv) {
			if err := s.store.Delete(ctx, inv.ID); err != nil {
				return err
			}
		} else if err := s.store.Put(ctx, inv); err != nil {
			return err
		}
		s.notifyHost(ctx, inv, decliner)
	}
	return nil
}

// BlockRematchForRoom declines the caller's open invitation and blocks its
// host in one step.
func (s *Service) BlockRematchForRoom(ctx context.Context, invitationID, callerID string) error {
	inv, err := s.load(ctx, invitationID)
	if err != nil {
		if errors.Is(err, ErrInvitationExpired) || errors.Is(err, ErrInvitationNotFound) {
			return nil
		}
		return err
	}

	if inv.Invitees[callerID] == ports.InviteePending {
		inv.Invitees[callerID] = ports.InviteeDeclined
		if s.allResponded(inv) {
			if err := s.store.Delete(ctx, inv.ID); err != nil {
				return err
			}
		} else if err := s.store.Put(ctx, inv); err != nil {
			return err
		}
		s.notifyHost(ctx, inv, callerID)
	}

	return s.blocks.Block(ctx, callerID, inv.HostID)
}

// load fetches an invitation and applies the shared deadline lazily: an
// overdue invitation has its pending invitees expired and is removed.
func (s *Service) load(ctx context.Context, invitationID string) (ports.RematchInvitation, error) {
	inv, found, err := s.store.Get(ctx, invitationID)
	if err != nil {
		return ports.RematchInvitation{}, err
	}
	if !found {
		return ports.RematchInvitation{}, ErrInvitationNotFound
	}
	if s.now().After(inv.Deadline) {
		for id, status := range inv.Invitees {
			if status == ports.InviteePending {
				inv.Invitees[id] = ports.InviteeExpired
			}
		}
		if err := s.store.Delete(ctx, inv.ID); err != nil {
			return ports.RematchInvitation{}, err
		}
		return ports.RematchInvitation{}, ErrInvitationExpired
	}
	return inv, nil
}

func (s *Service) allResponded(inv ports.RematchInvitation) bool {
	for _, status := range inv.Invitees {
		if status == ports.InviteePending {
			return false
		}
	}
	return true
}

func (s *Service) blockedEitherWay(ctx context.Context, a, b string) (bool, error) {
	blocked, err := s.blocks.IsBlocked(ctx, a, b)
	if err != nil || blocked {
		return blocked, err
	}
	return s.blocks.IsBlocked(ctx, b, a)
}

// Notification failures are non-fatal: the invitation stands either way.

func (s *Service) notifyInvited(ctx context.Context, userID string, inv ports.RematchInvitation) {
	_ = s.notify.Notify(ctx, userID, "rematch.invited", map[string]interface{}{
		"invitation_id":  inv.ID,
		"source_room_id": inv.SourceRoomID,
		"target_room_id": inv.TargetRoomID,
		"host_id":        inv.HostID,
		"message":        inv.Message,
		"deadline":       inv.Deadline.Unix(),
	})
}

func (s *Service) notifyHost(ctx context.Context, inv ports.RematchInvitation, responderID string) {
	_ = s.notify.Notify(ctx, inv.HostID, "rematch.updated", map[string]interface{}{
		"invitation_id": inv.ID,
		"user_id":       responderID,
		"status":        string(inv.Invitees[responderID]),
	})
}
