package rematch

import (
	"context"
	"testing"
	"time"

	"github.com/AnAtoliy-AA/arcadeum-sub008/internal/ports"
)

type fakeHistory struct {
	records map[string]ports.SessionRecord
}

func (f *fakeHistory) ArchiveSession(ctx context.Context, record ports.SessionRecord) error {
	f.records[record.RoomID] = record
	return nil
}

func (f *fakeHistory) GetSession(ctx context.Context, roomID string) (ports.SessionRecord, bool, error) {
	record, ok := f.records[roomID]
	return record, ok, nil
}

type fakeStore struct {
	invitations map[string]ports.RematchInvitation
	deletes     int
}

func (f *fakeStore) Put(ctx context.Context, inv ports.RematchInvitation) error {
	f.invitations[inv.ID] = inv
	return nil
}

func (f *fakeStore) Get(ctx context.Context, id string) (ports.RematchInvitation, bool, error) {
	inv, ok := f.invitations[id]
	return inv, ok, nil
}

func (f *fakeStore) List(ctx context.Context) ([]ports.RematchInvitation, error) {
	out := make([]ports.RematchInvitation, 0, len(f.invitations))
	for _, inv := range f.invitations {
		out = append(out, inv)
	}
	return out, nil
}

func (f *fakeStore) Delete(ctx context.Context, id string) error {
	delete(f.invitations, id)
	f.deletes++
	return nil
}

type fakeRooms struct {
	created  int
	variants []string
	params   []map[string]interface{}
}

func (f *fakeRooms) CreateRoom(ctx context.Context, variant string, params map[string]interface{}) (string, error) {
	f.created++
	f.variants = append(f.variants, variant)
	f.params = append(f.params, params)
	return "room-next", nil
}

type fakeBlocks struct {
	pairs map[string]bool
}

func (f *fakeBlocks) Block(ctx context.Context, ownerID, blockedID string) error {
	f.pairs[ownerID+"|"+blockedID] = true
	return nil
}

func (f *fakeBlocks) IsBlocked(ctx context.Context, ownerID, otherID string) (bool, error) {
	return f.pairs[ownerID+"|"+otherID], nil
}

type notifyCall struct {
	userID  string
	subject string
}

type fakeNotify struct {
	calls []notifyCall
}

func (f *fakeNotify) Notify(ctx context.Context, userID, subject string, content map[string]interface{}) error {
	f.calls = append(f.calls, notifyCall{userID: userID, subject: subject})
	return nil
}

type fixture struct {
	svc     *Service
	history *fakeHistory
	store   *fakeStore
	rooms   *fakeRooms
	blocks  *fakeBlocks
	notify  *fakeNotify
	clock   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		history: &fakeHistory{records: map[string]ports.SessionRecord{}},
		store:   &fakeStore{invitations: map[string]ports.RematchInvitation{}},
		rooms:   &fakeRooms{},
		blocks:  &fakeBlocks{pairs: map[string]bool{}},
		notify:  &fakeNotify{},
		clock:   time.Unix(1000, 0),
	}
	f.svc = NewService(f.history, f.store, f.rooms, f.blocks, f.notify)
	f.svc.now = func() time.Time { return f.clock }
	f.svc.timeout = 120 * time.Second

	f.history.records["room-1"] = ports.SessionRecord{
		RoomID:       "room-1",
		Variant:      "critical",
		Participants: []string{"host", "p2", "p3"},
		Ranking:      []string{"host", "p2", "p3"},
	}
	return f
}

func (f *fixture) request(t *testing.T) ports.RematchInvitation {
	t.Helper()
	inv, err := f.svc.RequestRematch(context.Background(), "host", "room-1", []string{"host", "p2", "p3"}, "again?")
	if err != nil {
		t.Fatalf("request rematch: %v", err)
	}
	return inv
}

func TestRequestRematchCreatesRoomAndInvites(t *testing.T) {
	f := newFixture(t)
	inv := f.request(t)

	if inv.TargetRoomID != "room-next" {
		t.Fatalf("target room = %s", inv.TargetRoomID)
	}
	if f.rooms.variants[0] != "critical" {
		t.Fatalf("successor variant = %s, want the source's", f.rooms.variants[0])
	}
	if inv.Invitees["p2"] != ports.InviteePending || inv.Invitees["p3"] != ports.InviteePending {
		t.Fatalf("invitees = %v", inv.Invitees)
	}
	if _, ok := inv.Invitees["host"]; ok {
		t.Fatalf("host invited to its own rematch")
	}
	if !inv.Deadline.Equal(f.clock.Add(120 * time.Second)) {
		t.Fatalf("deadline = %v", inv.Deadline)
	}
	if len(f.notify.calls) != 2 {
		t.Fatalf("notifications = %d, want 2", len(f.notify.calls))
	}
	if _, ok := f.store.invitations[inv.ID]; !ok {
		t.Fatalf("invitation not persisted")
	}
}

func TestRequestRematchRequiresCompletedSource(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.RequestRematch(context.Background(), "host", "room-unknown", []string{"p2"}, "")
	if err != ErrNotCompleted {
		t.Fatalf("err = %v, want ErrNotCompleted", err)
	}
	if f.rooms.created != 0 {
		t.Fatalf("room created for incomplete source")
	}
}

func TestRequestRematchDropsBlockedPairsBothWays(t *testing.T) {
	f := newFixture(t)
	f.blocks.pairs["host|p2"] = true // host blocked p2
	f.blocks.pairs["p3|host"] = true // p3 blocked host

	_, err := f.svc.RequestRematch(context.Background(), "host", "room-1", []string{"p2", "p3", "p4"}, "")
	if err != nil {
		t.Fatalf("request rematch: %v", err)
	}
	inv := f.store.invitations[firstKey(f.store.invitations)]
	if len(inv.Invitees) != 1 || inv.Invitees["p4"] != ports.InviteePending {
		t.Fatalf("invitees = %v, want only p4", inv.Invitees)
	}
}

func TestRequestRematchWithNoEligibleInvitees(t *testing.T) {
	f := newFixture(t)
	f.blocks.pairs["host|p2"] = true
	f.blocks.pairs["host|p3"] = true

	_, err := f.svc.RequestRematch(context.Background(), "host", "room-1", []string{"p2", "p3"}, "")
	if err != ErrNoInvitees {
		t.Fatalf("err = %v, want ErrNoInvitees", err)
	}
	if f.rooms.created != 0 {
		t.Fatalf("room created with nobody to invite")
	}
}

func TestRespondAcceptAndDecline(t *testing.T) {
	f := newFixture(t)
	inv := f.request(t)

	got, err := f.svc.Respond(context.Background(), inv.ID, "p2", true)
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if got.Invitees["p2"] != ports.InviteeAccepted {
		t.Fatalf("p2 status = %s", got.Invitees["p2"])
	}
	if _, ok := f.store.invitations[inv.ID]; !ok {
		t.Fatalf("invitation removed while p3 is still pending")
	}

	if _, err := f.svc.Respond(context.Background(), inv.ID, "p2", false); err != ErrAlreadyResponded {
		t.Fatalf("second response = %v, want ErrAlreadyResponded", err)
	}
	if _, err := f.svc.Respond(context.Background(), inv.ID, "stranger", true); err != ErrNotInvited {
		t.Fatalf("stranger = %v, want ErrNotInvited", err)
	}

	if _, err := f.svc.Respond(context.Background(), inv.ID, "p3", false); err != nil {
		t.Fatalf("decline: %v", err)
	}
	if _, ok := f.store.invitations[inv.ID]; ok {
		t.Fatalf("fully-responded invitation not removed")
	}
}

func TestRespondNotifiesHost(t *testing.T) {
	f := newFixture(t)
	inv := f.request(t)
	f.notify.calls = nil

	if _, err := f.svc.Respond(context.Background(), inv.ID, "p2", true); err != nil {
		t.Fatalf("respond: %v", err)
	}
	if len(f.notify.calls) != 1 || f.notify.calls[0].userID != "host" || f.notify.calls[0].subject != "rematch.updated" {
		t.Fatalf("notifications = %v", f.notify.calls)
	}
}

func TestExpiredInvitationIsLazilyRemoved(t *testing.T) {
	f := newFixture(t)
	inv := f.request(t)

	f.clock = f.clock.Add(121 * time.Second)
	if _, err := f.svc.Respond(context.Background(), inv.ID, "p2", true); err != ErrInvitationExpired {
		t.Fatalf("err = %v, want ErrInvitationExpired", err)
	}
	if _, ok := f.store.invitations[inv.ID]; ok {
		t.Fatalf("expired invitation not removed")
	}
	if _, err := f.svc.Respond(context.Background(), inv.ID, "p2", true); err != ErrInvitationNotFound {
		t.Fatalf("err after removal = %v, want ErrInvitationNotFound", err)
	}
}

func TestReinviteReopensDeclinedAndRestartsDeadline(t *testing.T) {
	f := newFixture(t)
	inv := f.request(t)

	// p2 declines while p3 is still pending, so the invitation stays alive.
	if _, err := f.svc.Respond(context.Background(), inv.ID, "p2", false); err != nil {
		t.Fatalf("decline: %v", err)
	}

	f.clock = f.clock.Add(30 * time.Second)
	got, err := f.svc.Reinvite(context.Background(), inv.ID, "host", []string{"p2"})
	if err != nil {
		t.Fatalf("reinvite: %v", err)
	}
	if got.Invitees["p2"] != ports.InviteePending {
		t.Fatalf("p2 status = %s, want pending again", got.Invitees["p2"])
	}
	if !got.Deadline.Equal(f.clock.Add(120 * time.Second)) {
		t.Fatalf("deadline not restarted: %v", got.Deadline)
	}
}

func TestReinviteRequiresHost(t *testing.T) {
	f := newFixture(t)
	inv := f.request(t)

	if _, err := f.svc.Reinvite(context.Background(), inv.ID, "p2", []string{"p3"}); err != ErrNotHost {
		t.Fatalf("err = %v, want ErrNotHost", err)
	}
}

func TestReinviteLeavesAcceptedAlone(t *testing.T) {
	f := newFixture(t)
	inv := f.request(t)

	if _, err := f.svc.Respond(context.Background(), inv.ID, "p2", true); err != nil {
		t.Fatalf("accept: %v", err)
	}
	got, err := f.svc.Reinvite(context.Background(), inv.ID, "host", []string{"p2"})
	if err != nil {
		t.Fatalf("reinvite: %v", err)
	}
	if got.Invitees["p2"] != ports.InviteeAccepted {
		t.Fatalf("accepted invitee reopened: %s", got.Invitees["p2"])
	}
}

func TestBlockRematchForRoomDeclinesAndBlocksHost(t *testing.T) {
	f := newFixture(t)
	inv := f.request(t)

	if err := f.svc.BlockRematchForRoom(context.Background(), inv.ID, "p2"); err != nil {
		t.Fatalf("block rematch: %v", err)
	}
	stored := f.store.invitations[inv.ID]
	if stored.Invitees["p2"] != ports.InviteeDeclined {
		t.Fatalf("p2 status = %s, want declined", stored.Invitees["p2"])
	}
	if !f.blocks.pairs["p2|host"] {
		t.Fatalf("host not blocked")
	}

	// Future rematches from the host no longer reach p2.
	f.history.records["room-next"] = ports.SessionRecord{RoomID: "room-next", Variant: "critical"}
	inv2, err := f.svc.RequestRematch(context.Background(), "host", "room-next", []string{"p2", "p3"}, "")
	if err != nil {
		t.Fatalf("request rematch: %v", err)
	}
	if _, ok := inv2.Invitees["p2"]; ok {
		t.Fatalf("blocked pair invited again")
	}
}

func TestBlockUserDeclinesOpenInvitations(t *testing.T) {
	f := newFixture(t)
	inv := f.request(t)
	f.notify.calls = nil

	// p2 blocks the host: p2 drops out of the open invitation immediately.
	if err := f.svc.BlockUser(context.Background(), "p2", "host"); err != nil {
		t.Fatalf("block user: %v", err)
	}
	if !f.blocks.pairs["p2|host"] {
		t.Fatalf("pair not blocked")
	}
	stored := f.store.invitations[inv.ID]
	if stored.Invitees["p2"] != ports.InviteeDeclined {
		t.Fatalf("p2 status = %s, want declined", stored.Invitees["p2"])
	}
	if stored.Invitees["p3"] != ports.InviteePending {
		t.Fatalf("p3 status = %s, want untouched", stored.Invitees["p3"])
	}
	if len(f.notify.calls) != 1 || f.notify.calls[0].userID != "host" {
		t.Fatalf("notifications = %v", f.notify.calls)
	}

	// The host blocking p3 declines the last pending invitee, which removes
	// the fully-responded invitation.
	if err := f.svc.BlockUser(context.Background(), "host", "p3"); err != nil {
		t.Fatalf("block user: %v", err)
	}
	if _, ok := f.store.invitations[inv.ID]; ok {
		t.Fatalf("fully-responded invitation not removed")
	}
}

func TestBlockRematchForRoomToleratesMissingInvitation(t *testing.T) {
	f := newFixture(t)
	if err := f.svc.BlockRematchForRoom(context.Background(), "nope", "p2"); err != nil {
		t.Fatalf("missing invitation should be a no-op, got %v", err)
	}
}

func firstKey(m map[string]ports.RematchInvitation) string {
	for k := range m {
		return k
	}
	return ""
}
