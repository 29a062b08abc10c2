package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/AnAtoliy-AA/arcadeum-sub008/internal/app"
	"github.com/AnAtoliy-AA/arcadeum-sub008/internal/config"
	"github.com/AnAtoliy-AA/arcadeum-sub008/internal/domain"
	"github.com/AnAtoliy-AA/arcadeum-sub008/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

const (
	MatchLabelKey_OpenSeats = "open" // Key for the open seats in the match label

	maxSeats = 5
)

// matchLabel is the JSON document Nakama indexes for match listing queries.
type matchLabel struct {
	Game  string `json:"game"`
	Open  int    `json:"open"`
	Phase string `json:"phase"`
	Tier  string `json:"tier,omitempty"`
	Code  string `json:"code,omitempty"`
}

// MatchState holds the authoritative runtime state for the critical match
// handler.
type MatchState struct {
	Seats        [maxSeats]string            `json:"seats"`      // User ids, empty string means the seat is empty
	OwnerSeat    int                         `json:"owner_seat"` // Seat index of the room host
	Tick         int64                       `json:"tick"`       // Current tick, one per second
	Tier         string                      `json:"tier"`
	InviteCode   string                      `json:"invite_code"`
	Private      bool                        `json:"private"`
	Expansions   []string                    `json:"expansions"`
	Participants []string                    `json:"participants"` // Seats occupied when the running game started
	StartedAt    time.Time                   `json:"started_at"`
	Presences    map[string]runtime.Presence `json:"-"`
	App          *app.Service                `json:"-"`
	Game         *domain.Game                `json:"-"`
	Economy      ports.EconomyPort           `json:"-"`
	History      ports.HistoryPort           `json:"-"`
}

func (ms *MatchState) GetOpenSeatsCount() int {
	count := 0
	for _, seat := range ms.Seats {
		if seat == "" {
			count++
		}
	}
	return count
}

func (ms *MatchState) GetOccupiedSeatCount() int {
	return len(ms.Seats) - ms.GetOpenSeatsCount()
}

// findFirstOccupiedSeat returns the first occupied seat index or -1.
func findFirstOccupiedSeat(seats []string) int {
	for i, userID := range seats {
		if userID != "" {
			return i
		}
	}
	return -1
}

type matchHandler struct{}

func newMatchHandler() *matchHandler {
	return &matchHandler{}
}

// MatchInit is called when the match is created.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	logger.Debug("MatchInit: Initializing critical match handler.")

	if err := config.LoadGameConfig("data/game_config.json"); err != nil {
		logger.Warn("MatchInit: Could not load game config: %v", err)
	}

	state := &MatchState{
		Tick:      time.Now().Unix(),
		OwnerSeat: -1,
		Presences: make(map[string]runtime.Presence),
		App:       app.NewService(nil),
		Economy:   NewNakamaEconomyAdapter(nk),
		History:   NewNakamaHistoryAdapter(nk),
	}

	if tier, ok := params["tier"].(string); ok {
		state.Tier = tier
	}
	if visibility, ok := params["visibility"].(string); ok && visibility == "private" {
		state.Private = true
	}
	if code, ok := params["invite_code"].(string); ok {
		state.InviteCode = code
	}
	if raw, ok := params["expansions"].([]interface{}); ok {
		for _, e := range raw {
			if id, ok := e.(string); ok {
				state.Expansions = append(state.Expansions, id)
			}
		}
	}

	labelBytes, err := json.Marshal(mh.buildLabel(state))
	if err != nil {
		logger.Error("MatchInit: Failed to marshal label: %v", err)
		return nil, 0, ""
	}

	tickRate := 1 // one tick per second, timers count in seconds
	return state, tickRate, string(labelBytes)
}

func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}

	// Reconnecting players keep their seat.
	for _, seatUserID := range matchState.Seats {
		if seatUserID == presence.GetUserId() {
			return state, true, ""
		}
	}

	if matchState.Game != nil {
		return state, false, "game already in progress"
	}
	if matchState.Private && metadata["invite_code"] != matchState.InviteCode {
		return state, false, "invalid invite code"
	}
	if matchState.GetOpenSeatsCount() <= 0 {
		return state, false, "room full"
	}

	return state, true, ""
}

func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	for _, p := range presences {
		matchState.Presences[p.GetUserId()] = p

		alreadySeated := false
		for _, seatUserID := range matchState.Seats {
			if seatUserID == p.GetUserId() {
				alreadySeated = true
				break
			}
		}
		if alreadySeated {
			continue
		}

		assigned := -1
		for i, seatUserID := range matchState.Seats {
			if seatUserID == "" {
				matchState.Seats[i] = p.GetUserId()
				assigned = i
				break
			}
		}
		if assigned < 0 {
			logger.Warn("MatchJoin: User %s joined but no seat was available.", p.GetUserId())
			continue
		}

		mh.broadcastEvent(ctx, matchState, dispatcher, logger, app.Event{
			Kind: app.EventPlayerJoined,
			Payload: app.PlayerJoinedPayload{
				UserID:      p.GetUserId(),
				Seat:        assigned,
				DisplayName: p.GetUsername(),
			},
		})
	}

	if matchState.OwnerSeat < 0 || matchState.Seats[matchState.OwnerSeat] == "" {
		matchState.OwnerSeat = findFirstOccupiedSeat(matchState.Seats[:])
	}

	mh.updateLabel(matchState, dispatcher, logger)
	mh.broadcastRoomSnapshot(matchState, dispatcher, logger)

	return matchState
}

// MatchLeave is called when one or more players leave the match. A seat that
// leaves mid-game is removed from turn order immediately.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	for _, p := range presences {
		delete(matchState.Presences, p.GetUserId())

		for i, seatUserID := range matchState.Seats {
			if seatUserID == p.GetUserId() {
				matchState.Seats[i] = ""
				logger.Debug("MatchLeave: User %s left, seat %d freed.", p.GetUserId(), i)
				break
			}
		}

		if matchState.Game != nil && matchState.Game.Phase == domain.PhaseInProgress {
			events, err := matchState.App.Leave(matchState.Game, p.GetUserId(), tick)
			if err != nil {
				logger.Warn("MatchLeave: Failed to remove %s from running game: %v", p.GetUserId(), err)
				continue
			}
			for _, ev := range events {
				mh.broadcastEvent(ctx, matchState, dispatcher, logger, ev)
			}
		}
	}

	if matchState.OwnerSeat < 0 || matchState.Seats[matchState.OwnerSeat] == "" {
		matchState.OwnerSeat = findFirstOccupiedSeat(matchState.Seats[:])
	}

	if matchState.GetOccupiedSeatCount() == 0 {
		logger.Info("MatchLeave: Terminating empty match.")
		return nil
	}

	mh.updateLabel(matchState, dispatcher, logger)
	mh.broadcastRoomSnapshot(matchState, dispatcher, logger)

	return matchState
}

func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}

	matchState.Tick = tick

	for _, msg := range messages {
		switch msg.GetOpCode() {
		case OpStartGame:
			mh.handleStartGame(ctx, matchState, dispatcher, logger, msg)
		case OpDrawCard:
			mh.handleDraw(ctx, matchState, dispatcher, logger, msg)
		case OpPlayAction:
			mh.handlePlayAction(ctx, matchState, dispatcher, logger, msg)
		case OpPlayNope:
			mh.handlePlayNope(ctx, matchState, dispatcher, logger, msg)
		case OpPlayCombo:
			mh.handlePlayCombo(ctx, matchState, dispatcher, logger, msg)
		case OpPlayDefuse:
			mh.handlePlayDefuse(ctx, matchState, dispatcher, logger, msg)
		case OpGiveCard:
			mh.handleGiveCard(ctx, matchState, dispatcher, logger, msg)
		default:
			logger.Warn("MatchLoop: Unknown opcode received: %d", msg.GetOpCode())
		}
	}

	// Expired counter windows and due idle alarms fire here, on the same
	// serialization point as the messages above.
	if matchState.Game != nil {
		for _, ev := range matchState.App.Tick(matchState.Game, tick) {
			mh.broadcastEvent(ctx, matchState, dispatcher, logger, ev)
		}
	}

	return matchState
}

func (mh *matchHandler) handleStartGame(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	senderSeat := seatOf(state.Seats[:], senderID)

	if senderSeat != state.OwnerSeat {
		logger.Warn("StartGame: User %s tried to start game but is not owner (owner_seat=%d)", senderID, state.OwnerSeat)
		mh.sendError(state, dispatcher, logger, senderID, 403, "only the host can start the game")
		return
	}
	if state.Game != nil {
		mh.sendError(state, dispatcher, logger, senderID, 409, "game already in progress")
		return
	}

	request := &StartGameRequest{}
	if len(msg.GetData()) > 0 {
		if err := json.Unmarshal(msg.GetData(), request); err != nil {
			logger.Warn("StartGame: Invalid StartGameRequest from %s: %v", senderID, err)
			return
		}
	}

	tier := request.Tier
	if tier == "" {
		tier = state.Tier
	}
	expansions := request.Expansions
	if expansions == nil {
		expansions = state.Expansions
	}
	baseBet := config.GetBaseBet(tier)

	game, events, err := state.App.StartGame(state.Seats[:], expansions, baseBet, state.Tick)
	if err != nil {
		logger.Warn("StartGame: Failed to start game: %v", err)
		mh.sendError(state, dispatcher, logger, senderID, 400, err.Error())
		return
	}

	state.Game = game
	state.StartedAt = time.Now().UTC()
	state.Participants = nil
	for _, seatUserID := range state.Seats {
		if seatUserID != "" {
			state.Participants = append(state.Participants, seatUserID)
		}
	}

	mh.updateLabel(state, dispatcher, logger)
	for _, ev := range events {
		mh.broadcastEvent(ctx, state, dispatcher, logger, ev)
	}

	logger.Info("StartGame: Game started with %d players.", len(state.Participants))
}

func (mh *matchHandler) handleDraw(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	if state.Game == nil {
		mh.sendError(state, dispatcher, logger, msg.GetUserId(), 400, "game not started")
		return
	}
	events, err := state.App.Draw(state.Game, msg.GetUserId(), state.Tick)
	if err != nil {
		mh.sendError(state, dispatcher, logger, msg.GetUserId(), 400, err.Error())
		return
	}
	for _, ev := range events {
		mh.broadcastEvent(ctx, state, dispatcher, logger, ev)
	}
}

func (mh *matchHandler) handlePlayAction(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	if state.Game == nil {
		mh.sendError(state, dispatcher, logger, msg.GetUserId(), 400, "game not started")
		return
	}
	request := &PlayActionRequest{}
	if err := json.Unmarshal(msg.GetData(), request); err != nil {
		logger.Warn("handlePlayAction: Failed to unmarshal request: %v", err)
		return
	}
	events, err := state.App.PlayAction(state.Game, msg.GetUserId(), request.Card, request.TargetSeat, state.Tick)
	if err != nil {
		mh.sendError(state, dispatcher, logger, msg.GetUserId(), 400, err.Error())
		return
	}
	for _, ev := range events {
		mh.broadcastEvent(ctx, state, dispatcher, logger, ev)
	}
}

func (mh *matchHandler) handlePlayNope(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	if state.Game == nil {
		mh.sendError(state, dispatcher, logger, msg.GetUserId(), 400, "game not started")
		return
	}
	events, err := state.App.PlayNope(state.Game, msg.GetUserId(), state.Tick)
	if err != nil {
		mh.sendError(state, dispatcher, logger, msg.GetUserId(), 400, err.Error())
		return
	}
	for _, ev := range events {
		mh.broadcastEvent(ctx, state, dispatcher, logger, ev)
	}
}

func (mh *matchHandler) handlePlayCombo(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	if state.Game == nil {
		mh.sendError(state, dispatcher, logger, msg.GetUserId(), 400, "game not started")
		return
	}
	request := &PlayComboRequest{}
	if err := json.Unmarshal(msg.GetData(), request); err != nil {
		logger.Warn("handlePlayCombo: Failed to unmarshal request: %v", err)
		return
	}
	events, err := state.App.PlayCatCombo(state.Game, msg.GetUserId(), request.Cat, request.Mode, request.TargetSeat, request.DesiredCard, state.Tick)
	if err != nil {
		mh.sendError(state, dispatcher, logger, msg.GetUserId(), 400, err.Error())
		return
	}
	for _, ev := range events {
		mh.broadcastEvent(ctx, state, dispatcher, logger, ev)
	}
}

func (mh *matchHandler) handlePlayDefuse(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	if state.Game == nil {
		mh.sendError(state, dispatcher, logger, msg.GetUserId(), 400, "game not started")
		return
	}
	request := &PlayDefuseRequest{}
	if err := json.Unmarshal(msg.GetData(), request); err != nil {
		logger.Warn("handlePlayDefuse: Failed to unmarshal request: %v", err)
		return
	}
	events, err := state.App.PlayDefuse(state.Game, msg.GetUserId(), request.Position, state.Tick)
	if err != nil {
		mh.sendError(state, dispatcher, logger, msg.GetUserId(), 400, err.Error())
		return
	}
	for _, ev := range events {
		mh.broadcastEvent(ctx, state, dispatcher, logger, ev)
	}
}

func (mh *matchHandler) handleGiveCard(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	if state.Game == nil {
		mh.sendError(state, dispatcher, logger, msg.GetUserId(), 400, "game not started")
		return
	}
	request := &GiveCardRequest{}
	if err := json.Unmarshal(msg.GetData(), request); err != nil {
		logger.Warn("handleGiveCard: Failed to unmarshal request: %v", err)
		return
	}
	events, err := state.App.GiveFavorCard(state.Game, msg.GetUserId(), request.Card, state.Tick)
	if err != nil {
		mh.sendError(state, dispatcher, logger, msg.GetUserId(), 400, err.Error())
		return
	}
	for _, ev := range events {
		mh.broadcastEvent(ctx, state, dispatcher, logger, ev)
	}
}

// broadcastEvent converts and dispatches app events. The game.ended event
// additionally settles wallets, archives the session, and returns the room to
// the lobby phase.
func (mh *matchHandler) broadcastEvent(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, ev app.Event) {
	if ev.Kind == app.EventGameEnded {
		p, _ := ev.Payload.(app.GameEndedPayload)
		mh.settleAndArchive(ctx, state, logger, p)
		state.Game = nil
		defer mh.updateLabel(state, dispatcher, logger)
	}

	opCode, data, err := encodeEvent(ev)
	if err != nil {
		logger.Error("Failed to marshal event %v: %v", ev.Kind, err)
		return
	}
	if opCode == 0 {
		logger.Warn("Unknown event kind: %v", ev.Kind)
		return
	}

	// Default to broadcast; targeted events go only to connected recipients.
	var recipients []runtime.Presence
	if len(ev.Recipients) > 0 {
		for _, uid := range ev.Recipients {
			if p, ok := state.Presences[uid]; ok {
				recipients = append(recipients, p)
			}
		}
		if len(recipients) == 0 {
			return
		}
	}

	dispatcher.BroadcastMessage(opCode, data, recipients, nil, true)
}

// settleAndArchive applies end-of-game balance changes and hands the session
// record to the history collaborator.
func (mh *matchHandler) settleAndArchive(ctx context.Context, state *MatchState, logger runtime.Logger, p app.GameEndedPayload) {
	matchID, _ := ctx.Value(runtime.RUNTIME_CTX_MATCH_ID).(string)

	if state.Economy != nil && len(p.BalanceChanges) > 0 {
		updates := make([]ports.WalletUpdate, 0, len(p.BalanceChanges))
		for userID, amount := range p.BalanceChanges {
			updates = append(updates, ports.WalletUpdate{
				UserID: userID,
				Amount: amount,
				Metadata: map[string]interface{}{
					"match_id": matchID,
					"reason":   "game_settlement",
				},
			})
		}
		if err := state.Economy.UpdateBalances(ctx, updates); err != nil {
			logger.Error("Failed to update balances: %v", err)
		}
	}

	if state.History != nil {
		record := ports.SessionRecord{
			RoomID:       matchID,
			Variant:      "critical",
			Participants: state.Participants,
			Ranking:      p.Ranking,
			ErrorOutcome: p.ErrorOutcome,
			StartedAt:    state.StartedAt,
			EndedAt:      time.Now().UTC(),
		}
		if err := state.History.ArchiveSession(ctx, record); err != nil {
			logger.Error("Failed to archive session: %v", err)
		}
	}
}

// sendError sends a GameErrorEvent to a specific user.
func (mh *matchHandler) sendError(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string, code int, message string) {
	data, err := json.Marshal(&GameErrorEvent{Code: code, Message: message})
	if err != nil {
		logger.Error("Failed to marshal GameErrorEvent: %v", err)
		return
	}

	presence, ok := state.Presences[userID]
	if !ok {
		logger.Warn("Cannot send error to %s: Presence not found", userID)
		return
	}

	dispatcher.BroadcastMessage(OpGameError, data, []runtime.Presence{presence}, nil, true)
}

func (mh *matchHandler) broadcastRoomSnapshot(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	var players []RoomPlayer
	for i, userID := range state.Seats {
		if userID == "" {
			continue
		}

		displayName := userID
		if p, exists := state.Presences[userID]; exists {
			displayName = p.GetUsername()
		}

		cardsRemaining := 0
		if state.Game != nil {
			if seat := state.Game.SeatByUser(userID); seat != nil {
				cardsRemaining = len(seat.Hand)
			}
		}

		players = append(players, RoomPlayer{
			UserID:         userID,
			Seat:           i,
			IsOwner:        i == state.OwnerSeat,
			DisplayName:    displayName,
			CardsRemaining: cardsRemaining,
		})
	}

	snapshot := &RoomSnapshot{
		Variant:   "critical",
		Seats:     state.Seats[:],
		OwnerSeat: state.OwnerSeat,
		Players:   players,
		Phase:     mh.phase(state),
		Tick:      state.Tick,
	}
	data, _ := json.Marshal(snapshot)
	dispatcher.BroadcastMessage(OpRoomUpdate, data, nil, nil, true)
}

func (mh *matchHandler) phase(state *MatchState) string {
	if state.Game != nil {
		return "in_progress"
	}
	return "lobby"
}

func (mh *matchHandler) buildLabel(state *MatchState) *matchLabel {
	label := &matchLabel{
		Game:  "critical",
		Open:  state.GetOpenSeatsCount(),
		Phase: mh.phase(state),
		Tier:  state.Tier,
	}
	if state.Private {
		label.Code = state.InviteCode
		label.Open = 0 // private rooms never show up as joinable
	}
	return label
}

func (mh *matchHandler) updateLabel(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	labelBytes, err := json.Marshal(mh.buildLabel(state))
	if err != nil {
		logger.Error("UpdateLabel: Failed to marshal: %v", err)
		return
	}
	if err := dispatcher.MatchLabelUpdate(string(labelBytes)); err != nil {
		logger.Error("UpdateLabel: Failed to update: %v", err)
	}
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, reason int) interface{} {
	logger.Debug("MatchTerminate: Match terminated for reason %d", reason)
	return state
}

func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	return state, ""
}

// seatOf returns the seat index for a user id or -1.
func seatOf(seats []string, userID string) int {
	for i, seatUserID := range seats {
		if seatUserID == userID {
			return i
		}
	}
	return -1
}
