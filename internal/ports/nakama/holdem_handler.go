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
	"github.com/AnAtoliy-AA/arcadeum-sub008/internal/ports/handeval"

	"github.com/heroiclabs/nakama-common/runtime"
)

const holdemMaxSeats = 6

// HoldemMatchState holds the authoritative runtime state for the holdem
// match handler. Room scaffolding mirrors the critical handler; the game
// state machine is the betting engine.
type HoldemMatchState struct {
	Seats        [holdemMaxSeats]string      `json:"seats"`
	OwnerSeat    int                         `json:"owner_seat"`
	Tick         int64                       `json:"tick"`
	Tier         string                      `json:"tier"`
	InviteCode   string                      `json:"invite_code"`
	Private      bool                        `json:"private"`
	Participants []string                    `json:"participants"`
	StartedAt    time.Time                   `json:"started_at"`
	Presences    map[string]runtime.Presence `json:"-"`
	App          *app.HoldemService          `json:"-"`
	Game         *domain.HoldemGame          `json:"-"`
	Economy      ports.EconomyPort           `json:"-"`
	History      ports.HistoryPort           `json:"-"`
}

func (ms *HoldemMatchState) GetOpenSeatsCount() int {
	count := 0
	for _, seat := range ms.Seats {
		if seat == "" {
			count++
		}
	}
	return count
}

func (ms *HoldemMatchState) GetOccupiedSeatCount() int {
	return len(ms.Seats) - ms.GetOpenSeatsCount()
}

type holdemMatchHandler struct{}

func newHoldemMatchHandler() *holdemMatchHandler {
	return &holdemMatchHandler{}
}

func (mh *holdemMatchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	logger.Debug("MatchInit: Initializing holdem match handler.")

	if err := config.LoadGameConfig("data/game_config.json"); err != nil {
		logger.Warn("MatchInit: Could not load game config: %v", err)
	}

	state := &HoldemMatchState{
		Tick:      time.Now().Unix(),
		OwnerSeat: -1,
		Presences: make(map[string]runtime.Presence),
		App:       app.NewHoldemService(nil, handeval.New()),
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

	labelBytes, err := json.Marshal(mh.buildLabel(state))
	if err != nil {
		logger.Error("MatchInit: Failed to marshal label: %v", err)
		return nil, 0, ""
	}

	tickRate := 1
	return state, tickRate, string(labelBytes)
}

func (mh *holdemMatchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*HoldemMatchState)
	if !ok {
		return state, false, "state not found"
	}

	for _, seatUserID := range matchState.Seats {
		if seatUserID == presence.GetUserId() {
			return state, true, ""
		}
	}

	if matchState.Game != nil {
		return state, false, "hand already in progress"
	}
	if matchState.Private && metadata["invite_code"] != matchState.InviteCode {
		return state, false, "invalid invite code"
	}
	if matchState.GetOpenSeatsCount() <= 0 {
		return state, false, "room full"
	}

	return state, true, ""
}

func (mh *holdemMatchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*HoldemMatchState)
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

		for i, seatUserID := range matchState.Seats {
			if seatUserID == "" {
				matchState.Seats[i] = p.GetUserId()
				break
			}
		}
	}

	if matchState.OwnerSeat < 0 || matchState.Seats[matchState.OwnerSeat] == "" {
		matchState.OwnerSeat = findFirstOccupiedSeat(matchState.Seats[:])
	}

	mh.updateLabel(matchState, dispatcher, logger)
	mh.broadcastRoomSnapshot(matchState, dispatcher, logger)

	return matchState
}

func (mh *holdemMatchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*HoldemMatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	for _, p := range presences {
		delete(matchState.Presences, p.GetUserId())

		for i, seatUserID := range matchState.Seats {
			if seatUserID == p.GetUserId() {
				matchState.Seats[i] = ""
				break
			}
		}

		if matchState.Game != nil && matchState.Game.Phase == domain.PhaseInProgress {
			events, err := matchState.App.Leave(matchState.Game, p.GetUserId(), tick)
			if err != nil {
				logger.Warn("MatchLeave: Failed to fold %s out of running hand: %v", p.GetUserId(), err)
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

func (mh *holdemMatchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*HoldemMatchState)
	if !ok {
		return state
	}

	matchState.Tick = tick

	for _, msg := range messages {
		switch msg.GetOpCode() {
		case OpStartGame:
			mh.handleStartGame(ctx, matchState, dispatcher, logger, msg)
		case OpHoldemAction:
			mh.handleHoldemAction(ctx, matchState, dispatcher, logger, msg)
		default:
			logger.Warn("MatchLoop: Unknown opcode received: %d", msg.GetOpCode())
		}
	}

	if matchState.Game != nil {
		for _, ev := range matchState.App.Tick(matchState.Game, tick) {
			mh.broadcastEvent(ctx, matchState, dispatcher, logger, ev)
		}
	}

	return matchState
}

func (mh *holdemMatchHandler) handleStartGame(ctx context.Context, state *HoldemMatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	if seatOf(state.Seats[:], senderID) != state.OwnerSeat {
		mh.sendError(state, dispatcher, logger, senderID, 403, "only the host can start the game")
		return
	}
	if state.Game != nil {
		mh.sendError(state, dispatcher, logger, senderID, 409, "hand already in progress")
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
	// The tier's base bet becomes the big blind; stacks buy in for 100 blinds.
	bigBlind := config.GetBaseBet(tier)
	smallBlind := bigBlind / 2
	startingChips := bigBlind * 100

	game, events, err := state.App.StartHoldem(state.Seats[:], startingChips, smallBlind, bigBlind, state.Tick)
	if err != nil {
		logger.Warn("StartGame: Failed to start hand: %v", err)
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
}

func (mh *holdemMatchHandler) handleHoldemAction(ctx context.Context, state *HoldemMatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	if state.Game == nil {
		mh.sendError(state, dispatcher, logger, msg.GetUserId(), 400, "hand not started")
		return
	}
	request := &HoldemActionRequest{}
	if err := json.Unmarshal(msg.GetData(), request); err != nil {
		logger.Warn("handleHoldemAction: Failed to unmarshal request: %v", err)
		return
	}
	events, err := state.App.HoldemAction(state.Game, msg.GetUserId(), request.Action, request.RaiseTo, state.Tick)
	if err != nil {
		mh.sendError(state, dispatcher, logger, msg.GetUserId(), 400, err.Error())
		return
	}
	for _, ev := range events {
		mh.broadcastEvent(ctx, state, dispatcher, logger, ev)
	}
}

func (mh *holdemMatchHandler) broadcastEvent(ctx context.Context, state *HoldemMatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, ev app.Event) {
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

func (mh *holdemMatchHandler) settleAndArchive(ctx context.Context, state *HoldemMatchState, logger runtime.Logger, p app.GameEndedPayload) {
	matchID, _ := ctx.Value(runtime.RUNTIME_CTX_MATCH_ID).(string)

	if state.Economy != nil && len(p.BalanceChanges) > 0 {
		updates := make([]ports.WalletUpdate, 0, len(p.BalanceChanges))
		for userID, amount := range p.BalanceChanges {
			updates = append(updates, ports.WalletUpdate{
				UserID: userID,
				Amount: amount,
				Metadata: map[string]interface{}{
					"match_id": matchID,
					"reason":   "hand_settlement",
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
			Variant:      "holdem",
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

func (mh *holdemMatchHandler) sendError(state *HoldemMatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string, code int, message string) {
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

func (mh *holdemMatchHandler) broadcastRoomSnapshot(state *HoldemMatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	var players []RoomPlayer
	for i, userID := range state.Seats {
		if userID == "" {
			continue
		}

		displayName := userID
		if p, exists := state.Presences[userID]; exists {
			displayName = p.GetUsername()
		}

		players = append(players, RoomPlayer{
			UserID:      userID,
			Seat:        i,
			IsOwner:     i == state.OwnerSeat,
			DisplayName: displayName,
		})
	}

	snapshot := &RoomSnapshot{
		Variant:   "holdem",
		Seats:     state.Seats[:],
		OwnerSeat: state.OwnerSeat,
		Players:   players,
		Phase:     mh.phase(state),
		Tick:      state.Tick,
	}
	data, _ := json.Marshal(snapshot)
	dispatcher.BroadcastMessage(OpRoomUpdate, data, nil, nil, true)
}

func (mh *holdemMatchHandler) phase(state *HoldemMatchState) string {
	if state.Game != nil {
		return "in_progress"
	}
	return "lobby"
}

func (mh *holdemMatchHandler) buildLabel(state *HoldemMatchState) *matchLabel {
	label := &matchLabel{
		Game:  "holdem",
		Open:  state.GetOpenSeatsCount(),
		Phase: mh.phase(state),
		Tier:  state.Tier,
	}
	if state.Private {
		label.Code = state.InviteCode
		label.Open = 0
	}
	return label
}

func (mh *holdemMatchHandler) updateLabel(state *HoldemMatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	labelBytes, err := json.Marshal(mh.buildLabel(state))
	if err != nil {
		logger.Error("UpdateLabel: Failed to marshal: %v", err)
		return
	}
	if err := dispatcher.MatchLabelUpdate(string(labelBytes)); err != nil {
		logger.Error("UpdateLabel: Failed to update: %v", err)
	}
}

func (mh *holdemMatchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, reason int) interface{} {
	logger.Debug("MatchTerminate: Match terminated for reason %d", reason)
	return state
}

func (mh *holdemMatchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	return state, ""
}
