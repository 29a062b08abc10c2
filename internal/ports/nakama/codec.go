package nakama

import (
	"encoding/json"

	"github.com/AnAtoliy-AA/arcadeum-sub008/internal/app"
	"github.com/AnAtoliy-AA/arcadeum-sub008/internal/domain"
)

// Client request payloads. All match messages carry JSON.

type StartGameRequest struct {
	Tier       string   `json:"tier,omitempty"`
	Expansions []string `json:"expansions,omitempty"`
}

type PlayActionRequest struct {
	Card       domain.CardKind `json:"card"`
	TargetSeat int             `json:"target_seat"`
}

type PlayComboRequest struct {
	Cat         domain.CardKind  `json:"cat"`
	Mode        domain.ComboMode `json:"mode"`
	TargetSeat  int              `json:"target_seat"`
	DesiredCard domain.CardKind  `json:"desired_card,omitempty"`
}

type PlayDefuseRequest struct {
	// Position is the draw-pile depth for the reinserted explosive, 0 = top.
	Position int `json:"position"`
}

type GiveCardRequest struct {
	Card domain.CardKind `json:"card"`
}

type HoldemActionRequest struct {
	Action  string `json:"action"`
	RaiseTo int64  `json:"raise_to,omitempty"`
}

type GameErrorEvent struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// RoomSnapshot is broadcast on membership changes so clients can render the
// lobby without tracking deltas.
type RoomSnapshot struct {
	Variant   string       `json:"variant"`
	Seats     []string     `json:"seats"`
	OwnerSeat int          `json:"owner_seat"`
	Players   []RoomPlayer `json:"players"`
	Phase     string       `json:"phase"`
	Tick      int64        `json:"tick"`
}

type RoomPlayer struct {
	UserID         string `json:"user_id"`
	Seat           int    `json:"seat"`
	IsOwner        bool   `json:"is_owner"`
	DisplayName    string `json:"display_name"`
	CardsRemaining int    `json:"cards_remaining,omitempty"`
}

// eventOpCodes maps app event kinds to wire op codes.
var eventOpCodes = map[app.EventKind]int64{
	app.EventRoomUpdate:       OpRoomUpdate,
	app.EventPlayerJoined:     OpPlayerJoined,
	app.EventPlayerLeft:       OpPlayerLeft,
	app.EventGameStarted:      OpGameStarted,
	app.EventHandDealt:        OpHandDealt,
	app.EventCardDrawn:        OpCardDrawn,
	app.EventActionPending:    OpActionPending,
	app.EventActionNoped:      OpActionNoped,
	app.EventActionResolved:   OpActionResolved,
	app.EventFavorRequested:   OpFavorRequested,
	app.EventFavorGiven:       OpFavorGiven,
	app.EventDefuseRequired:   OpDefuseRequired,
	app.EventFutureSeen:       OpFutureSeen,
	app.EventPlayerEliminated: OpPlayerEliminated,
	app.EventTurnAdvanced:     OpTurnAdvanced,
	app.EventGameEnded:        OpGameEnded,
	app.EventHoldemStarted:    OpHoldemStarted,
	app.EventHoldemAction:     OpHoldemAct,
	app.EventHoldemStreet:     OpHoldemStreet,
	app.EventHoldemShowdown:   OpHoldemShowdown,
	app.EventException:        OpGameError,
}

// encodeEvent marshals an app event payload for dispatch. Unknown kinds map
// to opCode 0, which callers treat as undeliverable.
func encodeEvent(ev app.Event) (int64, []byte, error) {
	opCode, ok := eventOpCodes[ev.Kind]
	if !ok {
		return 0, nil, nil
	}
	data, err := json.Marshal(ev.Payload)
	if err != nil {
		return 0, nil, err
	}
	return opCode, data, nil
}
