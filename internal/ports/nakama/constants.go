package nakama

const (
	// RpcCreateRoom creates a room for a chosen variant and returns its id.
	RpcCreateRoom = "create_room"
	// RpcQuickMatch finds a lobby-capable room with open seats or creates one.
	RpcQuickMatch = "quick_match"

	RpcRematchRequest  = "rematch_request"
	RpcRematchRespond  = "rematch_respond"
	RpcRematchReinvite = "rematch_reinvite"
	RpcRematchBlock    = "rematch_block"

	RpcVoiceToken = "voice_token"

	// MatchNameCritical is the authoritative match handler for the critical
	// card variant.
	MatchNameCritical = "critical_match"
	// MatchNameHoldem is the authoritative match handler for the holdem
	// variant.
	MatchNameHoldem = "holdem_match"
)

// Op codes for client messages and server events.
const (
	// Client -> Server
	OpStartGame    int64 = 1
	OpDrawCard     int64 = 2
	OpPlayAction   int64 = 3
	OpPlayNope     int64 = 4
	OpPlayCombo    int64 = 5
	OpPlayDefuse   int64 = 6
	OpGiveCard     int64 = 7
	OpHoldemAction int64 = 8

	// Server -> Client events
	OpRoomUpdate       int64 = 101
	OpPlayerJoined     int64 = 102
	OpPlayerLeft       int64 = 103
	OpGameStarted      int64 = 104
	OpHandDealt        int64 = 105 // sent privately
	OpCardDrawn        int64 = 106
	OpActionPending    int64 = 107
	OpActionNoped      int64 = 108
	OpActionResolved   int64 = 109
	OpFavorRequested   int64 = 110
	OpFavorGiven       int64 = 111
	OpDefuseRequired   int64 = 112 // sent privately
	OpFutureSeen       int64 = 113 // sent privately
	OpPlayerEliminated int64 = 114
	OpTurnAdvanced     int64 = 115
	OpGameEnded        int64 = 116

	OpHoldemStarted  int64 = 120
	OpHoldemAct      int64 = 121
	OpHoldemStreet   int64 = 122
	OpHoldemShowdown int64 = 123

	OpGameError int64 = 199
)
