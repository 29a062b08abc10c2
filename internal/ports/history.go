package ports

import (
	"context"
	"time"
)

// SessionRecord is the completed-session snapshot handed to the history
// collaborator. Schema beyond these fields is owned by that collaborator.
type SessionRecord struct {
	RoomID       string    `json:"room_id"`
	Variant      string    `json:"variant"`
	Participants []string  `json:"participants"`
	// Ranking lists user ids best first.
	Ranking      []string  `json:"ranking"`
	ErrorOutcome string    `json:"error_outcome,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	EndedAt      time.Time `json:"ended_at"`
}

// HistoryPort archives completed sessions and serves them back to the
// rematch coordinator.
type HistoryPort interface {
	// ArchiveSession persists a completed-session record.
	ArchiveSession(ctx context.Context, record SessionRecord) error

	// GetSession returns the archived record for a room, or found=false.
	GetSession(ctx context.Context, roomID string) (SessionRecord, bool, error)
}
