package domain

import (
	"time"

	"github.com/google/uuid"
)

// Attempt reasons recorded in the audit trail. These are the only
// failure reasons a vote attempt can carry.
const (
	ReasonMissingOption = "missing option"
	ReasonMissingCode   = "missing code"
	ReasonInvalidCode   = "invalid or expired code"
	ReasonPollClosed    = "poll closed"
)

// VoteAttempt is one row of the append-only vote audit trail. Attempts
// are recorded for both successful and failed casts and are never
// updated afterwards. They feed audit and metrics only; no
// authorization decision ever reads them.
type VoteAttempt struct {
	ID        uuid.UUID `json:"id"`
	PollID    uuid.UUID `json:"poll_id"`
	VoterID   uuid.UUID `json:"voter_id"`
	Success   bool      `json:"success"`
	Reason    string    `json:"reason,omitempty"`
	Channel   string    `json:"channel,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
