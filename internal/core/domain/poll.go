package domain

import (
	"time"

	"github.com/google/uuid"
)

type Poll struct {
	ID        uuid.UUID    `json:"id"`
	Question  string       `json:"question"`
	Detail    string       `json:"detail,omitempty"`
	Options   []PollOption `json:"options"`
	Active    bool         `json:"active"`
	ClosesAt  time.Time    `json:"closes_at"`
	CreatedBy uuid.UUID    `json:"created_by"`
	CreatedAt time.Time    `json:"created_at"`
}

type PollOption struct {
	ID        uuid.UUID `json:"id"`
	PollID    uuid.UUID `json:"poll_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// IsOpen reports whether the poll accepts votes at the given instant.
// A poll is open iff it is still active and its close time has not
// passed. The active flag alone is not authoritative: a poll past its
// close time counts as closed even before the lazy flip persists it.
func (p *Poll) IsOpen(now time.Time) bool {
	return p.Active && now.Before(p.ClosesAt)
}

// Option returns the option with the given id, or nil when it does not
// belong to this poll.
func (p *Poll) Option(id uuid.UUID) *PollOption {
	for i := range p.Options {
		if p.Options[i].ID == id {
			return &p.Options[i]
		}
	}
	return nil
}
