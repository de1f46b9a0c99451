package domain

import "github.com/google/uuid"

type OptionTally struct {
	OptionID   uuid.UUID `json:"id"`
	Text       string    `json:"text"`
	Votes      int64     `json:"votes"`
	Percentage float64   `json:"percentage"`
}

type PollTally struct {
	PollID     uuid.UUID     `json:"poll_id"`
	TotalVotes int64         `json:"total_votes"`
	Options    []OptionTally `json:"options"`
}
