package domain

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

type Vote struct {
	ID        uuid.UUID `json:"id"`
	PollID    uuid.UUID `json:"poll_id"`
	OptionID  uuid.UUID `json:"option_id"`
	VoterID   uuid.UUID `json:"voter_id"`
	Checksum  string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// VoteChecksum derives the tamper-evidence tag stored next to a vote.
// It is an HMAC over voter and option ids keyed with a server-side
// secret, recomputed on every write. It detects out-of-band edits to
// vote rows as long as the secret stays out of the database; it is not
// a signature and offers no protection against anyone holding the
// secret.
func VoteChecksum(secret []byte, voterID, optionID uuid.UUID) string {
	h := hmac.New(sha256.New, secret)
	h.Write([]byte(voterID.String()))
	h.Write([]byte(optionID.String()))
	return hex.EncodeToString(h.Sum(nil))
}

// VerifyVoteChecksum reports whether the stored tag matches the
// recomputed one.
func VerifyVoteChecksum(secret []byte, v *Vote) bool {
	expected := VoteChecksum(secret, v.VoterID, v.OptionID)
	return hmac.Equal([]byte(expected), []byte(v.Checksum))
}
