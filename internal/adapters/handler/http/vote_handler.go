package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/vecinet/portal/internal/core/domain"
	"github.com/vecinet/portal/internal/core/ports"
)

type VoteHandler struct {
	service ports.VoteService
}

func NewVoteHandler(service ports.VoteService) *VoteHandler {
	return &VoteHandler{
		service: service,
	}
}

func (h *VoteHandler) RequestCode(w http.ResponseWriter, r *http.Request) {
	principal := PrincipalFromContext(r.Context())
	if principal == nil {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	issue, err := h.service.RequestCode(r.Context(), principal.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNoContactAddress) {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		if errors.Is(err, domain.ErrPrincipalNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, issue)
}

type castVoteRequest struct {
	OptionID *uuid.UUID `json:"option_id"`
	Code     string     `json:"code"`
}

func (h *VoteHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	pollIDStr := chi.URLParam(r, "id")
	pollID, err := uuid.Parse(pollIDStr)
	if err != nil {
		http.Error(w, domain.ErrInvalidPollID.Error(), http.StatusBadRequest)
		return
	}

	var req castVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	principal := PrincipalFromContext(r.Context())
	if principal == nil {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	receipt, err := h.service.Cast(r.Context(), ports.CastVoteInput{
		PollID:   pollID,
		VoterID:  principal.ID,
		OptionID: req.OptionID,
		Code:     req.Code,
		Channel:  "web",
	})
	if err != nil {
		if errors.Is(err, domain.ErrPollNotFound) || errors.Is(err, domain.ErrOptionNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	observeVoteReceipt(receipt)

	status := http.StatusCreated
	if !receipt.OK {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, receipt)
}

func (h *VoteHandler) MyVote(w http.ResponseWriter, r *http.Request) {
	pollIDStr := chi.URLParam(r, "id")
	pollID, err := uuid.Parse(pollIDStr)
	if err != nil {
		http.Error(w, domain.ErrInvalidPollID.Error(), http.StatusBadRequest)
		return
	}

	principal := PrincipalFromContext(r.Context())
	if principal == nil {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	vote, err := h.service.MyVote(r.Context(), pollID, principal.ID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if vote == nil {
		http.Error(w, "no vote for this poll", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"option_id": vote.OptionID.String()})
}
