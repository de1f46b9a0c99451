package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/vecinet/portal/internal/core/authz"
	"github.com/vecinet/portal/internal/core/domain"
	"github.com/vecinet/portal/internal/core/ports"
)

type PollHandler struct {
	service ports.PollService
	votes   ports.VoteService
	engine  *authz.Engine
}

func NewPollHandler(service ports.PollService, votes ports.VoteService, engine *authz.Engine) *PollHandler {
	return &PollHandler{
		service: service,
		votes:   votes,
		engine:  engine,
	}
}

type createPollRequest struct {
	Question string    `json:"question"`
	Detail   string    `json:"detail"`
	Options  []string  `json:"options"`
	ClosesAt time.Time `json:"closes_at"`
}

func (h *PollHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	var req createPollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	principal := PrincipalFromContext(r.Context())
	if principal == nil {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	input := ports.CreatePollInput{
		Question: req.Question,
		Detail:   req.Detail,
		Options:  req.Options,
		ClosesAt: req.ClosesAt,
		CreateBy: principal.ID,
	}

	poll, err := h.service.Create(r.Context(), input)
	if err != nil {
		if errors.Is(err, domain.ErrTooFewOptions) || errors.Is(err, domain.ErrCloseInPast) {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, poll)
}

func (h *PollHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	poll, err := h.service.GetPoll(r.Context(), id)
	if err != nil {
		writePollError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, poll)
}

func (h *PollHandler) ListPolls(w http.ResponseWriter, r *http.Request) {
	page := 1
	if p := r.URL.Query().Get("page"); p != "" {
		parsed, err := strconv.Atoi(p)
		if err != nil || parsed < 1 {
			http.Error(w, "invalid page", http.StatusBadRequest)
			return
		}
		page = parsed
	}

	polls, err := h.service.ListPolls(r.Context(), ports.ListPollsInput{Page: page})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if polls == nil {
		polls = []*domain.Poll{}
	}

	writeJSON(w, http.StatusOK, polls)
}

type updatePollRequest struct {
	Question string    `json:"question"`
	Detail   string    `json:"detail"`
	ClosesAt time.Time `json:"closes_at"`
}

func (h *PollHandler) UpdatePoll(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updatePollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	poll, err := h.service.UpdatePoll(r.Context(), id, ports.UpdatePollInput{
		Question: req.Question,
		Detail:   req.Detail,
		ClosesAt: req.ClosesAt,
	})
	if err != nil {
		writePollError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, poll)
}

func (h *PollHandler) DeletePoll(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.DeletePoll(r.Context(), id); err != nil {
		writePollError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *PollHandler) ClosePoll(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	poll, err := h.service.ClosePoll(r.Context(), id)
	if err != nil {
		writePollError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, poll)
}

// Tally serves results. Seeing live results while the poll is still
// open is a separate privilege from viewing closed results, so the
// authorization check depends on poll state and lives here instead of
// the route middleware.
func (h *PollHandler) Tally(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	poll, err := h.service.GetPoll(r.Context(), id)
	if err != nil {
		writePollError(w, err)
		return
	}

	principal := PrincipalFromContext(r.Context())
	action := "view"
	if poll.IsOpen(time.Now()) {
		action = "results"
	}
	if !h.engine.Can(principal, "polls", action) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	tally, err := h.votes.Tally(r.Context(), poll.ID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, tally)
}

func (h *PollHandler) Attempts(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	pollID, err := uuid.Parse(id)
	if err != nil {
		http.Error(w, domain.ErrInvalidPollID.Error(), http.StatusBadRequest)
		return
	}

	attempts, err := h.votes.Attempts(r.Context(), pollID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if attempts == nil {
		attempts = []*domain.VoteAttempt{}
	}

	writeJSON(w, http.StatusOK, attempts)
}

func writePollError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidPollID):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrPollNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrPollNotEditable), errors.Is(err, domain.ErrPollAlreadyClosed):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrCloseInPast), errors.Is(err, domain.ErrTooFewOptions):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}
