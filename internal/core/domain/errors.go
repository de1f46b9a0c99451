package domain

import "errors"

var (
	ErrPollNotFound      = errors.New("poll not found")
	ErrInvalidPollID     = errors.New("invalid poll id")
	ErrOptionNotFound    = errors.New("option does not belong to this poll")
	ErrPollClosed        = errors.New("poll closed")
	ErrPollAlreadyClosed = errors.New("poll is already closed")
	ErrPollNotEditable   = errors.New("closed polls cannot be edited or deleted")
	ErrTooFewOptions     = errors.New("at least two options are required")
	ErrCloseInPast       = errors.New("close time must be in the future")
	ErrMissingOption     = errors.New("missing option")
	ErrMissingCode       = errors.New("missing code")
	ErrInvalidCode       = errors.New("invalid or expired code")
	ErrPrincipalNotFound = errors.New("principal not found")
	ErrNoContactAddress  = errors.New("principal has no contact address")
	ErrInvalidRole       = errors.New("unknown role")
	ErrInternal          = errors.New("internal server error")
)
