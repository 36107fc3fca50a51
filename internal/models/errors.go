package models

import "errors"

var (
	ErrNotFound               = errors.New("requested entity does not exist")
	ErrInvalidTransition      = errors.New("trigger is not valid from the bid's current status")
	ErrConcurrentModification = errors.New("bid was modified concurrently, re-read and retry")
	ErrExpiredOrInvalidState  = errors.New("clarification is not pending or its deadline has passed")
	ErrClarificationPending   = errors.New("bid already has a pending clarification")
	ErrClarificationDenied    = errors.New("bid status does not permit clarification")
	ErrDuplicateBid           = errors.New("tenderer already has an active bid for this tender")
	ErrBidNotEditable         = errors.New("bid can only be edited while in draft")
	ErrNoVersion              = errors.New("requested version does not exist")
	ErrUnavailable            = errors.New("store or broker is unavailable")
)
