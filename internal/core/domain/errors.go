package domain

import "errors"

var (
	ErrInvalidDealID = errors.New("invalid deal id")
	ErrDealNotFound  = errors.New("deal not found")
	ErrInvalidStatus = errors.New("invalid deal status")
	ErrInvalidTerms  = errors.New("deal terms must be valid json")
	ErrEmptyPatch    = errors.New("deal patch is empty")
	ErrForbidden     = errors.New("forbidden")

	ErrUnauthenticated = errors.New("unauthenticated")
	ErrSessionRevoked  = errors.New("session revoked")

	ErrAlreadyRegistered = errors.New("connection already registered")
	ErrRegistryClosed    = errors.New("registry closed")
	ErrClientClosed      = errors.New("client closed")
	ErrSendBufferFull    = errors.New("client send buffer full")
)
