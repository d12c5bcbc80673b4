package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrRateLimited       = errors.New("rate limited")
	ErrContextDone       = errors.New("context cancelled")
	ErrLedgerUnreachable = errors.New("ledger unreachable")
	ErrFactUnavailable   = errors.New("ledger fact unavailable")
	ErrMetadataUnavail   = errors.New("metadata unavailable")
	ErrCommandReverted   = errors.New("command reverted by ledger")
	ErrCommandRejected   = errors.New("command rejected by signer")
	ErrCommandNotAllowed = errors.New("command not permitted for actor")
	ErrInvalidCommand    = errors.New("invalid command parameters")
)
