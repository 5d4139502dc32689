package service

import "errors"

// Error taxonomy shared by all ledger-core services. Callers branch with
// errors.Is; detail is carried by wrapping.
var (
	// ErrValidation covers missing required fields, zero-value entries,
	// unknown logical types and malformed external references.
	ErrValidation = errors.New("validation failed")

	// ErrDuplicateEntry is returned on the blockchain-deposit path when the
	// normalized reference was already recorded. Repeatable event types do
	// not surface this error; they succeed with the existing entry id.
	ErrDuplicateEntry = errors.New("duplicate ledger entry")

	// ErrInsufficientFunds means a subtract would drive a balance negative.
	// The stored balance is unchanged.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrStateConflict means a withdrawal transition was attempted on a
	// request that is no longer pending.
	ErrStateConflict = errors.New("request is not pending")

	// ErrNotFound means the referenced withdrawal request does not exist.
	ErrNotFound = errors.New("withdrawal request not found")
)
