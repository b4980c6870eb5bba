package models

import "errors"

// Errors detected inside the atomic ledger step.
var (
	// ErrInsufficientBalance is returned when a debit would drive the balance below zero.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrConflict is returned when concurrent writers kept invalidating the atomic step after all retries.
	ErrConflict = errors.New("concurrent modification, retries exhausted")
	// ErrCurrencyMismatch is returned when the account currency differs from the requested one.
	ErrCurrencyMismatch = errors.New("currency mismatch")
	// ErrIdempotencyKeyReused is returned when a key already recorded for one operation
	// arrives with a different operation, amount or counterparty.
	ErrIdempotencyKeyReused = errors.New("idempotency key already used for a different request")
)

// ErrUserAlreadyExists is returned when a username or email is already registered.
var ErrUserAlreadyExists = errors.New("username or email already exists")
