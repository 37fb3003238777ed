package models

import "errors"

// Engine error taxonomy. Handlers translate these to HTTP statuses with
// errors.Is, so wrapped variants keep their classification.
var (
	// ErrValidation covers malformed or ineligible input (wrong card,
	// self-trade, full card on a base-only path).
	ErrValidation = errors.New("validation failed")

	// ErrRateLimited means a daily gate or bonus balance is exhausted.
	ErrRateLimited = errors.New("rate limit reached")

	// ErrQuotaExceeded means a weekly trade cap would be exceeded.
	ErrQuotaExceeded = errors.New("weekly trade quota exceeded")

	// ErrConflict means the operation lost a race: the trade is no longer
	// pending, or a card was no longer available at accept time.
	ErrConflict = errors.New("conflict")

	// ErrNotFound means the referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNegativeCount means an inventory mutation would drive a count
	// below zero. Through the public API this is always an internal bug.
	ErrNegativeCount = errors.New("negative card count")
)
