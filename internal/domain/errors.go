package domain

import "errors"

// Error taxonomy shared across the engine. Callers match with errors.Is;
// lower layers wrap these with fmt.Errorf("...: %w", ...) for context.
var (
	// ErrInvalidReference indicates a dangling foreign id (unknown user for a
	// session, unknown or closed session for a mistake).
	ErrInvalidReference = errors.New("invalid reference")

	// ErrNotFound indicates the referenced record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyClosed indicates a close attempt on a session whose end
	// timestamp is already set. Closing is terminal; re-close is rejected.
	ErrAlreadyClosed = errors.New("session already closed")

	// ErrAlreadySeeded indicates a second Seed call on a memory window.
	ErrAlreadySeeded = errors.New("memory window already seeded")

	// ErrUnknownScene indicates a scene outside the supported catalog.
	ErrUnknownScene = errors.New("unknown scene")

	// ErrSessionNotActive indicates a turn submitted to a session that is not
	// in the Active state.
	ErrSessionNotActive = errors.New("session not active")

	// ErrGenerationUnavailable indicates the generation service was
	// unreachable or timed out. Retry policy belongs to the caller.
	ErrGenerationUnavailable = errors.New("generation service unavailable")

	// ErrMalformedAnalysis indicates the generation service emitted a
	// correction block that could not be decoded.
	ErrMalformedAnalysis = errors.New("malformed analysis")

	// ErrPersistenceFailure indicates a store-level write error.
	ErrPersistenceFailure = errors.New("persistence failure")
)
