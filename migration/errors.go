package migration

import "errors"

// Error kinds surfaced by the operations layer. None are
// caught inside the core; retry is the caller's policy.
var (
	// ErrLimitsTooLarge is returned when a signed caller's limits exceed
	// the configured maximum.
	ErrLimitsTooLarge = errors.New("migration: signed limits exceed configured maximum")
	// ErrInsufficientFunds is returned when the caller cannot be slashed
	// for the required deposit.
	ErrInsufficientFunds = errors.New("migration: caller cannot cover the required deposit")
	// ErrWrongWitness is returned when a caller's witness task does not
	// match the persisted cursor.
	ErrWrongWitness = errors.New("migration: witness task does not match the persisted cursor")
	// ErrWrongWitnessData is returned when a caller's declared byte-size
	// witness understated the work actually performed.
	ErrWrongWitnessData = errors.New("migration: declared witness data was incorrect")
	// ErrBadChildKey is returned when a custom child operation is given a
	// top key that does not decode as a valid child root.
	ErrBadChildKey = errors.New("migration: not a valid child-root key")
	// ErrLogicError signals an impossible cursor state was encountered;
	// the caller must invoke Halt.
	ErrLogicError = errors.New("migration: impossible cursor state")
)
