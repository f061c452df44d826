package migration

import (
	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/rt"
)

// Origin identifies whoever is calling an operation — a privileged
// controller or a signed account — by the same address type the rest of
// this ecosystem already uses for accounts.
type Origin = address.Address

// EventSink is the event bus the host environment consumes, named only by
// the capabilities the core needs: report migrated items, report a slash.
type EventSink interface {
	// Migrated reports top/child keys migrated by one tick, bounded
	// driver run, or custom-list call.
	Migrated(top, child uint32, compute MigrationCompute)
	// Slashed reports a deposit confiscated for a provably wrong witness.
	// Only MigrateCustomChild emits this; the other signed operations
	// slash silently.
	Slashed(who Origin, amount abi.TokenAmount)
}

// Authorizer verifies that an origin holds the privileged control
// authority required by ControlAutoMigration.
type Authorizer interface {
	EnsurePrivileged(origin Origin) error
}

// Currency is the balance/currency system deposits and slashes are drawn
// against.
type Currency interface {
	CanSlash(who Origin, amount abi.TokenAmount) bool
	// Slash confiscates amount from who's balance, returning the amount
	// actually confiscated.
	Slash(who Origin, amount abi.TokenAmount) (abi.TokenAmount, error)
}

// Logger is a minimal logging interface: the runtime's own logging
// surface, taken as a capability rather than a concrete dependency.
type Logger interface {
	Log(level rt.LogLevel, msg string, args ...interface{})
}

// OpResult is the (result, actual-weight, fee-policy) triple every
// operation returns.
type OpResult struct {
	// TopItems, ChildItems are the counts of entries touched by this
	// call.
	TopItems, ChildItems uint32
	// ActualWeight is the post-hoc compute cost of the work performed,
	// reported back to the host for accounting.
	ActualWeight Weight
	// FeeWaived is true when the caller's transaction fee should be
	// refunded — the caller is rewarded for honest work by fee refund.
	FeeWaived bool
}
