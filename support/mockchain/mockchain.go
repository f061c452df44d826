// Package mockchain provides in-memory Authorizer, Currency, EventSink and
// Logger test doubles for exercising migration.Migrator without a real
// chain runtime.
package mockchain

import (
	"fmt"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"
	"github.com/filecoin-project/go-state-types/rt"
	"golang.org/x/xerrors"

	"github.com/chain-tools/statetrie-migration/migration"
)

// Controller is a fixed, privileged origin; any other origin is rejected.
type Controller struct {
	Privileged address.Address
}

func (c Controller) EnsurePrivileged(origin address.Address) error {
	if origin != c.Privileged {
		return xerrors.New("mockchain: origin is not the privileged controller")
	}
	return nil
}

// Ledger is a simple in-memory balance sheet used as a Currency double.
type Ledger struct {
	balances map[address.Address]abi.TokenAmount
	Slashes  []Slash
}

type Slash struct {
	Who    address.Address
	Amount abi.TokenAmount
}

func NewLedger() *Ledger {
	return &Ledger{balances: make(map[address.Address]abi.TokenAmount)}
}

func (l *Ledger) Fund(who address.Address, amount abi.TokenAmount) {
	bal, ok := l.balances[who]
	if !ok {
		bal = big.Zero()
	}
	l.balances[who] = big.Add(bal, amount)
}

func (l *Ledger) Balance(who address.Address) abi.TokenAmount {
	bal, ok := l.balances[who]
	if !ok {
		return big.Zero()
	}
	return bal
}

func (l *Ledger) CanSlash(who address.Address, amount abi.TokenAmount) bool {
	return l.Balance(who).GreaterThanEqual(amount)
}

func (l *Ledger) Slash(who address.Address, amount abi.TokenAmount) (abi.TokenAmount, error) {
	bal := l.Balance(who)
	if bal.LessThan(amount) {
		return big.Zero(), xerrors.New("mockchain: insufficient balance to slash")
	}
	l.balances[who] = big.Sub(bal, amount)
	l.Slashes = append(l.Slashes, Slash{Who: who, Amount: amount})
	return amount, nil
}

// EventLog records every Migrated/Slashed event it receives, in order, and
// implements migration.EventSink.
type EventLog struct {
	Migrations  []MigratedEvent
	SlashEvents []Slash
}

type MigratedEvent struct {
	TopItems, ChildItems uint32
	Compute              migration.MigrationCompute
}

func (e *EventLog) Migrated(top, child uint32, compute migration.MigrationCompute) {
	e.Migrations = append(e.Migrations, MigratedEvent{TopItems: top, ChildItems: child, Compute: compute})
}

func (e *EventLog) Slashed(who address.Address, amount abi.TokenAmount) {
	e.SlashEvents = append(e.SlashEvents, Slash{Who: who, Amount: amount})
}

// RecordingLogger collects every logged line for test assertions.
type RecordingLogger struct {
	Lines []string
}

func (r *RecordingLogger) Log(level rt.LogLevel, msg string, args ...interface{}) {
	r.Lines = append(r.Lines, fmt.Sprintf("[%d] "+msg, append([]interface{}{level}, args...)...))
}
