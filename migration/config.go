package migration

import (
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/rt"
	"golang.org/x/xerrors"
)

// Config parameterizes a Migrator: documented fields, no hidden globals.
type Config struct {
	// ChildStoragePrefix is the well-known byte prefix identifying a top
	// key as a child root. Defaults to DefaultChildStoragePrefix if left
	// nil.
	ChildStoragePrefix []byte

	// CursorKey, AutoLimitsKey are the reserved top keys the migrator's own
	// persisted state lives under, in the same store it migrates. The
	// cursor and the auto-limits flag are process-wide, lifecycle-bound to
	// the store itself. Must never collide with real application keys.
	CursorKey     []byte
	AutoLimitsKey []byte

	// SignedDepositPerItem, SignedDepositBase determine the deposit a
	// signed caller must post: items*SignedDepositPerItem for
	// ContinueMigrate, items*SignedDepositPerItem + SignedDepositBase for
	// MigrateCustomTop and MigrateCustomChild.
	SignedDepositPerItem abi.TokenAmount
	SignedDepositBase    abi.TokenAmount
	// SignedMigrationMaxLimits bounds the limits a signed caller may
	// request in ContinueMigrate.
	SignedMigrationMaxLimits MigrationLimits

	// ReadWriteWeight is the weight of one read+write pair, charged per
	// item migrated.
	ReadWriteWeight Weight
	// ReadWeight is the weight of a single storage read, charged when a
	// hook does no more than check whether automatic migration is enabled.
	ReadWeight Weight
	// ProcessTopKey is the benchmark curve charged per byte processed.
	ProcessTopKey BenchmarkCurve

	// ContinueMigrateOverhead, ContinueMigrateWrongWitnessOverhead,
	// MigrateCustomTopSuccessOverhead, MigrateCustomTopFailOverhead are
	// the constant, non-dynamic portions of each operation's weight
	// (outside the dynamic_weight term).
	ContinueMigrateOverhead             Weight
	ContinueMigrateWrongWitnessOverhead Weight
	MigrateCustomTopSuccessOverhead     Weight
	MigrateCustomTopFailOverhead        Weight
}

// Migrator ties a Store to its Config and collaborators.
type Migrator struct {
	cfg      Config
	auth     Authorizer
	currency Currency
	events   EventSink
	log      Logger
}

// NewMigrator constructs a Migrator. cfg.ChildStoragePrefix defaults to
// DefaultChildStoragePrefix if unset.
func NewMigrator(cfg Config, auth Authorizer, currency Currency, events EventSink, log Logger) *Migrator {
	if cfg.ChildStoragePrefix == nil {
		cfg.ChildStoragePrefix = DefaultChildStoragePrefix
	}
	return &Migrator{cfg: cfg, auth: auth, currency: currency, events: events, log: log}
}

// loadTask reads the persisted cursor from s, defaulting to a fresh
// MigrationTask if none has been written yet.
func (m *Migrator) loadTask(s Store) (*MigrationTask, error) {
	raw, ok, err := s.TopGet(m.cfg.CursorKey)
	if err != nil {
		return nil, xerrors.Errorf("loading migration cursor: %w", err)
	}
	if !ok {
		return NewMigrationTask(), nil
	}
	var t MigrationTask
	if err := t.UnmarshalCBOR(raw); err != nil {
		return nil, xerrors.Errorf("decoding migration cursor: %w", err)
	}
	return &t, nil
}

// storeTask persists only the persisted fields of t; ephemeral fields are
// never encoded.
func (m *Migrator) storeTask(s Store, t *MigrationTask) error {
	raw, err := t.MarshalCBOR()
	if err != nil {
		return xerrors.Errorf("encoding migration cursor: %w", err)
	}
	if err := s.TopSet(m.cfg.CursorKey, raw); err != nil {
		return xerrors.Errorf("persisting migration cursor: %w", err)
	}
	return nil
}

// loadAutoLimits reads the persisted automatic-migration limits, returning
// nil if automatic migration is currently disabled.
func (m *Migrator) loadAutoLimits(s Store) (*MigrationLimits, error) {
	raw, ok, err := s.TopGet(m.cfg.AutoLimitsKey)
	if err != nil {
		return nil, xerrors.Errorf("loading auto limits: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var wrapper autoLimitsCBOR
	if err := wrapper.UnmarshalCBOR(raw); err != nil {
		return nil, xerrors.Errorf("decoding auto limits: %w", err)
	}
	return wrapper.limits, nil
}

// storeAutoLimits persists the automatic-migration limits setting. A nil
// limits disables automatic migration.
func (m *Migrator) storeAutoLimits(s Store, limits *MigrationLimits) error {
	wrapper := autoLimitsCBOR{limits: limits}
	raw, err := wrapper.MarshalCBOR()
	if err != nil {
		return xerrors.Errorf("encoding auto limits: %w", err)
	}
	if err := s.TopSet(m.cfg.AutoLimitsKey, raw); err != nil {
		return xerrors.Errorf("persisting auto limits: %w", err)
	}
	return nil
}

// Halt disables the automatic scheduler in response to a structural error.
// The cursor itself is left untouched so a later privileged intervention
// can inspect and repair it.
func (m *Migrator) Halt(s Store) error {
	m.log.Log(rt.ERROR, "halting automatic migration due to a structural inconsistency")
	return m.storeAutoLimits(s, nil)
}
