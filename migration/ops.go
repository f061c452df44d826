package migration

import (
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"
	"github.com/filecoin-project/go-state-types/rt"
	"golang.org/x/xerrors"
)

// ControlAutoMigration sets (or clears) the automatic-migration limits
// origin must satisfy Authorizer.EnsurePrivileged.
func (m *Migrator) ControlAutoMigration(s Store, origin Origin, limits *MigrationLimits) (*OpResult, error) {
	if err := m.auth.EnsurePrivileged(origin); err != nil {
		return nil, xerrors.Errorf("control_auto_migration: %w", err)
	}
	if err := m.storeAutoLimits(s, limits); err != nil {
		return nil, err
	}
	return &OpResult{ActualWeight: m.cfg.ReadWriteWeight}, nil
}

// ContinueMigrate runs the bounded driver against the persisted cursor
// under limits, provided witnessTask matches the persisted cursor and the
// caller can cover a deposit proportional to limits.Item.
func (m *Migrator) ContinueMigrate(s Store, origin Origin, limits MigrationLimits, realSizeUpper uint32, witnessTask MigrationTask) (*OpResult, error) {
	max := m.cfg.SignedMigrationMaxLimits
	if limits.Size > max.Size || limits.Item > max.Item {
		return nil, xerrors.Errorf("continue_migrate: %w", ErrLimitsTooLarge)
	}

	deposit := big.Mul(m.cfg.SignedDepositPerItem, big.NewInt(int64(limits.Item)))
	if !m.currency.CanSlash(origin, deposit) {
		return nil, xerrors.Errorf("continue_migrate: %w", ErrInsufficientFunds)
	}

	task, err := m.loadTask(s)
	if err != nil {
		return nil, err
	}
	if !task.persistedEqual(&witnessTask) {
		return &OpResult{ActualWeight: m.cfg.ContinueMigrateWrongWitnessOverhead},
			xerrors.Errorf("continue_migrate: %w", ErrWrongWitness)
	}

	if err := m.Run(s, task, limits); err != nil {
		return nil, err
	}

	if realSizeUpper < task.DynSize {
		slashed, serr := m.currency.Slash(origin, deposit)
		if serr != nil {
			return nil, serr
		}
		_ = slashed
		// The advanced cursor is not persisted: the caller's declared
		// witness data was wrong, so their claimed work is discarded
		// along with their deposit.
		return nil, xerrors.Errorf("continue_migrate: %w", ErrWrongWitnessData)
	}

	if err := m.storeTask(s, task); err != nil {
		return nil, err
	}
	m.events.Migrated(task.DynTopItems, task.DynChildItems, ComputeSigned)

	return &OpResult{
		TopItems:     task.DynTopItems,
		ChildItems:   task.DynChildItems,
		ActualWeight: m.dynamicWeight(limits.Item, task.DynSize) + m.cfg.ContinueMigrateOverhead,
		FeeWaived:    true,
	}, nil
}

// MigrateCustomTop touches each of keys in order, outside the persisted
// cursor, for repairing leftover keys missed by an earlier bug.
func (m *Migrator) MigrateCustomTop(s Store, origin Origin, keys [][]byte, witnessSize uint32) (*OpResult, error) {
	deposit := customDeposit(m.cfg, len(keys))
	if !m.currency.CanSlash(origin, deposit) {
		return nil, xerrors.Errorf("migrate_custom_top: %w", ErrInsufficientFunds)
	}

	var dynSize uint32
	for _, k := range keys {
		value, ok, err := s.TopGet(k)
		if err != nil {
			return nil, err
		}
		if ok {
			if err := s.TopSet(k, value); err != nil {
				return nil, err
			}
			dynSize = saturatingAdd32(dynSize, uint32(len(value)))
		}
	}

	if dynSize > witnessSize {
		if _, err := m.currency.Slash(origin, deposit); err != nil {
			return nil, err
		}
		return &OpResult{ActualWeight: m.cfg.MigrateCustomTopFailOverhead},
			xerrors.Errorf("migrate_custom_top: %w", ErrWrongWitnessData)
	}

	m.events.Migrated(uint32(len(keys)), 0, ComputeSigned)
	return &OpResult{
		TopItems:     uint32(len(keys)),
		ActualWeight: m.cfg.MigrateCustomTopSuccessOverhead + m.dynamicWeight(uint32(len(keys)), witnessSize),
	}, nil
}

// MigrateCustomChild touches each of childKeys within the child namespace
// rooted at topKey, outside the persisted cursor. Unlike
// MigrateCustomTop, the size check is an exact match, and a failure emits
// a Slashed event (the one operation that does).
func (m *Migrator) MigrateCustomChild(s Store, origin Origin, topKey []byte, childKeys [][]byte, totalSize uint32) (*OpResult, error) {
	deposit := customDeposit(m.cfg, len(childKeys))
	if !m.currency.CanSlash(origin, deposit) {
		return nil, xerrors.Errorf("migrate_custom_child: %w", ErrInsufficientFunds)
	}

	namespace, ok := ChildNamespaceOf(m.cfg.ChildStoragePrefix, topKey)
	if !ok {
		if _, err := m.currency.Slash(origin, deposit); err != nil {
			return nil, err
		}
		m.events.Slashed(origin, deposit)
		return &OpResult{ActualWeight: m.cfg.MigrateCustomTopFailOverhead},
			xerrors.Errorf("migrate_custom_child: %w", ErrBadChildKey)
	}

	var dynSize uint32
	for _, k := range childKeys {
		value, found, err := s.ChildGet(namespace, k)
		if err != nil {
			return nil, err
		}
		if found {
			if err := s.ChildSet(namespace, k, value); err != nil {
				return nil, err
			}
			dynSize = saturatingAdd32(dynSize, uint32(len(value)))
		}
	}

	if dynSize != totalSize {
		if _, err := m.currency.Slash(origin, deposit); err != nil {
			return nil, err
		}
		m.events.Slashed(origin, deposit)
		return &OpResult{ActualWeight: m.cfg.MigrateCustomTopFailOverhead},
			xerrors.Errorf("migrate_custom_child: %w", ErrWrongWitnessData)
	}

	m.events.Migrated(0, uint32(len(childKeys)), ComputeSigned)
	return &OpResult{
		ChildItems:   uint32(len(childKeys)),
		ActualWeight: m.cfg.MigrateCustomTopSuccessOverhead,
	}, nil
}

// AutoTick is the automatic per-host-tick hook. If
// automatic migration is disabled, it only charges the cost of the
// AutoLimits lookup.
func (m *Migrator) AutoTick(s Store) (*OpResult, error) {
	limits, err := m.loadAutoLimits(s)
	if err != nil {
		return nil, err
	}
	if limits == nil {
		return &OpResult{ActualWeight: m.cfg.ReadWeight}, nil
	}

	task, err := m.loadTask(s)
	if err != nil {
		return nil, err
	}
	if err := m.Run(s, task, *limits); err != nil {
		if xerrors.Is(err, ErrLogicError) {
			if herr := m.Halt(s); herr != nil {
				return nil, herr
			}
		}
		return nil, err
	}
	if err := m.storeTask(s, task); err != nil {
		return nil, err
	}

	m.log.Log(rt.INFO, "migrated %d top keys, %d child keys, %d bytes",
		task.DynTopItems, task.DynChildItems, task.DynSize)
	m.events.Migrated(task.DynTopItems, task.DynChildItems, ComputeAuto)

	return &OpResult{
		TopItems:     task.DynTopItems,
		ChildItems:   task.DynChildItems,
		ActualWeight: m.dynamicWeight(task.DynTotalItems(), task.DynSize),
	}, nil
}

func customDeposit(cfg Config, items int) abi.TokenAmount {
	return big.Add(cfg.SignedDepositBase, big.Mul(cfg.SignedDepositPerItem, big.NewInt(int64(items))))
}
