package migration

import (
	"testing"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/big"
	"github.com/stretchr/testify/require"

	"github.com/chain-tools/statetrie-migration/support/memstore"
	"github.com/chain-tools/statetrie-migration/support/mockchain"
)

func newTestStore() *memstore.Store {
	return memstore.New()
}

func mustAddr(t *testing.T, id uint64) address.Address {
	t.Helper()
	a, err := address.NewIDAddress(id)
	require.NoError(t, err, "building test address")
	return a
}

func testMigratorFull(t *testing.T) (*Migrator, *mockchain.Ledger, *mockchain.EventLog, address.Address, address.Address) {
	controller := mustAddr(t, 100)
	caller := mustAddr(t, 200)

	ledger := mockchain.NewLedger()
	ledger.Fund(caller, big.NewInt(1_000_000))

	events := &mockchain.EventLog{}
	log := &mockchain.RecordingLogger{}

	cfg := Config{
		CursorKey:                           []byte("__cursor"),
		AutoLimitsKey:                       []byte("__auto_limits"),
		ReadWriteWeight:                     10,
		ReadWeight:                          1,
		ProcessTopKey:                       LinearBenchmarkCurve(1),
		SignedDepositPerItem:                big.NewInt(10),
		SignedDepositBase:                   big.NewInt(5),
		SignedMigrationMaxLimits:            MigrationLimits{Size: 1 << 20, Item: 1 << 20},
		ContinueMigrateOverhead:             1,
		ContinueMigrateWrongWitnessOverhead: 2,
		MigrateCustomTopSuccessOverhead:     3,
		MigrateCustomTopFailOverhead:        4,
	}
	m := NewMigrator(cfg, mockchain.Controller{Privileged: controller}, ledger, events, log)
	return m, ledger, events, controller, caller
}

func TestControlAutoMigrationRequiresPrivilege(t *testing.T) {
	m, _, _, _, caller := testMigratorFull(t)
	s := newTestStore()
	limits := MigrationLimits{Size: 1000, Item: 10}
	_, err := m.ControlAutoMigration(s, caller, &limits)
	require.Error(t, err, "expected an unprivileged caller to be rejected")
}

func TestControlAutoMigrationEnablesAutoTick(t *testing.T) {
	m, _, events, controller, _ := testMigratorFull(t)
	s := newTestStore()
	require.NoError(t, s.TopSet([]byte("a"), []byte("1")))

	limits := MigrationLimits{Size: 1000, Item: 10}
	_, err := m.ControlAutoMigration(s, controller, &limits)
	require.NoError(t, err)

	res, err := m.AutoTick(s)
	require.NoError(t, err)
	require.EqualValues(t, 3, res.TopItems, "expected 3 top items migrated (the empty key, the auto-limits key, a)")
	require.Len(t, events.Migrations, 1)
	require.Equal(t, ComputeAuto, events.Migrations[0].Compute, "expected Migrated event attributed to ComputeAuto")
}

func TestAutoTickDisabledIsCheapNoOp(t *testing.T) {
	m, _, events, _, _ := testMigratorFull(t)
	s := newTestStore()
	require.NoError(t, s.TopSet([]byte("a"), []byte("1")))

	res, err := m.AutoTick(s)
	require.NoError(t, err)
	require.Zero(t, res.TopItems, "expected no work done while automatic migration is disabled")
	require.Zero(t, res.ChildItems, "expected no work done while automatic migration is disabled")
	require.Empty(t, events.Migrations, "expected no Migrated event while disabled")
}

func TestContinueMigrateRejectsLimitsAboveMaximum(t *testing.T) {
	m, _, _, _, caller := testMigratorFull(t)
	s := newTestStore()
	witness := *NewMigrationTask()
	_, err := m.ContinueMigrate(s, caller, MigrationLimits{Size: 1 << 30, Item: 1 << 30}, 0, witness)
	require.ErrorIs(t, err, ErrLimitsTooLarge)
}

func TestContinueMigrateRejectsInsufficientFunds(t *testing.T) {
	m, _, _, _, _ := testMigratorFull(t)
	poor := mustAddr(t, 999)
	s := newTestStore()
	witness := *NewMigrationTask()
	_, err := m.ContinueMigrate(s, poor, MigrationLimits{Size: 1000, Item: 10}, 0, witness)
	require.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestContinueMigrateRejectsWrongWitness(t *testing.T) {
	m, _, _, _, caller := testMigratorFull(t)
	s := newTestStore()
	require.NoError(t, s.TopSet([]byte("a"), []byte("1")))

	staleWitness := MigrationTask{}
	_, err := m.ContinueMigrate(s, caller, MigrationLimits{Size: 1000, Item: 10}, 1000, staleWitness)
	require.ErrorIs(t, err, ErrWrongWitness)
}

func TestContinueMigrateSucceedsAndWaivesFee(t *testing.T) {
	m, ledger, events, _, caller := testMigratorFull(t)
	s := newTestStore()
	require.NoError(t, s.TopSet([]byte("a"), []byte("1")))
	require.NoError(t, s.TopSet([]byte("b"), []byte("2")))

	before := ledger.Balance(caller)
	witness := *NewMigrationTask()
	res, err := m.ContinueMigrate(s, caller, MigrationLimits{Size: 1000, Item: 10}, 1000, witness)
	require.NoError(t, err)
	require.True(t, res.FeeWaived, "expected fee to be waived on honest completion")
	require.EqualValues(t, 3, res.TopItems, "expected 3 top items migrated (the empty key, a, b)")
	require.True(t, tokensEqual(ledger.Balance(caller), before), "an honest caller must not be slashed")
	require.Len(t, events.Migrations, 1)
	require.Equal(t, ComputeSigned, events.Migrations[0].Compute, "expected Migrated event attributed to ComputeSigned")
}

func TestContinueMigrateSlashesUnderstatedRealSize(t *testing.T) {
	m, ledger, _, _, caller := testMigratorFull(t)
	s := newTestStore()
	require.NoError(t, s.TopSet([]byte("a"), []byte("0123456789")))

	before := ledger.Balance(caller)
	witness := *NewMigrationTask()
	_, err := m.ContinueMigrate(s, caller, MigrationLimits{Size: 1000, Item: 10}, 1, witness)
	require.ErrorIs(t, err, ErrWrongWitnessData)
	require.False(t, tokensEqual(ledger.Balance(caller), before), "expected the caller's deposit to be slashed")

	// The advanced cursor must not have been persisted.
	task, err := m.loadTask(s)
	require.NoError(t, err, "loading task")
	require.True(t, bytesEqualOpt(task.CurrentTop, witness.CurrentTop), "a failed continue_migrate must not persist cursor progress")
}

func TestMigrateCustomTopRepairsMissedKeys(t *testing.T) {
	m, _, events, _, caller := testMigratorFull(t)
	s := newTestStore()
	require.NoError(t, s.TopSet([]byte("missed1"), []byte("ab")))
	require.NoError(t, s.TopSet([]byte("missed2"), []byte("cd")))

	res, err := m.MigrateCustomTop(s, caller, [][]byte{[]byte("missed1"), []byte("missed2")}, 4)
	require.NoError(t, err)
	require.EqualValues(t, 2, res.TopItems, "expected 2 items touched")
	require.Len(t, events.Migrations, 1, "expected one Migrated event")
}

func TestMigrateCustomTopSlashesOnUnderstatedWitness(t *testing.T) {
	m, ledger, _, _, caller := testMigratorFull(t)
	s := newTestStore()
	require.NoError(t, s.TopSet([]byte("k"), []byte("0123456789")))

	before := ledger.Balance(caller)
	_, err := m.MigrateCustomTop(s, caller, [][]byte{[]byte("k")}, 1)
	require.ErrorIs(t, err, ErrWrongWitnessData)
	require.False(t, tokensEqual(ledger.Balance(caller), before), "expected the caller's deposit to be slashed")
}

func TestMigrateCustomChildRejectsBadRootKey(t *testing.T) {
	m, ledger, events, _, caller := testMigratorFull(t)
	s := newTestStore()

	before := ledger.Balance(caller)
	_, err := m.MigrateCustomChild(s, caller, []byte("not-a-child-root"), nil, 0)
	require.ErrorIs(t, err, ErrBadChildKey)
	require.False(t, tokensEqual(ledger.Balance(caller), before), "expected a deposit slash on a bad child-root key")
	require.Len(t, events.SlashEvents, 1, "expected a Slashed event for migrate_custom_child's failure")
}

func TestMigrateCustomChildSucceedsOnExactWitness(t *testing.T) {
	m, _, events, _, caller := testMigratorFull(t)
	s := newTestStore()
	namespace := []byte("ns1")
	root := s.PutChildRoot(DefaultChildStoragePrefix, namespace)
	require.NoError(t, s.ChildSet(namespace, []byte("x"), []byte("12")))
	require.NoError(t, s.ChildSet(namespace, []byte("y"), []byte("345")))

	res, err := m.MigrateCustomChild(s, caller, root, [][]byte{[]byte("x"), []byte("y")}, 5)
	require.NoError(t, err)
	require.EqualValues(t, 2, res.ChildItems, "expected 2 child items touched")
	require.Empty(t, events.SlashEvents, "expected no Slashed event on success")
}

func TestMigrateCustomChildSlashesOnWrongTotalSize(t *testing.T) {
	m, ledger, events, _, caller := testMigratorFull(t)
	s := newTestStore()
	namespace := []byte("ns1")
	root := s.PutChildRoot(DefaultChildStoragePrefix, namespace)
	require.NoError(t, s.ChildSet(namespace, []byte("x"), []byte("12")))

	before := ledger.Balance(caller)
	_, err := m.MigrateCustomChild(s, caller, root, [][]byte{[]byte("x")}, 999)
	require.ErrorIs(t, err, ErrWrongWitnessData)
	require.False(t, tokensEqual(ledger.Balance(caller), before), "expected the caller's deposit to be slashed")
	require.Len(t, events.SlashEvents, 1, "expected a Slashed event for migrate_custom_child's failure")
}

func bytesEqualOpt(a, b *[]byte) bool {
	return optBytesEqual(a, b)
}

func tokensEqual(a, b big.Int) bool {
	return !a.GreaterThan(b) && !a.LessThan(b)
}
