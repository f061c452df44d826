package migration

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chain-tools/statetrie-migration/support/memstore"
	"github.com/chain-tools/statetrie-migration/support/mockchain"
)

func testMigrator(log *mockchain.RecordingLogger) (*Migrator, *memstore.Store) {
	cfg := Config{
		CursorKey:                []byte("__cursor"),
		AutoLimitsKey:            []byte("__auto_limits"),
		ReadWriteWeight:          10,
		ProcessTopKey:            LinearBenchmarkCurve(1),
		SignedMigrationMaxLimits: MigrationLimits{Size: 1 << 20, Item: 1 << 20},
	}
	if log == nil {
		log = &mockchain.RecordingLogger{}
	}
	m := NewMigrator(cfg, mockchain.Controller{}, mockchain.NewLedger(), &mockchain.EventLog{}, log)
	return m, memstore.New()
}

// S1: an empty store finishes on the very first tick.
func TestMigrateTickEmptyStoreFinishesImmediately(t *testing.T) {
	m, s := testMigrator(nil)
	task := NewMigrationTask()
	require.NoError(t, m.migrateTick(s, task))
	require.True(t, task.Finished(), "expected task to finish walking an empty top namespace")
}

// S2: a flat top namespace with no child roots is walked key by key.
func TestMigrateTickWalksFlatTopNamespace(t *testing.T) {
	m, s := testMigrator(nil)
	require.NoError(t, s.TopSet([]byte("a"), []byte("1")))
	require.NoError(t, s.TopSet([]byte("b"), []byte("2")))
	require.NoError(t, s.TopSet([]byte("c"), []byte("3")))

	task := NewMigrationTask()
	var seen [][]byte
	for !task.Finished() {
		key := *task.CurrentTop
		if len(key) > 0 {
			seen = append(seen, append([]byte(nil), key...))
		}
		require.NoError(t, m.migrateTick(s, task))
	}
	require.Len(t, seen, 3, "expected 3 top keys visited")
	want := [][]byte{[]byte("a"), []byte("b"), []byte("c")}
	for i := range want {
		require.Equal(t, want[i], seen[i], "key %d", i)
	}
}

// S4: a child root is descended into, its keys are walked, then the
// top walk resumes past the root itself.
func TestMigrateTickDescendsIntoChildRoot(t *testing.T) {
	m, s := testMigrator(nil)
	namespace := []byte("ns1")
	rootKey := s.PutChildRoot(DefaultChildStoragePrefix, namespace)
	require.NoError(t, s.ChildSet(namespace, []byte("x"), []byte("1")))
	require.NoError(t, s.ChildSet(namespace, []byte("y"), []byte("2")))
	require.NoError(t, s.TopSet([]byte("z"), []byte("3"))) // top key after the child root, lexicographically

	task := NewMigrationTask()
	var touchedChild int
	var sawRootTwice int
	for !task.Finished() {
		before := task.CurrentTop
		require.NoError(t, m.migrateTick(s, task))
		if before != nil && string(*before) == string(rootKey) {
			sawRootTwice++
		}
		if task.CurrentChild != nil {
			touchedChild++
		}
	}
	require.NotZero(t, touchedChild, "expected at least one tick positioned inside the child namespace")
	require.GreaterOrEqual(t, sawRootTwice, 2, "expected the child-root top key to be current on at least two ticks (descend + resume)")
}

func TestMigrateTickImpossibleStateIsLogicError(t *testing.T) {
	m, s := testMigrator(nil)
	child := []byte("x")
	task := &MigrationTask{CurrentTop: nil, CurrentChild: &child}
	require.ErrorIs(t, m.migrateTick(s, task), ErrLogicError)
}

func TestMigrateTickCorruptChildRootDiscriminatorIsLogicError(t *testing.T) {
	m, s := testMigrator(nil)
	badKey := append(append([]byte(nil), DefaultChildStoragePrefix...), 0xFF)
	require.NoError(t, s.TopSet(badKey, []byte("v")))
	task := &MigrationTask{CurrentTop: key(badKey)}
	require.ErrorIs(t, m.migrateTick(s, task), ErrLogicError, "expected ErrLogicError for corrupt discriminator")
}
