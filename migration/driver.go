package migration

import "github.com/filecoin-project/go-state-types/rt"

// Run repeatedly invokes the tick engine against t until either the item
// limit, the size limit, or end-of-state is reached, then folds the
// dynamic counters into t's persistent totals.
//
// Size is a post-check, not a pre-check: because the length of a value is
// unknown before it is read, Run may exceed limits.Size by up to the size
// of a single value. limits.Item is the only hard bound.
func (m *Migrator) Run(s Store, t *MigrationTask, limits MigrationLimits) error {
	t.DynTopItems, t.DynChildItems, t.DynSize = 0, 0, 0

	if limits.Item == 0 || limits.Size == 0 {
		m.log.Log(rt.DEBUG, "migration limits are zero, stopping")
		return nil
	}

	for {
		if err := m.migrateTick(s, t); err != nil {
			return err
		}
		if t.exhausted(limits) {
			break
		}
	}

	t.Size = saturatingAdd32(t.Size, t.DynSize)
	t.TopItems = saturatingAdd32(t.TopItems, t.DynTopItems)
	t.ChildItems = saturatingAdd32(t.ChildItems, t.DynChildItems)
	return nil
}
