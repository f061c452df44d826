package migration

// migrateTick advances the cursor by at most one key. It
// returns ErrLogicError if it detected a structural inconsistency
// that the caller must respond to with Halt — either the impossible
// (absent top, present child) state, or a child-root top key that no
// longer decodes. Errors from the Store are returned as they are.
func (m *Migrator) migrateTick(s Store, t *MigrationTask) (haltReason error) {
	switch {
	case t.CurrentTop == nil && t.CurrentChild == nil:
		// Migration finished. No-op.
		return nil

	case t.CurrentTop == nil && t.CurrentChild != nil:
		// Impossible: a child descent with no top key to descend from.
		return ErrLogicError

	case t.CurrentTop != nil && t.CurrentChild != nil:
		// Mid child-tree walk.
		return m.migrateChild(s, t)

	default: // t.CurrentTop != nil && t.CurrentChild == nil
		topKey := *t.CurrentTop
		namespace, isChildRoot := ChildNamespaceOf(m.cfg.ChildStoragePrefix, topKey)
		switch {
		case !IsChildRoot(m.cfg.ChildStoragePrefix, topKey):
			// Ordinary top key: continue the top walk.
			return m.migrateTop(s, t)

		case !isChildRoot:
			// Matches the prefix but the discriminator is corrupt.
			return ErrLogicError

		case !t.PrevTickChild:
			// First visit to this child root: probe the "" child key
			// (counted, but not rewritten — see migrateDescend), then
			// position at the first real child key if one exists.
			return m.migrateDescend(s, t, namespace)

		default:
			// Second visit: the child walk is complete, rewrite the
			// child-root key itself and move on.
			t.PrevTickChild = false
			return m.migrateTop(s, t)
		}
	}
}

// migrateTop touches the current top key and advances CurrentTop.
func (m *Migrator) migrateTop(s Store, t *MigrationTask) error {
	topKey := *t.CurrentTop
	value, ok, err := s.TopGet(topKey)
	if err != nil {
		return err
	}
	if ok {
		if err := s.TopSet(topKey, value); err != nil {
			return err
		}
		t.DynSize = saturatingAdd32(t.DynSize, uint32(len(value)))
	}
	t.DynTopItems++

	next, ok, err := s.TopNext(topKey)
	if err != nil {
		return err
	}
	if ok {
		t.CurrentTop = key(next)
	} else {
		t.CurrentTop = nil
	}
	return nil
}

// migrateChild touches the current child key and advances CurrentChild.
// If the child namespace is exhausted, CurrentTop is left untouched; the
// next tick handles the "finished descending" transition.
func (m *Migrator) migrateChild(s Store, t *MigrationTask) error {
	root := *t.CurrentTop
	namespace, ok := ChildNamespaceOf(m.cfg.ChildStoragePrefix, root)
	if !ok {
		return ErrLogicError
	}
	childKey := *t.CurrentChild

	value, found, err := s.ChildGet(namespace, childKey)
	if err != nil {
		return err
	}
	if found {
		if err := s.ChildSet(namespace, childKey, value); err != nil {
			return err
		}
		t.DynSize = saturatingAdd32(t.DynSize, uint32(len(value)))
	}
	t.DynChildItems++

	next, ok, err := s.ChildNext(namespace, childKey)
	if err != nil {
		return err
	}
	if ok {
		t.CurrentChild = key(next)
	} else {
		t.CurrentChild = nil
	}
	return nil
}

// migrateDescend performs the one-probe step of entering a child root: it
// reads (and discards) the "" child key, purely to normalize the per-tick
// storage-read accounting to exactly one read regardless of whether that
// key is present, then positions CurrentChild at the first real child key
// if one exists. No value is rewritten in this step.
func (m *Migrator) migrateDescend(s Store, t *MigrationTask, namespace []byte) error {
	if _, _, err := s.ChildGet(namespace, []byte{}); err != nil {
		return err
	}
	first, ok, err := s.ChildNext(namespace, []byte{})
	if err != nil {
		return err
	}
	if ok {
		t.CurrentChild = key(first)
	}
	t.PrevTickChild = true
	return nil
}
