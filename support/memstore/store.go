// Package memstore provides an ordered, in-memory migration.Store used by
// tests and benchmarks. It is not part of the migrator itself — a real
// deployment backs migration.Store with its own trie implementation — but
// it honors the same lexicographic next_key contract the migrator depends
// on, which a hash-indexed store (a HAMT, say) cannot.
package memstore

import (
	"bytes"
	"sync"

	"github.com/google/btree"

	"github.com/chain-tools/statetrie-migration/migration"
)

const btreeDegree = 32

type item struct {
	key, value []byte
}

func (a item) Less(b btree.Item) bool {
	return bytes.Compare(a.key, b.(item).key) < 0
}

// Store is an in-memory migration.Store backed by a google/btree per
// namespace, keeping every namespace's keys in lexicographic order.
//
// google/btree is not safe for concurrent use, so every method takes mu;
// the migrator itself never calls a Store concurrently, but
// support/bench seeds fixtures with a worker pool before benchmarking.
type Store struct {
	mu       sync.Mutex
	top      *btree.BTree
	children map[string]*btree.BTree
}

func New() *Store {
	return &Store{
		top:      btree.New(btreeDegree),
		children: make(map[string]*btree.BTree),
	}
}

func (s *Store) childTree(root []byte) *btree.BTree {
	k := string(root)
	t, ok := s.children[k]
	if !ok {
		t = btree.New(btreeDegree)
		s.children[k] = t
	}
	return t
}

func get(t *btree.BTree, key []byte) ([]byte, bool) {
	found := t.Get(item{key: key})
	if found == nil {
		return nil, false
	}
	return found.(item).value, true
}

func set(t *btree.BTree, key, value []byte) {
	cp := make([]byte, len(value))
	copy(cp, value)
	t.ReplaceOrInsert(item{key: append([]byte(nil), key...), value: cp})
}

func next(t *btree.BTree, key []byte) ([]byte, bool) {
	var found []byte
	var ok bool
	t.AscendGreaterOrEqual(item{key: key}, func(i btree.Item) bool {
		it := i.(item)
		if bytes.Equal(it.key, key) {
			return true
		}
		found = it.key
		ok = true
		return false
	})
	return found, ok
}

func (s *Store) TopGet(key []byte) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := get(s.top, key)
	return v, ok, nil
}

func (s *Store) TopSet(key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set(s.top, key, value)
	return nil
}

func (s *Store) TopNext(key []byte) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := next(s.top, key)
	return n, ok, nil
}

func (s *Store) ChildGet(root, key []byte) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := get(s.childTree(root), key)
	return v, ok, nil
}

func (s *Store) ChildSet(root, key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set(s.childTree(root), key, value)
	return nil
}

func (s *Store) ChildNext(root, key []byte) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := next(s.childTree(root), key)
	return n, ok, nil
}

// KV is one key/value pair, returned by Entries and ChildEntries for
// snapshot export.
type KV struct {
	Key, Value []byte
}

func collect(t *btree.BTree) []KV {
	out := make([]KV, 0, t.Len())
	t.Ascend(func(i btree.Item) bool {
		it := i.(item)
		out = append(out, KV{Key: it.key, Value: it.value})
		return true
	})
	return out
}

// Entries returns every key/value pair in the top namespace, and the names
// of every child namespace that has been created (via ChildSet or
// PutChildRoot), in no particular order.
func (s *Store) Entries() (top []KV, childNamespaces []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	top = collect(s.top)
	childNamespaces = make([]string, 0, len(s.children))
	for name := range s.children {
		childNamespaces = append(childNamespaces, name)
	}
	return top, childNamespaces
}

// ChildEntries returns every key/value pair within the given child
// namespace, in no particular order.
func (s *Store) ChildEntries(namespace []byte) []KV {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.children[string(namespace)]
	if !ok {
		return nil
	}
	return collect(t)
}

// PutChildRoot writes an empty marker value at key within the top
// namespace, tagged as a child root under prefix, and seeds its child
// namespace so a subsequent descent finds it. Test helper only.
func (s *Store) PutChildRoot(prefix, namespace []byte) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := append(append([]byte(nil), prefix...), append([]byte{migration.ParentKeyID}, namespace...)...)
	set(s.top, key, []byte{})
	s.childTree(namespace)
	return key
}

var _ migration.Store = (*Store)(nil)
