package migration

import "bytes"

// Store is the abstract key-value backend the migrator walks. The core
// never assumes anything about how keys are stored; it only requires the
// primitives below on both the top namespace and an arbitrary number of
// child namespaces rooted at a child-root top key.
//
// Implementations must provide a total lexicographic order over keys
// within a namespace: Next must return the least key strictly greater
// than the one given, or ok == false if none exists.
type Store interface {
	// TopGet returns the value at a top key, or ok == false if absent.
	TopGet(key []byte) (value []byte, ok bool, err error)
	// TopSet writes a value at a top key.
	TopSet(key, value []byte) error
	// TopNext returns the least top key strictly greater than key, or
	// ok == false if none exists. key == nil/empty returns the first key.
	TopNext(key []byte) (next []byte, ok bool, err error)

	// ChildGet returns the value at a key within the child namespace
	// rooted at root, or ok == false if absent.
	ChildGet(root, key []byte) (value []byte, ok bool, err error)
	// ChildSet writes a value at a key within the child namespace rooted
	// at root.
	ChildSet(root, key, value []byte) error
	// ChildNext returns the least key strictly greater than key within
	// the child namespace rooted at root, or ok == false if none exists.
	ChildNext(root, key []byte) (next []byte, ok bool, err error)
}

// DefaultChildStoragePrefix is the well-known byte prefix identifying a top
// key as a child root. The exact bytes are host-supplied; this default
// matches the conventional trie layout used elsewhere in this ecosystem.
var DefaultChildStoragePrefix = []byte(":child_storage:default:")

// ParentKeyID is the single-byte type discriminator that must immediately
// follow DefaultChildStoragePrefix for a top key to decode as a valid
// child root. Any other value is a corrupt child-root key.
const ParentKeyID byte = 1

// IsChildRoot reports whether key begins with prefix, i.e. whether it is
// a candidate child-root top key. It does not validate the discriminator
// byte — use ChildNamespaceOf for that.
func IsChildRoot(prefix, key []byte) bool {
	return bytes.HasPrefix(key, prefix)
}

// ChildNamespaceOf decodes the child namespace identified by a child-root
// top key: the bytes after prefix and the single-byte discriminator. It
// returns ok == false if prefix does not match, if there are no bytes left
// for the discriminator, or if the discriminator is not ParentKeyID — a
// corrupt child-root key, never an error.
func ChildNamespaceOf(prefix, key []byte) (namespace []byte, ok bool) {
	if !bytes.HasPrefix(key, prefix) {
		return nil, false
	}
	rest := key[len(prefix):]
	if len(rest) < 1 || rest[0] != ParentKeyID {
		return nil, false
	}
	return rest[1:], true
}
