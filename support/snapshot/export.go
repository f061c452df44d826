// Package snapshot exports the contents of a migration.Store as a CAR
// archive, so two stores — typically "before" and "after" a migration run
// — can be compared by their resulting root CID rather than by diffing
// every key by hand.
package snapshot

import (
	"context"
	"fmt"
	"io"
	"sort"

	cid "github.com/ipfs/go-cid"
	cbornode "github.com/ipfs/go-ipld-cbor"
	format "github.com/ipfs/go-ipld-format"
	car "github.com/ipld/go-car"
	mh "github.com/multiformats/go-multihash"

	"github.com/chain-tools/statetrie-migration/support/memstore"
)

// entry is the CBOR-wrapped representation of one key/value pair.
type entry struct {
	Key   []byte `json:"key"`
	Value []byte `json:"value"`
}

// childNamespace is the CBOR-wrapped representation of one child
// namespace: its name and the CID of its own sorted entry list.
type childNamespace struct {
	Namespace []byte  `json:"namespace"`
	Entries   cid.Cid `json:"entries"`
}

// root is the top-level snapshot node: the sorted top entries (child-root
// keys included) plus the list of child namespaces.
type root struct {
	Top      cid.Cid `json:"top"`
	Children cid.Cid `json:"children"`
}

// memNodeGetter is an in-memory format.NodeGetter over the blocks produced
// while building a snapshot.
type memNodeGetter map[cid.Cid]format.Node

func (g memNodeGetter) Get(_ context.Context, c cid.Cid) (format.Node, error) {
	n, ok := g[c]
	if !ok {
		return nil, format.ErrNotFound{Cid: c}
	}
	return n, nil
}

func (g memNodeGetter) GetMany(ctx context.Context, cs []cid.Cid) <-chan *format.NodeOption {
	out := make(chan *format.NodeOption, len(cs))
	go func() {
		defer close(out)
		for _, c := range cs {
			n, err := g.Get(ctx, c)
			out <- &format.NodeOption{Node: n, Err: err}
		}
	}()
	return out
}

func wrap(blocks memNodeGetter, obj interface{}) (cid.Cid, error) {
	node, err := cbornode.WrapObject(obj, mh.SHA2_256, -1)
	if err != nil {
		return cid.Undef, fmt.Errorf("snapshot: encoding node: %w", err)
	}
	blocks[node.Cid()] = node
	return node.Cid(), nil
}

// Export walks every entry of s's top namespace and every child namespace
// registered on it, encodes the contents as a tree of CBOR IPLD nodes, and
// writes the resulting CAR archive to w. The returned CID is the archive's
// single root.
func Export(ctx context.Context, s *memstore.Store, w io.Writer) (cid.Cid, error) {
	blocks := make(memNodeGetter)

	topEntries, childNames := s.Entries()

	sort.Slice(topEntries, func(i, j int) bool { return string(topEntries[i].Key) < string(topEntries[j].Key) })
	topCIDs := make([]cid.Cid, 0, len(topEntries))
	for _, e := range topEntries {
		c, err := wrap(blocks, entry{Key: e.Key, Value: e.Value})
		if err != nil {
			return cid.Undef, err
		}
		topCIDs = append(topCIDs, c)
	}
	topListCID, err := wrap(blocks, topCIDs)
	if err != nil {
		return cid.Undef, err
	}

	sort.Strings(childNames)
	childCIDs := make([]cid.Cid, 0, len(childNames))
	for _, name := range childNames {
		childEntries := s.ChildEntries([]byte(name))
		sort.Slice(childEntries, func(i, j int) bool { return string(childEntries[i].Key) < string(childEntries[j].Key) })

		entryCIDs := make([]cid.Cid, 0, len(childEntries))
		for _, e := range childEntries {
			c, err := wrap(blocks, entry{Key: e.Key, Value: e.Value})
			if err != nil {
				return cid.Undef, err
			}
			entryCIDs = append(entryCIDs, c)
		}
		entriesListCID, err := wrap(blocks, entryCIDs)
		if err != nil {
			return cid.Undef, err
		}
		c, err := wrap(blocks, childNamespace{Namespace: []byte(name), Entries: entriesListCID})
		if err != nil {
			return cid.Undef, err
		}
		childCIDs = append(childCIDs, c)
	}
	childrenListCID, err := wrap(blocks, childCIDs)
	if err != nil {
		return cid.Undef, err
	}

	rootCID, err := wrap(blocks, root{Top: topListCID, Children: childrenListCID})
	if err != nil {
		return cid.Undef, err
	}

	if err := car.WriteCar(ctx, blocks, []cid.Cid{rootCID}, w); err != nil {
		return cid.Undef, fmt.Errorf("snapshot: writing car: %w", err)
	}
	return rootCID, nil
}
