//go:build ignore

// Command gen documents the wire shape migration/cbor_gen.go implements by
// hand. A plain cbor-gen tuple encoder can't express MigrationTask's
// optional byte-string fields (an absent key must round-trip differently
// from a present-and-empty one, which cbor-gen's tuple mode does not
// support), so this file is not wired into `go generate` — it exists as
// the struct-shape reference migration/cbor_gen.go was grounded on.
package main

import (
	gen "github.com/whyrusleeping/cbor-gen"

	"github.com/chain-tools/statetrie-migration/migration"
)

func main() {
	// Reference only — see migration/cbor_gen.go for the actual codec.
	_ = gen.WriteTupleEncodersToFile
	_ = migration.MigrationTask{}
}
