package migration

// Weight is an abstract unit of compute cost, reported back to the host
// for tick budgeting.
type Weight uint64

// BenchmarkCurve maps a byte size to the compute cost of reading and
// writing that many bytes, as measured offline by the host. The core
// takes this as an injectable function rather than a concrete
// implementation, the same way it takes Logger — neither is something the
// migration engine itself can measure.
type BenchmarkCurve func(size uint32) Weight

// LinearBenchmarkCurve returns a BenchmarkCurve charging a fixed weight
// per byte, the simplest honest stand-in for a measured curve.
func LinearBenchmarkCurve(perByte Weight) BenchmarkCurve {
	return func(size uint32) Weight {
		return Weight(size) * perByte
	}
}

// dynamicWeight is the real cost of migrating the given number of items
// totaling size bytes: one read+write per item, plus the per-byte
// processing cost from the configured BenchmarkCurve.
func (m *Migrator) dynamicWeight(items, size uint32) Weight {
	return Weight(items)*m.cfg.ReadWriteWeight + m.cfg.ProcessTopKey(size)
}
