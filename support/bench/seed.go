// Package bench seeds a memstore.Store with synthetic top and child keys
// for migration benchmarks. Seeding is the one place in this repository
// that runs concurrently — the migrator itself is strictly single-threaded,
// walking one key per tick — so this worker-pool shape is repointed at
// generating test fixtures instead of migrating actor state.
package bench

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/filecoin-project/go-state-types/rt"
	"golang.org/x/sync/errgroup"

	"github.com/chain-tools/statetrie-migration/migration"
	"github.com/chain-tools/statetrie-migration/support/memstore"
)

// Logger is the same minimal logging capability migration.Logger declares.
type Logger interface {
	Log(level rt.LogLevel, msg string, args ...interface{})
}

// SeedConfig parameterizes the concurrent seeding pool.
type SeedConfig struct {
	// TopKeys is the number of flat top-level keys to write.
	TopKeys int
	// ChildRoots is the number of child namespaces to create.
	ChildRoots int
	// ChildKeysPerRoot is the number of keys to write inside each child
	// namespace.
	ChildKeysPerRoot int
	// ValueSize is the byte length of every seeded value.
	ValueSize int
	// MaxWorkers is the number of seeding worker goroutines.
	MaxWorkers int
	// ProgressLogPeriod, when positive, logs progress on this interval.
	ProgressLogPeriod time.Duration
}

type seedJob struct {
	top       []byte
	namespace []byte // nil for a flat top key
	child     []byte // nil unless namespace is set
}

// Seed populates s according to cfg, running MaxWorkers goroutines
// concurrently over the generated job list, and returns once every key has
// been written (or the context is cancelled).
func Seed(ctx context.Context, s *memstore.Store, cfg SeedConfig, log Logger) error {
	if cfg.MaxWorkers <= 0 {
		return fmt.Errorf("bench: invalid seed config with %d workers", cfg.MaxWorkers)
	}
	startTime := time.Now()

	jobs := buildJobs(s, cfg)
	jobCh := make(chan seedJob, len(jobs))
	for _, j := range jobs {
		jobCh <- j
	}
	close(jobCh)

	var doneCount uint32
	total := uint32(len(jobs))
	value := make([]byte, cfg.ValueSize)

	grp, ctx := errgroup.WithContext(ctx)
	for i := 0; i < cfg.MaxWorkers; i++ {
		grp.Go(func() error {
			for job := range jobCh {
				select {
				case <-ctx.Done():
					return ctx.Err()
				default:
				}
				var err error
				if job.namespace == nil {
					err = s.TopSet(job.top, value)
				} else {
					err = s.ChildSet(job.namespace, job.child, value)
				}
				if err != nil {
					return err
				}
				atomic.AddUint32(&doneCount, 1)
			}
			return nil
		})
	}

	workersFinished := make(chan struct{})
	if cfg.ProgressLogPeriod > 0 && log != nil {
		go func() {
			for {
				select {
				case <-time.After(cfg.ProgressLogPeriod):
					done := atomic.LoadUint32(&doneCount)
					log.Log(rt.INFO, "seeded %d/%d keys after %v", done, total, time.Since(startTime))
				case <-workersFinished:
					return
				}
			}
		}()
	}

	err := grp.Wait()
	close(workersFinished)
	if err != nil {
		return err
	}
	if log != nil {
		log.Log(rt.INFO, "seeding done: %d keys in %v", total, time.Since(startTime))
	}
	return nil
}

func buildJobs(s *memstore.Store, cfg SeedConfig) []seedJob {
	jobs := make([]seedJob, 0, cfg.TopKeys+cfg.ChildRoots*(cfg.ChildKeysPerRoot+1))
	for i := 0; i < cfg.TopKeys; i++ {
		jobs = append(jobs, seedJob{top: []byte(fmt.Sprintf("top/%08d", i))})
	}
	for r := 0; r < cfg.ChildRoots; r++ {
		namespace := []byte(fmt.Sprintf("child-ns-%04d", r))
		root := s.PutChildRoot(migration.DefaultChildStoragePrefix, namespace)
		jobs = append(jobs, seedJob{top: root})
		for k := 0; k < cfg.ChildKeysPerRoot; k++ {
			jobs = append(jobs, seedJob{
				namespace: namespace,
				child:     []byte(fmt.Sprintf("key-%08d", k)),
			})
		}
	}
	return jobs
}
