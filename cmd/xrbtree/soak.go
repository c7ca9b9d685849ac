package main

import (
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/panjf2000/ants/v2"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/benz9527/xrbtree/lib/tree"
	"github.com/benz9527/xrbtree/lib/xlog"
	"github.com/benz9527/xrbtree/observability"
)

var (
	errInvalidSoakFlag = errors.New("invalid soak flag")
	errSoakDiverged    = errors.New("soak diverged from the model")
)

type soakFlags struct {
	ops        int
	seed       uint64
	keySpace   int
	workers    int
	cpuProfile string
}

type soakReport struct {
	worker   int
	ops      int
	inserted int
	deleted  int
	keys     int64
	height   int
}

func (a *app) soakCmd() *cobra.Command {
	flags := soakFlags{}
	cmd := &cobra.Command{
		Use:   "soak",
		Short: "Soak the tree with random insertions and deletions",
		Long: `Every worker drives its own verified tree with a seeded random
sequence of insertions and deletions and checks the tree against
a plain set model. The workers also mirror their keys into one
shared synchronized tree.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runSoak(cmd.OutOrStdout(), flags)
		},
	}
	cmd.Flags().IntVar(&flags.ops, "ops", 100000, "total operations of all workers")
	cmd.Flags().Uint64Var(&flags.seed, "seed", 1, "random seed")
	cmd.Flags().IntVar(&flags.keySpace, "key-space", 1024, "keys are drawn from [0, key-space)")
	cmd.Flags().IntVar(&flags.workers, "workers", 4, "concurrent workers")
	cmd.Flags().StringVar(&flags.cpuProfile, "cpu-profile", "", "write the cpu profile to the file")
	return cmd
}

func (flags soakFlags) validate() error {
	var merr error
	if flags.ops < 0 {
		merr = multierr.Append(merr, fmt.Errorf("%w: ops %d", errInvalidSoakFlag, flags.ops))
	}
	if flags.keySpace <= 0 {
		merr = multierr.Append(merr, fmt.Errorf("%w: key-space %d", errInvalidSoakFlag, flags.keySpace))
	}
	if flags.workers <= 0 {
		merr = multierr.Append(merr, fmt.Errorf("%w: workers %d", errInvalidSoakFlag, flags.workers))
	}
	return merr
}

func (a *app) runSoak(out io.Writer, flags soakFlags) (err error) {
	if err = flags.validate(); err != nil {
		return err
	}
	if flags.cpuProfile != "" {
		f, ferr := os.Create(flags.cpuProfile)
		if ferr != nil {
			return ferr
		}
		stop, perr := observability.StartProfile(observability.CPUProfile, f)
		if perr != nil {
			return multierr.Append(perr, f.Close())
		}
		defer func() {
			err = multierr.Combine(err, stop(), f.Close())
		}()
	}

	pool, err := ants.NewPool(flags.workers,
		ants.WithPreAlloc(true),
		ants.WithLogger(xlog.NewAntsXLogger(a.logger())),
	)
	if err != nil {
		return err
	}
	defer pool.Release()

	shared := tree.NewSyncRBTree[int](tree.NewRBTree[int](tree.WithRBTreeMeter[int](a.meter())))
	defer shared.Release()

	var (
		wg      sync.WaitGroup
		lock    sync.Mutex
		merr    error
		reports = make([]soakReport, flags.workers)
		start   = time.Now()
	)
	for w := 0; w < flags.workers; w++ {
		ops := flags.ops / flags.workers
		if w < flags.ops%flags.workers {
			ops++
		}
		wg.Add(1)
		if serr := pool.Submit(func() {
			defer wg.Done()
			report, werr := a.soakWorker(w, ops, flags, shared)
			reports[w] = report
			if werr != nil {
				lock.Lock()
				merr = multierr.Append(merr, werr)
				lock.Unlock()
			}
		}); serr != nil {
			wg.Done()
			merr = multierr.Append(merr, serr)
		}
	}
	wg.Wait()
	if merr != nil {
		return merr
	}
	elapsed := time.Since(start)

	var total int64
	for _, r := range reports {
		total += r.keys
		_, _ = fmt.Fprintf(out, "worker %d: ops %d, inserted %d, deleted %d, keys %d, height %d\n",
			r.worker, r.ops, r.inserted, r.deleted, r.keys, r.height)
	}
	if shared.Len() != total {
		return fmt.Errorf("%w: shared tree keys %d, workers keys %d", errSoakDiverged, shared.Len(), total)
	}
	if err = shared.Verify(); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "total keys %d, shared height %d\n", total, shared.Height())
	_, _ = fmt.Fprintf(out, "elapsed %s, throughput %s ops/s\n",
		elapsed.Round(time.Millisecond), humanize.Comma(opsPerSecond(flags.ops, elapsed)))
	return nil
}

func opsPerSecond(ops int, elapsed time.Duration) int64 {
	if elapsed <= 0 {
		return int64(ops)
	}
	return int64(float64(ops) / elapsed.Seconds())
}

// soakWorker owns the keys w*keySpace to (w+1)*keySpace-1 of the
// shared tree, so the workers never touch the same key.
func (a *app) soakWorker(w, ops int, flags soakFlags, shared tree.RBTree[int]) (report soakReport, err error) {
	report = soakReport{worker: w, ops: ops}
	rbtree := tree.NewRBTree[int](
		tree.WithRBTreeVerify[int](),
		tree.WithRBTreeLogger[int](a.logger()),
		tree.WithRBTreeMeter[int](a.meter()),
	)
	defer rbtree.Release()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker %d: %v", w, r)
		}
	}()

	r := rand.New(rand.NewPCG(flags.seed, uint64(w)))
	model := make(map[int]struct{}, flags.keySpace)
	offset := w * flags.keySpace
	for i := 0; i < ops; i++ {
		key := r.IntN(flags.keySpace)
		_, exists := model[key]
		if r.IntN(2) == 0 {
			if ok := rbtree.Insert(key); ok == exists {
				return report, fmt.Errorf("%w: worker %d op %d insert %d returned %t", errSoakDiverged, w, i, key, ok)
			}
			shared.Insert(offset + key)
			model[key] = struct{}{}
			if !exists {
				report.inserted++
			}
			continue
		}
		if ok := rbtree.Delete(key); ok != exists {
			return report, fmt.Errorf("%w: worker %d op %d delete %d returned %t", errSoakDiverged, w, i, key, ok)
		}
		shared.Delete(offset + key)
		delete(model, key)
		if exists {
			report.deleted++
		}
	}

	if rbtree.Len() != int64(len(model)) {
		return report, fmt.Errorf("%w: worker %d has %d keys, model %d", errSoakDiverged, w, rbtree.Len(), len(model))
	}
	for key := range rbtree.All() {
		if _, ok := model[key]; !ok {
			return report, fmt.Errorf("%w: worker %d unexpected key %d", errSoakDiverged, w, key)
		}
	}
	report.keys, report.height = rbtree.Len(), rbtree.Height()
	a.logger().Info("[xrbtree] soak worker done",
		zap.Int("worker", w),
		zap.Int("ops", ops),
		zap.Int64("keys", report.keys),
		zap.Int("height", report.height),
	)
	return report, nil
}
