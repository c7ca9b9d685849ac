package main

import (
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/benz9527/xrbtree/lib/tree"
)

var errScenarioMismatch = errors.New("scenario mismatch")

type scenarioStep struct {
	op       string
	keys     []int
	expected []int
	contains map[int]bool
}

// The reference chain, every step continues from the tree
// left by the previous one.
var scenarioSteps = []scenarioStep{
	{
		op:       "insert",
		keys:     []int{5, 10, 7, 6, 7, 8},
		expected: []int{5, 6, 7, 8, 10},
		contains: map[int]bool{7: true, -10: false},
	},
	{
		op:       "delete",
		keys:     []int{7},
		expected: []int{5, 6, 8, 10},
		contains: map[int]bool{7: false},
	},
	{
		op:       "delete",
		keys:     []int{5, 20},
		expected: []int{6, 8, 10},
	},
	{
		op:       "delete",
		keys:     []int{100, 5, 8},
		expected: []int{6, 10},
	},
	{
		op:       "delete",
		keys:     []int{6, 8, 10, -1},
		expected: []int{},
		contains: map[int]bool{8: false},
	},
}

func (a *app) scenarioCmd() *cobra.Command {
	var desc bool
	cmd := &cobra.Command{
		Use:   "scenario",
		Short: "Replay the reference insert and delete scenario",
		Long: `Replay the reference scenario step by step, printing the
ascending contents after each step and failing on the first
step whose contents or membership differ from the expected.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runScenario(cmd.OutOrStdout(), desc)
		},
	}
	cmd.Flags().BoolVar(&desc, "desc", false, "order the keys descending")
	return cmd
}

func (a *app) runScenario(out io.Writer, desc bool) error {
	opts := []tree.RBTreeOpt[int]{
		tree.WithRBTreeVerify[int](),
		tree.WithRBTreeLogger[int](a.logger()),
		tree.WithRBTreeMeter[int](a.meter()),
	}
	if desc {
		opts = append(opts, tree.WithRBTreeDesc[int]())
	}
	rbtree := tree.NewRBTree[int](opts...)
	defer rbtree.Release()

	for i, step := range scenarioSteps {
		applied := make([]bool, 0, len(step.keys))
		for _, key := range step.keys {
			switch step.op {
			case "insert":
				applied = append(applied, rbtree.Insert(key))
			case "delete":
				applied = append(applied, rbtree.Delete(key))
			default:
			}
		}
		contents := slices.Collect(rbtree.All())
		if contents == nil {
			contents = []int{}
		}
		_, _ = fmt.Fprintf(out, "step %d: %s %v => %v (height %d)\n",
			i+1, step.op, step.keys, contents, rbtree.Height())

		expected := slices.Clone(step.expected)
		if desc {
			slices.Reverse(expected)
		}
		if !slices.Equal(expected, contents) {
			return fmt.Errorf("%w: step %d contents %v, expected %v", errScenarioMismatch, i+1, contents, expected)
		}
		for _, key := range lo.Keys(step.contains) {
			if found := rbtree.Contains(key); found != step.contains[key] {
				return fmt.Errorf("%w: step %d contains(%d) = %t", errScenarioMismatch, i+1, key, found)
			}
		}
		a.logger().Debug("[xrbtree] scenario step",
			zap.Int("step", i+1),
			zap.String("op", step.op),
			zap.Ints("keys", step.keys),
			zap.Int("applied", lo.Count(applied, true)),
		)
	}
	return rbtree.Verify()
}
