package tree

import (
	"context"
	"strings"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/benz9527/xrbtree/lib/infra"
)

const (
	metricRotations    = "rbtree.rotations"
	metricInsertFixups = "rbtree.insert.fixups"
	metricDeleteFixups = "rbtree.delete.fixups"
	metricSize         = "rbtree.size"
)

// rbStats is nil if the tree has no meter, all the methods
// are no-op on the nil receiver.
type rbStats struct {
	rotations    metric.Int64Counter
	insertFixups metric.Int64Counter
	deleteFixups metric.Int64Counter
	size         metric.Int64UpDownCounter
	leftRotate   metric.AddOption
	rightRotate  metric.AddOption
}

func newRBStats(meter metric.Meter) *rbStats {
	dirAttr := func(dir RBDirection) metric.AddOption {
		return metric.WithAttributeSet(attribute.NewSet(
			attribute.String("direction", strings.ToLower(dir.String())),
		))
	}
	return &rbStats{
		rotations: lo.Must[metric.Int64Counter](meter.Int64Counter(
			metricRotations,
			metric.WithDescription(`The rbtree left and right rotations.`),
			metric.WithUnit("{rotation}"),
		)),
		insertFixups: lo.Must[metric.Int64Counter](meter.Int64Counter(
			metricInsertFixups,
			metric.WithDescription(`The rbtree insertion rebalancing cases applied.`),
			metric.WithUnit("{case}"),
		)),
		deleteFixups: lo.Must[metric.Int64Counter](meter.Int64Counter(
			metricDeleteFixups,
			metric.WithDescription(`The rbtree deletion rebalancing cases applied.`),
			metric.WithUnit("{case}"),
		)),
		size: lo.Must[metric.Int64UpDownCounter](meter.Int64UpDownCounter(
			metricSize,
			metric.WithDescription(`The rbtree keys.`),
			metric.WithUnit("{key}"),
		)),
		leftRotate:  dirAttr(Left),
		rightRotate: dirAttr(Right),
	}
}

func (stats *rbStats) rotated(dir RBDirection) {
	if stats == nil {
		return
	}
	opt := stats.leftRotate
	if dir == Right {
		opt = stats.rightRotate
	}
	stats.rotations.Add(context.Background(), 1, opt)
}

func (stats *rbStats) fixed(op, fixCase string) {
	if stats == nil {
		return
	}
	attr := metric.WithAttributes(attribute.String("case", fixCase))
	switch op {
	case "insert":
		stats.insertFixups.Add(context.Background(), 1, attr)
	case "delete":
		stats.deleteFixups.Add(context.Background(), 1, attr)
	default:
	}
}

func (stats *rbStats) resized(delta int64) {
	if stats == nil || delta == 0 {
		return
	}
	stats.size.Add(context.Background(), delta)
}

// WithRBTreeMeter records the rotations, the rebalancing cases
// and the size of the tree.
func WithRBTreeMeter[K infra.OrderedKey](meter metric.Meter) RBTreeOpt[K] {
	return func(tree *rbTree[K]) {
		if meter != nil {
			tree.stats = newRBStats(meter)
		}
	}
}
