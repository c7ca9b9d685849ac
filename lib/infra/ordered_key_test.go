package infra

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAscKeyCompare(t *testing.T) {
	assert.Equal(t, int64(-1), AscKeyCompare(1, 2))
	assert.Equal(t, int64(0), AscKeyCompare(2, 2))
	assert.Equal(t, int64(1), AscKeyCompare(3, 2))
	assert.Equal(t, int64(-1), AscKeyCompare("a", "b"))
	assert.Equal(t, int64(1), AscKeyCompare[uint8]('z', 'a'))
}

func TestDescKeyCompare(t *testing.T) {
	assert.Equal(t, int64(1), DescKeyCompare(1, 2))
	assert.Equal(t, int64(0), DescKeyCompare(-7, -7))
	assert.Equal(t, int64(-1), DescKeyCompare(3.5, 2.0))
}

func TestFloatNaNCompare(t *testing.T) {
	nan := math.NaN()
	assert.Equal(t, int64(0), AscKeyCompare(nan, nan))
	assert.Equal(t, int64(-1), AscKeyCompare(nan, math.Inf(-1)))
	assert.Equal(t, int64(1), AscKeyCompare(0.0, nan))
}
