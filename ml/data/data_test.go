package data_test

import (
	"io"
	"math"
	"testing"

	"github.com/gonnlab/gonn/engines/densego"
	"github.com/gonnlab/gonn/ml/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInMemoryValidation(t *testing.T) {
	engine := densego.New("seed=0")
	_, err := data.NewInMemory(engine, "empty", nil, nil)
	require.ErrorContains(t, err, "no examples")

	_, err = data.NewInMemory(engine, "mismatched",
		[][]float64{{1}, {2}}, [][]float64{{1}})
	require.ErrorContains(t, err, "2 input rows but 1 label rows")

	_, err = data.NewInMemory(engine, "ragged",
		[][]float64{{1, 2}, {3}}, [][]float64{{1}, {2}})
	require.ErrorContains(t, err, "ragged")
}

func TestIterateOnceBatching(t *testing.T) {
	engine := densego.New("seed=0")
	inputs := make([][]float64, 10)
	labels := make([][]float64, 10)
	for i := range inputs {
		inputs[i] = []float64{float64(i), float64(-i)}
		labels[i] = []float64{float64(i) * 10}
	}
	ds, err := data.NewInMemory(engine, "ten", inputs, labels)
	require.NoError(t, err)
	require.Equal(t, 10, ds.Len())

	it := ds.IterateOnce(4)
	var rows int
	var batchSizes []int
	for {
		x, y, err := it.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		require.Equal(t, x.Rows(), y.Rows())
		require.Equal(t, 2, x.Cols())
		require.Equal(t, 1, y.Cols())
		// Rows are served in order, exactly once.
		values := engine.Values(x)
		for i, row := range values {
			assert.Equal(t, inputs[rows+i], row)
		}
		batchSizes = append(batchSizes, x.Rows())
		rows += x.Rows()
	}
	assert.Equal(t, []int{4, 4, 2}, batchSizes, "the final batch is short")
	assert.Equal(t, 10, rows)

	// The iterator stays exhausted.
	_, _, err = it.Next()
	assert.Equal(t, io.EOF, err)

	// A new call to IterateOnce restarts a fresh full sweep.
	x, _, err := ds.IterateOnce(10).Next()
	require.NoError(t, err)
	assert.Equal(t, 10, x.Rows())
}

func TestIterateOnceInvalidBatchSize(t *testing.T) {
	engine := densego.New("seed=0")
	ds, err := data.NewInMemory(engine, "two", [][]float64{{1}, {2}}, [][]float64{{1}, {2}})
	require.NoError(t, err)
	_, _, err = ds.IterateOnce(0).Next()
	require.ErrorContains(t, err, "invalid batch size")
}

func TestSeparable2D(t *testing.T) {
	engine := densego.New("seed=0")
	ds := data.Separable2D(engine, 50, 1)
	require.Equal(t, 50, ds.Len())

	it := ds.IterateOnce(1)
	for {
		x, y, err := it.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		point := engine.Values(x)[0]
		label := engine.AsScalar(y)
		score := 3*point[0] - 2*point[1]
		require.GreaterOrEqual(t, math.Abs(score), 0.2, "points must stay clear of the boundary margin")
		require.Equal(t, label, math.Copysign(1, score))
	}
}

func TestSine(t *testing.T) {
	engine := densego.New("seed=0")
	ds := data.Sine(engine, 30, 1)
	require.Equal(t, 30, ds.Len())
	x, y, err := ds.IterateOnce(30).Next()
	require.NoError(t, err)
	xs, ys := engine.Values(x), engine.Values(y)
	for i := range xs {
		assert.LessOrEqual(t, math.Abs(xs[i][0]), 2*math.Pi)
		assert.InDelta(t, math.Sin(xs[i][0]), ys[i][0], 1e-12)
	}
}

func TestSyntheticDigits(t *testing.T) {
	engine := densego.New("seed=0")
	ds := data.SyntheticDigits(engine, 3, 784, 1)
	require.Equal(t, 30, ds.Len())
	x, y, err := ds.IterateOnce(30).Next()
	require.NoError(t, err)
	require.Equal(t, 784, x.Cols())
	require.Equal(t, 10, y.Cols())
	classCounts := make([]int, 10)
	for i, row := range engine.Values(y) {
		var ones int
		for class, v := range row {
			if v == 1 {
				ones++
				classCounts[class]++
			} else {
				require.Zero(t, v)
			}
		}
		require.Equal(t, 1, ones, "labels must be one-hot, row %d", i)
		for _, pixel := range engine.Values(x)[i] {
			require.GreaterOrEqual(t, pixel, 0.0)
			require.LessOrEqual(t, pixel, 1.0)
		}
	}
	for class, count := range classCounts {
		assert.Equal(t, 3, count, "class %d", class)
	}
}

func TestOneHot(t *testing.T) {
	assert.Equal(t, []float64{0, 0, 1, 0}, data.OneHot(2, 4))
}

func TestDatasetName(t *testing.T) {
	engine := densego.New("seed=0")
	ds, err := data.NewInMemory(engine, "named", [][]float64{{1}}, [][]float64{{1}})
	require.NoError(t, err)
	assert.Equal(t, "named", ds.Name())
}
