package models_test

import (
	"io"
	"testing"

	"github.com/gonnlab/gonn/engines/densego"
	"github.com/gonnlab/gonn/ml/data"
	"github.com/gonnlab/gonn/ml/models"
	"github.com/gonnlab/gonn/ml/train"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegressorDefaults(t *testing.T) {
	engine := densego.New("seed=0")
	model := models.NewRegressor(engine)
	config := model.Config()
	assert.Equal(t, 4, config.BatchSize)
	assert.Equal(t, 150, config.HiddenSize)
	assert.Equal(t, 0.01, config.LearningRate)
	assert.Equal(t, 0.015, config.LossThreshold)

	// Four parameters: w1, b1, w2, b2 with the documented shapes.
	params := model.Params()
	require.Len(t, params, 4)
	assert.Equal(t, [2]int{1, 150}, [2]int{params[0].Rows(), params[0].Cols()})
	assert.Equal(t, [2]int{1, 150}, [2]int{params[1].Rows(), params[1].Cols()})
	assert.Equal(t, [2]int{150, 1}, [2]int{params[2].Rows(), params[2].Cols()})
	assert.Equal(t, [2]int{1, 1}, [2]int{params[3].Rows(), params[3].Cols()})
}

func TestRegressorRunShapeAndPurity(t *testing.T) {
	engine := densego.New("seed=5")
	model := models.NewRegressor(engine)
	x := engine.Constant([][]float64{{0.5}, {-1.5}, {3}})
	out := model.Run(x)
	assert.Equal(t, 3, out.Rows())
	assert.Equal(t, 1, out.Cols())
	assert.Equal(t, engine.Values(model.Run(x)), engine.Values(model.Run(x)),
		"Run must be a pure function of the current parameters")
}

func TestRegressorConvergesOnSine(t *testing.T) {
	engine := densego.New("seed=42")
	ds := data.Sine(engine, 200, 42)
	model := models.NewRegressor(engine)
	require.NoError(t, model.Train(ds))

	// Training stopped, so the last step's loss reached the threshold. A
	// holdout batch from the same distribution should not be far above it:
	// this is a sanity check, not an exact bound.
	holdout := data.Sine(engine, 100, 43)
	it := holdout.IterateOnce(holdout.Len())
	x, y, err := it.Next()
	require.NoError(t, err)
	loss := engine.AsScalar(model.Loss(x, y))
	assert.Less(t, loss, 10*model.Config().LossThreshold)
	_, _, err = it.Next()
	assert.Equal(t, io.EOF, err)
}

func TestRegressorStepFollowsUpdateLaw(t *testing.T) {
	engine := densego.New("seed=9")
	model := models.NewRegressorWithConfig(engine, models.RegressorConfig{HiddenSize: 8})
	x := engine.Constant([][]float64{{0.25}, {-0.75}, {1.5}, {2}})
	y := engine.Constant([][]float64{{0.2}, {-0.7}, {1}, {0.9}})

	params := model.Params()
	var before, grads [][][]float64
	for _, p := range params {
		before = append(before, engine.Values(p))
	}
	for _, g := range engine.Gradients(model.Loss(x, y), params) {
		grads = append(grads, engine.Values(g))
	}

	learningRate := model.Config().LearningRate
	_, err := train.Step(engine, model, x, y, learningRate)
	require.NoError(t, err)

	for pi, p := range params {
		after := engine.Values(p)
		for i := range after {
			for j := range after[i] {
				require.InDeltaf(t, before[pi][i][j]+(-learningRate)*grads[pi][i][j], after[i][j], 1e-14,
					"params[%d][%d][%d]", pi, i, j)
			}
		}
	}
}
