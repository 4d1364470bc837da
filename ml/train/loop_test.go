package train_test

import (
	"io"
	"math"
	"testing"

	"github.com/gonnlab/gonn/engines"
	"github.com/gonnlab/gonn/engines/densego"
	"github.com/gonnlab/gonn/ml/data"
	"github.com/gonnlab/gonn/ml/train"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scaleModel is a minimal gradient model with one 1x1 parameter w and loss
// (w·x - y)²/2, so gradient descent drives w towards y/x.
type scaleModel struct {
	engine engines.Engine
	w      engines.Parameter
}

func newScaleModel(engine engines.Engine) *scaleModel {
	return &scaleModel{engine: engine, w: engine.Parameter(1, 1)}
}

func (m *scaleModel) Loss(x, y engines.Node) engines.Node {
	return m.engine.SquareLoss(m.engine.Linear(x, m.w), y)
}

func (m *scaleModel) Params() []engines.Parameter {
	return []engines.Parameter{m.w}
}

func scaleDataset(t *testing.T, engine engines.Engine, n int) *data.InMemory {
	t.Helper()
	inputs := make([][]float64, n)
	labels := make([][]float64, n)
	for i := range inputs {
		x := float64(i%7) - 3
		inputs[i] = []float64{x}
		labels[i] = []float64{2 * x}
	}
	ds, err := data.NewInMemory(engine, "scale", inputs, labels)
	require.NoError(t, err)
	return ds
}

func TestStepAppliesUpdateLaw(t *testing.T) {
	engine := densego.New("seed=42")
	model := newScaleModel(engine)
	x := engine.Constant([][]float64{{2}})
	y := engine.Constant([][]float64{{6}})

	before := engine.Values(model.w)[0][0]
	grad := engine.Values(engine.Gradients(model.Loss(x, y), model.Params())[0])[0][0]

	const learningRate = 0.01
	loss, err := train.Step(engine, model, x, y, learningRate)
	require.NoError(t, err)

	after := engine.Values(model.w)[0][0]
	require.InDelta(t, before+(-learningRate)*grad, after, 1e-14,
		"param_after must be param_before + (-learning_rate)·gradient")

	// The returned loss is re-evaluated after the update.
	require.InDelta(t, engine.AsScalar(model.Loss(x, y)), loss, 1e-14)
}

func TestStepInterruptsOnNaNLoss(t *testing.T) {
	engine := densego.New("seed=42")
	model := newScaleModel(engine)
	x := engine.Constant([][]float64{{math.NaN()}})
	y := engine.Constant([][]float64{{1}})
	_, err := train.Step(engine, model, x, y, 0.01)
	require.ErrorContains(t, err, "NaN")
}

func TestRunGradientFixedEpochs(t *testing.T) {
	engine := densego.New("seed=42")
	model := newScaleModel(engine)
	ds := scaleDataset(t, engine, 12)
	loop := train.NewLoop(engine)

	var sweeps, steps int
	loop.OnSweep("count-sweeps", 0, func(loop *train.Loop, result train.SweepResult) error {
		sweeps++
		return nil
	})
	loop.OnStep("count-steps", 0, func(loop *train.Loop, loss float64) error {
		steps++
		return nil
	})

	result, err := loop.RunGradient(model, ds, 4, 0.01, train.FixedEpochCount(5))
	require.NoError(t, err)
	assert.Equal(t, 5, sweeps)
	assert.Equal(t, 5*3, steps, "12 examples in batches of 4 is 3 steps per sweep")
	assert.Equal(t, 5*3, loop.Step)
	assert.Equal(t, 4, result.Sweep)
	assert.Equal(t, 3, result.Steps)
	assert.False(t, math.IsNaN(result.LastLoss))
	assert.NotZero(t, loop.MedianTrainStepDuration())
}

func TestRunGradientLossThreshold(t *testing.T) {
	engine := densego.New("seed=42")
	model := newScaleModel(engine)
	ds := scaleDataset(t, engine, 12)
	loop := train.NewLoop(engine)

	result, err := loop.RunGradient(model, ds, 4, 0.05, train.LossBelowThreshold(1e-4))
	require.NoError(t, err)
	assert.LessOrEqual(t, result.LastLoss, 1e-4)
	// w must have converged close to the true scale factor.
	assert.InDelta(t, 2.0, engine.Values(model.w)[0][0], 0.05)
}

type onlineCounter struct {
	remaining int
}

func (m *onlineCounter) FitOne(x, y engines.Node) bool {
	if m.remaining > 0 {
		m.remaining--
		return true
	}
	return false
}

func TestRunOnlineUntilMistakeFree(t *testing.T) {
	engine := densego.New("seed=42")
	ds := scaleDataset(t, engine, 5)
	loop := train.NewLoop(engine)

	// 7 mistakes over sweeps of 5 examples: sweep 0 has 5 mistakes, sweep 1
	// has 2, and sweep 2 is the mistake-free one that terminates training.
	model := &onlineCounter{remaining: 7}
	result, err := loop.RunOnline(model, ds, train.MistakeFreeSweep())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Sweep)
	assert.Equal(t, 0, result.Mistakes)
	assert.Equal(t, 3*5, loop.Step)
	assert.True(t, math.IsNaN(result.LastLoss), "online training has no loss")
}

func TestHooksRunInPriorityOrder(t *testing.T) {
	engine := densego.New("seed=42")
	model := newScaleModel(engine)
	ds := scaleDataset(t, engine, 4)
	loop := train.NewLoop(engine)

	var order []string
	loop.OnStart("late", 10, func(loop *train.Loop, ds train.Dataset) error {
		order = append(order, "late")
		return nil
	})
	loop.OnStart("early", -10, func(loop *train.Loop, ds train.Dataset) error {
		order = append(order, "early")
		return nil
	})
	_, err := loop.RunGradient(model, ds, 4, 0.01, train.FixedEpochCount(1))
	require.NoError(t, err)
	assert.Equal(t, []string{"early", "late"}, order)
}

func TestHookErrorsAreNamed(t *testing.T) {
	engine := densego.New("seed=42")
	model := newScaleModel(engine)
	ds := scaleDataset(t, engine, 4)
	loop := train.NewLoop(engine)
	loop.OnStep("broken-hook", 0, func(loop *train.Loop, loss float64) error {
		return errors.New("hook failed")
	})
	_, err := loop.RunGradient(model, ds, 4, 0.01, train.FixedEpochCount(1))
	require.ErrorContains(t, err, "broken-hook")
}

// emptyDataset yields no batches at all.
type emptyDataset struct{}

func (emptyDataset) Name() string                   { return "empty" }
func (emptyDataset) IterateOnce(int) train.Iterator { return emptyIterator{} }

type emptyIterator struct{}

func (emptyIterator) Next() (engines.Node, engines.Node, error) {
	return nil, nil, io.EOF
}

func TestEmptySweepIsAnError(t *testing.T) {
	engine := densego.New("seed=42")
	model := newScaleModel(engine)
	loop := train.NewLoop(engine)
	_, err := loop.RunGradient(model, emptyDataset{}, 4, 0.01, train.FixedEpochCount(1))
	require.ErrorContains(t, err, "empty sweep")
}
