package models

import (
	"github.com/gonnlab/gonn/engines"
	"github.com/gonnlab/gonn/ml/train"
)

// RegressorConfig holds the hyperparameters of a Regressor. The zero value
// of each field selects its default.
type RegressorConfig struct {
	// BatchSize of each gradient step. Defaults to 4.
	BatchSize int

	// HiddenSize is the width of the hidden layer. Defaults to 150.
	HiddenSize int

	// LearningRate scales the gradient updates. Defaults to 0.01.
	LearningRate float64

	// LossThreshold at which training stops: the loop terminates when the
	// scalar loss after a sweep's last step is at or below it. Defaults to
	// 0.015.
	LossThreshold float64
}

func (c RegressorConfig) withDefaults() RegressorConfig {
	if c.BatchSize == 0 {
		c.BatchSize = 4
	}
	if c.HiddenSize == 0 {
		c.HiddenSize = 150
	}
	if c.LearningRate == 0 {
		c.LearningRate = 0.01
	}
	if c.LossThreshold == 0 {
		c.LossThreshold = 0.015
	}
	return c
}

// Regressor approximates a scalar function of a real number with a
// two-layer network with a ReLU hidden layer. The default
// hidden width is large enough to approximate sin(x) on [-2π, 2π] to
// reasonable precision.
//
// It trains by minibatch gradient descent on a square loss, until the loss
// falls to the configured threshold.
type Regressor struct {
	config RegressorConfig
	engine engines.Engine

	w1, b1, w2, b2 engines.Parameter
}

// Compile-time check:
var _ train.GradientModel = (*Regressor)(nil)

// NewRegressor creates a Regressor with default hyperparameters.
func NewRegressor(engine engines.Engine) *Regressor {
	return NewRegressorWithConfig(engine, RegressorConfig{})
}

// NewRegressorWithConfig creates a Regressor with the given
// hyperparameters; zero-valued fields get their defaults.
func NewRegressorWithConfig(engine engines.Engine, config RegressorConfig) *Regressor {
	config = config.withDefaults()
	return &Regressor{
		config: config,
		engine: engine,
		w1:     engine.Parameter(1, config.HiddenSize),
		b1:     engine.Parameter(1, config.HiddenSize),
		w2:     engine.Parameter(config.HiddenSize, 1),
		b2:     engine.Parameter(1, 1),
	}
}

// Config returns the hyperparameters the model was created with, with
// defaults filled in.
func (m *Regressor) Config() RegressorConfig { return m.config }

// Run predicts y-values for a batch of examples x, shaped (batch x 1). The
// result is shaped (batch x 1). It is a pure function of the current
// parameters and x.
func (m *Regressor) Run(x engines.Node) engines.Node {
	return twoLayer(m.engine, x, m.w1, m.b1, m.w2, m.b2)
}

// Loss implements train.GradientModel: the square loss between Run(x) and
// the true y-values, shaped (batch x 1).
func (m *Regressor) Loss(x, y engines.Node) engines.Node {
	return m.engine.SquareLoss(m.Run(x), y)
}

// Params implements train.GradientModel.
func (m *Regressor) Params() []engines.Parameter {
	return []engines.Parameter{m.w1, m.b1, m.w2, m.b2}
}

// Train runs minibatch gradient descent over the dataset until the scalar
// loss, re-evaluated after each step's update, is at or below the
// configured threshold at the end of a sweep.
func (m *Regressor) Train(ds train.Dataset) error {
	return m.TrainLoop(train.NewLoop(m.engine), ds)
}

// TrainLoop is like Train, but runs on a caller-provided loop, so hooks
// (e.g. a progress bar) can be attached beforehand.
func (m *Regressor) TrainLoop(loop *train.Loop, ds train.Dataset) error {
	_, err := loop.RunGradient(m, ds, m.config.BatchSize, m.config.LearningRate,
		train.LossBelowThreshold(m.config.LossThreshold))
	return err
}
