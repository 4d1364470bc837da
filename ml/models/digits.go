package models

import (
	"github.com/gonnlab/gonn/engines"
	"github.com/gonnlab/gonn/ml/train"
)

const (
	// DigitInputSize is the dimensionality of a digit example: a 28x28
	// pixel grayscale image flattened into a vector, each entry in [0, 1].
	DigitInputSize = 28 * 28

	// DigitClasses is the number of digit classes (0 through 9).
	DigitClasses = 10
)

// DigitClassifierConfig holds the hyperparameters of a DigitClassifier.
// The zero value of each field selects its default.
type DigitClassifierConfig struct {
	// BatchSize of each gradient step. Defaults to 100.
	BatchSize int

	// HiddenSize is the width of the hidden layer. Defaults to 150.
	HiddenSize int

	// LearningRate scales the gradient updates. Defaults to 0.01.
	LearningRate float64

	// Epochs is the number of full passes over the dataset. Defaults
	// to 100.
	Epochs int
}

func (c DigitClassifierConfig) withDefaults() DigitClassifierConfig {
	if c.BatchSize == 0 {
		c.BatchSize = 100
	}
	if c.HiddenSize == 0 {
		c.HiddenSize = 150
	}
	if c.LearningRate == 0 {
		c.LearningRate = 0.01
	}
	if c.Epochs == 0 {
		c.Epochs = 100
	}
	return c
}

// DigitClassifier sorts handwritten digits into one of the 10 classes. Its
// forward graph has the same two-layer topology as Regressor, mapped to 10
// output logits; higher logits correspond to greater probability of the
// image belonging to that class.
//
// It trains by minibatch gradient descent on a softmax cross-entropy loss
// for a fixed number of epochs, with no early stopping: the epoch count is
// a hard cap, independent of the accuracy achieved.
type DigitClassifier struct {
	config DigitClassifierConfig
	engine engines.Engine

	w1, b1, w2, b2 engines.Parameter
}

// Compile-time check:
var _ train.GradientModel = (*DigitClassifier)(nil)

// NewDigitClassifier creates a DigitClassifier with default
// hyperparameters.
func NewDigitClassifier(engine engines.Engine) *DigitClassifier {
	return NewDigitClassifierWithConfig(engine, DigitClassifierConfig{})
}

// NewDigitClassifierWithConfig creates a DigitClassifier with the given
// hyperparameters; zero-valued fields get their defaults.
func NewDigitClassifierWithConfig(engine engines.Engine, config DigitClassifierConfig) *DigitClassifier {
	config = config.withDefaults()
	return &DigitClassifier{
		config: config,
		engine: engine,
		w1:     engine.Parameter(DigitInputSize, config.HiddenSize),
		b1:     engine.Parameter(1, config.HiddenSize),
		w2:     engine.Parameter(config.HiddenSize, DigitClasses),
		b2:     engine.Parameter(1, DigitClasses),
	}
}

// Config returns the hyperparameters the model was created with, with
// defaults filled in.
func (m *DigitClassifier) Config() DigitClassifierConfig { return m.config }

// Run predicts logits for a batch of examples x, shaped
// (batch x DigitInputSize). The result is shaped (batch x DigitClasses).
// It is a pure function of the current parameters and x.
func (m *DigitClassifier) Run(x engines.Node) engines.Node {
	return twoLayer(m.engine, x, m.w1, m.b1, m.w2, m.b2)
}

// Predict returns the class with the highest logit for each example of the
// batch x.
func (m *DigitClassifier) Predict(x engines.Node) []int {
	logits := m.engine.Values(m.Run(x))
	classes := make([]int, len(logits))
	for i, row := range logits {
		best := 0
		for j, v := range row {
			if v > row[best] {
				best = j
			}
		}
		classes[i] = best
	}
	return classes
}

// Loss implements train.GradientModel: the softmax cross-entropy loss
// between Run(x) and the one-hot labels y, shaped (batch x DigitClasses).
func (m *DigitClassifier) Loss(x, y engines.Node) engines.Node {
	return m.engine.SoftmaxLoss(m.Run(x), y)
}

// Params implements train.GradientModel.
func (m *DigitClassifier) Params() []engines.Parameter {
	return []engines.Parameter{m.w1, m.b1, m.w2, m.b2}
}

// Train runs minibatch gradient descent for exactly the configured number
// of epochs over the dataset, regardless of the loss values reached along
// the way.
func (m *DigitClassifier) Train(ds train.Dataset) error {
	return m.TrainLoop(train.NewLoop(m.engine), ds)
}

// TrainLoop is like Train, but runs on a caller-provided loop, so hooks
// (e.g. a progress bar) can be attached beforehand.
func (m *DigitClassifier) TrainLoop(loop *train.Loop, ds train.Dataset) error {
	_, err := loop.RunGradient(m, ds, m.config.BatchSize, m.config.LearningRate,
		train.FixedEpochCount(m.config.Epochs))
	return err
}
