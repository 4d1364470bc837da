// Package train holds the shared batch-training machinery used by the
// models in ml/models: the dataset iteration contract, the gradient-descent
// stepping primitive, the stopping policies and the Loop that ties them
// together.
//
// The three models share one training-loop shape -- pull a batch, build the
// loss, compute gradients, update parameters -- and differ only in how they
// decide to stop (see Policy) and in their layer topology, which lives in
// the models themselves.
package train

import (
	"math"

	"github.com/gonnlab/gonn/engines"
	"github.com/pkg/errors"
)

// Dataset is the iteration contract consumed by training loops.
//
// A Dataset produces a finite, lazy sequence of (input batch, label batch)
// pairs covering the dataset exactly once per call to IterateOnce. Calling
// IterateOnce again restarts a fresh full sweep.
type Dataset interface {
	// Name identifies the dataset for logs and error messages.
	Name() string

	// IterateOnce starts a new sweep over the dataset, with inputs and
	// labels grouped in batches of batchSize examples. If batchSize does
	// not divide the number of examples, the final batch is short.
	IterateOnce(batchSize int) Iterator
}

// Iterator is a one-shot lazy iterator over a dataset sweep.
type Iterator interface {
	// Next returns the next (input batch, label batch) pair, or io.EOF
	// after the last batch of the sweep.
	Next() (inputs, labels engines.Node, err error)
}

// GradientModel is a model trainable by gradient descent: it builds a
// scalar loss graph for a batch and owns a fixed set of parameters.
type GradientModel interface {
	// Loss returns the scalar loss node for the batch (x, y).
	Loss(x, y engines.Node) engines.Node

	// Params returns the model's owned parameters, in a fixed order.
	Params() []engines.Parameter
}

// OnlineModel is a model trained example by example, like the perceptron:
// it inspects one (example, label) pair and decides whether to adjust its
// parameters.
type OnlineModel interface {
	// FitOne runs the model on a single example and, if the prediction
	// disagrees with the label, updates the parameters. It reports whether
	// a mistake was made.
	FitOne(x, y engines.Node) bool
}

// Step performs one gradient-descent step for the given batch: build the
// loss, compute the gradients with respect to every parameter, and apply
// param += (-learningRate)·gradient to each.
//
// It returns the scalar loss re-evaluated after the update, so callers see
// the loss of the parameters they are left with. Training is interrupted
// with an error if that loss is NaN or infinite.
func Step(engine engines.Engine, model GradientModel, x, y engines.Node, learningRate float64) (loss float64, err error) {
	params := model.Params()
	grads := engine.Gradients(model.Loss(x, y), params)
	for i, param := range params {
		param.Update(grads[i], -learningRate)
	}
	loss = engine.AsScalar(model.Loss(x, y))
	if math.IsNaN(loss) {
		return loss, errors.Errorf("batch loss is NaN, training interrupted")
	}
	if math.IsInf(loss, 0) {
		return loss, errors.Errorf("batch loss is infinity (%f), training interrupted", loss)
	}
	return loss, nil
}
