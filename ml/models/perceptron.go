package models

import (
	"github.com/gonnlab/gonn/engines"
	"github.com/gonnlab/gonn/ml/train"
)

// Perceptron is a binary linear classifier: it scores a point with a dot
// product against its weight vector and classifies by the sign of the
// score (+1 or -1).
//
// It learns online with the classic perceptron rule: sweep the dataset one
// example at a time and, on every mistake, add label·input to the weights.
type Perceptron struct {
	engine engines.Engine

	// w is the (1 x dimensions) weight vector, the model's only parameter.
	w engines.Parameter
}

// Compile-time check:
var _ train.OnlineModel = (*Perceptron)(nil)

// NewPerceptron creates a perceptron for points of the given
// dimensionality. E.g.: dimensions=2 classifies 2D points.
func NewPerceptron(engine engines.Engine, dimensions int) *Perceptron {
	return &Perceptron{
		engine: engine,
		w:      engine.Parameter(1, dimensions),
	}
}

// Weights returns the parameter with the current weights of the perceptron.
func (p *Perceptron) Weights() engines.Parameter { return p.w }

// Run calculates the score assigned by the perceptron to a data point x,
// shaped (1 x dimensions). It returns a single-element node and has no side
// effects.
func (p *Perceptron) Run(x engines.Node) engines.Node {
	return p.engine.DotProduct(p.w, x)
}

// Predict calculates the predicted class, +1 or -1, for a single data point
// x. It is a deterministic function of the current weights.
func (p *Perceptron) Predict(x engines.Node) int {
	if p.engine.AsScalar(p.Run(x)) >= 0 {
		return 1
	}
	return -1
}

// FitOne implements train.OnlineModel: it predicts the class of the single
// example x and, if the prediction disagrees with the true label y (a
// single-element node holding +1 or -1), applies w += y·x. It reports
// whether the example was misclassified.
func (p *Perceptron) FitOne(x, y engines.Node) bool {
	label := p.engine.AsScalar(y)
	if float64(p.Predict(x)) == label {
		return false
	}
	p.w.Update(x, label)
	return true
}

// Train runs sweeps over the dataset with batch size 1 until a full sweep
// makes zero mistakes.
//
// Termination is guaranteed only when the data is linearly separable; on
// non-separable data Train never returns. See train.MistakeFreeSweep.
func (p *Perceptron) Train(ds train.Dataset) error {
	return p.TrainLoop(train.NewLoop(p.engine), ds)
}

// TrainLoop is like Train, but runs on a caller-provided loop, so hooks
// (e.g. a progress bar) can be attached beforehand.
func (p *Perceptron) TrainLoop(loop *train.Loop, ds train.Dataset) error {
	_, err := loop.RunOnline(p, ds, train.MistakeFreeSweep())
	return err
}
