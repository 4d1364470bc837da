// Package models implements the trainable models of gonn: a binary linear
// classifier (Perceptron), a scalar-function regressor (Regressor) and a
// multi-class digit classifier (DigitClassifier).
//
// All three are thin layers over an engines.Engine: they own their
// parameters, build pure forward graphs, and drive gradient descent (or the
// perceptron's mistake-driven updates) through the training machinery in
// ml/train. Each model carries its own hyperparameters as explicit
// configuration fields, and each stops training under its own convergence
// policy: a mistake-free sweep for the Perceptron, a loss threshold for the
// Regressor, a fixed epoch count for the DigitClassifier.
package models

import "github.com/gonnlab/gonn/engines"

// twoLayer builds the forward graph shared by Regressor and
// DigitClassifier: ReLU(x·w1 + b1)·w2 + b2.
func twoLayer(engine engines.Engine, x engines.Node, w1, b1, w2, b2 engines.Parameter) engines.Node {
	hidden := engine.ReLU(engine.AddBias(engine.Linear(x, w1), b1))
	return engine.AddBias(engine.Linear(hidden, w2), b2)
}
