// Package engines defines the interface a computation-graph/autograd engine
// needs to implement to be used by the gonn model and training layers.
//
// The models in ml/models only build forward graphs and drive gradient
// descent through this interface; they never look inside an engine. This
// keeps the trainer layer independent of the tensor backend, and testable
// against a lightweight engine (see engines/densego).
//
// To simplify error handling, engines are expected to throw (panic) with a
// stack trace on invalid use, such as incompatible shapes.
// See package github.com/gomlx/exceptions.
package engines

import (
	"os"
	"strings"

	"github.com/gomlx/exceptions"
)

// Node is an immutable value in a computation graph: the output of a
// graph-building operation, or a constant, or a Parameter. Nodes are only
// meaningful to the Engine that created them.
type Node interface {
	// Rows and Cols return the node's 2D shape.
	Rows() int
	Cols() int
}

// Parameter is a mutable tensor holding learnable weights or biases.
//
// Its shape is fixed at creation and its storage is never reassigned: the
// only way to change a Parameter is Update. A Parameter can be used
// directly as a Node in graph-building operations, in which case it stands
// for its current value.
type Parameter interface {
	Node

	// Update adds scale*direction to the parameter value, in place.
	// direction must have the same shape as the parameter.
	//
	// For gradient descent, pass the gradient as direction and a negative
	// learning rate as scale.
	Update(direction Node, scale float64)
}

// Engine is the API that needs to be implemented by a gonn engine.
//
// All graph-building operations are pure: they return new Nodes and never
// modify their inputs. Shape incompatibilities panic with a stack trace.
type Engine interface {
	// Name returns the short name of the engine. E.g.: "densego".
	Name() string

	// Description is a longer description of the engine that can be used to pretty-print.
	Description() string

	// Parameter creates a new mutable parameter of the given shape,
	// initialized by the engine (typically randomly).
	Parameter(rows, cols int) Parameter

	// Constant creates a constant node from the given values. All rows must
	// have the same length.
	Constant(values [][]float64) Node

	// DotProduct returns the product a·bᵀ. b must be a single row vector
	// (1×d) and a must have d columns; the result is shaped (rows(a)×1).
	DotProduct(a, b Node) Node

	// Linear returns the matrix product x·w, with x shaped (batch×d) and
	// w shaped (d×h).
	Linear(x, w Node) Node

	// AddBias adds the row vector b (1×h) to every row of x (batch×h).
	AddBias(x, b Node) Node

	// ReLU returns max(0, x) elementwise.
	ReLU(x Node) Node

	// SquareLoss returns a scalar (1×1) node with the mean of
	// (pred-target)²/2 over all entries. pred and target must have the
	// same shape.
	SquareLoss(pred, target Node) Node

	// SoftmaxLoss returns a scalar (1×1) node with the mean softmax
	// cross-entropy between logits and a one-hot target batch, both shaped
	// (batch×classes).
	SoftmaxLoss(logits, target Node) Node

	// AsScalar extracts the value of a single-element (1×1) node.
	AsScalar(n Node) float64

	// Values extracts the contents of a node as a dense matrix, one slice
	// per row.
	Values(n Node) [][]float64

	// Gradients computes the gradient of the scalar loss node with respect
	// to each of the given parameters. The result is aligned positionally
	// with params. The returned nodes are constants: they can be passed to
	// Parameter.Update but take no part in further differentiation.
	Gradients(loss Node, params []Parameter) []Node
}

// Constructor takes a config string (optionally empty) and returns an Engine.
type Constructor func(config string) Engine

var (
	registeredConstructors = make(map[string]Constructor)
	firstRegistered        string
)

// Register engine with the given name, and a default constructor that takes
// as input a configuration string that is passed along to the engine
// constructor.
//
// To be safe, call Register during initialization of a package.
func Register(name string, constructor Constructor) {
	if len(registeredConstructors) == 0 {
		firstRegistered = name
	}
	registeredConstructors[name] = constructor
}

// DefaultConfig is the name of the default engine configuration to use if
// specified.
//
// See NewWithConfig for the format of the configuration string.
var DefaultConfig string

// GONN_ENGINE is the environment variable with the default engine
// configuration to use.
//
// The format of config is "<engine_name>:<engine_configuration>".
// The "<engine_name>" is the name of a registered engine (e.g.: "densego")
// and "<engine_configuration>" is engine specific.
const GONN_ENGINE = "GONN_ENGINE"

// New returns a new default Engine.
//
// The default is:
//
// 1. The environment GONN_ENGINE is used as a configuration if defined.
// 2. Next the variable DefaultConfig is used as a configuration if defined.
// 3. The first registered engine is used with an empty configuration.
//
// It panics if no engine was registered.
func New() Engine {
	config, found := os.LookupEnv(GONN_ENGINE)
	if found {
		return NewWithConfig(config)
	}
	if DefaultConfig != "" {
		return NewWithConfig(DefaultConfig)
	}
	return NewWithConfig("")
}

// NewWithConfig creates an Engine from a configuration string formatted as
// "<engine_name>:<engine_configuration>".
//
// The "<engine_name>" is the name of a registered engine (e.g.: "densego")
// and "<engine_configuration>" is engine specific (e.g.: for the densego
// engine, "seed=42").
func NewWithConfig(config string) Engine {
	if len(registeredConstructors) == 0 {
		exceptions.Panicf(`no registered engines for gonn -- maybe import the default one with import _ "github.com/gonnlab/gonn/engines/densego"?`)
	}
	engineName := firstRegistered
	engineConfig := config
	if idx := strings.Index(config, ":"); idx != -1 {
		engineName = config[:idx]
		engineConfig = config[idx+1:]
	}
	constructor, found := registeredConstructors[engineName]
	if !found {
		exceptions.Panicf("can't find engine %q for configuration %q given", engineName, config)
	}
	return constructor(engineConfig)
}
