// Package densego implements a small pure-Go engine for the
// github.com/gonnlab/gonn/engines interface.
//
// It stores everything as dense row-major float64 matrices and computes
// gradients with tape-free reverse-mode automatic differentiation over the
// computation graph built by the forward operations. It has no external
// dependencies and runs everywhere, which makes it the default engine for
// tests and small models.
//
// To use it, simply include:
//
//	import _ "github.com/gonnlab/gonn/engines/densego"
//
// It registers itself with the name "densego". The engine configuration
// string accepts "seed=<n>" to make parameter initialization deterministic.
package densego

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gonnlab/gonn/engines"
)

// Name of the engine in the engines registry.
const Name = "densego"

// Engine implements engines.Engine with dense float64 matrices.
//
// It is not safe for concurrent use: the models that drive it are
// single-threaded and synchronous.
type Engine struct {
	rng *rand.Rand
}

// Compile-time check:
var _ engines.Engine = (*Engine)(nil)

func init() {
	engines.Register(Name, func(config string) engines.Engine {
		return New(config)
	})
}

// New creates a densego Engine.
//
// config may be empty or "seed=<n>" for deterministic parameter
// initialization. Anything else panics.
func New(config string) *Engine {
	seed1, seed2 := rand.Uint64(), rand.Uint64()
	if config != "" {
		value, found := strings.CutPrefix(config, "seed=")
		if !found {
			exceptions.Panicf("densego: invalid configuration %q, only \"seed=<n>\" is supported", config)
		}
		seed, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			exceptions.Panicf("densego: invalid seed in configuration %q: %v", config, err)
		}
		seed1, seed2 = seed, 0
	}
	return &Engine{
		rng: rand.New(rand.NewPCG(seed1, seed2)),
	}
}

// Name implements engines.Engine.
func (e *Engine) Name() string { return Name }

// Description implements engines.Engine.
func (e *Engine) Description() string {
	return "densego: dense float64 matrices with reverse-mode autodiff, in pure Go"
}

// node is a value in the computation graph. Nodes are immutable once built,
// except for Parameter leaves, whose value matrix is mutated in place by
// Parameter.Update in between graph evaluations.
type node struct {
	value  *matrix
	inputs []*node

	// vjp propagates the adjoint of this node to adjoints of its inputs,
	// aligned with the inputs slice. Nil for leaves (constants and
	// parameters).
	vjp func(adjoint *matrix) []*matrix
}

// Rows implements engines.Node.
func (n *node) Rows() int { return n.value.rows }

// Cols implements engines.Node.
func (n *node) Cols() int { return n.value.cols }

func (n *node) String() string {
	return fmt.Sprintf("densego.node(%d x %d)", n.value.rows, n.value.cols)
}

// Parameter is a mutable (rows×cols) weight matrix, usable directly as a
// graph node. It implements engines.Parameter.
type Parameter struct {
	node
}

// Compile-time check:
var _ engines.Parameter = (*Parameter)(nil)

// Update implements engines.Parameter: value += scale·direction, in place.
func (p *Parameter) Update(direction engines.Node, scale float64) {
	d := valueOf(direction)
	if !p.value.sameShape(d) {
		exceptions.Panicf("densego: Parameter.Update with direction shaped (%d x %d), parameter is (%d x %d)",
			d.rows, d.cols, p.value.rows, p.value.cols)
	}
	for i, v := range d.data {
		p.value.data[i] += scale * v
	}
}

// Parameter implements engines.Engine. The initial values are drawn
// uniformly from ±sqrt(6/(rows+cols)) (Glorot).
func (e *Engine) Parameter(rows, cols int) engines.Parameter {
	m := newMatrix(rows, cols)
	limit := math.Sqrt(6.0 / float64(rows+cols))
	for i := range m.data {
		m.data[i] = (e.rng.Float64()*2 - 1) * limit
	}
	return &Parameter{node: node{value: m}}
}

// Constant implements engines.Engine.
func (e *Engine) Constant(values [][]float64) engines.Node {
	if len(values) == 0 || len(values[0]) == 0 {
		exceptions.Panicf("densego: Constant requires a non-empty matrix of values")
	}
	m := newMatrix(len(values), len(values[0]))
	for i, row := range values {
		if len(row) != m.cols {
			exceptions.Panicf("densego: Constant with ragged rows: row 0 has %d values, row %d has %d", m.cols, i, len(row))
		}
		copy(m.data[i*m.cols:(i+1)*m.cols], row)
	}
	return &node{value: m}
}

// AsScalar implements engines.Engine. It panics if n is not a 1x1 node.
func (e *Engine) AsScalar(n engines.Node) float64 {
	m := valueOf(n)
	if m.rows != 1 || m.cols != 1 {
		exceptions.Panicf("densego: AsScalar called on a (%d x %d) node, it requires a (1 x 1) node", m.rows, m.cols)
	}
	return m.data[0]
}

// Values implements engines.Engine.
func (e *Engine) Values(n engines.Node) [][]float64 {
	m := valueOf(n)
	out := make([][]float64, m.rows)
	for i := range out {
		out[i] = append([]float64(nil), m.data[i*m.cols:(i+1)*m.cols]...)
	}
	return out
}

// graphNode converts an engines.Node back to the densego node that backs it.
func graphNode(n engines.Node) *node {
	switch t := n.(type) {
	case *node:
		return t
	case *Parameter:
		return &t.node
	}
	exceptions.Panicf("densego: node %v (%T) was not created by the densego engine", n, n)
	return nil
}

func valueOf(n engines.Node) *matrix {
	return graphNode(n).value
}
