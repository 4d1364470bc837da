package densego

import (
	"github.com/gomlx/exceptions"
	"github.com/gonnlab/gonn/engines"
)

// Gradients implements engines.Engine: reverse-mode differentiation of the
// scalar loss node with respect to each of the given parameters.
//
// The adjoint of each node is accumulated walking the graph in reverse
// topological order, so shared sub-expressions contribute once per use.
// Parameters that take no part in the loss graph get a zero gradient.
func (e *Engine) Gradients(loss engines.Node, params []engines.Parameter) []engines.Node {
	root := graphNode(loss)
	if root.value.rows != 1 || root.value.cols != 1 {
		exceptions.Panicf("densego: Gradients requires a scalar (1 x 1) loss node, got (%d x %d)",
			root.value.rows, root.value.cols)
	}

	order := topoSort(root)
	adjoints := make(map[*node]*matrix, len(order))
	seed := newMatrix(1, 1)
	seed.data[0] = 1
	adjoints[root] = seed

	// order is topological from leaves to root; walk it backwards.
	for i := len(order) - 1; i >= 0; i-- {
		n := order[i]
		adjoint, reached := adjoints[n]
		if !reached || n.vjp == nil {
			continue
		}
		contributions := n.vjp(adjoint)
		for j, input := range n.inputs {
			accumulate(adjoints, input, contributions[j])
		}
	}

	grads := make([]engines.Node, len(params))
	for i, param := range params {
		p, ok := param.(*Parameter)
		if !ok {
			exceptions.Panicf("densego: Gradients over parameter %v (%T) that was not created by the densego engine", param, param)
		}
		adjoint, reached := adjoints[&p.node]
		if !reached {
			adjoint = newMatrix(p.value.rows, p.value.cols)
		}
		grads[i] = &node{value: adjoint}
	}
	return grads
}

func accumulate(adjoints map[*node]*matrix, n *node, contribution *matrix) {
	if current, found := adjoints[n]; found {
		for i, v := range contribution.data {
			current.data[i] += v
		}
		return
	}
	adjoints[n] = contribution
}

// topoSort returns the nodes reachable from root ordered from leaves to
// root (each node appears after all its inputs).
func topoSort(root *node) []*node {
	var order []*node
	visited := make(map[*node]bool)
	var visit func(n *node)
	visit = func(n *node) {
		if visited[n] {
			return
		}
		visited[n] = true
		for _, input := range n.inputs {
			visit(input)
		}
		order = append(order, n)
	}
	visit(root)
	return order
}
