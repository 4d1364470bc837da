package densego

import (
	"math"

	"github.com/gomlx/exceptions"
	"github.com/gonnlab/gonn/engines"
)

// DotProduct implements engines.Engine: a·bᵀ with b a (1×d) row vector and
// a shaped (n×d). The result is (n×1); with n==1 it is a plain scored
// scalar.
func (e *Engine) DotProduct(a, b engines.Node) engines.Node {
	na, nb := graphNode(a), graphNode(b)
	if nb.value.rows != 1 {
		exceptions.Panicf("densego: DotProduct requires b to be a (1 x d) row vector, got (%d x %d)",
			nb.value.rows, nb.value.cols)
	}
	if na.value.cols != nb.value.cols {
		exceptions.Panicf("densego: DotProduct with incompatible shapes (%d x %d) and (%d x %d)",
			na.value.rows, na.value.cols, nb.value.rows, nb.value.cols)
	}
	out := matMulTransB(na.value, nb.value)
	return &node{
		value:  out,
		inputs: []*node{na, nb},
		vjp: func(adjoint *matrix) []*matrix {
			// d(a·bᵀ)/da = adjoint·b, d(a·bᵀ)/db = adjointᵀ·a.
			return []*matrix{
				matMul(adjoint, nb.value),
				matMulTransA(adjoint, na.value),
			}
		},
	}
}

// Linear implements engines.Engine: the matrix product x·w.
func (e *Engine) Linear(x, w engines.Node) engines.Node {
	nx, nw := graphNode(x), graphNode(w)
	if nx.value.cols != nw.value.rows {
		exceptions.Panicf("densego: Linear with incompatible shapes (%d x %d) and (%d x %d)",
			nx.value.rows, nx.value.cols, nw.value.rows, nw.value.cols)
	}
	return &node{
		value:  matMul(nx.value, nw.value),
		inputs: []*node{nx, nw},
		vjp: func(adjoint *matrix) []*matrix {
			// d(x·w)/dx = adjoint·wᵀ, d(x·w)/dw = xᵀ·adjoint.
			return []*matrix{
				matMulTransB(adjoint, nw.value),
				matMulTransA(nx.value, adjoint),
			}
		},
	}
}

// AddBias implements engines.Engine: broadcast-add the (1×h) row vector b
// to every row of x.
func (e *Engine) AddBias(x, b engines.Node) engines.Node {
	nx, nb := graphNode(x), graphNode(b)
	if nb.value.rows != 1 || nb.value.cols != nx.value.cols {
		exceptions.Panicf("densego: AddBias requires a (1 x %d) bias for a (%d x %d) input, got (%d x %d)",
			nx.value.cols, nx.value.rows, nx.value.cols, nb.value.rows, nb.value.cols)
	}
	out := nx.value.clone()
	for i := 0; i < out.rows; i++ {
		for j := 0; j < out.cols; j++ {
			out.data[i*out.cols+j] += nb.value.data[j]
		}
	}
	return &node{
		value:  out,
		inputs: []*node{nx, nb},
		vjp: func(adjoint *matrix) []*matrix {
			// The bias gradient sums the adjoint over the batch dimension.
			db := newMatrix(1, adjoint.cols)
			for i := 0; i < adjoint.rows; i++ {
				for j := 0; j < adjoint.cols; j++ {
					db.data[j] += adjoint.at(i, j)
				}
			}
			return []*matrix{adjoint.clone(), db}
		},
	}
}

// ReLU implements engines.Engine: max(0, x) elementwise.
func (e *Engine) ReLU(x engines.Node) engines.Node {
	nx := graphNode(x)
	out := newMatrix(nx.value.rows, nx.value.cols)
	for i, v := range nx.value.data {
		if v > 0 {
			out.data[i] = v
		}
	}
	return &node{
		value:  out,
		inputs: []*node{nx},
		vjp: func(adjoint *matrix) []*matrix {
			dx := newMatrix(adjoint.rows, adjoint.cols)
			for i, v := range nx.value.data {
				if v > 0 {
					dx.data[i] = adjoint.data[i]
				}
			}
			return []*matrix{dx}
		},
	}
}

// SquareLoss implements engines.Engine: the scalar mean of (pred-target)²/2
// over all entries.
func (e *Engine) SquareLoss(pred, target engines.Node) engines.Node {
	np, nt := graphNode(pred), graphNode(target)
	if !np.value.sameShape(nt.value) {
		exceptions.Panicf("densego: SquareLoss with mismatched shapes (%d x %d) and (%d x %d)",
			np.value.rows, np.value.cols, nt.value.rows, nt.value.cols)
	}
	count := float64(len(np.value.data))
	var sum float64
	for i, v := range np.value.data {
		diff := v - nt.value.data[i]
		sum += diff * diff / 2
	}
	out := newMatrix(1, 1)
	out.data[0] = sum / count
	return &node{
		value:  out,
		inputs: []*node{np, nt},
		vjp: func(adjoint *matrix) []*matrix {
			g := adjoint.data[0]
			dp := newMatrix(np.value.rows, np.value.cols)
			dt := newMatrix(nt.value.rows, nt.value.cols)
			for i, v := range np.value.data {
				d := g * (v - nt.value.data[i]) / count
				dp.data[i] = d
				dt.data[i] = -d
			}
			return []*matrix{dp, dt}
		},
	}
}

// SoftmaxLoss implements engines.Engine: the mean softmax cross-entropy
// between logits and a one-hot target batch, both (batch×classes).
func (e *Engine) SoftmaxLoss(logits, target engines.Node) engines.Node {
	nl, nt := graphNode(logits), graphNode(target)
	if !nl.value.sameShape(nt.value) {
		exceptions.Panicf("densego: SoftmaxLoss with mismatched shapes (%d x %d) and (%d x %d)",
			nl.value.rows, nl.value.cols, nt.value.rows, nt.value.cols)
	}
	batch := nl.value.rows
	// logProbs[i][j] = logits[i][j] - logsumexp(logits[i]), computed with the
	// usual max subtraction for stability.
	logProbs := newMatrix(nl.value.rows, nl.value.cols)
	for i := 0; i < nl.value.rows; i++ {
		rowMax := math.Inf(-1)
		for j := 0; j < nl.value.cols; j++ {
			rowMax = math.Max(rowMax, nl.value.at(i, j))
		}
		var sumExp float64
		for j := 0; j < nl.value.cols; j++ {
			sumExp += math.Exp(nl.value.at(i, j) - rowMax)
		}
		logSumExp := rowMax + math.Log(sumExp)
		for j := 0; j < nl.value.cols; j++ {
			logProbs.set(i, j, nl.value.at(i, j)-logSumExp)
		}
	}
	var sum float64
	for i, v := range logProbs.data {
		sum -= nt.value.data[i] * v
	}
	out := newMatrix(1, 1)
	out.data[0] = sum / float64(batch)
	return &node{
		value:  out,
		inputs: []*node{nl, nt},
		vjp: func(adjoint *matrix) []*matrix {
			g := adjoint.data[0]
			dl := newMatrix(nl.value.rows, nl.value.cols)
			dt := newMatrix(nt.value.rows, nt.value.cols)
			for i, v := range logProbs.data {
				softmax := math.Exp(v)
				dl.data[i] = g * (softmax - nt.value.data[i]) / float64(batch)
				dt.data[i] = -g * v / float64(batch)
			}
			return []*matrix{dl, dt}
		},
	}
}
