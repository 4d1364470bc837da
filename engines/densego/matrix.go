package densego

import (
	"github.com/gomlx/exceptions"
)

// matrix is a dense row-major float64 matrix. It is the only storage type
// used by the densego engine.
type matrix struct {
	rows, cols int

	// data is stored row-major, with len(data) == rows*cols.
	data []float64
}

func newMatrix(rows, cols int) *matrix {
	if rows <= 0 || cols <= 0 {
		exceptions.Panicf("densego: invalid matrix shape (%d x %d), dimensions must be positive", rows, cols)
	}
	return &matrix{
		rows: rows,
		cols: cols,
		data: make([]float64, rows*cols),
	}
}

func (m *matrix) at(i, j int) float64 {
	return m.data[i*m.cols+j]
}

func (m *matrix) set(i, j int, v float64) {
	m.data[i*m.cols+j] = v
}

func (m *matrix) sameShape(o *matrix) bool {
	return m.rows == o.rows && m.cols == o.cols
}

func (m *matrix) clone() *matrix {
	c := newMatrix(m.rows, m.cols)
	copy(c.data, m.data)
	return c
}

// matMul returns a·b, with a shaped (n×d) and b shaped (d×h).
func matMul(a, b *matrix) *matrix {
	if a.cols != b.rows {
		exceptions.Panicf("densego: incompatible shapes for matrix multiplication: (%d x %d) · (%d x %d)",
			a.rows, a.cols, b.rows, b.cols)
	}
	out := newMatrix(a.rows, b.cols)
	for i := 0; i < a.rows; i++ {
		for k := 0; k < a.cols; k++ {
			av := a.at(i, k)
			if av == 0 {
				continue
			}
			for j := 0; j < b.cols; j++ {
				out.data[i*out.cols+j] += av * b.at(k, j)
			}
		}
	}
	return out
}

// matMulTransA returns aᵀ·b, with a shaped (n×d) and b shaped (n×h).
func matMulTransA(a, b *matrix) *matrix {
	if a.rows != b.rows {
		exceptions.Panicf("densego: incompatible shapes for transposed matrix multiplication: (%d x %d)ᵀ · (%d x %d)",
			a.rows, a.cols, b.rows, b.cols)
	}
	out := newMatrix(a.cols, b.cols)
	for k := 0; k < a.rows; k++ {
		for i := 0; i < a.cols; i++ {
			av := a.at(k, i)
			if av == 0 {
				continue
			}
			for j := 0; j < b.cols; j++ {
				out.data[i*out.cols+j] += av * b.at(k, j)
			}
		}
	}
	return out
}

// matMulTransB returns a·bᵀ, with a shaped (n×d) and b shaped (h×d).
func matMulTransB(a, b *matrix) *matrix {
	if a.cols != b.cols {
		exceptions.Panicf("densego: incompatible shapes for transposed matrix multiplication: (%d x %d) · (%d x %d)ᵀ",
			a.rows, a.cols, b.rows, b.cols)
	}
	out := newMatrix(a.rows, b.rows)
	for i := 0; i < a.rows; i++ {
		for j := 0; j < b.rows; j++ {
			var sum float64
			for k := 0; k < a.cols; k++ {
				sum += a.at(i, k) * b.at(j, k)
			}
			out.set(i, j, sum)
		}
	}
	return out
}
