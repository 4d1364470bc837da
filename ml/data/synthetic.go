package data

import (
	"math"
	"math/rand/v2"

	"github.com/gonnlab/gonn/engines"
	"github.com/janpfeifer/must"
)

// Separable2D generates n 2D points labeled +1 or -1 by the sign of a fixed
// linear boundary through the origin, with a margin around the boundary
// kept clear of points.
//
// The margin guarantees the data is linearly separable by a bias-free
// linear classifier, so perceptron training on it is guaranteed to
// terminate.
func Separable2D(engine engines.Engine, n int, seed uint64) *InMemory {
	rng := rand.New(rand.NewPCG(seed, 0))
	boundary := [2]float64{3, -2}
	const margin = 0.2
	inputs := make([][]float64, 0, n)
	labels := make([][]float64, 0, n)
	for len(inputs) < n {
		x := []float64{rng.Float64()*2 - 1, rng.Float64()*2 - 1}
		score := boundary[0]*x[0] + boundary[1]*x[1]
		if math.Abs(score) < margin {
			continue
		}
		label := []float64{1}
		if score < 0 {
			label[0] = -1
		}
		inputs = append(inputs, x)
		labels = append(labels, label)
	}
	return must.M1(NewInMemory(engine, "separable2d", inputs, labels))
}

// Sine generates n samples of y = sin(x) with x drawn uniformly from
// [-2π, 2π], the canonical regression target for the Regressor model.
func Sine(engine engines.Engine, n int, seed uint64) *InMemory {
	rng := rand.New(rand.NewPCG(seed, 0))
	inputs := make([][]float64, n)
	labels := make([][]float64, n)
	for i := range inputs {
		x := (rng.Float64()*2 - 1) * 2 * math.Pi
		inputs[i] = []float64{x}
		labels[i] = []float64{math.Sin(x)}
	}
	return must.M1(NewInMemory(engine, "sine", inputs, labels))
}

// SyntheticDigits generates perClass noisy examples of each of the 10 digit
// classes, with one-hot labels.
//
// Each class gets a random prototype image in [0, 1]^dims and examples are
// the prototype plus pixel noise, clamped back to [0, 1]. The classes are
// well apart, so a classifier that learns anything at all reaches high
// accuracy.
func SyntheticDigits(engine engines.Engine, perClass, dims int, seed uint64) *InMemory {
	const classes = 10
	rng := rand.New(rand.NewPCG(seed, 1))
	prototypes := make([][]float64, classes)
	for c := range prototypes {
		prototypes[c] = make([]float64, dims)
		for j := range prototypes[c] {
			prototypes[c][j] = rng.Float64()
		}
	}
	n := classes * perClass
	inputs := make([][]float64, 0, n)
	labels := make([][]float64, 0, n)
	for i := 0; i < perClass; i++ {
		for c := 0; c < classes; c++ {
			example := make([]float64, dims)
			for j, v := range prototypes[c] {
				example[j] = clamp01(v + (rng.Float64()*2-1)*0.1)
			}
			inputs = append(inputs, example)
			labels = append(labels, OneHot(c, classes))
		}
	}
	return must.M1(NewInMemory(engine, "synthetic-digits", inputs, labels))
}

// OneHot returns a row of the given width with a single 1 at class.
func OneHot(class, classes int) []float64 {
	row := make([]float64, classes)
	row[class] = 1
	return row
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
