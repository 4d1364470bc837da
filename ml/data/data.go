// Package data provides in-memory datasets implementing the
// train.Dataset iteration contract, and generators for the synthetic
// datasets used by tests and the demo.
package data

import (
	"io"

	"github.com/gonnlab/gonn/engines"
	"github.com/gonnlab/gonn/ml/train"
	"github.com/pkg/errors"
)

// InMemory is a dataset fully materialized in memory as plain float64
// rows. It implements train.Dataset, batching rows into constant nodes of
// the engine it was created with.
type InMemory struct {
	engine engines.Engine
	name   string

	inputs, labels [][]float64
}

// Compile-time check:
var _ train.Dataset = (*InMemory)(nil)

// NewInMemory creates an in-memory dataset from parallel slices of input
// rows and label rows. Rows are served in the given order, one label row
// per input row.
func NewInMemory(engine engines.Engine, name string, inputs, labels [][]float64) (*InMemory, error) {
	if len(inputs) == 0 {
		return nil, errors.Errorf("dataset %q has no examples", name)
	}
	if len(inputs) != len(labels) {
		return nil, errors.Errorf("dataset %q has %d input rows but %d label rows", name, len(inputs), len(labels))
	}
	for i := 1; i < len(inputs); i++ {
		if len(inputs[i]) != len(inputs[0]) || len(labels[i]) != len(labels[0]) {
			return nil, errors.Errorf("dataset %q has ragged rows: example %d is (%d, %d) wide, example 0 is (%d, %d) wide",
				name, i, len(inputs[i]), len(labels[i]), len(inputs[0]), len(labels[0]))
		}
	}
	return &InMemory{
		engine: engine,
		name:   name,
		inputs: inputs,
		labels: labels,
	}, nil
}

// Name implements train.Dataset.
func (ds *InMemory) Name() string { return ds.name }

// Len returns the number of examples in the dataset.
func (ds *InMemory) Len() int { return len(ds.inputs) }

// IterateOnce implements train.Dataset: it starts a fresh sweep serving
// every example exactly once, in batches of batchSize. The final batch is
// short when batchSize does not divide Len().
func (ds *InMemory) IterateOnce(batchSize int) train.Iterator {
	return &inMemoryIterator{ds: ds, batchSize: batchSize}
}

type inMemoryIterator struct {
	ds        *InMemory
	batchSize int
	offset    int
}

func (it *inMemoryIterator) Next() (inputs, labels engines.Node, err error) {
	if it.batchSize <= 0 {
		return nil, nil, errors.Errorf("dataset %q iterated with invalid batch size %d", it.ds.name, it.batchSize)
	}
	if it.offset >= it.ds.Len() {
		return nil, nil, io.EOF
	}
	end := it.offset + it.batchSize
	if end > it.ds.Len() {
		end = it.ds.Len()
	}
	inputs = it.ds.engine.Constant(it.ds.inputs[it.offset:end])
	labels = it.ds.engine.Constant(it.ds.labels[it.offset:end])
	it.offset = end
	return inputs, labels, nil
}
