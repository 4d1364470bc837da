package train

import (
	"io"
	"math"
	"sort"
	"time"

	"github.com/gonnlab/gonn/engines"
	"github.com/pkg/errors"
	xslices "golang.org/x/exp/slices"
	"k8s.io/klog/v2"
)

// Priority for hooks, the lowest values are run first. Defaults to 0, but
// negative values are ok.
type Priority int

// OnStartFn is the type of OnStart hooks.
type OnStartFn func(loop *Loop, ds Dataset) error

// OnStepFn is the type of OnStep hooks. loss is the post-update scalar loss
// of the step for gradient training, and NaN for online training.
type OnStepFn func(loop *Loop, loss float64) error

// OnSweepFn is the type of OnSweep hooks, called after each completed sweep.
type OnSweepFn func(loop *Loop, result SweepResult) error

// OnEndFn is the type of OnEnd hooks.
type OnEndFn func(loop *Loop, result SweepResult) error

// Loop runs a training loop: it sweeps a Dataset, invokes a step function
// for every batch and consults a Policy after every sweep, calling the
// appropriate hooks along the way.
//
// In itself it doesn't do much, but one can attach functionality to it,
// like progress bars or extra logging. The public attributes are meant for
// reading only.
type Loop struct {
	// Engine used by the models trained with this loop.
	Engine engines.Engine

	// Sweep currently being executed, starting from 0.
	Sweep int

	// Step is the global count of steps executed in the current run, across
	// sweeps.
	Step int

	// Mistakes made in the current sweep, in online mode.
	Mistakes int

	// TrainStepDurations collected during training.
	TrainStepDurations []time.Duration

	// Registered hooks.
	onStart *priorityHooks[*hookWithName[OnStartFn]]
	onStep  *priorityHooks[*hookWithName[OnStepFn]]
	onSweep *priorityHooks[*hookWithName[OnSweepFn]]
	onEnd   *priorityHooks[*hookWithName[OnEndFn]]
}

// NewLoop creates a training loop for models on the given engine.
func NewLoop(engine engines.Engine) *Loop {
	return &Loop{
		Engine:  engine,
		onStart: newPriorityHooks[*hookWithName[OnStartFn]](),
		onStep:  newPriorityHooks[*hookWithName[OnStepFn]](),
		onSweep: newPriorityHooks[*hookWithName[OnSweepFn]](),
		onEnd:   newPriorityHooks[*hookWithName[OnEndFn]](),
	}
}

// RunGradient trains model by minibatch gradient descent: every batch of a
// sweep goes through a full Step (loss, gradients, parameter updates), and
// after each sweep policy decides whether to keep going.
//
// It returns the result of the final sweep.
func (loop *Loop) RunGradient(model GradientModel, ds Dataset, batchSize int, learningRate float64, policy Policy) (SweepResult, error) {
	return loop.run(ds, batchSize, policy, func(x, y engines.Node) (float64, bool, error) {
		loss, err := Step(loop.Engine, model, x, y, learningRate)
		return loss, false, err
	})
}

// RunOnline trains model example by example with batch size 1, counting
// mistakes; after each sweep policy decides whether to keep going.
//
// With the MistakeFreeSweep policy and data that is not linearly separable,
// RunOnline never returns. There is deliberately no iteration cap: bounding
// the loop would silently change the perceptron's contract.
func (loop *Loop) RunOnline(model OnlineModel, ds Dataset, policy Policy) (SweepResult, error) {
	return loop.run(ds, 1, policy, func(x, y engines.Node) (float64, bool, error) {
		return math.NaN(), model.FitOne(x, y), nil
	})
}

// run is the sweep driver shared by RunGradient and RunOnline.
func (loop *Loop) run(ds Dataset, batchSize int, policy Policy, stepFn func(x, y engines.Node) (loss float64, mistake bool, err error)) (SweepResult, error) {
	loop.Sweep = 0
	loop.Step = 0
	loop.Mistakes = 0
	loop.TrainStepDurations = nil
	if err := loop.start(ds); err != nil {
		return SweepResult{}, err
	}

	var result SweepResult
	for {
		result = SweepResult{Sweep: loop.Sweep, LastLoss: math.NaN()}
		it := ds.IterateOnce(batchSize)
		for {
			x, y, err := it.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				return result, errors.WithMessagef(err, "train.Loop: failed reading from dataset %q (sweep=%d, step=%d)",
					ds.Name(), loop.Sweep, loop.Step)
			}
			loss, mistake, err := loop.step(stepFn, x, y)
			if err != nil {
				return result, errors.WithMessagef(err, "train.Loop: failed step %d of sweep %d", loop.Step, loop.Sweep)
			}
			result.Steps++
			result.LastLoss = loss
			if mistake {
				result.Mistakes++
				loop.Mistakes = result.Mistakes
			}
		}
		if result.Steps == 0 {
			return result, errors.Errorf("train.Loop: dataset %q produced an empty sweep, nothing to train on", ds.Name())
		}
		klog.V(1).Infof("train.Loop: dataset=%q sweep=%d steps=%d mistakes=%d loss=%g",
			ds.Name(), result.Sweep, result.Steps, result.Mistakes, result.LastLoss)
		if err := loop.sweepDone(result); err != nil {
			return result, err
		}
		if !policy.Continue(result) {
			break
		}
		loop.Sweep++
		loop.Mistakes = 0
	}
	if err := loop.end(result); err != nil {
		return result, err
	}
	return result, nil
}

// step of loop: runs stepFn for one batch, times it and calls the OnStep
// hooks.
func (loop *Loop) step(stepFn func(x, y engines.Node) (float64, bool, error), x, y engines.Node) (loss float64, mistake bool, err error) {
	startTime := time.Now()
	loss, mistake, err = stepFn(x, y)
	loop.TrainStepDurations = append(loop.TrainStepDurations, time.Since(startTime))
	if err != nil {
		return
	}
	loop.Step++
	loop.onStep.Enumerate(func(hook *hookWithName[OnStepFn]) {
		if err != nil {
			// After the first error stop.
			return
		}
		err = hook.fn(loop, loss)
		if err != nil {
			err = errors.WithMessagef(err, "OnStep(hook %q)", hook.name)
		}
	})
	return
}

// start of loop. It calls the appropriate hooks.
func (loop *Loop) start(ds Dataset) (err error) {
	loop.onStart.Enumerate(func(hook *hookWithName[OnStartFn]) {
		if err != nil {
			return
		}
		err = hook.fn(loop, ds)
		if err != nil {
			err = errors.WithMessagef(err, "OnStart(hook %q)", hook.name)
		}
	})
	return
}

// sweepDone is called after each completed sweep, before the policy check.
func (loop *Loop) sweepDone(result SweepResult) (err error) {
	loop.onSweep.Enumerate(func(hook *hookWithName[OnSweepFn]) {
		if err != nil {
			return
		}
		err = hook.fn(loop, result)
		if err != nil {
			err = errors.WithMessagef(err, "OnSweep(hook %q)", hook.name)
		}
	})
	return
}

// end of loop. It calls the appropriate hooks.
func (loop *Loop) end(result SweepResult) (err error) {
	loop.onEnd.Enumerate(func(hook *hookWithName[OnEndFn]) {
		if err != nil {
			return
		}
		err = hook.fn(loop, result)
		if err != nil {
			err = errors.WithMessagef(err, "OnEnd(hook %q)", hook.name)
		}
	})
	return
}

// MedianTrainStepDuration returns the median duration of each training
// step. It returns 1 millisecond if no training step was recorded (to avoid
// potential division by 0).
//
// It sorts and mutates a copy of loop.TrainStepDurations.
func (loop *Loop) MedianTrainStepDuration() time.Duration {
	if len(loop.TrainStepDurations) == 0 {
		return time.Millisecond
	}
	times := append([]time.Duration(nil), loop.TrainStepDurations...)
	xslices.Sort(times)
	return times[len(times)/2]
}

// OnStart adds a hook with given priority and name (for error reporting) to
// the start of a loop run.
func (loop *Loop) OnStart(name string, priority Priority, fn OnStartFn) {
	loop.onStart.Add(priority, &hookWithName[OnStartFn]{name: name, fn: fn})
}

// OnStep adds a hook with given priority and name (for error reporting) to
// each step of a loop run.
func (loop *Loop) OnStep(name string, priority Priority, fn OnStepFn) {
	loop.onStep.Add(priority, &hookWithName[OnStepFn]{name: name, fn: fn})
}

// OnSweep adds a hook with given priority and name (for error reporting) to
// the end of each sweep, before the stopping policy is consulted.
func (loop *Loop) OnSweep(name string, priority Priority, fn OnSweepFn) {
	loop.onSweep.Add(priority, &hookWithName[OnSweepFn]{name: name, fn: fn})
}

// OnEnd adds a hook with given priority and name (for error reporting) to
// the end of a loop run, after the stopping policy fired.
func (loop *Loop) OnEnd(name string, priority Priority, fn OnEndFn) {
	loop.onEnd.Add(priority, &hookWithName[OnEndFn]{name: name, fn: fn})
}

// hookWithName stores a hook name and function.
type hookWithName[F any] struct {
	name string
	fn   F
}

// priorityHooks organizes hooks for type F per priority.
type priorityHooks[H any] struct {
	hooks map[Priority][]H
}

func newPriorityHooks[H any]() *priorityHooks[H] {
	return &priorityHooks[H]{
		hooks: make(map[Priority][]H),
	}
}

// Add hook at the given priority.
func (h *priorityHooks[H]) Add(priority Priority, hook H) {
	h.hooks[priority] = append(h.hooks[priority], hook)
}

// Enumerate will call fn for all registered hooks in priority order.
func (h *priorityHooks[H]) Enumerate(fn func(hook H)) {
	keys := make([]Priority, 0, len(h.hooks))
	for key := range h.hooks {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i] < keys[j]
	})
	for _, key := range keys {
		for _, hook := range h.hooks[key] {
			fn(hook)
		}
	}
}
