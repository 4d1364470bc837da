package train

import "fmt"

// SweepResult summarizes one completed sweep (epoch) over a dataset, and is
// what stopping policies look at.
type SweepResult struct {
	// Sweep is the 0-based index of the sweep just completed.
	Sweep int

	// Steps taken during the sweep (batches processed).
	Steps int

	// Mistakes made during the sweep. Only meaningful for online training;
	// it is 0 for gradient training.
	Mistakes int

	// LastLoss is the scalar loss after the final step of the sweep,
	// re-evaluated with the updated parameters. It is NaN for online
	// training, which has no loss node.
	LastLoss float64
}

// Policy is a stopping criterion for a training loop. It is consulted after
// every completed sweep; training continues while it returns true.
//
// The three policies -- MistakeFreeSweep, LossBelowThreshold and
// FixedEpochCount -- are deliberately kept distinct: which one a model uses
// is part of that model's contract, not a tunable detail.
type Policy interface {
	fmt.Stringer

	// Continue reports whether another sweep should run.
	Continue(result SweepResult) bool
}

type mistakeFreeSweep struct{}

// MistakeFreeSweep returns the policy that stops only after a full sweep
// with zero mistakes.
//
// On data that is not linearly separable there is no mistake-free sweep
// and training never terminates; no iteration cap is imposed here.
func MistakeFreeSweep() Policy { return mistakeFreeSweep{} }

func (mistakeFreeSweep) Continue(result SweepResult) bool { return result.Mistakes > 0 }
func (mistakeFreeSweep) String() string                   { return "MistakeFreeSweep" }

type lossBelowThreshold struct {
	threshold float64
}

// LossBelowThreshold returns the policy that stops once the scalar loss
// after the last step of a sweep is at or below the given threshold.
func LossBelowThreshold(threshold float64) Policy {
	return lossBelowThreshold{threshold: threshold}
}

func (p lossBelowThreshold) Continue(result SweepResult) bool {
	// NaN never compares below the threshold, but that case is aborted by
	// Step before the policy ever sees it.
	return !(result.LastLoss <= p.threshold)
}

func (p lossBelowThreshold) String() string {
	return fmt.Sprintf("LossBelowThreshold(%g)", p.threshold)
}

type fixedEpochCount struct {
	epochs int
}

// FixedEpochCount returns the policy that runs exactly the given number of
// full sweeps, regardless of the loss values reached along the way.
func FixedEpochCount(epochs int) Policy {
	return fixedEpochCount{epochs: epochs}
}

func (p fixedEpochCount) Continue(result SweepResult) bool {
	return result.Sweep+1 < p.epochs
}

func (p fixedEpochCount) String() string {
	return fmt.Sprintf("FixedEpochCount(%d)", p.epochs)
}
