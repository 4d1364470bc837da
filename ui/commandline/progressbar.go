// Package commandline provides command-line UI niceties for training: a
// progress bar that attaches to a train.Loop through its hooks.
package commandline

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
	"github.com/gonnlab/gonn/ml/train"
	"github.com/schollz/progressbar/v3"
)

// progressBar holds a progressbar being displayed.
type progressBar struct {
	bar *progressbar.ProgressBar
}

// ProgressBarName is the name the progress bar hooks are registered under.
const ProgressBarName = "gonn.ui.commandline.progressBar"

// AttachProgressBar creates a command-line progress bar and attaches it to
// the Loop, so that every time the Loop is run it displays training
// progression: steps per second, sweeps completed and the current loss or
// mistake count.
//
// The total number of steps is unknown upfront for the mistake-free-sweep
// and loss-threshold policies, so the bar renders as a spinner with
// counters rather than a percentage.
func AttachProgressBar(loop *train.Loop) {
	pBar := &progressBar{}
	loop.OnStart(ProgressBarName, 0, pBar.onStart)
	loop.OnStep(ProgressBarName, 0, pBar.onStep)
	loop.OnSweep(ProgressBarName, 0, pBar.onSweep)
	loop.OnEnd(ProgressBarName, 0, pBar.onEnd)
}

func (pBar *progressBar) onStart(loop *train.Loop, ds train.Dataset) error {
	pBar.bar = progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(fmt.Sprintf("Training on %q: ", ds.Name())),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("steps"),
		progressbar.OptionSetTheme(progressbar.ThemeUnicode),
	)
	return nil
}

func (pBar *progressBar) onStep(loop *train.Loop, loss float64) error {
	return pBar.bar.Add(1)
}

func (pBar *progressBar) onSweep(loop *train.Loop, result train.SweepResult) error {
	if math.IsNaN(result.LastLoss) {
		pBar.bar.Describe(fmt.Sprintf("Sweep %s (%d mistakes): ",
			humanize.Comma(int64(result.Sweep)), result.Mistakes))
	} else {
		pBar.bar.Describe(fmt.Sprintf("Sweep %s (loss=%.6f): ",
			humanize.Comma(int64(result.Sweep)), result.LastLoss))
	}
	return nil
}

func (pBar *progressBar) onEnd(loop *train.Loop, result train.SweepResult) error {
	if err := pBar.bar.Finish(); err != nil {
		return err
	}
	fmt.Printf("\ndone: %s steps over %s sweeps, median step %s\n",
		humanize.Comma(int64(loop.Step)), humanize.Comma(int64(loop.Sweep+1)),
		loop.MedianTrainStepDuration())
	return nil
}
