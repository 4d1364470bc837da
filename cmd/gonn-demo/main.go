// gonn-demo trains the three gonn models on synthetic datasets and reports
// how they did: the perceptron on linearly separable 2D points, the
// regressor on sin(x) samples and the digit classifier on synthetic digit
// images.
//
// Example:
//
//	go run ./cmd/gonn-demo --seed=42 --v=1
package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/gonnlab/gonn/engines"
	"github.com/gonnlab/gonn/ml/data"
	"github.com/gonnlab/gonn/ml/models"
	"github.com/gonnlab/gonn/ml/train"
	"github.com/gonnlab/gonn/ui/commandline"
	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"

	_ "github.com/gonnlab/gonn/engines/densego"
)

var (
	flagEngine = flag.String("engine", "", fmt.Sprintf(
		"Engine configuration, formatted as \"<engine_name>:<engine_configuration>\". "+
			"The default engine is used if empty; $%s overrides.", engines.GONN_ENGINE))
	flagSeed        = flag.Uint64("seed", 42, "Seed for the synthetic datasets.")
	flagDigitHidden = flag.Int("digits_hidden", 64, "Hidden layer width for the digit classifier. "+
		"The model default (150) is noticeably slower on the pure-Go engine.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	engine := engines.NewWithConfig(*flagEngine)
	fmt.Printf("engine: %s\n\n", engine.Description())

	demoPerceptron(engine)
	demoRegressor(engine)
	demoDigits(engine)
}

func demoPerceptron(engine engines.Engine) {
	ds := data.Separable2D(engine, 200, *flagSeed)
	model := models.NewPerceptron(engine, 2)

	loop := train.NewLoop(engine)
	commandline.AttachProgressBar(loop)
	must.M(model.TrainLoop(loop, ds))

	correct, total := 0, 0
	sweep(ds, 1, func(x, y engines.Node) {
		if float64(model.Predict(x)) == engine.AsScalar(y) {
			correct++
		}
		total++
	})
	fmt.Printf("perceptron: %d/%d correct on a final sweep\n\n", correct, total)
}

func demoRegressor(engine engines.Engine) {
	ds := data.Sine(engine, 200, *flagSeed)
	model := models.NewRegressor(engine)

	loop := train.NewLoop(engine)
	commandline.AttachProgressBar(loop)
	must.M(model.TrainLoop(loop, ds))

	holdout := data.Sine(engine, 100, *flagSeed+1)
	var sum float64
	batches := 0
	sweep(holdout, holdout.Len(), func(x, y engines.Node) {
		sum += engine.AsScalar(model.Loss(x, y))
		batches++
	})
	fmt.Printf("regressor: holdout loss %.6f (trained to %g)\n\n",
		sum/float64(batches), model.Config().LossThreshold)
}

func demoDigits(engine engines.Engine) {
	ds := data.SyntheticDigits(engine, 20, models.DigitInputSize, *flagSeed)
	model := models.NewDigitClassifierWithConfig(engine, models.DigitClassifierConfig{
		HiddenSize: *flagDigitHidden,
	})

	loop := train.NewLoop(engine)
	commandline.AttachProgressBar(loop)
	must.M(model.TrainLoop(loop, ds))

	correct, total := 0, 0
	sweep(ds, model.Config().BatchSize, func(x, y engines.Node) {
		predicted := model.Predict(x)
		labels := engine.Values(y)
		for i, class := range predicted {
			if labels[i][class] == 1 {
				correct++
			}
			total++
		}
	})
	fmt.Printf("digit classifier: %d/%d correct after %d epochs\n",
		correct, total, model.Config().Epochs)
}

// sweep runs fn over one full pass of the dataset.
func sweep(ds train.Dataset, batchSize int, fn func(x, y engines.Node)) {
	it := ds.IterateOnce(batchSize)
	for {
		x, y, err := it.Next()
		if err == io.EOF {
			return
		}
		must.M(err)
		fn(x, y)
	}
}
