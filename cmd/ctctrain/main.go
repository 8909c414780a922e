// Command ctctrain trains a fully-connected CTC decoder
// on a synthetic frame labelling task.
package main

import (
	"context"
	"flag"
	"log"
	"math/rand"
	"os"
	"os/signal"

	"github.com/unixpickle/essentials"
	"github.com/unixpickle/s2sloss"
	"github.com/unixpickle/s2sloss/anyctc"
	"github.com/unixpickle/s2sloss/anysgd"
	"github.com/unixpickle/serializer"
)

func main() {
	var configPath string
	var overrides Overrides
	flag.StringVar(&configPath, "config", "", "path to YAML config")
	flag.IntVar(&overrides.Steps, "steps", 0, "number of SGD steps")
	flag.IntVar(&overrides.BatchSize, "batch-size", 0, "mini-batch size")
	flag.Float64Var(&overrides.LearningRate, "lr", 0, "learning rate")
	flag.Int64Var(&overrides.Seed, "seed", 0, "random seed")
	flag.IntVar(&overrides.LogEvery, "log-every", 0, "steps between status logs")
	flag.StringVar(&overrides.OutFile, "out", "", "output file for the decoder")
	flag.Parse()

	cfg, err := LoadConfig(configPath)
	if err != nil {
		log.Fatal(err)
	}
	cfg.ApplyOverrides(overrides)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cfg *Config) error {
	loss, err := anyctc.NewLoss(&cfg.Loss)
	if err != nil {
		return err
	}
	c := loss.Params.DType.Creator()

	log.Println("Generating data...")
	r := rand.New(rand.NewSource(cfg.Seed))
	train := GenerateSamples(r, c, cfg.Data, cfg.Data.TrainCount)
	test := GenerateSamples(r, c, cfg.Data, cfg.Data.TestCount)

	numClasses := cfg.Data.Symbols + 1
	decoder := s2sloss.NewFCDecoder(c, r, cfg.Data.Symbols+1, numClasses)
	t := &anyctc.Trainer{
		Func:       decoder.Apply,
		NumClasses: numClasses,
		Loss:       loss,
		Params:     decoder.Parameters(),
	}

	s := &anysgd.SGD{
		Fetcher:     t,
		Gradienter:  t,
		Transformer: cfg.Transformer(),
		Samples: &anyctc.SortSampleList{
			SortableSampleList: train,
			BatchSize:          cfg.BatchSize,
		},
		Rater: anysgd.ConstRater(cfg.LearningRate),
		Rand:  r,
		StatusFunc: func(step int) {
			if step%cfg.LogEvery == 0 {
				log.Printf("step %d: cost=%v (%s)", step, t.LastCost, t.LastSummary)
			}
		},
		BatchSize: cfg.BatchSize,
		NumSteps:  cfg.Steps,
	}

	log.Println("Training (press ctrl+c to stop early)...")
	if err := s.Run(ctx); err != nil {
		return err
	}

	ler, err := evaluate(t, cfg.Decode, test)
	if err != nil {
		return err
	}
	log.Printf("test label error rate (%s): %.4f", cfg.Decoder, ler)

	data, err := serializer.SerializeAny(decoder)
	if err != nil {
		return essentials.AddCtx("save decoder", err)
	}
	if err := os.WriteFile(cfg.OutFile, data, 0644); err != nil {
		return essentials.AddCtx("save decoder", err)
	}
	log.Println("Saved decoder to", cfg.OutFile)
	return nil
}

func evaluate(t *anyctc.Trainer, decode func(*s2sloss.Input) [][]int,
	samples anyctc.SliceSampleList) (float64, error) {
	batch, err := t.Fetch(samples)
	if err != nil {
		return 0, essentials.AddCtx("evaluate", err)
	}
	in := t.Input(batch.(*anyctc.Batch))
	actual := decode(in)
	expected := make([][]int, len(samples))
	for i, sample := range samples {
		expected[i] = sample.Label
	}
	return anyctc.LabelErrorRate(expected, actual), nil
}

// LoadDecoder reads a decoder saved by a training run.
func LoadDecoder(path string) (*s2sloss.FCDecoder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var res *s2sloss.FCDecoder
	if err := serializer.DeserializeAny(data, &res); err != nil {
		return nil, essentials.AddCtx("load decoder", err)
	}
	return res, nil
}
