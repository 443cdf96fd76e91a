package main

import (
	"errors"
	"flag"
	"fmt"
	"iter"
	"log"
	"time"

	"mrdrecon/internal/logging"
	"mrdrecon/internal/models"
	"mrdrecon/pkg/config"
	"mrdrecon/pkg/reconstruction"
	"mrdrecon/pkg/simulation"
	"mrdrecon/pkg/validation"
	"mrdrecon/pkg/visualization"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "config.yaml", "YAML configuration file (defaults are used if missing)")
	writeConfig := flag.Bool("write-config", false, "Write the default configuration to -config and exit")
	outputDir := flag.String("output", "", "Directory to save PNG images")
	prefix := flag.String("prefix", "", "Output filename prefix")
	matrix := flag.Int("matrix", 0, "Matrix size")
	coils := flag.Int("coils", 0, "Number of coils")
	oversampling := flag.Int("oversampling", 0, "Readout oversampling factor")
	repetitions := flag.Int("repetitions", 0, "Number of repetitions")
	noise := flag.Float64("noise", 0, "Noise level")
	seed := flag.Uint64("seed", 0, "Noise seed")
	heatmap := flag.Bool("heatmap", false, "Also save a heat map of every image")
	passthrough := flag.Bool("passthrough", false, "Pass acquisitions through the reconstruction")
	verbose := flag.Bool("verbose", false, "Print every generated file")
	flag.Parse()

	if *writeConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Flags override the file only when given explicitly
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "output":
			cfg.Output.Directory = *outputDir
		case "prefix":
			cfg.Output.Prefix = *prefix
		case "matrix":
			cfg.Simulation.Matrix = *matrix
		case "coils":
			cfg.Simulation.Coils = *coils
		case "oversampling":
			cfg.Simulation.Oversampling = *oversampling
		case "repetitions":
			cfg.Simulation.Repetitions = *repetitions
		case "noise":
			cfg.Simulation.NoiseLevel = *noise
		case "seed":
			cfg.Simulation.Seed = *seed
		case "heatmap":
			cfg.Output.Heatmap = *heatmap
		case "passthrough":
			cfg.Reconstruction.PassthroughAcquisitions = *passthrough
		case "verbose":
			cfg.Output.Verbose = *verbose
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("%v", err)
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format, nil)

	fmt.Println("================================")
	fmt.Println("STREAMING CARTESIAN MRD RECONSTRUCTION")
	fmt.Println("================================")

	simParams := cfg.SimulationParams()
	simLogger := logger.With().Str("stage", "simulation").Logger()
	simParams.Logger = &simLogger

	fmt.Printf("Simulating %dx%d phantom, %d coils, oversampling %d, %d repetition(s), noise %g\n",
		simParams.Matrix, simParams.Matrix, simParams.Coils, simParams.Oversampling,
		simParams.Repetitions, simParams.NoiseLevel)
	dataset, err := simulation.Generate(simParams)
	if err != nil {
		log.Fatalf("Simulation failed: %v", err)
	}
	reference, err := validation.DatasetReference(dataset)
	if err != nil {
		log.Fatalf("Failed to build reference image: %v", err)
	}

	reconstructor, err := reconstruction.NewReconstructor(dataset.Header, &reconstruction.Params{
		PassthroughAcquisitions: cfg.Reconstruction.PassthroughAcquisitions,
		Logger:                  &logger,
	})
	if err != nil {
		log.Fatalf("Invalid header: %v", err)
	}

	exportLogger := logger.With().Str("stage", "export").Logger()
	exporter := visualization.NewExporter(cfg.Output.Directory, cfg.Output.Prefix, cfg.Output.Heatmap, &exportLogger)

	fmt.Println("Starting reconstruction...")
	startTime := time.Now()
	var images []*models.Image[float32]
	if err := exporter.Export(imagesOnly(reconstructor.Process(dataset.Records()), &images)); err != nil {
		log.Fatalf("Reconstruction failed: %v", err)
	}
	processingTime := time.Since(startTime)

	stats := reconstructor.GetStats()
	fmt.Printf("\nReconstruction completed in %.2f seconds!\n", processingTime.Seconds())
	fmt.Printf("Records read: %d\n", stats.RecordsRead)
	fmt.Printf("Acquisitions reconstructed: %d\n", stats.AcquisitionsAccepted)
	fmt.Printf("Noise scans skipped: %d\n", stats.NoiseScansSkipped)
	fmt.Printf("Readouts with oversampling removed: %d\n", stats.OversamplingRemoved)
	fmt.Printf("Repetitions reconstructed: %d\n", stats.RepetitionsFlushed)
	fmt.Printf("Images emitted: %d\n", stats.ImagesEmitted)
	fmt.Printf("Images saved to: %s (%d files)\n", cfg.Output.Directory, len(exporter.Files))

	if cfg.Output.Verbose {
		for _, f := range exporter.Files {
			fmt.Printf("Generated image %s\n", f)
		}
	}

	// Compare against the noiseless coil images
	metrics, err := validation.Validate(images, reference, cfg.Reconstruction.Threshold)
	fmt.Printf("\nValidation Metrics:\n")
	fmt.Printf("===================\n")
	for i, m := range metrics {
		fmt.Printf("Image %d: relative error %.3g, RMSE %.6f, SSIM %.6f, entropy difference %.3f\n",
			i, m.RelativeError, m.RMSE, m.SSIM, m.EntropyDiff)
	}

	switch {
	case err == nil:
		fmt.Printf("All images within relative error %g of the reference\n", cfg.Reconstruction.Threshold)
	case errors.Is(err, validation.ErrThresholdExceeded) && simParams.NoiseLevel > 0:
		fmt.Printf("Relative error above %g is expected with noise level %g\n",
			cfg.Reconstruction.Threshold, simParams.NoiseLevel)
	default:
		log.Fatalf("Validation failed: %v", err)
	}
}

// imagesOnly forwards the image records of records, collecting them in
// images. Passed-through acquisitions are dropped.
func imagesOnly(records iter.Seq2[models.Record, error], images *[]*models.Image[float32]) iter.Seq2[models.Record, error] {
	return func(yield func(models.Record, error) bool) {
		for rec, err := range records {
			if err != nil {
				yield(rec, err)
				return
			}
			if rec.Kind != models.KindImageFloat {
				continue
			}
			*images = append(*images, rec.ImageFloat)
			if !yield(rec, nil) {
				return
			}
		}
	}
}
