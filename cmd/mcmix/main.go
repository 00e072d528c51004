package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/natefinch/atomic"

	"github.com/atmosense/mcmix/pkg/mcm"
	"github.com/atmosense/mcmix/pkg/modelstore"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

type options struct {
	dataPath  string
	bins      int
	steps     int
	obsPoint  float64
	count     int
	minValue  float64
	maxValue  float64
	modelName string
	dbPath    string
	outPath   string
	logLevel  string
	version   bool
}

func main() {
	var opts options
	flag.StringVar(&opts.dataPath, "data", "", "path to a whitespace- or comma-separated series of floats to fit on")
	flag.IntVar(&opts.bins, "bins", 50, "number of discretization bins")
	flag.IntVar(&opts.steps, "steps", 1, "forecast horizon in time steps")
	flag.Float64Var(&opts.obsPoint, "obs", math.NaN(), "observation to forecast from (required)")
	flag.IntVar(&opts.count, "count", 2000, "number of forecast samples to draw")
	flag.Float64Var(&opts.minValue, "min", math.NaN(), "forecast range minimum (default: the fit range)")
	flag.Float64Var(&opts.maxValue, "max", math.NaN(), "forecast range maximum (default: the fit range)")
	flag.StringVar(&opts.modelName, "model", "default", "model name for storing and loading")
	flag.StringVar(&opts.dbPath, "db", "", "sqlite database for persisting fitted models")
	flag.StringVar(&opts.outPath, "out", "", "write samples to this file instead of stdout")
	flag.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	flag.BoolVar(&opts.version, "version", false, "print version information and exit")
	flag.Parse()

	if opts.version {
		fmt.Printf("mcmix %s (%s, built %s)\n", Version, Commit, BuildDate)
		return
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(opts.logLevel)}))

	if err := run(&opts, logger); err != nil {
		logger.Error("Run failed", "error", err)
		os.Exit(1)
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func run(opts *options, logger *slog.Logger) error {
	if math.IsNaN(opts.obsPoint) {
		return errors.New("an observation point is required (-obs)")
	}

	ctx := context.Background()

	model, err := obtainModel(ctx, opts, logger)
	if err != nil {
		return err
	}

	stats := model.Stats()
	logger.Info("Model ready",
		slog.String("model_name", model.Name),
		slog.Int("bins", model.Bins),
		slog.Int("steps", model.Steps),
		slog.Int("states_without_data", len(stats.ZeroRows)),
	)

	minValue, maxValue := model.Min, model.Max
	if !math.IsNaN(opts.minValue) {
		minValue = opts.minValue
	}
	if !math.IsNaN(opts.maxValue) {
		maxValue = opts.maxValue
	}

	binStarts, probs, err := mcm.Forecast(model.P, minValue, maxValue, opts.obsPoint)
	if err != nil {
		return fmt.Errorf("forecast failed: %w", err)
	}

	samples, err := mcm.Sample(binStarts, probs, opts.count)
	if err != nil {
		if errors.Is(err, mcm.ErrInsufficientData) {
			return fmt.Errorf("no training data covers the observation %v: %w", opts.obsPoint, err)
		}
		return fmt.Errorf("sampling failed: %w", err)
	}

	return writeSamples(samples, opts.outPath, logger)
}

// obtainModel fits a model from -data when given, persisting it if a
// database is configured, and otherwise loads a previously stored model.
func obtainModel(ctx context.Context, opts *options, logger *slog.Logger) (*mcm.Model, error) {
	if opts.dataPath == "" && opts.dbPath == "" {
		return nil, errors.New("either a data file (-data) or a model database (-db) is required")
	}

	var store *modelstore.Store
	if opts.dbPath != "" {
		db, err := initDB(opts.dbPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		defer func() { _ = db.Close() }()
		if err = modelstore.SetupSchema(db); err != nil {
			return nil, fmt.Errorf("failed to set up database schema: %w", err)
		}
		if store, err = modelstore.New(db); err != nil {
			return nil, fmt.Errorf("failed to initialize model store: %w", err)
		}
		store.SetLogger(logger)
		defer store.Close()
	}

	if opts.dataPath == "" {
		model, err := store.Get(ctx, opts.modelName)
		if err != nil {
			return nil, fmt.Errorf("failed to load model '%s': %w", opts.modelName, err)
		}
		return model, nil
	}

	data, err := loadSeries(opts.dataPath)
	if err != nil {
		return nil, err
	}
	logger.Debug("Series loaded", slog.String("path", opts.dataPath), slog.Int("observations", len(data)))

	model, err := mcm.FitModel(opts.modelName, data, opts.bins, mcm.WithSteps(opts.steps))
	if err != nil {
		return nil, fmt.Errorf("fit failed: %w", err)
	}

	if store != nil {
		if err = store.Save(ctx, model); err != nil {
			return nil, fmt.Errorf("failed to save model '%s': %w", model.Name, err)
		}
	}
	return model, nil
}

// loadSeries reads a sequence of floats separated by whitespace or commas.
func loadSeries(path string) ([]float64, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read data file: %w", err)
	}

	fields := strings.FieldsFunc(string(raw), func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})

	data := make([]float64, 0, len(fields))
	for _, field := range fields {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse '%s' in %s: %w", field, path, err)
		}
		data = append(data, v)
	}
	return data, nil
}

// writeSamples prints samples one per line, either to stdout or
// atomically to a file so a crash never leaves a partial output behind.
func writeSamples(samples []float64, outPath string, logger *slog.Logger) error {
	var buf bytes.Buffer
	for _, v := range samples {
		fmt.Fprintf(&buf, "%g\n", v)
	}

	if outPath == "" {
		_, err := os.Stdout.Write(buf.Bytes())
		return err
	}

	if err := atomic.WriteFile(outPath, &buf); err != nil {
		return fmt.Errorf("failed to write samples: %w", err)
	}
	logger.Info("Samples written", slog.String("path", outPath), slog.Int("count", len(samples)))
	return nil
}
