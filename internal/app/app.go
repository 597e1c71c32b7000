package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/scout-scoring/internal/config"
	"github.com/riskibarqy/scout-scoring/internal/infrastructure/checkpoint"
	"github.com/riskibarqy/scout-scoring/internal/infrastructure/export"
	"github.com/riskibarqy/scout-scoring/internal/infrastructure/ingest"
	"github.com/riskibarqy/scout-scoring/internal/observability"
	"github.com/riskibarqy/scout-scoring/internal/platform/logging"
	"github.com/riskibarqy/scout-scoring/internal/usecase"
)

// App is one wired pipeline run.
type App struct {
	Run      config.RunConfig
	Pipeline *usecase.Pipeline
	Logger   *logging.Logger
	LogPath  string

	closers []func(context.Context) error
}

// RunLogName is the per-run log file written next to the outputs.
func RunLogName(runID string) string {
	return "_run_" + runID + ".log"
}

// New builds every adapter for a run and the pipeline that uses them. The
// caller must Close the returned App.
func New(cfg config.Config, runID string) (*App, error) {
	rc, err := cfg.RunConfig(runID)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(rc.OutputDir, 0o755); err != nil {
		return nil, crerr.Wrapf(err, "create output dir %s", rc.OutputDir)
	}

	logPath := filepath.Join(rc.OutputDir, RunLogName(rc.RunID))
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, crerr.Wrapf(err, "open run log %s", logPath)
	}

	logger := logging.NewJSONWriter(cfg.LogLevel, os.Stdout, logFile).With(
		"service", cfg.ServiceName,
		"env", cfg.AppEnv,
	)
	logging.SetDefault(logger)

	a := &App{Run: rc, Logger: logger, LogPath: logPath}
	a.closers = append(a.closers, func(context.Context) error {
		if err := logger.Sync(); err != nil && !isIgnorableSyncError(err) {
			return err
		}
		return logFile.Close()
	})

	shutdownTracing, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		_ = a.Close(context.Background())
		return nil, fmt.Errorf("init uptrace: %w", err)
	}
	a.closers = append(a.closers, shutdownTracing)

	stopProfiling, err := observability.InitPyroscope(cfg, rc.RunID, logger)
	if err != nil {
		_ = a.Close(context.Background())
		return nil, fmt.Errorf("init pyroscope: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return stopProfiling() })

	writer, err := export.NewWriter(rc.ExportFormat, rc.OutputDir)
	if err != nil {
		_ = a.Close(context.Background())
		return nil, err
	}

	store := checkpoint.NewFSStore(rc.OutputDir, rc.Compress)
	a.Pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Scouts:    ingest.NewScoutsReader(rc.ScoutsDir, rc.Workers, logger),
		Weights:   ingest.NewWeightsReader(rc.WeightsFile),
		Positions: ingest.NewPositionsReader(rc.PositionsFile),
		Store:     store,
		Reports:   store,
		Writer:    writer,
		Logger:    logger,
	})

	logger.Info("pipeline wired",
		"run_id", rc.RunID,
		"scouts_dir", rc.ScoutsDir,
		"weights_file", rc.WeightsFile,
		"positions_file", rc.PositionsFile,
		"output_dir", rc.OutputDir,
		"export_format", rc.ExportFormat,
		"workers", rc.Workers,
		"checkpoint_compress", rc.Compress,
	)

	return a, nil
}

// Execute runs the pipeline from the given stage with the run's options.
func (a *App) Execute(ctx context.Context, from usecase.Stage) (usecase.RunReport, error) {
	return a.Pipeline.Run(ctx, usecase.RunOptions{
		RunID:   a.Run.RunID,
		From:    from,
		Workers: a.Run.Workers,
	})
}

// Close shuts adapters down in reverse order and keeps the first error.
func (a *App) Close(ctx context.Context) error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

func isIgnorableSyncError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "bad file descriptor") || strings.Contains(msg, "invalid argument") || strings.Contains(msg, "inappropriate ioctl")
}
