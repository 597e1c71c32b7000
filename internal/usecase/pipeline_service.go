package usecase

import (
	"context"
	"fmt"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/scout-scoring/internal/domain/player"
	"github.com/riskibarqy/scout-scoring/internal/domain/position"
	"github.com/riskibarqy/scout-scoring/internal/domain/report"
	"github.com/riskibarqy/scout-scoring/internal/domain/weight"
	"github.com/riskibarqy/scout-scoring/internal/platform/logging"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Checkpoint names. Each stage reads its inputs and writes its outputs under
// these names only.
const (
	CheckpointScoutsRaw          = "_temp_scouts_raw"
	CheckpointWeightsActive      = "_temp_weights_active"
	CheckpointScoutsPositions    = "_temp_scouts_positions"
	CheckpointScoutsConsolidated = "_temp_scouts_consolidated"
	CheckpointScoutsNormalized   = "_temp_scouts_normalized"
	CheckpointWeightsMap         = "_temp_weights_map"
	CheckpointIndicators         = "_temp_indicators_available"
	CheckpointScoutsScored       = "_temp_scouts_scored"

	RunReportName = "_run_report"
)

// CheckpointStore persists stage outputs. Load wraps ErrCheckpointMissing
// when name was never saved. Save must be all-or-nothing.
type CheckpointStore interface {
	Save(ctx context.Context, name string, value any) error
	Load(ctx context.Context, name string, value any) error
}

// ReportWriter persists the run report in a human-readable form.
type ReportWriter interface {
	WriteReport(ctx context.Context, name string, value any) (string, error)
}

// RunOptions is the explicit per-run configuration every stage receives.
type RunOptions struct {
	RunID   string
	From    Stage
	Workers int
}

type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// RunReport is written at the end of every run, including failed ones.
type RunReport struct {
	RunID      string            `json:"run_id"`
	From       Stage             `json:"from"`
	Status     RunStatus         `json:"status"`
	Error      string            `json:"error,omitempty"`
	FailedAt   Stage             `json:"failed_stage,omitempty"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Stages     []StageSummary    `json:"stages"`
	Indicators []IndicatorResult `json:"indicators,omitempty"`
	Outputs    []string          `json:"outputs,omitempty"`
}

type PipelineDeps struct {
	Scouts    player.Source
	Weights   weight.Source
	Positions position.Source
	Store     CheckpointStore
	Reports   ReportWriter
	Writer    report.Writer
	Logger    *logging.Logger
}

// Pipeline runs load, positions, consolidate, normalize, score and export in
// order, checkpointing after each stage.
type Pipeline struct {
	scouts    player.Source
	weights   weight.Source
	positions position.Source
	store     CheckpointStore
	reports   ReportWriter
	writer    report.Writer
	logger    *logging.Logger
}

func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Pipeline{
		scouts:    deps.Scouts,
		weights:   deps.Weights,
		positions: deps.Positions,
		store:     deps.Store,
		reports:   deps.Reports,
		writer:    deps.Writer,
		logger:    logger,
	}
}

type stageRun struct {
	opts   RunOptions
	logger *logging.Logger
	report *RunReport
}

// Run executes the pipeline from opts.From (load when empty). The first
// failing stage stops the run and is returned as a *StageError.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (RunReport, error) {
	from := opts.From
	if from == "" {
		from = StageLoad
	}
	if from.index() < 0 {
		return RunReport{}, fmt.Errorf("%w: unknown stage %q", ErrInvalidInput, from)
	}
	if p.store == nil {
		return RunReport{}, fmt.Errorf("%w: checkpoint store is required", ErrInvalidInput)
	}
	opts.From = from

	ctx, span := startRootSpan(ctx, "pipeline.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("pipeline.run_id", opts.RunID),
		attribute.String("pipeline.from", string(from)),
	)

	runLogger := p.logger.With("run_id", opts.RunID)
	rep := RunReport{RunID: opts.RunID, From: from, StartedAt: time.Now().UTC()}
	runLogger.InfoContext(ctx, "pipeline run started", "from", string(from))

	var runErr error
	for _, stage := range Stages[from.index():] {
		run := stageRun{opts: opts, logger: runLogger.With("stage", string(stage)), report: &rep}
		if err := p.runStage(ctx, stage, run); err != nil {
			runErr = stageError(stage, err)
			rep.FailedAt = stage
			break
		}
	}

	rep.FinishedAt = time.Now().UTC()
	rep.Status = RunSucceeded
	if runErr != nil {
		rep.Status = RunFailed
		rep.Error = runErr.Error()
		span.RecordError(runErr)
		span.SetStatus(codes.Error, runErr.Error())
	}

	if p.reports != nil {
		path, err := p.reports.WriteReport(ctx, RunReportName, rep)
		if err != nil {
			runLogger.WarnContext(ctx, "write run report failed", "error", err)
		} else {
			runLogger.InfoContext(ctx, "run report written", "path", path)
		}
	}

	if runErr != nil {
		runLogger.ErrorContext(ctx, "pipeline run failed",
			"stage", string(rep.FailedAt),
			"error", runErr,
			"detail", fmt.Sprintf("%+v", runErr),
		)
		return rep, runErr
	}

	runLogger.InfoContext(ctx, "pipeline run finished",
		"stages", len(rep.Stages),
		"duration", rep.FinishedAt.Sub(rep.StartedAt),
	)
	return rep, nil
}

func (p *Pipeline) runStage(ctx context.Context, stage Stage, run stageRun) (err error) {
	ctx, span := usecaseTracer.Start(ctx, "pipeline."+string(stage))
	defer span.End()

	run.logger.InfoContext(ctx, "stage started")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	var summary StageSummary
	switch stage {
	case StageLoad:
		summary, err = p.load(ctx, run)
	case StagePositions:
		summary, err = p.mapPositions(ctx, run)
	case StageConsolidate:
		summary, err = p.consolidate(ctx, run)
	case StageNormalize:
		summary, err = p.normalize(ctx, run)
	case StageScore:
		summary, err = p.score(ctx, run)
	case StageExport:
		summary, err = p.export(ctx, run)
	default:
		err = fmt.Errorf("%w: unknown stage %q", ErrInvalidInput, stage)
	}
	if err != nil {
		return err
	}

	summary.Stage = stage
	run.report.Stages = append(run.report.Stages, summary)
	span.SetAttributes(
		attribute.Int("pipeline.records", summary.Records),
		attribute.Int("pipeline.advisories", len(summary.Advisories)),
	)
	logSummary(run.logger, summary)
	return nil
}

func (p *Pipeline) load(ctx context.Context, run stageRun) (StageSummary, error) {
	summary := newSummary(StageLoad)
	summary.StartedAt = time.Now().UTC()

	if p.scouts == nil || p.weights == nil {
		return summary, fmt.Errorf("%w: scouts and weights sources are required", ErrInvalidInput)
	}

	ds, err := p.scouts.LoadDataset(ctx)
	if err != nil {
		return summary, crerr.Wrap(err, "load scouts")
	}
	table, err := p.weights.LoadTable(ctx)
	if err != nil {
		return summary, crerr.Wrap(err, "load weights")
	}
	if err := table.ValidateActive(); err != nil {
		return summary, err
	}
	active := table.Active()
	catalog := weight.NewCatalog(active.Entries, ds.ColumnSet())

	files := make(map[string]struct{})
	for _, rec := range ds.Records {
		files[rec.CellOrEmpty(player.ColSourceFile)] = struct{}{}
	}

	if err := p.store.Save(ctx, CheckpointScoutsRaw, ds); err != nil {
		return summary, crerr.Wrapf(err, "save %s", CheckpointScoutsRaw)
	}
	if err := p.store.Save(ctx, CheckpointWeightsActive, active); err != nil {
		return summary, crerr.Wrapf(err, "save %s", CheckpointWeightsActive)
	}
	if err := p.store.Save(ctx, CheckpointWeightsMap, catalog); err != nil {
		return summary, crerr.Wrapf(err, "save %s", CheckpointWeightsMap)
	}

	summary.Records = len(ds.Records)
	summary.Counts["files"] = len(files)
	summary.Counts["columns"] = len(ds.Columns)
	summary.Counts["indicators_active"] = len(active.Entries)
	summary.Counts["indicators_ignored"] = len(table.Entries) - len(active.Entries)
	summary.Counts["indicators_available"] = len(catalog.Indicators)
	summary.advise(AdvisoryMissingIndicators, len(catalog.Missing), catalog.Missing)
	summary.advise(AdvisoryDuplicateIndicators, len(catalog.Duplicates), catalog.Duplicates)
	summary.advise(AdvisoryUnknownDirections, len(catalog.UnknownDirections), catalog.UnknownDirections)
	summary.Duration = time.Since(summary.StartedAt)
	return summary, nil
}

func (p *Pipeline) mapPositions(ctx context.Context, run stageRun) (StageSummary, error) {
	if p.positions == nil {
		return newSummary(StagePositions), fmt.Errorf("%w: positions source is required", ErrInvalidInput)
	}
	var ds player.Dataset
	if err := p.store.Load(ctx, CheckpointScoutsRaw, &ds); err != nil {
		return newSummary(StagePositions), err
	}
	table, err := p.positions.LoadTable(ctx)
	if err != nil {
		return newSummary(StagePositions), crerr.Wrap(err, "load position mapping")
	}

	out, summary, err := NewPositionMapper(run.logger).Map(ctx, ds, table)
	if err != nil {
		return summary, err
	}
	if err := p.store.Save(ctx, CheckpointScoutsPositions, out); err != nil {
		return summary, crerr.Wrapf(err, "save %s", CheckpointScoutsPositions)
	}
	return summary, nil
}

func (p *Pipeline) consolidate(ctx context.Context, run stageRun) (StageSummary, error) {
	var ds player.Dataset
	if err := p.store.Load(ctx, CheckpointScoutsPositions, &ds); err != nil {
		return newSummary(StageConsolidate), err
	}

	out, summary, err := NewConsolidator(run.logger).Consolidate(ctx, ds)
	if err != nil {
		return summary, err
	}
	if err := p.store.Save(ctx, CheckpointScoutsConsolidated, out); err != nil {
		return summary, crerr.Wrapf(err, "save %s", CheckpointScoutsConsolidated)
	}
	return summary, nil
}

func (p *Pipeline) normalize(ctx context.Context, run stageRun) (StageSummary, error) {
	var (
		ds      player.Dataset
		catalog weight.Catalog
	)
	if err := p.store.Load(ctx, CheckpointScoutsConsolidated, &ds); err != nil {
		return newSummary(StageNormalize), err
	}
	if err := p.store.Load(ctx, CheckpointWeightsMap, &catalog); err != nil {
		return newSummary(StageNormalize), err
	}

	out, results, summary, err := NewNormalizer(run.logger, run.opts.Workers).Normalize(ctx, ds, catalog)
	if err != nil {
		return summary, err
	}

	for _, item := range []struct {
		name  string
		value any
	}{
		{CheckpointScoutsNormalized, out},
		{CheckpointIndicators, results},
	} {
		if err := p.store.Save(ctx, item.name, item.value); err != nil {
			return summary, crerr.Wrapf(err, "save %s", item.name)
		}
	}
	run.report.Indicators = results
	return summary, nil
}

func (p *Pipeline) score(ctx context.Context, run stageRun) (StageSummary, error) {
	var (
		ds      player.Dataset
		catalog weight.Catalog
	)
	if err := p.store.Load(ctx, CheckpointScoutsNormalized, &ds); err != nil {
		return newSummary(StageScore), err
	}
	if err := p.store.Load(ctx, CheckpointWeightsMap, &catalog); err != nil {
		return newSummary(StageScore), err
	}

	out, summary, err := NewScoreAggregator(run.logger, run.opts.Workers).Score(ctx, ds, catalog)
	if err != nil {
		return summary, err
	}
	if err := p.store.Save(ctx, CheckpointScoutsScored, out); err != nil {
		return summary, crerr.Wrapf(err, "save %s", CheckpointScoutsScored)
	}
	return summary, nil
}

func (p *Pipeline) export(ctx context.Context, run stageRun) (StageSummary, error) {
	var in ExportInput
	var results []IndicatorResult
	for _, item := range []struct {
		name  string
		value any
	}{
		{CheckpointScoutsScored, &in.Dataset},
		{CheckpointWeightsActive, &in.Weights},
		{CheckpointWeightsMap, &in.Catalog},
		{CheckpointIndicators, &results},
	} {
		if err := p.store.Load(ctx, item.name, item.value); err != nil {
			return newSummary(StageExport), err
		}
	}
	for _, r := range results {
		if r.Status == IndicatorNormalized {
			in.Normalized = append(in.Normalized, r.Indicator)
		}
	}
	if len(run.report.Indicators) == 0 {
		run.report.Indicators = results
	}

	paths, summary, err := NewExporter(p.writer, run.logger).Export(ctx, in)
	if err != nil {
		return summary, err
	}
	run.report.Outputs = paths
	return summary, nil
}
