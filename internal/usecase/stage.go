package usecase

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/riskibarqy/scout-scoring/internal/platform/logging"
)

// Stage names one step of the pipeline.
type Stage string

const (
	StageLoad        Stage = "load"
	StagePositions   Stage = "positions"
	StageConsolidate Stage = "consolidate"
	StageNormalize   Stage = "normalize"
	StageScore       Stage = "score"
	StageExport      Stage = "export"
)

// Stages lists the pipeline in execution order.
var Stages = []Stage{StageLoad, StagePositions, StageConsolidate, StageNormalize, StageScore, StageExport}

func ParseStage(raw string) (Stage, error) {
	value := Stage(strings.ToLower(strings.TrimSpace(raw)))
	for _, s := range Stages {
		if s == value {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: unknown stage %q", ErrInvalidInput, raw)
}

func (s Stage) index() int {
	for i, item := range Stages {
		if item == s {
			return i
		}
	}
	return -1
}

// Advisory kinds. They are reported but never fail a run.
const (
	AdvisoryMissingIndicators     = "indicators_missing_from_dataset"
	AdvisoryDuplicateIndicators   = "duplicate_weight_rows"
	AdvisoryUnknownDirections     = "directions_treated_as_baixo"
	AdvisoryNonCanonicalPositions = "non_canonical_positions"
	AdvisoryUnmappedRecords       = "records_without_position"
	AdvisoryDuplicateKeys         = "duplicate_identity_keys"
	AdvisoryMissingNames          = "records_without_name"
	AdvisoryUnparsableDates       = "unparsable_match_dates"
	AdvisorySkippedIndicators     = "indicators_skipped"
	AdvisoryUnscoredRecords       = "records_without_score"
)

const advisorySampleSize = 5

// Advisory is one reported condition with a bounded sample of offenders.
type Advisory struct {
	Kind   string   `json:"kind"`
	Count  int      `json:"count"`
	Sample []string `json:"sample,omitempty"`
}

// StageSummary is the end-of-stage report.
type StageSummary struct {
	Stage      Stage          `json:"stage"`
	Records    int            `json:"records"`
	Counts     map[string]int `json:"counts,omitempty"`
	Advisories []Advisory     `json:"advisories,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	Duration   time.Duration  `json:"duration"`
}

func newSummary(stage Stage) StageSummary {
	return StageSummary{Stage: stage, Counts: make(map[string]int)}
}

// advise records an advisory when count is positive. sample is truncated.
func (s *StageSummary) advise(kind string, count int, sample []string) {
	if count <= 0 {
		return
	}
	if len(sample) > advisorySampleSize {
		sample = sample[:advisorySampleSize]
	}
	s.Advisories = append(s.Advisories, Advisory{Kind: kind, Count: count, Sample: append([]string(nil), sample...)})
}

func (s StageSummary) Advisory(kind string) (Advisory, bool) {
	for _, a := range s.Advisories {
		if a.Kind == kind {
			return a, true
		}
	}
	return Advisory{}, false
}

// logSummary writes one warning per advisory and one human-readable line.
// The logger is expected to carry the stage field already.
func logSummary(logger *logging.Logger, s StageSummary) {
	for _, a := range s.Advisories {
		logger.Warn("stage advisory",
			"kind", a.Kind,
			"count", a.Count,
			"sample", a.Sample,
		)
	}

	keys := make([]string, 0, len(s.Counts))
	for k := range s.Counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys)+1)
	parts = append(parts, fmt.Sprintf("records=%d", s.Records))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, s.Counts[k]))
	}

	logger.Info("stage summary",
		"summary", strings.Join(parts, " "),
		"advisories", len(s.Advisories),
		"duration", s.Duration,
	)
}
