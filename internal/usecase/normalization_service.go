package usecase

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/scout-scoring/internal/domain/player"
	"github.com/riskibarqy/scout-scoring/internal/domain/weight"
	"github.com/riskibarqy/scout-scoring/internal/platform/logging"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ZeroVarianceScore is assigned to every valued member of a peer group whose
// raw values are all equal, including single-record groups.
const ZeroVarianceScore = 50.0

type IndicatorStatus string

const (
	IndicatorNormalized IndicatorStatus = "normalized"
	IndicatorSkipped    IndicatorStatus = "skipped"
)

// IndicatorResult reports how one indicator went through normalization.
type IndicatorResult struct {
	Indicator string          `json:"indicator"`
	Status    IndicatorStatus `json:"status"`
	Reason    string          `json:"reason,omitempty"`
	Groups    int             `json:"groups"`
	Values    int             `json:"values"`
	Mean      *float64        `json:"mean,omitempty"`
}

// Normalizer rescales active indicators onto 0..100 within peer groups of
// (mapped_position, competition_id).
type Normalizer struct {
	logger  *logging.Logger
	workers int
}

func NewNormalizer(logger *logging.Logger, workers int) *Normalizer {
	if logger == nil {
		logger = logging.Default()
	}
	return &Normalizer{logger: logger, workers: workers}
}

// PeerGroupKey concatenates the mapped position and the competition id. An
// unmapped record still forms a group with the other unmapped records of its
// competition.
func PeerGroupKey(rec player.Record) string {
	return string(rec.Position()) + "_" + rec.CellOrEmpty(player.ColCompetitionID)
}

// ParseIndicator coerces a raw cell to a finite number. Blank and
// non-numeric cells are missing. A single comma with no dot is read as a
// decimal comma ("1,5"), except when it groups exactly three digits after a
// non-zero integer part ("1,234"), which is ambiguous and left missing.
func ParseIndicator(raw string) (float64, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0, false
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		decimal, ok := decimalComma(value)
		if !ok {
			return 0, false
		}
		parsed, err = strconv.ParseFloat(decimal, 64)
		if err != nil {
			return 0, false
		}
	}
	if math.IsNaN(parsed) || math.IsInf(parsed, 0) {
		return 0, false
	}
	return parsed, true
}

func decimalComma(value string) (string, bool) {
	if strings.Count(value, ",") != 1 || strings.Contains(value, ".") {
		return "", false
	}
	whole, frac, _ := strings.Cut(value, ",")
	if frac == "" {
		return "", false
	}
	digits := strings.TrimLeft(whole, "+-")
	if len(frac) == 3 && strings.Trim(digits, "0") != "" {
		return "", false
	}
	return whole + "." + frac, true
}

// Normalize writes <indicator>_norm values for every indicator of the catalog.
// A failing indicator is skipped and reported; it never fails the stage. The
// returned results follow catalog order.
func (n *Normalizer) Normalize(ctx context.Context, ds player.Dataset, catalog weight.Catalog) (player.Dataset, []IndicatorResult, StageSummary, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.Normalizer.Normalize")
	defer span.End()

	summary := newSummary(StageNormalize)
	summary.StartedAt = time.Now().UTC()

	if err := player.NormalizeSchema.Validate(ds); err != nil {
		return player.Dataset{}, nil, summary, err
	}

	out := ds.Clone()
	groups := peerGroups(out.Records)
	indicators := catalog.Indicators
	results := make([]IndicatorResult, len(indicators))
	values := make([]map[int]float64, len(indicators))

	if len(indicators) > 0 {
		pool, err := ants.NewPool(normalizeWorkerCount(n.workers, len(indicators)))
		if err != nil {
			return player.Dataset{}, nil, summary, fmt.Errorf("create worker pool: %w", err)
		}
		defer pool.Release()

		var skipped atomic.Int32
		var workers sync.WaitGroup
		for i, indicator := range indicators {
			i, indicator := i, indicator
			workers.Add(1)
			if err := pool.Submit(func() {
				defer workers.Done()

				row, normalized := normalizeIndicatorSafe(out.Records, groups, indicator, catalog.Directions[indicator])
				if row.Status == IndicatorSkipped {
					skipped.Add(1)
				}
				results[i] = row
				values[i] = normalized
			}); err != nil {
				workers.Done()
				return player.Dataset{}, nil, summary, fmt.Errorf("submit task to worker pool: %w", err)
			}
		}
		workers.Wait()
		summary.Counts["skipped"] = int(skipped.Load())
	}

	if err := ctx.Err(); err != nil {
		return player.Dataset{}, nil, summary, err
	}

	// Merge in catalog order.
	skippedNames := make([]string, 0)
	for i, indicator := range indicators {
		if results[i].Status != IndicatorNormalized {
			skippedNames = append(skippedNames, indicator+": "+results[i].Reason)
			continue
		}
		for idx, v := range values[i] {
			rec := &out.Records[idx]
			if rec.Normalized == nil {
				rec.Normalized = make(map[string]float64, len(indicators))
			}
			rec.Normalized[indicator] = v
		}
	}

	summary.Records = len(out.Records)
	summary.Counts["indicators"] = len(indicators)
	summary.Counts["normalized"] = len(indicators) - len(skippedNames)
	summary.Counts["peer_groups"] = len(groups)
	summary.advise(AdvisoryMissingIndicators, len(catalog.Missing), catalog.Missing)
	summary.advise(AdvisorySkippedIndicators, len(skippedNames), skippedNames)
	summary.Duration = time.Since(summary.StartedAt)

	n.logger.InfoContext(ctx, "indicators normalized",
		"records", summary.Records,
		"indicators", len(indicators),
		"skipped", len(skippedNames),
		"peer_groups", len(groups),
	)

	return out, results, summary, nil
}

type peerGroup struct {
	key     string
	members []int
}

// peerGroups returns groups in first-appearance order.
func peerGroups(records []player.Record) []peerGroup {
	index := make(map[string]int)
	out := make([]peerGroup, 0)
	for i, rec := range records {
		key := PeerGroupKey(rec)
		pos, ok := index[key]
		if !ok {
			pos = len(out)
			index[key] = pos
			out = append(out, peerGroup{key: key})
		}
		out[pos].members = append(out[pos].members, i)
	}
	return out
}

func normalizeIndicatorSafe(records []player.Record, groups []peerGroup, indicator string, direction weight.Direction) (row IndicatorResult, values map[int]float64) {
	defer func() {
		if r := recover(); r != nil {
			row = IndicatorResult{Indicator: indicator, Status: IndicatorSkipped, Reason: fmt.Sprintf("panic: %v", r)}
			values = nil
		}
	}()

	values, row = normalizeIndicator(records, groups, indicator, direction)
	return row, values
}

// normalizeIndicator scales higher-is-better for CIMA and lower-is-better for
// every other direction, blank included.
func normalizeIndicator(records []player.Record, groups []peerGroup, indicator string, direction weight.Direction) (map[int]float64, IndicatorResult) {
	out := make(map[int]float64)
	all := make([]float64, 0, len(records))
	row := IndicatorResult{Indicator: indicator, Status: IndicatorNormalized}

	members := make([]int, 0)
	raw := make([]float64, 0)
	for _, g := range groups {
		members, raw = members[:0], raw[:0]
		for _, idx := range g.members {
			if v, ok := ParseIndicator(records[idx].Cells[indicator]); ok {
				members = append(members, idx)
				raw = append(raw, v)
			}
		}
		if len(raw) == 0 {
			continue
		}
		row.Groups++

		lo, hi := floats.Min(raw), floats.Max(raw)
		spread := hi - lo
		for j, idx := range members {
			switch {
			case spread == 0:
				out[idx] = ZeroVarianceScore
			case direction == weight.DirectionUp:
				out[idx] = (raw[j] - lo) / spread * 100
			default:
				out[idx] = (hi - raw[j]) / spread * 100
			}
			all = append(all, out[idx])
		}
	}

	row.Values = len(out)
	if len(all) > 0 {
		mean := stat.Mean(all, nil)
		row.Mean = &mean
	}
	return out, row
}

func normalizeWorkerCount(value int, taskCount int) int {
	if taskCount <= 0 {
		return 1
	}
	if value <= 0 {
		value = runtime.NumCPU()
	}
	if value > taskCount {
		value = taskCount
	}
	return value
}
