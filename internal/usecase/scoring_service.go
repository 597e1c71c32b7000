package usecase

import (
	"context"
	"runtime"
	"sort"
	"time"

	"github.com/riskibarqy/scout-scoring/internal/domain/player"
	"github.com/riskibarqy/scout-scoring/internal/domain/weight"
	"github.com/riskibarqy/scout-scoring/internal/platform/logging"
	"github.com/sourcegraph/conc/pool"
)

// ScoreAggregator combines normalized indicators into position-weighted
// scores and ranks them.
type ScoreAggregator struct {
	logger  *logging.Logger
	workers int
}

func NewScoreAggregator(logger *logging.Logger, workers int) *ScoreAggregator {
	if logger == nil {
		logger = logging.Default()
	}
	return &ScoreAggregator{logger: logger, workers: workers}
}

// WeightedScore averages the record's normalized values over indicators,
// weighted by the record's position. Indicators without a value or with a
// zero weight are left out. The score is missing for non-canonical positions
// and when no indicator contributes.
func WeightedScore(rec player.Record, indicators []string, catalog weight.Catalog) *float64 {
	pos := rec.Position()
	if !pos.IsCanonical() {
		return nil
	}

	var weightedSum, totalWeight float64
	for _, indicator := range indicators {
		value, ok := rec.Normalized[indicator]
		if !ok {
			continue
		}
		w := catalog.Weight(indicator, pos)
		if w == 0 {
			continue
		}
		weightedSum += value * w
		totalWeight += w
	}
	if totalWeight <= 0 {
		return nil
	}
	score := weightedSum / totalWeight
	return &score
}

type scoreColumnKind int

const (
	scoreOverall scoreColumnKind = iota
	scoreCategory
	scoreSubCategory
)

type scoreColumn struct {
	order      int
	kind       scoreColumnKind
	name       string
	indicators []string
	values     []*float64
}

// Score adds overall_score, score_<category>, sub_score_<sub_category>,
// rank_overall and rank_position. Record order is unchanged.
func (a *ScoreAggregator) Score(ctx context.Context, ds player.Dataset, catalog weight.Catalog) (player.Dataset, StageSummary, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ScoreAggregator.Score")
	defer span.End()

	summary := newSummary(StageScore)
	summary.StartedAt = time.Now().UTC()

	out := ds.Clone()
	columns := make([]scoreColumn, 0, 1+len(catalog.Categories)+len(catalog.SubCategories))
	columns = append(columns, scoreColumn{kind: scoreOverall, indicators: catalog.Indicators})
	for _, category := range catalog.Categories {
		columns = append(columns, scoreColumn{kind: scoreCategory, name: category, indicators: catalog.ByCategory[category]})
	}
	for _, sub := range catalog.SubCategories {
		columns = append(columns, scoreColumn{kind: scoreSubCategory, name: sub, indicators: catalog.BySubCategory[sub]})
	}

	workers := a.workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	p := pool.NewWithResults[scoreColumn]().WithContext(ctx).WithMaxGoroutines(workers)
	for i := range columns {
		col := columns[i]
		col.order = i
		p.Go(func(ctx context.Context) (scoreColumn, error) {
			col.values = make([]*float64, len(out.Records))
			for idx, rec := range out.Records {
				if idx%1024 == 0 {
					if err := ctx.Err(); err != nil {
						return scoreColumn{}, err
					}
				}
				col.values[idx] = WeightedScore(rec, col.indicators, catalog)
			}
			return col, nil
		})
	}
	computed, err := p.Wait()
	if err != nil {
		return player.Dataset{}, summary, err
	}
	sort.Slice(computed, func(i, j int) bool { return computed[i].order < computed[j].order })

	var overall []*float64
	for _, col := range computed {
		switch col.kind {
		case scoreOverall:
			overall = col.values
			for idx := range out.Records {
				out.Records[idx].OverallScore = col.values[idx]
			}
		case scoreCategory:
			assignScores(out.Records, col.values, col.name, func(r *player.Record) *map[string]float64 { return &r.CategoryScores })
		case scoreSubCategory:
			assignScores(out.Records, col.values, col.name, func(r *player.Record) *map[string]float64 { return &r.SubCategoryScores })
		}
	}

	byCompetitionGroup := make(map[string][]int)
	byPosition := make(map[string][]int)
	for idx, rec := range out.Records {
		group := ""
		if rec.PositionGroup != nil {
			group = *rec.PositionGroup
		}
		key := rec.CellOrEmpty(player.ColCompetitionID) + "\x00" + group
		byCompetitionGroup[key] = append(byCompetitionGroup[key], idx)
		pos := string(rec.Position())
		byPosition[pos] = append(byPosition[pos], idx)
	}
	rankOverall := rankWithin(byCompetitionGroup, overall)
	rankPosition := rankWithin(byPosition, overall)

	unscored := make([]string, 0)
	for idx := range out.Records {
		rec := &out.Records[idx]
		rec.RankOverall = rankOverall[idx]
		rec.RankPosition = rankPosition[idx]
		if rec.OverallScore == nil {
			unscored = append(unscored, rec.UniqueKey)
		}
	}

	summary.Records = len(out.Records)
	summary.Counts["scored"] = len(out.Records) - len(unscored)
	summary.Counts["categories"] = len(catalog.Categories)
	summary.Counts["sub_categories"] = len(catalog.SubCategories)
	summary.advise(AdvisoryUnscoredRecords, len(unscored), unscored)
	summary.Duration = time.Since(summary.StartedAt)

	a.logger.InfoContext(ctx, "scores calculated",
		"records", summary.Records,
		"scored", summary.Counts["scored"],
		"categories", len(catalog.Categories),
		"sub_categories", len(catalog.SubCategories),
	)

	return out, summary, nil
}

func assignScores(records []player.Record, values []*float64, name string, target func(*player.Record) *map[string]float64) {
	for idx := range records {
		if values[idx] == nil {
			continue
		}
		scores := target(&records[idx])
		if *scores == nil {
			*scores = make(map[string]float64)
		}
		(*scores)[name] = *values[idx]
	}
}
