package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/riskibarqy/scout-scoring/internal/domain/player"
	"github.com/riskibarqy/scout-scoring/internal/domain/report"
	"github.com/riskibarqy/scout-scoring/internal/domain/weight"
	"github.com/riskibarqy/scout-scoring/internal/platform/logging"
	"github.com/riskibarqy/scout-scoring/internal/platform/timeutil"
)

const (
	TableOverall    = "consolidated_overall"
	TableWeights    = "consolidated_weights"
	TableContext    = "consolidated_context"
	TableNormalized = "consolidated_normalized"

	DefaultHighlight = "#FFFFFF"

	ExportDateLayout = "2006-01-02"
)

// textColumns are identifiers exported as written even when they look numeric.
var textColumns = map[string]struct{}{
	player.ColPlayerID:      {},
	player.ColCompetitionID: {},
	player.ColTeamID:        {},
	player.ColCountryID:     {},
}

// highlight is one score the overall view can flag as a group maximum, in
// priority order. An empty category means overall_score.
type highlight struct {
	category string
	label    string
	color    string
}

var highlights = []highlight{
	{category: "", label: "Overall", color: "#E6E6E6"},
	{category: "offensive", label: "Offensive", color: "#E2EFDA"},
	{category: "dgp", label: "DGP", color: "#C7B8E7"},
	{category: "pass", label: "Pass", color: "#F0E199"},
	{category: "defensive", label: "Defensive", color: "#EFB5B9"},
}

var overallLeadColumns = []string{
	player.ColUniqueKey,
	player.ColPlayerID,
	player.ColCompetitionID,
	player.ColPlayerName,
	player.ColCompetitionName,
	player.ColTeamName,
	player.ColPrimaryPosition,
	player.ColMappedPosition,
	player.ColPositionGroup,
	player.ColPositionSubGroup,
	player.ColCurrent,
	player.ColOverallScore,
	player.ColRankOverall,
	player.ColRankPosition,
	player.ColBirthDate,
	player.ColPlayerWeight,
	player.ColPlayerHeight,
	player.ColCountryID,
	player.ColMinutes,
	player.ColAppearances,
	player.ColStartingApps,
	player.ColAverageMinutes,
	player.ColMostRecentMatch,
	player.ColNinetiesPlayed,
	player.Col360Minutes,
}

var contextLeadColumns = []string{
	player.ColPlayerID,
	player.ColCompetitionID,
	player.ColUniqueKey,
	player.ColSourceFile,
	player.ColCurrent,
	player.ColMostRecentMatch,
}

var normalizedLeadColumns = []string{
	player.ColPlayerID,
	player.ColCompetitionID,
	player.ColUniqueKey,
	player.ColMappedPosition,
	player.ColCurrent,
}

// ExportInput is everything the export stage projects from.
type ExportInput struct {
	Dataset player.Dataset
	Weights weight.Table
	Catalog weight.Catalog
	// Normalized lists indicators that produced a _norm column.
	Normalized []string
}

// Exporter projects the scored dataset into the four consumption views.
type Exporter struct {
	writer report.Writer
	logger *logging.Logger
	now    func() time.Time
}

func NewExporter(writer report.Writer, logger *logging.Logger) *Exporter {
	if logger == nil {
		logger = logging.Default()
	}
	return &Exporter{writer: writer, logger: logger, now: time.Now}
}

// Export builds every view and hands it to the writer.
func (e *Exporter) Export(ctx context.Context, in ExportInput) ([]string, StageSummary, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.Exporter.Export")
	defer span.End()

	summary := newSummary(StageExport)
	summary.StartedAt = time.Now().UTC()

	if e.writer == nil {
		return nil, summary, fmt.Errorf("%w: export writer is required", ErrInvalidInput)
	}

	tables := e.BuildTables(in)
	paths := make([]string, 0, len(tables))
	for _, table := range tables {
		path, err := e.writer.WriteTable(ctx, table)
		if err != nil {
			return nil, summary, fmt.Errorf("write %s: %w", table.Name, err)
		}
		paths = append(paths, path)
		summary.Counts[table.Name] = len(table.Rows)
		e.logger.InfoContext(ctx, "table exported",
			"table", table.Name,
			"rows", len(table.Rows),
			"columns", len(table.Columns),
			"path", path,
		)
	}

	summary.Records = len(in.Dataset.Records)
	summary.Duration = time.Since(summary.StartedAt)
	return paths, summary, nil
}

// BuildTables returns overall, weights, context and normalized, in that order.
func (e *Exporter) BuildTables(in ExportInput) []report.Table {
	now := time.Now
	if e != nil && e.now != nil {
		now = e.now
	}
	return []report.Table{
		BuildOverallTable(in.Dataset, in.Catalog, now()),
		BuildWeightsTable(in.Weights),
		BuildContextTable(in.Dataset),
		BuildNormalizedTable(in.Dataset, in.Normalized),
	}
}

// BuildOverallTable projects identity, activity and score columns, adds
// player_age, highlight_color and max_categories, and sorts by rank_overall
// with missing ranks last.
func BuildOverallTable(ds player.Dataset, catalog weight.Catalog, now time.Time) report.Table {
	columns := make([]string, 0, len(overallLeadColumns)+len(catalog.Categories)+len(catalog.SubCategories)+3)
	for _, col := range overallLeadColumns {
		if isDerivedColumn(col) || ds.HasColumn(col) {
			columns = append(columns, col)
		}
	}
	for _, category := range catalog.Categories {
		columns = append(columns, player.CategoryColumn(category))
	}
	for _, sub := range catalog.SubCategories {
		columns = append(columns, player.SubCategoryColumn(sub))
	}
	hasBirth := ds.HasColumn(player.ColBirthDate)
	if hasBirth {
		columns = append(columns, player.ColPlayerAge)
	}
	columns = append(columns, player.ColHighlightColor, player.ColMaxCategories)

	hs := highlightCategories(catalog)
	maxima := computeGroupMaxima(ds.Records, hs)

	order := make([]int, len(ds.Records))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ra, rb := ds.Records[order[a]].RankOverall, ds.Records[order[b]].RankOverall
		switch {
		case ra == nil:
			return false
		case rb == nil:
			return true
		default:
			return *ra < *rb
		}
	})

	rows := make([][]any, 0, len(ds.Records))
	for _, idx := range order {
		rec := ds.Records[idx]
		row := make([]any, 0, len(columns))
		for _, col := range columns {
			switch {
			case col == player.ColPlayerAge:
				row = append(row, playerAge(rec, now))
			case col == player.ColHighlightColor:
				row = append(row, highlightColor(rec, hs, maxima))
			case col == player.ColMaxCategories:
				row = append(row, maxCategories(rec, hs, maxima))
			default:
				row = append(row, cellValue(rec, col))
			}
		}
		rows = append(rows, row)
	}

	return report.Table{Name: TableOverall, Columns: columns, Rows: rows}
}

// BuildWeightsTable passes the active weight rows through unchanged.
func BuildWeightsTable(weights weight.Table) report.Table {
	columns := append([]string(nil), weights.Columns...)
	rows := make([][]any, 0, len(weights.Entries))
	for _, entry := range weights.Entries {
		row := make([]any, len(columns))
		for i, col := range columns {
			if v, ok := entry.Raw[col]; ok && strings.TrimSpace(v) != "" {
				row[i] = rawValue(col, v)
			}
		}
		rows = append(rows, row)
	}
	return report.Table{Name: TableWeights, Columns: columns, Rows: rows}
}

// BuildContextTable keeps identity and provenance plus every raw column that
// looks like player, team, competition or season metadata and is not
// already part of the overall view.
func BuildContextTable(ds player.Dataset) report.Table {
	inOverall := make(map[string]struct{}, len(overallLeadColumns))
	for _, col := range overallLeadColumns {
		inOverall[col] = struct{}{}
	}

	columns := make([]string, 0)
	seen := make(map[string]struct{})
	add := func(col string) {
		if _, ok := seen[col]; ok {
			return
		}
		if !isDerivedColumn(col) && !ds.HasColumn(col) {
			return
		}
		seen[col] = struct{}{}
		columns = append(columns, col)
	}
	for _, col := range contextLeadColumns {
		add(col)
	}
	for _, col := range ds.Columns {
		if _, ok := inOverall[col]; ok || strings.HasSuffix(col, player.NormalizedSuffix) {
			continue
		}
		lower := strings.ToLower(col)
		if strings.Contains(lower, "player_") || strings.Contains(lower, "team_") ||
			strings.Contains(lower, "competition_") || strings.Contains(lower, "season") {
			add(col)
		}
	}

	rows := make([][]any, 0, len(ds.Records))
	for _, rec := range ds.Records {
		row := make([]any, 0, len(columns))
		for _, col := range columns {
			row = append(row, cellValue(rec, col))
		}
		rows = append(rows, row)
	}
	return report.Table{Name: TableContext, Columns: columns, Rows: rows}
}

// BuildNormalizedTable lists identity columns and one <indicator>_norm
// column per normalized indicator.
func BuildNormalizedTable(ds player.Dataset, indicators []string) report.Table {
	columns := make([]string, 0, len(normalizedLeadColumns)+len(indicators))
	for _, col := range normalizedLeadColumns {
		if isDerivedColumn(col) || ds.HasColumn(col) {
			columns = append(columns, col)
		}
	}
	lead := len(columns)
	for _, indicator := range indicators {
		columns = append(columns, player.NormalizedColumn(indicator))
	}

	rows := make([][]any, 0, len(ds.Records))
	for _, rec := range ds.Records {
		row := make([]any, 0, len(columns))
		for _, col := range columns[:lead] {
			row = append(row, cellValue(rec, col))
		}
		for _, indicator := range indicators {
			if v, ok := rec.Normalized[indicator]; ok {
				row = append(row, v)
			} else {
				row = append(row, nil)
			}
		}
		rows = append(rows, row)
	}
	return report.Table{Name: TableNormalized, Columns: columns, Rows: rows}
}

func isDerivedColumn(col string) bool {
	switch col {
	case player.ColUniqueKey, player.ColPlayerName, player.ColMappedPosition, player.ColPositionGroup,
		player.ColPositionSubGroup, player.ColCurrent, player.ColOverallScore, player.ColRankOverall,
		player.ColRankPosition:
		return true
	}
	return false
}

// cellValue reads a derived field or a raw cell. Missing values are nil.
func cellValue(rec player.Record, col string) any {
	switch col {
	case player.ColUniqueKey:
		return rec.UniqueKey
	case player.ColPlayerName:
		return derefOrNil(rec.PlayerName)
	case player.ColMappedPosition:
		if rec.MappedPosition == nil {
			return nil
		}
		return string(*rec.MappedPosition)
	case player.ColPositionGroup:
		return derefOrNil(rec.PositionGroup)
	case player.ColPositionSubGroup:
		return derefOrNil(rec.PositionSubGroup)
	case player.ColCurrent:
		return rec.Current
	case player.ColOverallScore:
		return derefOrNil(rec.OverallScore)
	case player.ColRankOverall:
		return derefOrNil(rec.RankOverall)
	case player.ColRankPosition:
		return derefOrNil(rec.RankPosition)
	case player.ColMostRecentMatch:
		if rec.MostRecentMatch == nil {
			return nil
		}
		return rec.MostRecentMatch.Format(ExportDateLayout)
	case player.ColBirthDate:
		raw, ok := rec.Cell(col)
		if !ok {
			return nil
		}
		birth, ok := timeutil.ParseDate(raw)
		if !ok {
			return nil
		}
		return birth.Format(ExportDateLayout)
	}
	if strings.HasPrefix(col, player.SubCategoryPrefix) {
		if v, ok := rec.SubCategoryScores[strings.TrimPrefix(col, player.SubCategoryPrefix)]; ok {
			return v
		}
		return nil
	}
	if strings.HasPrefix(col, player.CategoryScorePrefix) {
		if v, ok := rec.CategoryScores[strings.TrimPrefix(col, player.CategoryScorePrefix)]; ok {
			return v
		}
		return nil
	}
	if v, ok := rec.Cell(col); ok {
		return rawValue(col, v)
	}
	return nil
}

// rawValue turns numeric text into a float64 so writers store a number.
// Identifier columns stay text.
func rawValue(col, v string) any {
	if _, ok := textColumns[col]; ok {
		return v
	}
	if n, ok := ParseIndicator(v); ok {
		return n
	}
	return v
}

func derefOrNil[T any](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}

func playerAge(rec player.Record, now time.Time) any {
	raw, ok := rec.Cell(player.ColBirthDate)
	if !ok {
		return nil
	}
	birth, ok := timeutil.ParseDate(raw)
	if !ok {
		return nil
	}
	return timeutil.AgeYears(birth, now)
}

// highlightCategories resolves each highlight to the catalog category it
// reads, matching names case-insensitively. Highlights with no category in
// the catalog are dropped.
func highlightCategories(catalog weight.Catalog) []highlight {
	out := make([]highlight, 0, len(highlights))
	for _, h := range highlights {
		if h.category == "" {
			out = append(out, h)
			continue
		}
		for _, category := range catalog.Categories {
			if strings.ToLower(category) == h.category {
				h.category = category
				out = append(out, h)
				break
			}
		}
	}
	return out
}

func highlightScore(rec player.Record, h highlight) (float64, bool) {
	if h.category == "" {
		if rec.OverallScore == nil {
			return 0, false
		}
		return *rec.OverallScore, true
	}
	v, ok := rec.CategoryScores[h.category]
	return v, ok
}

func highlightGroupKey(rec player.Record) (string, bool) {
	if rec.PositionGroup == nil {
		return "", false
	}
	return rec.CellOrEmpty(player.ColCompetitionID) + "\x00" + *rec.PositionGroup, true
}

// groupMaxima holds, per (competition_id, position_group), the maximum of
// every highlighted score.
type groupMaxima map[string]map[string]float64

func computeGroupMaxima(records []player.Record, hs []highlight) groupMaxima {
	out := make(groupMaxima)
	for _, rec := range records {
		key, ok := highlightGroupKey(rec)
		if !ok {
			continue
		}
		maxima, ok := out[key]
		if !ok {
			maxima = make(map[string]float64, len(hs))
			out[key] = maxima
		}
		for _, h := range hs {
			v, ok := highlightScore(rec, h)
			if !ok {
				continue
			}
			if cur, seen := maxima[h.label]; !seen || v > cur {
				maxima[h.label] = v
			}
		}
	}
	return out
}

func (g groupMaxima) isMax(rec player.Record, h highlight) bool {
	key, ok := highlightGroupKey(rec)
	if !ok {
		return false
	}
	v, ok := highlightScore(rec, h)
	if !ok {
		return false
	}
	best, ok := g[key][h.label]
	return ok && v == best
}

func highlightColor(rec player.Record, hs []highlight, maxima groupMaxima) string {
	for _, h := range hs {
		if maxima.isMax(rec, h) {
			return h.color
		}
	}
	return DefaultHighlight
}

func maxCategories(rec player.Record, hs []highlight, maxima groupMaxima) string {
	labels := make([]string, 0, len(hs))
	for _, h := range hs {
		if maxima.isMax(rec, h) {
			labels = append(labels, h.label)
		}
	}
	return strings.Join(labels, ", ")
}
