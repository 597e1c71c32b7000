package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/riskibarqy/scout-scoring/internal/domain/player"
	"github.com/riskibarqy/scout-scoring/internal/domain/position"
	"github.com/riskibarqy/scout-scoring/internal/platform/logging"
)

// PositionMapper resolves raw position labels to the canonical triple.
type PositionMapper struct {
	logger *logging.Logger
}

func NewPositionMapper(logger *logging.Logger) *PositionMapper {
	if logger == nil {
		logger = logging.Default()
	}
	return &PositionMapper{logger: logger}
}

// MapLabel maps one raw label. ok is false for empty, sentinel or unknown
// labels, in which case the whole triple is null.
func MapLabel(raw string, table *position.Table) (position.Mapping, bool) {
	label := strings.TrimSpace(raw)
	if label == "" || label == player.NoPositionSentinel {
		return position.Mapping{}, false
	}
	return table.Lookup(label)
}

// Map annotates every record with mapped_position, position_group and
// position_sub_group. Records keep their order; none are dropped.
func (m *PositionMapper) Map(ctx context.Context, ds player.Dataset, table *position.Table) (player.Dataset, StageSummary, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PositionMapper.Map")
	defer span.End()

	summary := newSummary(StagePositions)
	summary.StartedAt = time.Now().UTC()

	if table == nil {
		return player.Dataset{}, summary, fmt.Errorf("%w: position mapping table", ErrNotFound)
	}
	if err := player.PositionsSchema.Validate(ds); err != nil {
		return player.Dataset{}, summary, err
	}

	out := ds.Clone()
	out.WithColumn(player.ColMappedPosition)
	out.WithColumn(player.ColPositionGroup)
	out.WithColumn(player.ColPositionSubGroup)

	var (
		unmapped      int
		unmappedLabel = make(map[string]int)
		nonCanonical  = make(map[string]int)
	)
	for i := range out.Records {
		rec := &out.Records[i]
		raw, ok := rec.Cell(player.ColPrimaryPosition)
		if !ok {
			if rec.Cells == nil {
				rec.Cells = make(map[string]string)
			}
			raw = player.NoPositionSentinel
			rec.Cells[player.ColPrimaryPosition] = raw
		}

		rec.MappedPosition, rec.PositionGroup, rec.PositionSubGroup = nil, nil, nil
		mapping, found := MapLabel(raw, table)
		if !found || strings.TrimSpace(mapping.Position) == "" {
			unmapped++
			unmappedLabel[raw]++
			continue
		}

		pos := player.Position(strings.TrimSpace(mapping.Position))
		rec.MappedPosition = &pos
		rec.PositionGroup = optionalString(mapping.Group)
		rec.PositionSubGroup = optionalString(mapping.SubGroup)

		summary.Counts["position_"+string(pos)]++
		if !pos.IsCanonical() {
			nonCanonical[string(pos)]++
		}
	}

	summary.Records = len(out.Records)
	summary.Counts["mapped"] = len(out.Records) - unmapped
	summary.Counts["unmapped"] = unmapped
	summary.advise(AdvisoryNonCanonicalPositions, len(nonCanonical), sortedKeys(nonCanonical))
	summary.advise(AdvisoryUnmappedRecords, unmapped, sortedKeys(unmappedLabel))
	summary.Duration = time.Since(summary.StartedAt)

	m.logger.InfoContext(ctx, "positions mapped",
		"records", summary.Records,
		"mapped", summary.Counts["mapped"],
		"unmapped", unmapped,
	)

	return out, summary, nil
}

func optionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func sortedKeys[V any](in map[string]V) []string {
	out := make([]string, 0, len(in))
	for k := range in {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
