package usecase

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/riskibarqy/scout-scoring/internal/domain/player"
	"github.com/riskibarqy/scout-scoring/internal/platform/logging"
	"github.com/riskibarqy/scout-scoring/internal/platform/timeutil"
)

// Consolidator assigns identity keys, flags the current record per identity
// and resolves display names.
type Consolidator struct {
	logger *logging.Logger
}

func NewConsolidator(logger *logging.Logger) *Consolidator {
	if logger == nil {
		logger = logging.Default()
	}
	return &Consolidator{logger: logger}
}

// UniqueKey joins the three identity ids with "_". A null id contributes "".
func UniqueKey(rec player.Record) string {
	return strings.Join([]string{
		rec.CellOrEmpty(player.ColPlayerID),
		rec.CellOrEmpty(player.ColCompetitionID),
		rec.CellOrEmpty(player.ColTeamID),
	}, player.UniqueKeySeparator)
}

// ResolvePlayerName returns the first available of known name, name,
// "first last" (both present), first name, last name.
func ResolvePlayerName(rec player.Record) *string {
	if v, ok := rec.Cell(player.ColPlayerKnownName); ok {
		return &v
	}
	if v, ok := rec.Cell(player.ColPlayerName); ok {
		return &v
	}
	first, hasFirst := rec.Cell(player.ColPlayerFirstName)
	last, hasLast := rec.Cell(player.ColPlayerLastName)
	switch {
	case hasFirst && hasLast:
		full := first + " " + last
		return &full
	case hasFirst:
		return &first
	case hasLast:
		return &last
	}
	return nil
}

// CompetitionFromSource strips the extension from a source file name.
func CompetitionFromSource(sourceFile string) string {
	base := filepath.Base(strings.TrimSpace(sourceFile))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Consolidate keeps every record and adds unique_key, v_current and
// player_name. Within a key, the record with the latest parseable match date
// is current; equal or missing dates fall back to original row order.
func (c *Consolidator) Consolidate(ctx context.Context, ds player.Dataset) (player.Dataset, StageSummary, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.Consolidator.Consolidate")
	defer span.End()

	summary := newSummary(StageConsolidate)
	summary.StartedAt = time.Now().UTC()

	if err := player.ConsolidateSchema.Validate(ds); err != nil {
		return player.Dataset{}, summary, err
	}
	present := player.ConsolidateSchema.PresentOptional(ds)

	out := ds.Clone()
	hasDates := present[player.ColMostRecentMatch]

	var (
		unparsable []string
		missing    []string
		derived    int
		groupSize  = make(map[string]int)
	)
	for i := range out.Records {
		rec := &out.Records[i]
		rec.UniqueKey = UniqueKey(*rec)
		rec.Current = false
		rec.MostRecentMatch = nil
		groupSize[rec.UniqueKey]++

		if hasDates {
			if raw, ok := rec.Cell(player.ColMostRecentMatch); ok {
				if parsed, ok := timeutil.ParseDate(raw); ok {
					rec.MostRecentMatch = &parsed
				} else {
					unparsable = append(unparsable, raw)
				}
			}
		}

		rec.PlayerName = ResolvePlayerName(*rec)
		if rec.PlayerName == nil {
			missing = append(missing, rec.UniqueKey)
		}

		if _, ok := rec.Cell(player.ColCompetitionName); !ok {
			if source, ok := rec.Cell(player.ColSourceFile); ok {
				if rec.Cells == nil {
					rec.Cells = make(map[string]string)
				}
				rec.Cells[player.ColCompetitionName] = CompetitionFromSource(source)
				derived++
			}
		}
	}
	if derived > 0 {
		out.WithColumn(player.ColCompetitionName)
	}

	for _, idx := range currentIndexes(out.Records) {
		out.Records[idx].Current = true
	}

	duplicates := make([]string, 0)
	for key, n := range groupSize {
		if n > 1 {
			duplicates = append(duplicates, key)
		}
	}
	sort.Strings(duplicates)

	summary.Records = len(out.Records)
	summary.Counts["unique_keys"] = len(groupSize)
	summary.Counts["current"] = len(groupSize)
	summary.Counts["competition_names_derived"] = derived
	summary.advise(AdvisoryDuplicateKeys, len(duplicates), duplicates)
	summary.advise(AdvisoryMissingNames, len(missing), missing)
	summary.advise(AdvisoryUnparsableDates, len(unparsable), unparsable)
	summary.Duration = time.Since(summary.StartedAt)

	c.logger.InfoContext(ctx, "records consolidated",
		"records", summary.Records,
		"unique_keys", len(groupSize),
		"duplicate_keys", len(duplicates),
	)

	return out, summary, nil
}

// currentIndexes returns, per unique key, the index of the current record.
// Records are ordered by date descending with missing dates last; the stable
// sort keeps original order among equal dates.
func currentIndexes(records []player.Record) []int {
	order := make([]int, len(records))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		da, db := records[order[a]].MostRecentMatch, records[order[b]].MostRecentMatch
		switch {
		case da == nil:
			return false
		case db == nil:
			return true
		default:
			return da.After(*db)
		}
	})

	seen := make(map[string]struct{}, len(records))
	out := make([]int, 0, len(records))
	for _, idx := range order {
		key := records[idx].UniqueKey
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, idx)
	}
	return out
}
