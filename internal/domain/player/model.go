package player

import (
	"strings"
	"time"
)

// Position is one of the canonical on-pitch roles used for scoring and ranking.
type Position string

const (
	PositionGK  Position = "GK"
	PositionRCB Position = "RCB"
	PositionLCB Position = "LCB"
	PositionCB  Position = "CB"
	PositionRB  Position = "RB"
	PositionLB  Position = "LB"
	PositionDM  Position = "DM"
	PositionCM  Position = "CM"
	PositionAM  Position = "AM"
	PositionLW  Position = "LW"
	PositionRW  Position = "RW"
	PositionCF  Position = "CF"
)

// CanonicalPositions lists the canonical set in display order.
var CanonicalPositions = []Position{
	PositionGK, PositionRCB, PositionLCB, PositionCB, PositionRB, PositionLB,
	PositionDM, PositionCM, PositionAM, PositionLW, PositionRW, PositionCF,
}

var AllPositions = func() map[Position]struct{} {
	out := make(map[Position]struct{}, len(CanonicalPositions))
	for _, p := range CanonicalPositions {
		out[p] = struct{}{}
	}
	return out
}()

func (p Position) IsCanonical() bool {
	_, ok := AllPositions[p]
	return ok
}

// Raw input column names as they come out of the scouting exports.
const (
	ColPlayerID        = "player_id"
	ColCompetitionID   = "competition_id"
	ColTeamID          = "team_id"
	ColPrimaryPosition = "primary_position"
	ColPlayerKnownName = "player_known_name"
	ColPlayerName      = "player_name"
	ColPlayerFirstName = "player_first_name"
	ColPlayerLastName  = "player_last_name"
	ColCompetitionName = "competition_name"
	ColTeamName        = "team_name"
	ColSeasonName      = "season_name"
	ColSourceFile      = "source_file"
	ColBirthDate       = "birth_date"
	ColPlayerWeight    = "player_weight"
	ColPlayerHeight    = "player_height"
	ColCountryID       = "country_id"
	ColMinutes         = "player_season_minutes"
	ColAppearances     = "player_season_appearances"
	ColStartingApps    = "player_season_starting_appearances"
	ColAverageMinutes  = "player_season_average_minutes"
	ColMostRecentMatch = "player_season_most_recent_match"
	ColNinetiesPlayed  = "player_season_90s_played"
	Col360Minutes      = "player_season_360_minutes"
)

// Derived column names written by the pipeline.
const (
	ColMappedPosition   = "mapped_position"
	ColPositionGroup    = "position_group"
	ColPositionSubGroup = "position_sub_group"
	ColUniqueKey        = "unique_key"
	ColCurrent          = "v_current"
	ColOverallScore     = "overall_score"
	ColRankOverall      = "rank_overall"
	ColRankPosition     = "rank_position"
	ColPlayerAge        = "player_age"
	ColHighlightColor   = "highlight_color"
	ColMaxCategories    = "max_categories"

	NormalizedSuffix    = "_norm"
	CategoryScorePrefix = "score_"
	SubCategoryPrefix   = "sub_score_"
)

const (
	// NoPositionSentinel replaces a null raw position label. It never matches
	// a mapping entry.
	NoPositionSentinel = "Sem posição definida"
	UniqueKeySeparator = "_"
)

// Record is one (player, competition, team, source file) observation. Cells
// holds every raw input column as text; an absent key or empty value is null.
// Everything below Cells is derived by the pipeline stages.
type Record struct {
	Cells map[string]string `json:"cells"`

	MappedPosition   *Position `json:"mapped_position,omitempty"`
	PositionGroup    *string   `json:"position_group,omitempty"`
	PositionSubGroup *string   `json:"position_sub_group,omitempty"`

	UniqueKey       string     `json:"unique_key,omitempty"`
	Current         bool       `json:"v_current"`
	PlayerName      *string    `json:"player_name,omitempty"`
	MostRecentMatch *time.Time `json:"most_recent_match,omitempty"`

	// Normalized maps indicator -> 0..100 value. A missing key is a missing value.
	Normalized map[string]float64 `json:"normalized,omitempty"`

	OverallScore      *float64           `json:"overall_score,omitempty"`
	CategoryScores    map[string]float64 `json:"category_scores,omitempty"`
	SubCategoryScores map[string]float64 `json:"sub_category_scores,omitempty"`
	RankOverall       *int               `json:"rank_overall,omitempty"`
	RankPosition      *int               `json:"rank_position,omitempty"`
}

// Cell returns the trimmed raw value of column and whether it is non-null.
func (r Record) Cell(column string) (string, bool) {
	if r.Cells == nil {
		return "", false
	}
	value := strings.TrimSpace(r.Cells[column])
	if value == "" {
		return "", false
	}
	return value, true
}

// CellOrEmpty is Cell without the presence flag.
func (r Record) CellOrEmpty(column string) string {
	value, _ := r.Cell(column)
	return value
}

// Position returns the mapped canonical position, or "" when unmapped.
func (r Record) Position() Position {
	if r.MappedPosition == nil {
		return ""
	}
	return *r.MappedPosition
}

// Clone deep-copies the record so a stage never mutates its input snapshot.
func (r Record) Clone() Record {
	out := r
	out.Cells = cloneMap(r.Cells)
	out.Normalized = cloneMap(r.Normalized)
	out.CategoryScores = cloneMap(r.CategoryScores)
	out.SubCategoryScores = cloneMap(r.SubCategoryScores)
	out.MappedPosition = clonePtr(r.MappedPosition)
	out.PositionGroup = clonePtr(r.PositionGroup)
	out.PositionSubGroup = clonePtr(r.PositionSubGroup)
	out.PlayerName = clonePtr(r.PlayerName)
	out.MostRecentMatch = clonePtr(r.MostRecentMatch)
	out.OverallScore = clonePtr(r.OverallScore)
	out.RankOverall = clonePtr(r.RankOverall)
	out.RankPosition = clonePtr(r.RankPosition)
	return out
}

func NormalizedColumn(indicator string) string {
	return indicator + NormalizedSuffix
}

func CategoryColumn(category string) string {
	return CategoryScorePrefix + category
}

func SubCategoryColumn(subCategory string) string {
	return SubCategoryPrefix + subCategory
}

func cloneMap[V any](in map[string]V) map[string]V {
	if in == nil {
		return nil
	}
	out := make(map[string]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func clonePtr[T any](in *T) *T {
	if in == nil {
		return nil
	}
	v := *in
	return &v
}
