package usecase

import (
	"context"
	"testing"

	"github.com/riskibarqy/scout-scoring/internal/domain/player"
	"github.com/riskibarqy/scout-scoring/internal/domain/weight"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func normalizeFixture() player.Dataset {
	columns := []string{player.ColPlayerID, player.ColCompetitionID, "goals", "fouls", "label"}
	ds := newDataset(columns,
		map[string]string{"player_id": "1", "competition_id": "10", "goals": "2", "fouls": "4", "label": "a"},
		map[string]string{"player_id": "2", "competition_id": "10", "goals": "6", "fouls": "1", "label": "b"},
		map[string]string{"player_id": "3", "competition_id": "10", "goals": "4", "fouls": "", "label": "c"},
		map[string]string{"player_id": "4", "competition_id": "11", "goals": "9", "fouls": "2", "label": "d"},
		map[string]string{"player_id": "5", "competition_id": "10", "goals": "100", "fouls": "3", "label": "e"},
	)
	for i := 0; i < 4; i++ {
		ds.Records[i] = positioned(ds.Records[i], player.PositionCF, "Forward")
	}
	ds.Records[4] = positioned(ds.Records[4], player.PositionGK, "Goalkeeper")
	return ds
}

func TestNormalizer_PeerGroupScaling(t *testing.T) {
	t.Parallel()

	ds := normalizeFixture()
	catalog := weight.NewCatalog([]weight.Entry{
		entry("goals", "Offensive", "", weight.DirectionUp, nil),
		entry("fouls", "Defensive", "", weight.DirectionDown, nil),
	}, ds.ColumnSet())

	out, results, summary, err := NewNormalizer(nil, 2).Normalize(context.Background(), ds, catalog)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, IndicatorNormalized, r.Status, r.Indicator)
	}

	// CF in competition 10: goals 2, 6, 4.
	assert.InDelta(t, 0.0, out.Records[0].Normalized["goals"], 1e-9)
	assert.InDelta(t, 100.0, out.Records[1].Normalized["goals"], 1e-9)
	assert.InDelta(t, 50.0, out.Records[2].Normalized["goals"], 1e-9)

	// BAIXO: fouls 4, 1; missing stays missing.
	assert.InDelta(t, 0.0, out.Records[0].Normalized["fouls"], 1e-9)
	assert.InDelta(t, 100.0, out.Records[1].Normalized["fouls"], 1e-9)
	_, ok := out.Records[2].Normalized["fouls"]
	assert.False(t, ok)

	// Single-record groups fall back to the midpoint.
	assert.Equal(t, ZeroVarianceScore, out.Records[3].Normalized["goals"])
	assert.Equal(t, ZeroVarianceScore, out.Records[4].Normalized["goals"])
	assert.Equal(t, ZeroVarianceScore, out.Records[4].Normalized["fouls"])

	assert.Equal(t, 3, summary.Counts["peer_groups"])
	assert.Nil(t, ds.Records[0].Normalized)
}

func TestNormalizer_ValuesStayInRange(t *testing.T) {
	t.Parallel()

	columns := []string{player.ColCompetitionID, "xg"}
	raw := []string{"0.3", "1.7", "-2", "12.25", "x", "7"}
	rows := make([]map[string]string, 0, len(raw))
	for _, v := range raw {
		rows = append(rows, map[string]string{"competition_id": "1", "xg": v})
	}
	ds := newDataset(columns, rows...)
	for i := range ds.Records {
		ds.Records[i] = positioned(ds.Records[i], player.PositionAM, "Midfielder")
	}

	for _, dir := range []weight.Direction{weight.DirectionUp, weight.DirectionDown} {
		catalog := weight.NewCatalog([]weight.Entry{entry("xg", "", "", dir, nil)}, ds.ColumnSet())
		out, _, _, err := NewNormalizer(nil, 1).Normalize(context.Background(), ds, catalog)
		require.NoError(t, err)

		for i, rec := range out.Records {
			v, ok := rec.Normalized["xg"]
			if i == 4 {
				assert.False(t, ok)
				continue
			}
			require.True(t, ok)
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 100.0)
		}
		if dir == weight.DirectionUp {
			assert.Equal(t, 100.0, out.Records[3].Normalized["xg"])
			assert.Equal(t, 0.0, out.Records[2].Normalized["xg"])
		} else {
			assert.Equal(t, 0.0, out.Records[3].Normalized["xg"])
			assert.Equal(t, 100.0, out.Records[2].Normalized["xg"])
		}
	}
}

func TestNormalizer_ZeroVarianceGroup(t *testing.T) {
	t.Parallel()

	columns := []string{player.ColCompetitionID, "tackles"}
	ds := newDataset(columns,
		map[string]string{"competition_id": "1", "tackles": "3"},
		map[string]string{"competition_id": "1", "tackles": "3.0"},
		map[string]string{"competition_id": "1", "tackles": ""},
	)
	for i := range ds.Records {
		ds.Records[i] = positioned(ds.Records[i], player.PositionDM, "Midfielder")
	}
	catalog := weight.NewCatalog([]weight.Entry{entry("tackles", "", "", weight.DirectionUp, nil)}, ds.ColumnSet())

	out, _, _, err := NewNormalizer(nil, 0).Normalize(context.Background(), ds, catalog)
	require.NoError(t, err)
	assert.Equal(t, 50.0, out.Records[0].Normalized["tackles"])
	assert.Equal(t, 50.0, out.Records[1].Normalized["tackles"])
	_, ok := out.Records[2].Normalized["tackles"]
	assert.False(t, ok)
}

func TestNormalizer_UnknownDirectionScalesAsBaixo(t *testing.T) {
	t.Parallel()

	ds := normalizeFixture()
	catalog := weight.NewCatalog([]weight.Entry{
		entry("goals", "Offensive", "", weight.DirectionUp, nil),
		entry("fouls", "Defensive", "", weight.Direction("SIDEWAYS"), nil),
		entry("assists", "Offensive", "", weight.DirectionUp, nil),
	}, ds.ColumnSet())
	assert.Equal(t, []string{"fouls"}, catalog.UnknownDirections)

	out, results, summary, err := NewNormalizer(nil, 4).Normalize(context.Background(), ds, catalog)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "fouls", results[1].Indicator)
	assert.Equal(t, IndicatorNormalized, results[1].Status)
	assert.InDelta(t, 0.0, out.Records[0].Normalized["fouls"], 1e-9)
	assert.InDelta(t, 100.0, out.Records[1].Normalized["fouls"], 1e-9)

	_, ok := summary.Advisory(AdvisorySkippedIndicators)
	assert.False(t, ok)
	missing, ok := summary.Advisory(AdvisoryMissingIndicators)
	require.True(t, ok)
	assert.Equal(t, []string{"assists"}, missing.Sample)
}

func TestNormalizer_NonNumericColumnProducesNoValues(t *testing.T) {
	t.Parallel()

	ds := normalizeFixture()
	catalog := weight.NewCatalog([]weight.Entry{entry("label", "", "", weight.DirectionUp, nil)}, ds.ColumnSet())

	out, results, _, err := NewNormalizer(nil, 1).Normalize(context.Background(), ds, catalog)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, IndicatorNormalized, results[0].Status)
	assert.Zero(t, results[0].Values)
	assert.Nil(t, results[0].Mean)
	for _, rec := range out.Records {
		assert.Empty(t, rec.Normalized)
	}
}

func TestNormalizer_UnmappedRecordsGroupByCompetition(t *testing.T) {
	t.Parallel()

	columns := []string{player.ColCompetitionID, "goals"}
	ds := newDataset(columns,
		map[string]string{"competition_id": "1", "goals": "1"},
		map[string]string{"competition_id": "1", "goals": "3"},
		map[string]string{"competition_id": "2", "goals": "8"},
	)
	catalog := weight.NewCatalog([]weight.Entry{entry("goals", "", "", weight.DirectionUp, nil)}, ds.ColumnSet())

	out, _, _, err := NewNormalizer(nil, 1).Normalize(context.Background(), ds, catalog)
	require.NoError(t, err)
	assert.Equal(t, 0.0, out.Records[0].Normalized["goals"])
	assert.Equal(t, 100.0, out.Records[1].Normalized["goals"])
	assert.Equal(t, 50.0, out.Records[2].Normalized["goals"])
}

func TestParseIndicator(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		want float64
		ok   bool
	}{
		"12":    {12, true},
		" 1.5 ": {1.5, true},
		"1,5":   {1.5, true},
		"-0,25": {-0.25, true},
		"0,125": {0.125, true},
		"1,234": {0, false},
		"1,2,3": {0, false},
		"1.5,2": {0, false},
		"3,":    {0, false},
		"":      {0, false},
		"NaN":   {0, false},
		"Inf":   {0, false},
		"abc":   {0, false},
	}
	for raw, want := range cases {
		got, ok := ParseIndicator(raw)
		assert.Equal(t, want.ok, ok, raw)
		assert.Equal(t, want.want, got, raw)
	}
}

func TestNormalizeIndicatorSafe_RecoversPanic(t *testing.T) {
	t.Parallel()

	groups := []peerGroup{{key: "x", members: []int{3}}}
	row, values := normalizeIndicatorSafe([]player.Record{{}}, groups, "goals", weight.DirectionUp)
	assert.Equal(t, IndicatorSkipped, row.Status)
	assert.Contains(t, row.Reason, "panic")
	assert.Nil(t, values)
}
