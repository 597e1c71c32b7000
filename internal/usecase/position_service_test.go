package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/riskibarqy/scout-scoring/internal/domain/player"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var positionColumns = []string{
	player.ColPlayerID, player.ColCompetitionID, player.ColTeamID, player.ColPrimaryPosition,
}

func TestMapLabel(t *testing.T) {
	t.Parallel()

	table := defaultPositionTable()
	cases := []struct {
		name     string
		raw      string
		wantPos  string
		wantFind bool
	}{
		{name: "exact", raw: "Goalkeeper", wantPos: "GK", wantFind: true},
		{name: "trimmed exact", raw: "  Centre Forward ", wantPos: "CF", wantFind: true},
		{name: "case fallback", raw: "left WING", wantPos: "LW", wantFind: true},
		{name: "empty", raw: "", wantFind: false},
		{name: "blank", raw: "   ", wantFind: false},
		{name: "sentinel", raw: player.NoPositionSentinel, wantFind: false},
		{name: "unknown", raw: "False Nine", wantFind: false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, ok := MapLabel(tc.raw, table)
			if ok != tc.wantFind {
				t.Fatalf("unexpected found flag: got=%v want=%v", ok, tc.wantFind)
			}
			if got.Position != tc.wantPos {
				t.Fatalf("unexpected position: got=%q want=%q", got.Position, tc.wantPos)
			}
			again, _ := MapLabel(tc.raw, table)
			if again != got {
				t.Fatalf("mapping not deterministic: %+v vs %+v", got, again)
			}
		})
	}
}

func TestPositionMapper_Map(t *testing.T) {
	t.Parallel()

	ds := newDataset(positionColumns,
		map[string]string{"player_id": "1", "competition_id": "10", "team_id": "7", "primary_position": "Goalkeeper"},
		map[string]string{"player_id": "2", "competition_id": "10", "team_id": "7", "primary_position": ""},
		map[string]string{"player_id": "3", "competition_id": "10", "team_id": "7", "primary_position": "Sweeper"},
		map[string]string{"player_id": "4", "competition_id": "10", "team_id": "7", "primary_position": "False Nine"},
		map[string]string{"player_id": "5", "competition_id": "10", "team_id": "7"},
	)

	out, summary, err := NewPositionMapper(nil).Map(context.Background(), ds, defaultPositionTable())
	require.NoError(t, err)
	require.Len(t, out.Records, len(ds.Records))

	require.NotNil(t, out.Records[0].MappedPosition)
	assert.Equal(t, player.PositionGK, *out.Records[0].MappedPosition)
	assert.Equal(t, "Goalkeeper", *out.Records[0].PositionGroup)

	assert.Nil(t, out.Records[1].MappedPosition)
	assert.Nil(t, out.Records[1].PositionGroup)
	assert.Nil(t, out.Records[1].PositionSubGroup)
	assert.Equal(t, player.NoPositionSentinel, out.Records[1].Cells[player.ColPrimaryPosition])
	assert.Equal(t, player.NoPositionSentinel, out.Records[4].Cells[player.ColPrimaryPosition])

	require.NotNil(t, out.Records[2].MappedPosition)
	assert.Equal(t, player.Position("SW"), *out.Records[2].MappedPosition)

	assert.Equal(t, 2, summary.Counts["mapped"])
	assert.Equal(t, 3, summary.Counts["unmapped"])

	nonCanonical, ok := summary.Advisory(AdvisoryNonCanonicalPositions)
	require.True(t, ok)
	assert.Equal(t, []string{"SW"}, nonCanonical.Sample)

	unmapped, ok := summary.Advisory(AdvisoryUnmappedRecords)
	require.True(t, ok)
	assert.Equal(t, 3, unmapped.Count)

	assert.Empty(t, ds.Records[1].Cells[player.ColPrimaryPosition], "input must stay untouched")
	assert.Nil(t, ds.Records[0].MappedPosition)
}

func TestPositionMapper_MapMissingColumns(t *testing.T) {
	t.Parallel()

	ds := newDataset([]string{player.ColPlayerID}, map[string]string{"player_id": "1"})
	_, _, err := NewPositionMapper(nil).Map(context.Background(), ds, defaultPositionTable())
	if !errors.Is(err, ErrMissingRequiredFields) {
		t.Fatalf("expected ErrMissingRequiredFields, got %v", err)
	}
	for _, col := range []string{player.ColCompetitionID, player.ColPrimaryPosition, player.ColTeamID} {
		assert.Contains(t, err.Error(), col)
	}
}

func TestPositionMapper_MapRequiresTable(t *testing.T) {
	t.Parallel()

	ds := newDataset(positionColumns)
	_, _, err := NewPositionMapper(nil).Map(context.Background(), ds, nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
