package checkpoint

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/riskibarqy/scout-scoring/internal/domain/player"
	"github.com/riskibarqy/scout-scoring/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() player.Dataset {
	pos := player.PositionCF
	group := "Forward"
	match := time.Date(2024, 5, 19, 0, 0, 0, 0, time.UTC)
	score := 66.66666666666667
	rank := 3
	return player.Dataset{
		Columns: []string{player.ColPlayerID, "goals"},
		Records: []player.Record{{
			Cells:           map[string]string{player.ColPlayerID: "1", "goals": "0.1"},
			MappedPosition:  &pos,
			PositionGroup:   &group,
			UniqueKey:       "1_10_7",
			Current:         true,
			MostRecentMatch: &match,
			Normalized:      map[string]float64{"goals": 1.0 / 3.0},
			OverallScore:    &score,
			RankOverall:     &rank,
		}},
	}
}

func TestFSStore_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, compress := range []bool{true, false} {
		compress := compress
		t.Run(map[bool]string{true: "gzip", false: "plain"}[compress], func(t *testing.T) {
			t.Parallel()

			store := NewFSStore(t.TempDir(), compress)
			want := sampleDataset()
			require.NoError(t, store.Save(context.Background(), usecase.CheckpointScoutsScored, want))

			var got player.Dataset
			require.NoError(t, store.Load(context.Background(), usecase.CheckpointScoutsScored, &got))
			assert.Equal(t, want, got)

			_, err := os.Stat(store.Path(usecase.CheckpointScoutsScored))
			require.NoError(t, err)
		})
	}
}

func TestFSStore_LoadMissing(t *testing.T) {
	t.Parallel()

	store := NewFSStore(t.TempDir(), true)
	var ds player.Dataset
	err := store.Load(context.Background(), usecase.CheckpointScoutsRaw, &ds)
	if !errors.Is(err, usecase.ErrCheckpointMissing) {
		t.Fatalf("expected ErrCheckpointMissing, got %v", err)
	}
}

func TestFSStore_SwitchingCompressionReplacesFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, NewFSStore(dir, false).Save(context.Background(), "_temp_x", []int{1}))
	require.NoError(t, NewFSStore(dir, true).Save(context.Background(), "_temp_x", []int{2}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "_temp_x.json.gz", entries[0].Name())

	var got []int
	require.NoError(t, NewFSStore(dir, false).Load(context.Background(), "_temp_x", &got))
	assert.Equal(t, []int{2}, got)
}

func TestFSStore_WriteReport(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := NewFSStore(dir, true)
	path, err := store.WriteReport(context.Background(), usecase.RunReportName, usecase.RunReport{RunID: "run-1", Status: usecase.RunSucceeded})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "_run_report.json"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(raw), `"run_id": "run-1"`))
}

func TestFSStore_RejectsBadNames(t *testing.T) {
	t.Parallel()

	store := NewFSStore(t.TempDir(), false)
	for _, name := range []string{"", "  ", "../escape", `a\b`} {
		err := store.Save(context.Background(), name, 1)
		assert.ErrorIs(t, err, usecase.ErrInvalidInput, name)
	}
}

func TestFSStore_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := NewFSStore(t.TempDir(), false)
	assert.ErrorIs(t, store.Save(ctx, "_temp_x", 1), context.Canceled)
}
