package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/riskibarqy/scout-scoring/internal/config"
	"github.com/riskibarqy/scout-scoring/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func fixtureConfig(t *testing.T) config.Config {
	t.Helper()
	base := t.TempDir()

	writeFile(t, filepath.Join(base, "scouts", "premier_league.csv"),
		"player_id,competition_id,team_id,primary_position,player_name,goals,fouls\n"+
			"1,2,10,Centre Forward,Ana,10,3\n"+
			"2,2,11,Centre Forward,Bia,5,1\n"+
			"3,2,12,Goalkeeper,Cris,0,0\n")
	writeFile(t, filepath.Join(base, "weights.csv"),
		"INDICADOR,CLASSIFICACAO RANKING,SUBCLASSIFICACAO RANKING,CONSIDERAR?,Melhor para,GK,CF\n"+
			"goals,Offensive,Finishing,SIM,CIMA,0,2\n"+
			"fouls,Defensive,Discipline,SIM,BAIXO,1,1\n"+
			"xg,Offensive,Finishing,NÃO,CIMA,0,1\n")
	writeFile(t, filepath.Join(base, "positions.yaml"), `position_mapping:
  Goalkeeper: {position: GK, position_group: Goalkeeper, position_sub_group: Goalkeeper}
  Centre Forward: {position: CF, position_group: Forward, position_sub_group: Striker}
`)

	return config.Config{
		AppEnv:        config.EnvDev,
		ServiceName:   "scout-scoring",
		BaseDir:       base,
		ScoutsDir:     "scouts",
		WeightsFile:   "weights.csv",
		PositionsFile: "positions.yaml",
		OutputDir:     "out",
		ExportFormat:  "csv",
		Workers:       2,
	}
}

func TestApp_ExecuteWritesOutputs(t *testing.T) {
	cfg := fixtureConfig(t)

	a, err := New(cfg, "run-1")
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })

	rep, err := a.Execute(context.Background(), usecase.StageLoad)
	require.NoError(t, err)
	assert.Equal(t, usecase.RunSucceeded, rep.Status)
	assert.Len(t, rep.Stages, len(usecase.Stages))

	out := a.Run.OutputDir
	for _, name := range []string{
		"consolidated_overall.csv",
		"consolidated_weights.csv",
		"consolidated_context.csv",
		"consolidated_normalized.csv",
		"_run_report.json",
		RunLogName("run-1"),
	} {
		_, err := os.Stat(filepath.Join(out, name))
		assert.NoError(t, err, name)
	}

	resumed, err := a.Execute(context.Background(), usecase.StageScore)
	require.NoError(t, err)
	assert.Equal(t, usecase.StageScore, resumed.From)
	assert.Len(t, resumed.Stages, 2)
}

func TestApp_ExecuteMissingScouts(t *testing.T) {
	cfg := fixtureConfig(t)
	cfg.ScoutsDir = "nowhere"

	a, err := New(cfg, "run-2")
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })

	rep, err := a.Execute(context.Background(), "")
	require.Error(t, err)

	var stageErr *usecase.StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, usecase.StageLoad, stageErr.Stage)
	assert.Equal(t, usecase.RunFailed, rep.Status)

	_, statErr := os.Stat(filepath.Join(a.Run.OutputDir, "_run_report.json"))
	assert.NoError(t, statErr)
}

func TestNew_InvalidRunConfig(t *testing.T) {
	cfg := fixtureConfig(t)
	cfg.ExportFormat = "pdf"

	_, err := New(cfg, "run-3")
	assert.Error(t, err)
}
