package usecase

import (
	"github.com/riskibarqy/scout-scoring/internal/domain/player"
	"github.com/riskibarqy/scout-scoring/internal/domain/position"
	"github.com/riskibarqy/scout-scoring/internal/domain/weight"
)

func newDataset(columns []string, rows ...map[string]string) player.Dataset {
	ds := player.Dataset{Columns: columns}
	for _, row := range rows {
		ds.Records = append(ds.Records, player.Record{Cells: row})
	}
	return ds
}

func mustPositionTable(entries map[string]position.Mapping) *position.Table {
	table, err := position.NewTable(entries)
	if err != nil {
		panic(err)
	}
	return table
}

func defaultPositionTable() *position.Table {
	return mustPositionTable(map[string]position.Mapping{
		"Goalkeeper":         {Position: "GK", Group: "Goalkeeper", SubGroup: "Goalkeeper"},
		"Right Centre Back":  {Position: "RCB", Group: "Defender", SubGroup: "Centre Back"},
		"Centre Forward":     {Position: "CF", Group: "Forward", SubGroup: "Striker"},
		"Left Wing":          {Position: "LW", Group: "Forward", SubGroup: "Winger"},
		"Sweeper":            {Position: "SW", Group: "Defender", SubGroup: "Libero"},
		"Central Midfielder": {Position: "CM", Group: "Midfielder", SubGroup: "Central"},
	})
}

func positioned(rec player.Record, pos player.Position, group string) player.Record {
	rec.MappedPosition = &pos
	rec.PositionGroup = &group
	return rec
}

func ptrFloat(v float64) *float64 {
	return &v
}

func entry(indicator, category, sub string, direction weight.Direction, weights map[player.Position]float64) weight.Entry {
	return weight.Entry{
		Indicator:   indicator,
		Category:    category,
		SubCategory: sub,
		Consider:    weight.ConsiderYes,
		Direction:   direction,
		Weights:     weights,
	}
}
