package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"

	"bikerace/backend/internal/shared/types"
	"bikerace/backend/internal/track"
)

func lapTime(ms int64) string {
	if ms <= 0 {
		return "-"
	}
	return fmt.Sprintf("%d:%06.3f", ms/60000, float64(ms%60000)/1000)
}

// standings orders riders by their race position.
func standings(state types.RaceState) []types.RiderState {
	out := make([]types.RiderState, 0, len(state.Riders))
	for _, rd := range state.Riders {
		out = append(out, rd)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Place != out[j].Place {
			return out[i].Place < out[j].Place
		}
		return out[i].PlayerID < out[j].PlayerID
	})
	return out
}

func renderStandings(w io.Writer, state types.RaceState) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle("%s - %d laps - %s", state.Track, state.Laps, lapTime(state.ElapsedMS))
	t.AppendHeader(table.Row{"Pos", "Rider", "Bike", "Laps", "Best lap", "Finish", "Health"})
	for _, rd := range standings(state) {
		finish := "DNF"
		if rd.Finished {
			finish = lapTime(rd.FinishMS)
		}
		t.AppendRow(table.Row{
			rd.Place,
			rd.DisplayName,
			rd.Archetype,
			fmt.Sprintf("%d/%d", rd.Lap, state.Laps),
			lapTime(rd.BestLapMS),
			finish,
			fmt.Sprintf("%.0f", rd.Health),
		})
	}
	t.Render()
}

func renderRecords(w io.Writer, trackName string, records []track.LapRecord) {
	if len(records) == 0 {
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle("Lap records: %s", trackName)
	t.AppendHeader(table.Row{"#", "Rider", "Time"})
	for i, rec := range records {
		t.AppendRow(table.Row{i + 1, rec.Player, lapTime(int64(rec.Seconds * 1000))})
	}
	t.Render()
}
