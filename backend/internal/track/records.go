package track

import (
	"sort"
	"time"
)

// MaxLapRecords is the number of best laps a track remembers.
const MaxLapRecords = 10

type LapRecord struct {
	Player  string    `json:"player"`
	Seconds float64   `json:"seconds"`
	At      time.Time `json:"at"`
}

// RecordLap offers a lap time to the board and returns its rank (0 is the
// fastest), or -1 when it did not make the top ten.
func (t *Track) RecordLap(player string, seconds float64, at time.Time) int {
	if !(seconds > 0) {
		return -1
	}
	rank := sort.Search(len(t.records), func(i int) bool {
		return t.records[i].Seconds > seconds
	})
	if rank >= MaxLapRecords {
		return -1
	}
	t.records = append(t.records, LapRecord{})
	copy(t.records[rank+1:], t.records[rank:])
	t.records[rank] = LapRecord{Player: player, Seconds: seconds, At: at}
	if len(t.records) > MaxLapRecords {
		t.records = t.records[:MaxLapRecords]
	}
	return rank
}

// BestLaps returns the board, fastest first.
func (t *Track) BestLaps() []LapRecord {
	out := make([]LapRecord, len(t.records))
	copy(out, t.records)
	return out
}
