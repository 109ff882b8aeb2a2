package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bikerace/backend/internal/shared/types"
)

func TestEventLogKeepsMostRecent(t *testing.T) {
	s := newEventLog()
	for i := range maxRecentEvents + 10 {
		s.ingest(types.GameplayEvent{Type: types.EventCheckpoint, Checkpoint: i})
	}
	s.ingest(types.GameplayEvent{Type: types.EventLap, Lap: 1})

	recent := s.listRecent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, types.EventCheckpoint, recent[0].Type)
	assert.Equal(t, maxRecentEvents+9, recent[0].Checkpoint)
	assert.Equal(t, types.EventLap, recent[1].Type)

	assert.Len(t, s.listRecent(0), maxRecentEvents)

	sum := s.summary()
	assert.Equal(t, int64(maxRecentEvents+11), sum.Total)
	assert.Equal(t, int64(maxRecentEvents+10), sum.ByType[types.EventCheckpoint])
	assert.Equal(t, int64(1), sum.ByType[types.EventLap])
}

func TestSummaryIsACopy(t *testing.T) {
	s := newEventLog()
	s.ingest(types.GameplayEvent{Type: types.EventDamage})
	sum := s.summary()
	sum.ByType[types.EventDamage] = 99
	assert.Equal(t, int64(1), s.summary().ByType[types.EventDamage])
}
