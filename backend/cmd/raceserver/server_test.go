package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bikerace/backend/internal/shared/logger"
	"bikerace/backend/internal/shared/types"
	"bikerace/backend/internal/simulation"
	"bikerace/backend/internal/track"
)

func newTestServer(t *testing.T) *server {
	t.Helper()
	race, err := simulation.NewRace("r1", track.Default(), nil)
	require.NoError(t, err)
	return &server{
		log:     logger.Nop(),
		race:    race,
		events:  newEventLog(),
		clients: make(map[string]*client),
	}
}

func TestReconnectKeepsNewConnection(t *testing.T) {
	s := newTestServer(t)
	_, err := s.race.EnsurePlayer("p1", "p1", "")
	require.NoError(t, err)

	first := &client{playerID: "p1", send: make(chan []byte, 4)}
	assert.Nil(t, s.register(first))
	second := &client{playerID: "p1", send: make(chan []byte, 4)}
	assert.Same(t, first, s.register(second))

	// The replaced connection tears down after the new one registered.
	s.unregister(first)
	_, open := <-first.send
	assert.False(t, open)
	assert.Same(t, second, s.clients["p1"])
	assert.Equal(t, 1, s.race.HumanCount())

	s.enqueue(second, types.ServerEnvelope{Type: "pong"})
	assert.Len(t, second.send, 1)

	s.unregister(second)
	assert.Empty(t, s.clients)
	assert.Equal(t, 0, s.race.HumanCount())
}
