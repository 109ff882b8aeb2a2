package powerup

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bikerace/backend/internal/shared/vecmath"
)

func TestCollectIsIdempotent(t *testing.T) {
	p := New(1, Shield, vecmath.New(3, 4))
	require.False(t, p.IsCollected())

	assert.True(t, p.Collect())
	assert.False(t, p.Collect())
	assert.True(t, p.IsCollected())
}

func TestConcurrentCollectHasOneWinner(t *testing.T) {
	p := New(1, NitroBoost, vecmath.New(0, 0))
	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if p.Collect() {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestRespawnAfterDelay(t *testing.T) {
	p := New(1, Missile, vecmath.New(0, 0))
	assert.False(t, p.Update(1), "uncollected pickups do not tick")
	require.True(t, p.Collect())

	for range 7 {
		assert.False(t, p.Update(1))
	}
	assert.True(t, p.Update(1))
	assert.False(t, p.IsCollected())
	assert.True(t, p.Collect())
}

func TestParseTypeAcceptsLooseSpellings(t *testing.T) {
	for _, ty := range All() {
		got, err := ParseType(ty.String())
		require.NoError(t, err)
		assert.Equal(t, ty, got)
	}
	got, err := ParseType("SPEED_BURST")
	require.NoError(t, err)
	assert.Equal(t, SpeedBurst, got)
	got, err = ParseType("oil-slick")
	require.NoError(t, err)
	assert.Equal(t, OilSlick, got)
	_, err = ParseType("banana")
	assert.Error(t, err)
}

func TestDurationsAndHeldItems(t *testing.T) {
	assert.Equal(t, 3.0, NitroBoost.Duration())
	assert.Equal(t, 5.0, Shield.Duration())
	assert.Equal(t, 2.0, SpeedBurst.Duration())
	assert.True(t, JumpBoost.Held())
	assert.True(t, OilSlick.Held())
	assert.False(t, Shield.Held())
	assert.Equal(t, HoldDuration, Missile.Duration())
}

func TestCollisionBoxCentredOnPosition(t *testing.T) {
	p := New(1, Shield, vecmath.New(10, -2))
	box := p.CollisionBox()
	assert.True(t, box.Center().Equal(p.Position))
	assert.InDelta(t, 2*HalfSize, box.Width(), 1e-9)
}
