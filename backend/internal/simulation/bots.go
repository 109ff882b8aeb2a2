package simulation

import (
	"fmt"
	"math"

	"bikerace/backend/internal/powerup"
	"bikerace/backend/internal/shared/types"
	"bikerace/backend/internal/track"
	"bikerace/backend/internal/vehicle"
)

const (
	// BotLookahead is how far along the centerline a bot aims.
	BotLookahead = 12.0
	// BotSteerNormalization is the heading error (rad) that gives full lock.
	BotSteerNormalization = 0.6

	botSlowAngle      = 1.2
	botHandbrakeAngle = 1.0
	botHandbrakeSpeed = 5.0
	botStraightAngle  = 0.15
)

// FillWithBots adds bots until the race has total riders and returns the new
// bot IDs. Archetypes rotate so the field is mixed.
func (r *Race) FillWithBots(total int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	archetypes := vehicle.Archetypes()
	var added []string
	for len(r.riders) < total {
		r.botCount++
		id := fmt.Sprintf("bot_%d", r.botCount)
		if _, taken := r.riders[id]; taken {
			continue
		}
		a := archetypes[(r.botCount-1)%len(archetypes)]
		if _, err := r.addRider(RiderSpawn{
			PlayerID:    id,
			DisplayName: fmt.Sprintf("Bot %d", r.botCount),
			Archetype:   a.String(),
			IsBot:       true,
		}); err != nil {
			// Archetypes() only lists valid archetypes.
			panic(err)
		}
		added = append(added, id)
	}
	return added
}

// RemoveAllBots removes every bot, used when enough humans are available.
func (r *Race) RemoveAllBots() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range append([]string(nil), r.order...) {
		if r.riders[id].isBot {
			r.removeRider(id)
		}
	}
}

func (r *Race) computeBotInputs() {
	now := r.nowMS()
	for _, id := range r.order {
		rd := r.riders[id]
		if !rd.isBot {
			continue
		}
		in := botInputFor(rd.v, r.track)
		in.PlayerID = id
		in.Sequence = r.tick
		in.ClientMS = now
		rd.input = in
	}
}

// botInputFor chases a point a little way down the centerline and fires any
// usable power-up on the straights.
func botInputFor(v *vehicle.Vehicle, tr *track.Track) types.RiderInput {
	pos := v.Position()
	target := tr.PointAt(tr.GetProgress(pos) + BotLookahead/math.Max(tr.Length(), 1))
	if tr.Length() == 0 {
		if cp, ok := tr.Checkpoint(v.NextCheckpoint()); ok {
			target = cp.Center()
		}
	}

	to := target.Sub(pos)
	delta := normalizeSigned(to.Angle() - v.Rotation())
	steer := clamp(delta/BotSteerNormalization, -1, 1)

	throttle := 1.0
	if math.Abs(delta) > botSlowAngle {
		throttle = 0.35
	}
	handbrake := math.Abs(delta) > botHandbrakeAngle && v.Speed() > botHandbrakeSpeed
	straight := math.Abs(delta) < botStraightAngle

	in := types.RiderInput{
		Throttle:  throttle,
		Steer:     steer,
		Handbrake: handbrake,
	}
	if e, ok := v.ActiveEffect(); ok {
		switch e.Type {
		case powerup.NitroBoost:
			in.Boost = straight
			in.UsePowerUp = straight
		case powerup.JumpBoost, powerup.Missile, powerup.OilSlick:
			in.UsePowerUp = straight
		}
	}
	return in
}

// normalizeSigned wraps an angle to [-pi, pi].
func normalizeSigned(a float64) float64 {
	if math.IsNaN(a) || math.IsInf(a, 0) {
		return 0
	}
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}
