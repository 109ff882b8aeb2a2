package simulation

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"bikerace/backend/internal/collision"
	"bikerace/backend/internal/metrics"
	"bikerace/backend/internal/powerup"
	"bikerace/backend/internal/shared/types"
	"bikerace/backend/internal/shared/vecmath"
	"bikerace/backend/internal/terrain"
	"bikerace/backend/internal/track"
	"bikerace/backend/internal/vehicle"
)

const (
	DefaultLaps = 3

	// RespawnDelay is how long a wrecked vehicle stays down.
	RespawnDelay = 2.0

	// OilSlickOffset places a deployed slick behind the rider.
	OilSlickOffset = 3.0
)

// RiderSpawn defines a rider present at race creation.
type RiderSpawn struct {
	PlayerID    string
	DisplayName string
	Archetype   string
	IsBot       bool
}

// Observer receives every gameplay event after the tick that produced it.
type Observer func(types.GameplayEvent)

type Option func(*Race)

func WithLaps(n int) Option {
	return func(r *Race) {
		if n > 0 {
			r.laps = n
		}
	}
}

// WithDuration ends the race after d of simulated time. Zero means no limit.
func WithDuration(d time.Duration) Option {
	return func(r *Race) { r.duration = d }
}

// WithParallelCollisions resolves each vehicle's collision pass on its own
// goroutine. Track mutations still wait for every pass to finish.
func WithParallelCollisions(on bool) Option {
	return func(r *Race) { r.parallel = on }
}

func WithLogger(l zerolog.Logger) Option {
	return func(r *Race) { r.log = l }
}

func WithMetrics(m *metrics.Race) Option {
	return func(r *Race) { r.metrics = m }
}

func WithObserver(o Observer) Option {
	return func(r *Race) { r.observer = o }
}

// rider is the race's bookkeeping around one vehicle.
type rider struct {
	id          string
	displayName string
	isBot       bool
	slot        int
	v           *vehicle.Vehicle

	input     types.RiderInput
	lastInput types.RiderInput

	lapStartMS int64
	bestLapMS  int64
	finished   bool
	finishMS   int64
	wreckedFor float64
	place      int
}

// strike is a missile hit waiting for the collision barrier.
type strike struct {
	shooter *rider
	target  *rider
}

// Race is the authoritative simulation of one race on one track.
type Race struct {
	mu sync.RWMutex

	id        string
	track     *track.Track
	createdAt time.Time
	laps      int
	duration  time.Duration
	parallel  bool

	tick     uint64
	elapsed  float64
	finished bool

	riders   map[string]*rider
	order    []string
	pickups  []*powerup.PowerUp
	events   []types.GameplayEvent
	botCount int

	// Track and cross-rider effects of power-ups used this tick. They are
	// applied after every rider's collision pass.
	oil     []collision.Deformation
	strikes []strike

	log      zerolog.Logger
	metrics  *metrics.Race
	observer Observer
}

// NewRace places riders on the grid in the given order and spawns the
// track's power-ups.
func NewRace(raceID string, tr *track.Track, riders []RiderSpawn, opts ...Option) (*Race, error) {
	r := &Race{
		id:        raceID,
		track:     tr,
		createdAt: time.Now().UTC(),
		laps:      DefaultLaps,
		riders:    make(map[string]*rider, len(riders)),
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	for i, sp := range tr.PowerUpSpawns() {
		t, err := powerup.ParseType(sp.Type)
		if err != nil {
			return nil, fmt.Errorf("spawn %d: %w", i, err)
		}
		r.pickups = append(r.pickups, powerup.New(i+1, t, sp.Position))
	}

	for _, sp := range riders {
		if _, err := r.addRider(sp); err != nil {
			return nil, err
		}
	}

	r.events = append(r.events, types.GameplayEvent{Type: types.EventRaceStart})
	r.log.Info().Str("race", raceID).Str("track", tr.Name()).Int("riders", len(r.riders)).Int("laps", r.laps).Msg("race created")
	return r, nil
}

func (r *Race) nowMS() int64 {
	return int64(math.Round(r.elapsed * 1000))
}

func (r *Race) freeSlot() int {
	used := make(map[int]bool, len(r.riders))
	for _, rd := range r.riders {
		used[rd.slot] = true
	}
	slot := 0
	for used[slot] {
		slot++
	}
	return slot
}

func (r *Race) addRider(sp RiderSpawn) (*rider, error) {
	name := sp.Archetype
	if name == "" {
		name = vehicle.AllRounder.String()
	}
	a, err := vehicle.ParseArchetype(name)
	if err != nil {
		return nil, fmt.Errorf("rider %q: %w", sp.PlayerID, err)
	}
	display := sp.DisplayName
	if display == "" {
		display = sp.PlayerID
	}
	slot := r.freeSlot()
	v, err := vehicle.New(display, a, vehicle.WithPlacement(r.track.GetStartPosition(slot), r.track.StartHeading()))
	if err != nil {
		return nil, err
	}
	rd := &rider{
		id:          sp.PlayerID,
		displayName: display,
		isBot:       sp.IsBot,
		slot:        slot,
		v:           v,
		lapStartMS:  r.nowMS(),
	}
	r.riders[sp.PlayerID] = rd
	r.order = append(r.order, sp.PlayerID)
	sort.Strings(r.order)
	r.emit(types.GameplayEvent{Type: types.EventPlayerJoin, PlayerID: sp.PlayerID})
	r.log.Debug().Str("player", sp.PlayerID).Str("archetype", a.String()).Int("slot", slot).Bool("bot", sp.IsBot).Msg("rider joined")
	return rd, nil
}

func (r *Race) removeRider(id string) {
	delete(r.riders, id)
	i := sort.SearchStrings(r.order, id)
	if i < len(r.order) && r.order[i] == id {
		r.order = append(r.order[:i], r.order[i+1:]...)
	}
	r.emit(types.GameplayEvent{Type: types.EventPlayerLeave, PlayerID: id})
}

func (r *Race) emit(ev types.GameplayEvent) {
	ev.OccurredMS = r.nowMS()
	r.events = append(r.events, ev)
}

// ApplyInput stores the latest input for the player. Input for unknown
// players is dropped.
func (r *Race) ApplyInput(in types.RiderInput) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rd, ok := r.riders[in.PlayerID]
	if !ok || rd.isBot {
		return
	}
	rd.input = clampInput(in)
}

// Tick advances the race by one fixed step of dt seconds. A finished race
// does not advance.
func (r *Race) Tick(dt float64) {
	r.mu.Lock()
	if r.finished || !(dt > 0) || math.IsInf(dt, 0) {
		r.mu.Unlock()
		return
	}

	r.tick++
	r.events = r.events[:0]
	r.elapsed += dt
	r.computeBotInputs()

	for _, id := range r.order {
		r.stepRider(r.riders[id], dt)
	}

	contacts := r.resolveCollisions(dt)

	r.track.UpdateDeformation(dt)
	for _, p := range r.pickups {
		if p.Update(dt) {
			r.emit(types.GameplayEvent{Type: types.EventPowerUpRespawned, PowerUpID: p.ID, PowerUp: p.Type.String()})
		}
	}

	for _, id := range r.order {
		r.updateProgress(r.riders[id], dt)
	}
	r.rank()
	r.checkFinished()

	events := make([]types.GameplayEvent, len(r.events))
	copy(events, r.events)
	observer := r.observer
	r.mu.Unlock()

	r.metrics.Tick(contacts)
	for _, ev := range events {
		r.metrics.Event(ev.Type)
		if ev.Type == types.EventPowerUpCollected {
			r.metrics.Pickup(ev.PowerUp)
		}
		if observer != nil {
			observer(ev)
		}
	}
}

// stepRider feeds input to the vehicle, triggers power-up use and runs the
// dynamics step.
func (r *Race) stepRider(rd *rider, dt float64) {
	in := rd.input
	if rd.finished {
		in = types.RiderInput{PlayerID: rd.id}
	}
	v := rd.v
	v.HandleInput(vehicle.Input{
		Throttle:  in.Throttle,
		Steer:     in.Steer,
		Boost:     in.Boost,
		Handbrake: in.Handbrake,
	})

	if in.UsePowerUp && !rd.lastInput.UsePowerUp {
		r.usePowerUp(rd)
	}

	before, had := v.ActiveEffect()
	v.Update(dt, r.track)
	if _, has := v.ActiveEffect(); had && !has {
		r.emit(types.GameplayEvent{Type: types.EventEffectExpired, PlayerID: rd.id, PowerUp: before.Type.String()})
	}
	rd.lastInput = in
}

func (r *Race) usePowerUp(rd *rider) {
	v := rd.v
	switch v.UsePowerUp() {
	case vehicle.ActionNitro:
		r.emit(types.GameplayEvent{Type: types.EventNitro, PlayerID: rd.id, PowerUp: powerup.NitroBoost.String()})
	case vehicle.ActionJump:
		r.emit(types.GameplayEvent{Type: types.EventJump, PlayerID: rd.id, PowerUp: powerup.JumpBoost.String(), Amount: powerup.JumpBoostPower})
	case vehicle.ActionMissile:
		r.fireMissile(rd)
	case vehicle.ActionOilSlick:
		r.oil = append(r.oil, collision.Deformation{
			Position:  v.Position().Sub(vecmath.FromAngle(v.Rotation()).Scale(OilSlickOffset)),
			Radius:    powerup.OilSlickRadius,
			Intensity: powerup.OilSlickIntensity,
			Lifetime:  powerup.OilSlickDuration,
		})
		r.emit(types.GameplayEvent{Type: types.EventOilDeployed, PlayerID: rd.id, PowerUp: powerup.OilSlick.String()})
	}
}

// fireMissile locks onto the nearest rider in front of the shooter within
// MissileRange. The hit lands at the collision barrier.
func (r *Race) fireMissile(shooter *rider) {
	pos := shooter.v.Position()
	fwd := vecmath.FromAngle(shooter.v.Rotation())
	var (
		target *rider
		best   = powerup.MissileRange
	)
	for _, id := range r.order {
		rd := r.riders[id]
		if rd == shooter || rd.v.IsWrecked() {
			continue
		}
		to := rd.v.Position().Sub(pos)
		if to.Dot(fwd) <= 0 {
			continue
		}
		if d := to.Length(); d <= best {
			best = d
			target = rd
		}
	}
	if target == nil {
		r.emit(types.GameplayEvent{Type: types.EventMissileMiss, PlayerID: shooter.id, PowerUp: powerup.Missile.String()})
		return
	}
	r.strikes = append(r.strikes, strike{shooter: shooter, target: target})
}

func (r *Race) landMissile(s strike) {
	shooter, target := s.shooter, s.target
	if target.v.IsWrecked() {
		r.emit(types.GameplayEvent{Type: types.EventMissileMiss, PlayerID: shooter.id, PowerUp: powerup.Missile.String()})
		return
	}
	applied, absorbed := target.v.TakeDamage(powerup.MissileDamage)
	if absorbed {
		r.emit(types.GameplayEvent{Type: types.EventShieldAbsorbed, PlayerID: target.id, TargetID: shooter.id, Amount: powerup.MissileDamage})
		return
	}
	target.v.Stun(powerup.MissileStun)
	r.emit(types.GameplayEvent{Type: types.EventMissileHit, PlayerID: shooter.id, TargetID: target.id, Amount: applied})
	if target.v.IsWrecked() {
		r.emit(types.GameplayEvent{Type: types.EventWrecked, PlayerID: target.id, TargetID: shooter.id})
		r.log.Debug().Str("player", target.id).Str("by", shooter.id).Msg("rider wrecked by missile")
	}
}

// resolveCollisions runs every vehicle's collision pass, then applies the
// queued track mutations and missile hits in rider order. It returns the
// number of obstacle contacts.
func (r *Race) resolveCollisions(dt float64) int {
	now := r.nowMS()
	outcomes := make([]collision.Outcome, len(r.order))

	if r.parallel && len(r.order) > 1 {
		var g errgroup.Group
		for i, id := range r.order {
			v := r.riders[id].v
			g.Go(func() error {
				outcomes[i] = collision.Resolve(id, v, r.track, r.pickups, dt, now)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, id := range r.order {
			outcomes[i] = collision.Resolve(id, r.riders[id].v, r.track, r.pickups, dt, now)
		}
	}

	contacts := 0
	for i, out := range outcomes {
		contacts += out.Contacts
		r.events = append(r.events, out.Events...)
		for _, ev := range out.Events {
			if ev.Type == types.EventWrecked {
				r.log.Debug().Str("player", r.order[i]).Int("obstacle", ev.ObstacleID).Msg("rider wrecked")
			}
		}
		for _, d := range out.Deformations {
			if d.Lifetime > 0 {
				r.track.ApplyDeformationFor(d.Position, d.Radius, d.Intensity, d.Lifetime)
			} else {
				r.track.ApplyDeformation(d.Position, d.Radius, d.Intensity)
			}
		}
		for _, hit := range out.ObstacleHits {
			if r.track.DamageObstacle(hit.ObstacleID, hit.Damage) {
				r.emit(types.GameplayEvent{Type: types.EventObstacleDestroy, PlayerID: r.order[i], ObstacleID: hit.ObstacleID})
			}
		}
	}

	for _, d := range r.oil {
		r.track.ApplyDeformationFor(d.Position, d.Radius, d.Intensity, d.Lifetime)
	}
	for _, s := range r.strikes {
		r.landMissile(s)
	}
	r.oil = r.oil[:0]
	r.strikes = r.strikes[:0]
	return contacts
}

// updateProgress handles checkpoints, laps, finishing and wreck recovery.
func (r *Race) updateProgress(rd *rider, dt float64) {
	v := rd.v
	if v.IsWrecked() {
		rd.wreckedFor += dt
		if rd.wreckedFor >= RespawnDelay {
			r.respawn(rd)
		}
		return
	}
	rd.wreckedFor = 0
	if rd.finished {
		return
	}

	total := r.track.CheckpointCount()
	next := v.NextCheckpoint()
	if !r.track.IsCheckpointReached(next, v.Bounds()) {
		return
	}
	advanced, lapDone := v.PassCheckpoint(next, total)
	if !advanced {
		return
	}
	if !lapDone {
		r.emit(types.GameplayEvent{Type: types.EventCheckpoint, PlayerID: rd.id, Checkpoint: next, Lap: v.Lap() + 1})
		return
	}

	now := r.nowMS()
	lapMS := now - rd.lapStartMS
	rd.lapStartMS = now
	if rd.bestLapMS == 0 || lapMS < rd.bestLapMS {
		rd.bestLapMS = lapMS
	}
	seconds := float64(lapMS) / 1000
	r.emit(types.GameplayEvent{Type: types.EventLap, PlayerID: rd.id, Lap: v.Lap(), Amount: seconds})
	if rank := r.track.RecordLap(rd.displayName, seconds, r.createdAt.Add(time.Duration(now)*time.Millisecond)); rank >= 0 {
		r.emit(types.GameplayEvent{Type: types.EventLapRecord, PlayerID: rd.id, Lap: v.Lap(), Amount: seconds})
	}
	r.log.Info().Str("player", rd.id).Int("lap", v.Lap()).Float64("seconds", seconds).Msg("lap complete")

	if v.Lap() >= r.laps {
		rd.finished = true
		rd.finishMS = now
		r.emit(types.GameplayEvent{Type: types.EventFinish, PlayerID: rd.id, Lap: v.Lap(), Amount: float64(now) / 1000})
		r.log.Info().Str("player", rd.id).Int64("finish_ms", now).Msg("rider finished")
	}
}

// respawn puts a wrecked rider back at the last checkpoint it passed, or its
// grid slot if it has not passed one.
func (r *Race) respawn(rd *rider) {
	pos := r.track.GetStartPosition(rd.slot)
	heading := r.track.StartHeading()
	if cp, ok := r.track.Checkpoint(rd.v.LastCheckpoint()); ok {
		pos = cp.Center()
		heading = r.track.HeadingAt(r.track.GetProgress(pos))
	}
	rd.v.Respawn(pos, heading)
	rd.wreckedFor = 0
	r.emit(types.GameplayEvent{Type: types.EventRespawn, PlayerID: rd.id, Checkpoint: rd.v.LastCheckpoint()})
}

// rank orders riders: finishers by finish time, then by checkpoints passed,
// then by distance to the next checkpoint.
func (r *Race) rank() {
	ids := make([]string, len(r.order))
	copy(ids, r.order)
	gap := make(map[string]float64, len(ids))
	for _, id := range ids {
		rd := r.riders[id]
		if cp, ok := r.track.Checkpoint(rd.v.NextCheckpoint()); ok {
			gap[id] = vecmath.Distance(rd.v.Position(), cp.Center())
		}
	}
	sort.SliceStable(ids, func(i, j int) bool {
		a, b := r.riders[ids[i]], r.riders[ids[j]]
		if a.finished != b.finished {
			return a.finished
		}
		if a.finished {
			return a.finishMS < b.finishMS
		}
		if pa, pb := a.v.CheckpointsPassed(), b.v.CheckpointsPassed(); pa != pb {
			return pa > pb
		}
		return gap[ids[i]] < gap[ids[j]]
	})
	for i, id := range ids {
		r.riders[id].place = i + 1
	}
}

func (r *Race) checkFinished() {
	if len(r.riders) == 0 {
		return
	}
	all := true
	for _, rd := range r.riders {
		if !rd.finished {
			all = false
			break
		}
	}
	timeUp := r.duration > 0 && r.elapsed >= r.duration.Seconds()
	if all || timeUp {
		r.finished = true
		r.log.Info().Str("race", r.id).Uint64("tick", r.tick).Bool("time_up", timeUp && !all).Msg("race finished")
	}
}

// Finished reports whether every rider has finished or time ran out.
func (r *Race) Finished() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.finished
}

func (r *Race) ID() string { return r.id }

func (r *Race) Track() *track.Track { return r.track }

// BestLaps returns the track's lap records.
func (r *Race) BestLaps() []track.LapRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.track.BestLaps()
}

// SetWeather changes the track conditions between ticks.
func (r *Race) SetWeather(w terrain.Weather, intensity float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.track.SetWeather(w, intensity)
}

// Snapshot returns a deep copy of state for safe replication.
func (r *Race) Snapshot() types.RaceState {
	r.mu.RLock()
	defer r.mu.RUnlock()

	weather, intensity := r.track.Weather()
	out := types.RaceState{
		RaceID:           r.id,
		Track:            r.track.Name(),
		Tick:             r.tick,
		CreatedAt:        r.createdAt,
		ElapsedMS:        r.nowMS(),
		Laps:             r.laps,
		Weather:          weather.String(),
		WeatherIntensity: intensity,
		Riders:           make(map[string]types.RiderState, len(r.riders)),
		Finished:         r.finished,
	}
	for id, rd := range r.riders {
		out.Riders[id] = r.riderState(rd)
	}
	for _, p := range r.pickups {
		out.PowerUps = append(out.PowerUps, types.PowerUpState{
			ID:        p.ID,
			Type:      p.Type.String(),
			Position:  p.Position,
			Collected: p.IsCollected(),
		})
	}
	for _, o := range r.track.Obstacles() {
		out.Obstacles = append(out.Obstacles, types.ObstacleState{
			ID:           o.ID,
			Kind:         o.Kind,
			Position:     o.Position,
			Rotation:     o.Rotation,
			HalfExtents:  o.HalfExtents,
			Destructible: o.Destructible,
			Health:       o.Health,
			Removed:      o.Removed,
		})
	}
	for _, d := range r.track.Deformation() {
		out.Deformation = append(out.Deformation, types.DeformationState{
			Position:  d.Position,
			Radius:    d.Radius,
			Intensity: d.Intensity,
		})
	}
	out.Events = make([]types.GameplayEvent, len(r.events))
	copy(out.Events, r.events)
	return out
}

func (r *Race) riderState(rd *rider) types.RiderState {
	v := rd.v
	s := types.RiderState{
		PlayerID:          rd.id,
		DisplayName:       rd.displayName,
		Archetype:         v.Archetype().String(),
		IsBot:             rd.isBot,
		Position:          v.Position(),
		Velocity:          v.Velocity(),
		Rotation:          v.Rotation(),
		Altitude:          v.Altitude(),
		IsGrounded:        v.IsGrounded(),
		Terrain:           v.Terrain().String(),
		Health:            v.Health(),
		IsStunned:         v.IsStunned(),
		StunRemaining:     v.StunRemaining(),
		IsWrecked:         v.IsWrecked(),
		NitroFuel:         v.NitroFuel(),
		Lap:               v.Lap(),
		NextCheckpoint:    v.NextCheckpoint(),
		CheckpointsPassed: v.CheckpointsPassed(),
		Progress:          r.track.GetProgress(v.Position()),
		Place:             rd.place,
		BestLapMS:         rd.bestLapMS,
		Finished:          rd.finished,
		FinishMS:          rd.finishMS,
		LastInput:         rd.lastInput,
	}
	if e, ok := v.ActiveEffect(); ok {
		s.Effect = e.Type.String()
		s.EffectRemaining = e.Remaining
	}
	return s
}

// EnsurePlayer inserts a human rider if not present and returns its grid slot.
func (r *Race) EnsurePlayer(playerID, displayName, archetype string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rd, ok := r.riders[playerID]; ok {
		if displayName != "" {
			rd.displayName = displayName
		}
		rd.isBot = false
		return rd.slot, nil
	}
	rd, err := r.addRider(RiderSpawn{PlayerID: playerID, DisplayName: displayName, Archetype: archetype})
	if err != nil {
		return 0, err
	}
	return rd.slot, nil
}

// HumanCount returns number of human-controlled riders.
func (r *Race) HumanCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, rd := range r.riders {
		if !rd.isBot {
			count++
		}
	}
	return count
}

// RemovePlayer removes a rider from the race.
func (r *Race) RemovePlayer(playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.riders[playerID]; !ok {
		return
	}
	r.removeRider(playerID)
	r.log.Debug().Str("player", playerID).Msg("rider left")
}

func clampInput(in types.RiderInput) types.RiderInput {
	in.Throttle = clamp(in.Throttle, -1, 1)
	in.Steer = clamp(in.Steer, -1, 1)
	return in
}

func clamp(v, minV, maxV float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}
