package main

import (
	"os"
	"time"

	"github.com/google/uuid"

	"bikerace/backend/internal/config"
	"bikerace/backend/internal/metrics"
	"bikerace/backend/internal/shared/logger"
	"bikerace/backend/internal/simulation"
	"bikerace/backend/internal/track"
)

// racesim runs a bot-only race as fast as the CPU allows and prints the
// result.
func main() {
	log := logger.New("racesim")
	if err := config.Load(os.Getenv("BIKERACE_CONFIG")); err != nil {
		log.Fatal().Err(err).Msg("loading config")
	}
	cfg, err := config.Get()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}
	logger.SetLevel(cfg.LogLevel)

	tr := track.Default()
	if cfg.Race.TrackFile != "" {
		if tr, err = track.Load(cfg.Race.TrackFile); err != nil {
			log.Fatal().Err(err).Str("file", cfg.Race.TrackFile).Msg("loading track")
		}
	}

	raceID := uuid.NewString()
	m, err := metrics.NewRace(raceID, tr.Name())
	if err != nil {
		log.Fatal().Err(err).Msg("creating metrics")
	}
	race, err := simulation.NewRace(raceID, tr, nil,
		simulation.WithLaps(cfg.Race.Laps),
		simulation.WithDuration(time.Duration(cfg.Race.DurationSec)*time.Second),
		simulation.WithParallelCollisions(cfg.Sim.ParallelCollisions),
		simulation.WithLogger(log),
		simulation.WithMetrics(m),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("creating race")
	}
	race.FillWithBots(max(cfg.Race.Bots, 1))

	started := time.Now()
	ticks := run(simulation.NewLoop(race, cfg.Sim.Step(), cfg.Sim.MaxCatchUpSteps, m))
	log.Info().Uint64("ticks", ticks).Dur("wall", time.Since(started)).Msg("race simulated")

	state := race.Snapshot()
	renderStandings(os.Stdout, state)
	renderRecords(os.Stdout, tr.Name(), race.BestLaps())
}

// run feeds the loop exactly one step of time per frame, so nothing is ever
// dropped, until the race ends.
func run(loop *simulation.Loop) uint64 {
	var ticks uint64
	for !loop.Race().Finished() {
		steps, _ := loop.Advance(loop.Step())
		if steps == 0 {
			break
		}
		ticks += uint64(steps)
	}
	return ticks
}
