package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"bikerace/backend/internal/config"
	"bikerace/backend/internal/metrics"
	"bikerace/backend/internal/shared/logger"
	"bikerace/backend/internal/shared/types"
	"bikerace/backend/internal/simulation"
	"bikerace/backend/internal/track"
)

type client struct {
	playerID string
	conn     *websocket.Conn
	send     chan []byte
}

type server struct {
	log      logger.Logger
	race     *simulation.Race
	events   *eventLog
	bots     int
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*client
}

func main() {
	log := logger.New("raceserver")
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

	events := newEventLog()
	race, err := simulation.NewRace(raceID, tr, nil,
		simulation.WithLaps(cfg.Race.Laps),
		simulation.WithDuration(time.Duration(cfg.Race.DurationSec)*time.Second),
		simulation.WithParallelCollisions(cfg.Sim.ParallelCollisions),
		simulation.WithLogger(log),
		simulation.WithMetrics(m),
		simulation.WithObserver(events.ingest),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("creating race")
	}

	s := &server{
		log:    log,
		race:   race,
		events: events,
		bots:   cfg.Race.Bots,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients: make(map[string]*client),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loop := simulation.NewLoop(race, cfg.Sim.Step(), cfg.Sim.MaxCatchUpSteps, m)
	go func() {
		if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("simulation loop stopped")
			return
		}
		log.Info().Int("dropped_steps", loop.Dropped()).Msg("simulation loop stopped")
	}()
	go s.runReplicationLoop(ctx, cfg.Server.ReplicationRate)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/v1/events", s.handleEvents)
	mux.HandleFunc("/v1/records", s.handleRecords)

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdown)
	}()

	log.Info().Str("addr", cfg.Server.Addr).Str("race", raceID).Str("track", tr.Name()).Msg("race server listening")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server failed")
	}
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	recent := s.events.listRecent(limit)
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(recent),
		"events":  recent,
		"summary": s.events.summary(),
	})
}

func (s *server) handleRecords(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"track":   s.race.Track().Name(),
		"records": s.race.BestLaps(),
	})
}

func (s *server) handleWS(w http.ResponseWriter, r *http.Request) {
	playerID := r.URL.Query().Get("player_id")
	if playerID == "" {
		playerID = fmt.Sprintf("guest_%d", time.Now().UTC().UnixNano())
	}
	displayName := r.URL.Query().Get("display_name")
	if displayName == "" {
		displayName = playerID
	}
	archetype := r.URL.Query().Get("archetype")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade error")
		return
	}

	slot, err := s.race.EnsurePlayer(playerID, displayName, archetype)
	if err != nil {
		payload, _ := json.Marshal(types.ServerEnvelope{Type: "error", Message: err.Error()})
		_ = conn.WriteMessage(websocket.TextMessage, payload)
		_ = conn.Close()
		return
	}
	s.maintainBots()
	c := &client{playerID: playerID, conn: conn, send: make(chan []byte, 64)}
	if old := s.register(c); old != nil {
		// Closing the old socket ends its readPump, which unregisters it.
		_ = old.conn.Close()
		s.log.Info().Str("player", playerID).Msg("replacing existing connection")
	}

	s.log.Info().Str("player", playerID).Int("slot", slot).Str("remote", r.RemoteAddr).Msg("client connected")
	state := s.race.Snapshot()
	welcome := types.ServerEnvelope{
		Type:     "welcome",
		Tick:     state.Tick,
		State:    &state,
		ServerMS: time.Now().UTC().UnixMilli(),
		Message:  "connected",
	}
	s.enqueue(c, welcome)

	go s.writePump(c)
	s.readPump(c)
}

func (s *server) readPump(c *client) {
	defer func() {
		s.unregister(c)
		_ = c.conn.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(90 * time.Second))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Info().Str("player", c.playerID).Msg("client disconnected")
				return
			}
			s.log.Warn().Err(err).Str("player", c.playerID).Msg("read error")
			return
		}

		var in types.ClientEnvelope
		if err := json.Unmarshal(msg, &in); err != nil {
			s.sendError(c, "bad_payload")
			continue
		}

		switch in.Type {
		case "input":
			if in.Input == nil {
				s.sendError(c, "missing_input")
				continue
			}
			in.Input.PlayerID = c.playerID
			s.race.ApplyInput(*in.Input)
			s.enqueue(c, types.ServerEnvelope{Type: "ack", AckSeq: in.Input.Sequence})
		case "ping":
			s.enqueue(c, types.ServerEnvelope{Type: "pong", ServerMS: time.Now().UTC().UnixMilli()})
		default:
			s.sendError(c, "unsupported_message_type")
		}
	}
}

func (s *server) writePump(c *client) {
	ticker := time.NewTicker(20 * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				return
			}
		}
	}
}

// register returns the connection c replaced, if the player was already
// connected.
func (s *server) register(c *client) *client {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.clients[c.playerID]
	s.clients[c.playerID] = c
	if old == c {
		return nil
	}
	return old
}

// unregister closes c's send channel. The rider leaves the race only when c
// is still the player's current connection.
func (s *server) unregister(c *client) {
	s.mu.Lock()
	close(c.send)
	current := s.clients[c.playerID] == c
	if current {
		delete(s.clients, c.playerID)
	}
	s.mu.Unlock()

	if !current {
		return
	}
	s.race.RemovePlayer(c.playerID)
	s.maintainBots()
}

// enqueue drops the message when the client's buffer is full.
func (s *server) enqueue(c *client, env types.ServerEnvelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		s.log.Error().Err(err).Str("type", env.Type).Msg("marshal envelope failed")
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

func (s *server) sendError(c *client, message string) {
	s.enqueue(c, types.ServerEnvelope{Type: "error", Message: message})
}

func (s *server) runReplicationLoop(ctx context.Context, rate int) {
	ticker := time.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		state := s.race.Snapshot()
		payload, err := json.Marshal(types.ServerEnvelope{
			Type:     "state",
			Tick:     state.Tick,
			State:    &state,
			ServerMS: time.Now().UTC().UnixMilli(),
		})
		if err != nil {
			s.log.Error().Err(err).Msg("marshal state failed")
			continue
		}

		s.mu.RLock()
		for _, c := range s.clients {
			select {
			case c.send <- payload:
			default:
			}
		}
		s.mu.RUnlock()
	}
}

// maintainBots keeps the configured number of bots alongside the humans and
// clears them once nobody is connected.
func (s *server) maintainBots() {
	humans := s.race.HumanCount()
	if humans <= 0 {
		s.race.RemoveAllBots()
		return
	}
	s.race.FillWithBots(humans + s.bots)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
