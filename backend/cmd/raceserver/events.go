package main

import (
	"sync"

	"bikerace/backend/internal/shared/types"
)

const maxRecentEvents = 1000

// eventLog keeps the most recent gameplay events and per-type totals for
// the HTTP feed.
type eventLog struct {
	mu     sync.RWMutex
	recent []types.GameplayEvent
	total  int64
	byType map[string]int64
}

type summary struct {
	Total  int64            `json:"total"`
	ByType map[string]int64 `json:"by_type"`
}

func newEventLog() *eventLog {
	return &eventLog{
		recent: make([]types.GameplayEvent, 0, 512),
		byType: make(map[string]int64),
	}
}

// ingest is the race observer.
func (s *eventLog) ingest(ev types.GameplayEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total++
	s.byType[ev.Type]++
	s.recent = append(s.recent, ev)
	if len(s.recent) > maxRecentEvents {
		s.recent = s.recent[len(s.recent)-maxRecentEvents:]
	}
}

func (s *eventLog) listRecent(limit int) []types.GameplayEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.recent) {
		limit = len(s.recent)
	}
	out := make([]types.GameplayEvent, limit)
	copy(out, s.recent[len(s.recent)-limit:])
	return out
}

func (s *eventLog) summary() summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byType := make(map[string]int64, len(s.byType))
	for k, v := range s.byType {
		byType[k] = v
	}
	return summary{Total: s.total, ByType: byType}
}
