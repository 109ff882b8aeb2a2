package vehicle

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownArchetype is returned when a vehicle is built from an archetype
// with no stats entry.
var ErrUnknownArchetype = errors.New("unknown archetype")

type Archetype int

const (
	Speed Archetype = iota
	AllRounder
	OffRoad
)

// Stats are the per-archetype handling constants.
type Stats struct {
	Mass        float64 `json:"mass"`
	EnginePower float64 `json:"engine_power"`
	BrakePower  float64 `json:"brake_power"`
	MaxSpeed    float64 `json:"max_speed"`
	// Handling is the base turn rate in rad/s.
	Handling float64 `json:"handling"`
	// Grip scales how quickly sideways sliding is killed.
	Grip float64 `json:"grip"`
	// LooseResistance multiplies rolling resistance on unpaved terrain.
	LooseResistance float64 `json:"loose_resistance"`
}

var archetypes = map[Archetype]Stats{
	Speed:      {Mass: 180, EnginePower: 2000, BrakePower: 2600, MaxSpeed: 12.0, Handling: 2.2, Grip: 0.75, LooseResistance: 1.25},
	AllRounder: {Mass: 200, EnginePower: 1900, BrakePower: 2600, MaxSpeed: 10.5, Handling: 2.6, Grip: 0.85, LooseResistance: 1.0},
	OffRoad:    {Mass: 230, EnginePower: 2100, BrakePower: 2800, MaxSpeed: 9.0, Handling: 2.4, Grip: 0.95, LooseResistance: 0.55},
}

var archetypeNames = map[Archetype]string{
	Speed:      "speed",
	AllRounder: "all_rounder",
	OffRoad:    "off_road",
}

func (a Archetype) String() string {
	if n, ok := archetypeNames[a]; ok {
		return n
	}
	return fmt.Sprintf("archetype(%d)", int(a))
}

// Stats returns the handling constants for a.
func (a Archetype) Stats() (Stats, bool) {
	s, ok := archetypes[a]
	return s, ok
}

// ParseArchetype accepts "SPEED", "all-rounder", "off_road" and similar.
func ParseArchetype(s string) (Archetype, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for a, n := range archetypeNames {
		if n == key {
			return a, nil
		}
	}
	return Speed, fmt.Errorf("%w: %q", ErrUnknownArchetype, s)
}

// Archetypes lists every known archetype in declaration order.
func Archetypes() []Archetype {
	return []Archetype{Speed, AllRounder, OffRoad}
}
