package terrain

import (
	"fmt"
	"strings"
)

// Type classifies the drivable surface of a track segment.
type Type int

const (
	Asphalt Type = iota
	Dirt
	Grass
	Sand
	Ice
	Mud
	Water
	Gravel
	Snow
)

// ReferenceFriction is the friction at which a surface offers full lateral grip.
const ReferenceFriction = 0.30

var names = [...]string{
	Asphalt: "asphalt",
	Dirt:    "dirt",
	Grass:   "grass",
	Sand:    "sand",
	Ice:     "ice",
	Mud:     "mud",
	Water:   "water",
	Gravel:  "gravel",
	Snow:    "snow",
}

// friction is the rolling-resistance coefficient per terrain. Higher values
// decelerate a coasting vehicle faster.
var friction = [...]float64{
	Asphalt: 0.30,
	Dirt:    0.45,
	Grass:   0.50,
	Sand:    0.70,
	Ice:     0.05,
	Mud:     0.80,
	Water:   0.90,
	Gravel:  0.40,
	Snow:    0.25,
}

func (t Type) Valid() bool {
	return t >= Asphalt && t <= Snow
}

func (t Type) String() string {
	if !t.Valid() {
		return fmt.Sprintf("terrain(%d)", int(t))
	}
	return names[t]
}

// Friction returns the default friction coefficient for t. Unknown values
// fall back to asphalt.
func (t Type) Friction() float64 {
	if !t.Valid() {
		return friction[Asphalt]
	}
	return friction[t]
}

// Loose reports whether the surface is unpaved. Vehicle archetypes scale the
// resistance of loose surfaces differently.
func (t Type) Loose() bool {
	switch t {
	case Dirt, Grass, Sand, Mud, Water, Gravel, Snow:
		return true
	}
	return false
}

// Parse maps a case-insensitive name such as "ICE" or "gravel" to a Type.
func Parse(s string) (Type, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range names {
		if n == s {
			return Type(i), nil
		}
	}
	return Asphalt, fmt.Errorf("unknown terrain %q", s)
}

// GripFactor converts a friction coefficient to a lateral grip multiplier in
// [0.1, 1]. Slick surfaces such as ice slide; everything at or above asphalt grips.
func GripFactor(f float64) float64 {
	g := f / ReferenceFriction
	if g < 0.1 {
		return 0.1
	}
	if g > 1 {
		return 1
	}
	return g
}
