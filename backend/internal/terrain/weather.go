package terrain

import (
	"fmt"
	"strings"
)

// Weather is the track-wide condition that scales surface friction.
type Weather int

const (
	Clear Weather = iota
	Rain
	SnowFall
	Fog
	Storm
)

var weatherNames = [...]string{
	Clear:    "clear",
	Rain:     "rain",
	SnowFall: "snow",
	Fog:      "fog",
	Storm:    "storm",
}

// weatherFriction is the friction multiplier at full intensity.
var weatherFriction = [...]float64{
	Clear:    1.0,
	Rain:     0.80,
	SnowFall: 0.65,
	Fog:      1.0,
	Storm:    0.70,
}

func (w Weather) String() string {
	if w < Clear || w > Storm {
		return fmt.Sprintf("weather(%d)", int(w))
	}
	return weatherNames[w]
}

// ParseWeather maps a name such as "rain" to a Weather. Empty means clear.
func ParseWeather(s string) (Weather, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Clear, nil
	}
	for i, n := range weatherNames {
		if n == s {
			return Weather(i), nil
		}
	}
	return Clear, fmt.Errorf("unknown weather %q", s)
}

// FrictionMultiplier interpolates between dry (1.0) and the full-intensity
// multiplier of w. intensity is clamped to [0,1].
func (w Weather) FrictionMultiplier(intensity float64) float64 {
	if w < Clear || w > Storm {
		return 1
	}
	if intensity < 0 {
		intensity = 0
	}
	if intensity > 1 {
		intensity = 1
	}
	return 1 - (1-weatherFriction[w])*intensity
}
