package config

import "sort"

var Presets = map[string][]Override{
	"default": nil,
	"heavy": {
		WithCounterweightMass(4000),
	},
	"long-sling": {
		WithSlingLength(5.0),
		WithReleaseAngle(2.2),
	},
	"windy": {
		WithWind(Vec3{-8, 0, 2}),
		WithSpin(-20),
	},
	"extreme": {
		WithCounterweightMass(10000),
		WithSlingLength(8),
	},
}

// GetPreset builds a fresh configuration for the named preset, or nil.
func GetPreset(name string) *SimulationConfig {
	overrides, ok := Presets[name]
	if !ok {
		return nil
	}
	return CreateConfig(overrides...)
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
