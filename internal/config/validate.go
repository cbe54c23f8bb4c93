package config

import (
	"fmt"
	"log/slog"
	"math"
)

const (
	MinRopeStiffness     = 1e6
	MaxRopeStiffness     = 1e12
	DefaultRopeStiffness = 1e9

	MinSlingLength = 0.1
	MaxSlingLength = 100.0
)

// Warning records one substitution made by validation.
type Warning struct {
	Property string
	Input    float64
	Value    float64
	Message  string
}

func (w Warning) String() string { return w.Message }

func (w Warning) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("property", w.Property),
		slog.Float64("input", w.Input),
		slog.Float64("value", w.Value),
	)
}

// ValidateTrebuchetProperties clamps ropeStiffness and slingLength into their
// authoritative ranges. It never fails; every substitution is reported as a
// warning. The input is not modified.
func ValidateTrebuchetProperties(props TrebuchetProperties) (TrebuchetProperties, []Warning) {
	out := props
	var warnings []Warning

	rope, w := ClampRopeStiffness(props.RopeStiffness)
	out.RopeStiffness = rope
	if w != nil {
		warnings = append(warnings, *w)
	}

	sling := props.SlingLength
	length, w := ClampSlingLength(&sling)
	out.SlingLength = length
	if w != nil {
		warnings = append(warnings, *w)
	}

	return out, warnings
}

// ValidateConfig applies ValidateTrebuchetProperties to a full configuration
// and logs each warning.
func ValidateConfig(cfg *SimulationConfig, logger *slog.Logger) (*SimulationConfig, []Warning) {
	if logger == nil {
		logger = slog.Default()
	}
	out := cfg.Clone()
	props, warnings := ValidateTrebuchetProperties(cfg.Trebuchet)
	out.Trebuchet = props
	for _, w := range warnings {
		logger.Warn(w.Message, "substitution", w)
	}
	return out, warnings
}

// ClampRopeStiffness handles an optional stiffness. Absent stays absent; NaN
// falls back to the default.
func ClampRopeStiffness(v *float64) (*float64, *Warning) {
	if v == nil {
		return nil, nil
	}
	in := *v
	out := in
	var reason string
	switch {
	case math.IsNaN(in):
		out, reason = DefaultRopeStiffness, "is not a number"
	case math.IsInf(in, 1):
		out, reason = MaxRopeStiffness, "is +Inf"
	case math.IsInf(in, -1) || in <= 0:
		out, reason = MinRopeStiffness, "is not positive"
	case in < MinRopeStiffness:
		out, reason = MinRopeStiffness, fmt.Sprintf("is below min %g", MinRopeStiffness)
	case in > MaxRopeStiffness:
		out, reason = MaxRopeStiffness, fmt.Sprintf("is above max %g", MaxRopeStiffness)
	default:
		return &out, nil
	}
	return &out, &Warning{
		Property: "ropeStiffness",
		Input:    in,
		Value:    out,
		Message:  fmt.Sprintf("ropeStiffness %v %s; using %g", in, reason, out),
	}
}

// ClampSlingLength handles an optional sling length. Absent and NaN both fall
// back to the default.
func ClampSlingLength(v *float64) (float64, *Warning) {
	if v == nil {
		return DefaultSlingLength, &Warning{
			Property: "slingLength",
			Input:    math.NaN(),
			Value:    DefaultSlingLength,
			Message:  fmt.Sprintf("slingLength is missing; using %g", DefaultSlingLength),
		}
	}
	in := *v
	var (
		out    float64
		reason string
	)
	switch {
	case math.IsNaN(in):
		out, reason = DefaultSlingLength, "is not a number"
	case math.IsInf(in, 1):
		out, reason = MaxSlingLength, "is +Inf"
	case math.IsInf(in, -1) || in <= 0:
		out, reason = MinSlingLength, "is not positive"
	case in < MinSlingLength:
		out, reason = MinSlingLength, fmt.Sprintf("is below min %g", MinSlingLength)
	case in > MaxSlingLength:
		out, reason = MaxSlingLength, fmt.Sprintf("is above max %g", MaxSlingLength)
	default:
		return in, nil
	}
	return out, &Warning{
		Property: "slingLength",
		Input:    in,
		Value:    out,
		Message:  fmt.Sprintf("slingLength %v %s; using %g", in, reason, out),
	}
}
