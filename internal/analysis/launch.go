package analysis

import (
	"errors"
	"log/slog"
	"math"

	"github.com/san-kum/trebsim/internal/sim"
	"github.com/san-kum/trebsim/internal/storage"
)

var ErrNoRelease = errors.New("projectile was never released")

// LaunchReport describes the release and, when the log reaches it, the
// landing. Positions are in metres, angles in degrees.
type LaunchReport struct {
	ReleaseIndex  int
	ReleaseTime   float64
	ReleaseX      float64
	ReleaseY      float64
	ReleaseSpeed  float64
	ReleaseAngle  float64 // velocity direction, atan2(vy, vx)
	ArmAngle      float64 // arm angle at release
	Landed        bool
	LandingIndex  int
	LandingTime   float64
	LandingX      float64
	Range         float64 // horizontal distance travelled after release
	FlightTime    float64
	MaxHeight     float64
	BallisticTime float64 // drag-free flight time from the release state
	Ballistic     float64 // drag-free horizontal distance from the release state
}

func (r LaunchReport) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Float64("release_t", r.ReleaseTime),
		slog.Float64("release_speed", r.ReleaseSpeed),
		slog.Float64("release_angle", r.ReleaseAngle),
		slog.Bool("landed", r.Landed),
		slog.Float64("range", r.Range),
		slog.Float64("flight_time", r.FlightTime),
	)
}

// Launch finds the first released frame and the first frame after it at or
// below groundY. groundY is the projectile centre height at rest, normally
// its radius. gravity may be given with either sign.
func Launch(rows []storage.FrameRow, groundY, gravity float64) (*LaunchReport, error) {
	release := -1
	for i, r := range rows {
		if r.Phase != sim.Swinging.String() {
			release = i
			break
		}
	}
	if release < 0 {
		return nil, ErrNoRelease
	}

	rel := rows[release]
	rep := &LaunchReport{
		ReleaseIndex: release,
		ReleaseTime:  rel.Time,
		ReleaseX:     rel.ProjX,
		ReleaseY:     rel.ProjY,
		ReleaseSpeed: math.Hypot(rel.ProjVX, rel.ProjVY),
		ReleaseAngle: math.Atan2(rel.ProjVY, rel.ProjVX) * 180 / math.Pi,
		ArmAngle:     rel.ArmAngle,
		MaxHeight:    rel.ProjY,
	}

	for i := release + 1; i < len(rows); i++ {
		r := rows[i]
		rep.MaxHeight = math.Max(rep.MaxHeight, r.ProjY)
		if r.ProjY <= groundY {
			rep.Landed = true
			rep.LandingIndex = i
			rep.LandingTime = r.Time
			rep.LandingX = r.ProjX
			rep.Range = math.Abs(r.ProjX - rel.ProjX)
			rep.FlightTime = r.Time - rel.Time
			break
		}
	}

	rep.BallisticTime, rep.Ballistic = ballistic(rel.ProjVX, rel.ProjVY, rel.ProjY-groundY, math.Abs(gravity))
	return rep, nil
}

// ballistic solves h + vy*t - g*t^2/2 = 0 for the positive root.
func ballistic(vx, vy, h, g float64) (t, dist float64) {
	if !(g > 0) {
		return math.Inf(1), math.Inf(1)
	}
	disc := vy*vy + 2*g*h
	if disc < 0 {
		return 0, 0
	}
	t = (vy + math.Sqrt(disc)) / g
	return t, math.Abs(vx) * t
}
