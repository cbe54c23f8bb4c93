package storage

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/gocarina/gocsv"

	"github.com/san-kum/trebsim/internal/sim"
)

// FrameRow is one line of the frame log. Angles are in degrees.
type FrameRow struct {
	Time             float64 `csv:"Time (s)"`
	Phase            string  `csv:"Phase"`
	ProjX            float64 `csv:"Proj X (m)"`
	ProjY            float64 `csv:"Proj Y (m)"`
	ProjVX           float64 `csv:"Proj VX (m/s)"`
	ProjVY           float64 `csv:"Proj VY (m/s)"`
	ArmAngle         float64 `csv:"Arm Angle (deg)"`
	ArmOmega         float64 `csv:"Arm Omega (deg/s)"`
	WeightRelOmega   float64 `csv:"Weight Rel Omega (deg/s)"`
	Tension          float64 `csv:"Tension Force (N)"`
	NormalForce      float64 `csv:"Normal Force (N)"`
	SlingViolationCm float64 `csv:"Violation (cm)"`
	Energy           float64 `csv:"Energy (J)"`
}

func deg(rad float64) float64 { return rad * 180 / math.Pi }

func NewFrameRow(f sim.FrameData) FrameRow {
	return FrameRow{
		Time:             f.Time,
		Phase:            f.Phase.String(),
		ProjX:            f.Projectile.Position[0],
		ProjY:            f.Projectile.Position[1],
		ProjVX:           f.Projectile.Velocity[0],
		ProjVY:           f.Projectile.Velocity[1],
		ArmAngle:         deg(f.Arm.Angle),
		ArmOmega:         deg(f.Arm.AngularVelocity),
		WeightRelOmega:   deg(f.Counterweight.AngularVelocity - f.Arm.AngularVelocity),
		Tension:          f.Sling.Tension,
		NormalForce:      f.Ground.NormalForce,
		SlingViolationCm: f.Constraints.SlingLength.Violation * 100,
		Energy:           f.Energy.Total,
	}
}

// WriteFrames writes the header and one row per frame.
func WriteFrames(w io.Writer, frames []sim.FrameData) error {
	rows := make([]FrameRow, len(frames))
	for i, f := range frames {
		rows[i] = NewFrameRow(f)
	}
	return WriteRows(w, rows)
}

func WriteRows(w io.Writer, rows []FrameRow) error {
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("writing frames: %w", err)
	}
	return nil
}

func ReadFrames(r io.Reader) ([]FrameRow, error) {
	var rows []FrameRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return []FrameRow{}, nil
		}
		return nil, fmt.Errorf("reading frames: %w", err)
	}
	return rows, nil
}
