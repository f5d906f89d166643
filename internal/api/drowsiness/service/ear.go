package drowsinessService

import (
	"BlinkRise/internal/entity"
	"errors"
	"fmt"
	"image"

	"gonum.org/v1/gonum/floats"
)

// EARThreshold separates an open eye from a blink.
const EARThreshold = 0.2

var (
	ErrDegenerateEye = errors.New("eye corners coincide")
	ErrLandmarkIndex = errors.New("landmark set too short for eye indices")
)

// Face mesh indices, ordered outer corner, upper lid x2, inner corner,
// lower lid x2. ComputeEAR depends on this order.
var (
	LeftEyeIndices  = [6]int{33, 160, 158, 133, 153, 144}
	RightEyeIndices = [6]int{263, 387, 385, 362, 380, 373}
)

// EyePoints are the six contour points of one eye in pixel space.
type EyePoints [6]image.Point

func distance(a, b image.Point) float64 {
	return floats.Distance(
		[]float64{float64(a.X), float64(a.Y)},
		[]float64{float64(b.X), float64(b.Y)},
		2,
	)
}

// ComputeEAR returns (|p1-p5| + |p2-p4|) / (2|p0-p3|).
func ComputeEAR(eye EyePoints) (float64, error) {
	vertical1 := distance(eye[1], eye[5])
	vertical2 := distance(eye[2], eye[4])
	horizontal := distance(eye[0], eye[3])

	if horizontal == 0 {
		return 0, ErrDegenerateEye
	}

	return (vertical1 + vertical2) / (2 * horizontal), nil
}

// EyePointsFromLandmarks projects both eyes into a width x height frame.
// Coordinates are truncated toward zero.
func EyePointsFromLandmarks(lm entity.LandmarkSet, width, height int) (left, right EyePoints, err error) {
	project := func(indices [6]int) (EyePoints, error) {
		var eye EyePoints
		for i, idx := range indices {
			if idx >= len(lm.Points) {
				return eye, fmt.Errorf("%w: need index %d, have %d points", ErrLandmarkIndex, idx, len(lm.Points))
			}
			p := lm.Points[idx]
			eye[i] = image.Pt(int(p.X*float64(width)), int(p.Y*float64(height)))
		}
		return eye, nil
	}

	if left, err = project(LeftEyeIndices); err != nil {
		return left, right, err
	}
	right, err = project(RightEyeIndices)
	return left, right, err
}

func BlinkFlag(ear float64) int {
	if ear < EARThreshold {
		return 1
	}
	return 0
}
