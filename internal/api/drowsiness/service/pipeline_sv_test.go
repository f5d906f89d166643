package drowsinessService

import (
	"BlinkRise/internal/entity"
	"BlinkRise/pkg/utils"
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPipeline(detector *fakeDetector, model Predictor, state *StateStore, annotate bool) *Pipeline {
	logger := nullLogger()
	return NewPipeline(logger, detector, NewClassifier(logger, model), state, utils.New(80), annotate)
}

func TestPipeline_NoFace(t *testing.T) {
	t.Parallel()

	state := NewStateStore()
	state.Replace(entity.DrowsinessState{EAR: 0.3, Status: entity.StatusNonDrowsy, Probability: 0.2})

	p := newPipeline(&fakeDetector{}, &fakePredictor{prob: 0.9}, state, false)

	frame := image.NewRGBA(image.Rect(0, 0, 4, 2))
	frame.Set(0, 0, color.RGBA{R: 255, A: 255})

	out := p.Process(context.Background(), frame)

	assert.Equal(t, entity.DrowsinessState{
		EAR: 0.0, Blink: 0, Status: "No Face", Probability: 0.0, AlarmOn: false,
	}, state.Get())
	assert.Equal(t, frame.Bounds(), out.Bounds())
	assert.Equal(t, color.RGBA{R: 255, A: 255}, out.At(3, 0), "frame must come back mirrored")
}

func TestPipeline_DetectorError(t *testing.T) {
	t.Parallel()

	state := NewStateStore()
	det := &fakeDetector{err: errors.New("sidecar down")}
	p := newPipeline(det, nil, state, false)

	for i := 0; i < 3; i++ {
		p.Process(context.Background(), image.NewRGBA(image.Rect(0, 0, 4, 4)))
	}
	assert.Equal(t, entity.NoFaceState(), state.Get())
	assert.Equal(t, 3, det.calls)
}

func TestPipeline_DrowsyFace(t *testing.T) {
	t.Parallel()

	state := NewStateStore()
	lm := landmarksAt(256, eyeWithEAR(20, 100, 6), eyeWithEAR(150, 100, 6))
	p := newPipeline(&fakeDetector{lm: &lm}, &fakePredictor{prob: 0.75}, state, false)

	p.Process(context.Background(), image.NewRGBA(image.Rect(0, 0, 256, 256)))

	got := state.Get()
	assert.InDelta(t, 0.15, got.EAR, 1e-12)
	assert.Equal(t, 1, got.Blink)
	assert.Equal(t, entity.StatusDrowsy, got.Status)
	assert.InDelta(t, 0.75, got.Probability, 1e-12)
	assert.True(t, got.AlarmOn)
}

func TestPipeline_AveragesEyes(t *testing.T) {
	t.Parallel()

	state := NewStateStore()
	// 0.4 and 0.1 average to 0.25
	lm := landmarksAt(256, eyeWithEAR(20, 100, 16), eyeWithEAR(150, 100, 4))
	p := newPipeline(&fakeDetector{lm: &lm}, nil, state, false)

	p.Process(context.Background(), image.NewRGBA(image.Rect(0, 0, 256, 256)))

	got := state.Get()
	assert.InDelta(t, 0.25, got.EAR, 1e-12)
	assert.Equal(t, 0, got.Blink)
	assert.Equal(t, entity.StatusEyesOpenNoMdl, got.Status)
	assert.False(t, got.AlarmOn)
}

func TestPipeline_DegenerateEyeCountsAsClosed(t *testing.T) {
	t.Parallel()

	state := NewStateStore()
	flat := EyePoints{}
	lm := landmarksAt(256, flat, eyeWithEAR(150, 100, 16))
	p := newPipeline(&fakeDetector{lm: &lm}, nil, state, false)

	p.Process(context.Background(), image.NewRGBA(image.Rect(0, 0, 256, 256)))

	assert.InDelta(t, 0.2, state.Get().EAR, 1e-12)
}

func TestPipeline_ShortLandmarkSet(t *testing.T) {
	t.Parallel()

	state := NewStateStore()
	lm := entity.LandmarkSet{Points: make([]entity.Point, 10)}
	p := newPipeline(&fakeDetector{lm: &lm}, nil, state, false)

	p.Process(context.Background(), image.NewRGBA(image.Rect(0, 0, 64, 64)))

	assert.Equal(t, entity.NoFaceState(), state.Get())
}

func TestPipeline_Annotate(t *testing.T) {
	t.Parallel()

	left := eyeWithEAR(20, 100, 6)
	lm := landmarksAt(256, left, eyeWithEAR(150, 100, 6))
	p := newPipeline(&fakeDetector{lm: &lm}, nil, NewStateStore(), true)

	out := p.Process(context.Background(), image.NewRGBA(image.Rect(0, 0, 256, 256)))

	assert.Equal(t, color.RGBA(eyeMarker), out.At(left[0].X, left[0].Y))
	assert.Equal(t, color.RGBA{}, out.At(128, 200))
}

func TestMirror(t *testing.T) {
	t.Parallel()

	t.Run("rgba with offset bounds", func(t *testing.T) {
		t.Parallel()
		src := image.NewRGBA(image.Rect(10, 10, 13, 11))
		src.Set(10, 10, color.RGBA{R: 1, A: 255})
		src.Set(11, 10, color.RGBA{G: 2, A: 255})
		src.Set(12, 10, color.RGBA{B: 3, A: 255})

		dst := Mirror(src)
		require.Equal(t, image.Rect(0, 0, 3, 1), dst.Bounds())
		assert.Equal(t, color.RGBA{B: 3, A: 255}, dst.At(0, 0))
		assert.Equal(t, color.RGBA{G: 2, A: 255}, dst.At(1, 0))
		assert.Equal(t, color.RGBA{R: 1, A: 255}, dst.At(2, 0))
	})

	t.Run("other color models", func(t *testing.T) {
		t.Parallel()
		src := image.NewGray(image.Rect(0, 0, 2, 2))
		src.SetGray(0, 1, color.Gray{Y: 200})

		dst := Mirror(src)
		assert.Equal(t, color.RGBA{R: 200, G: 200, B: 200, A: 255}, dst.At(1, 1))
		assert.Equal(t, color.RGBA{A: 255}, dst.At(0, 1))
	})
}
