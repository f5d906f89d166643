package drowsinessService

import (
	"BlinkRise/internal/entity"
	"BlinkRise/pkg/utils"
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

var errDeviceGone = errors.New("device gone")

// fakeDevice serves `frames` good reads, then fails every read.
type fakeDevice struct {
	mu     sync.Mutex
	frames int
	reads  int
	closed bool
	w, h   int
}

func (d *fakeDevice) Read() (image.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, errDeviceGone
	}
	if d.reads >= d.frames {
		d.reads++
		return nil, errDeviceGone
	}
	d.reads++

	w, h := d.w, d.h
	if w == 0 {
		w, h = 8, 6
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	return img, nil
}

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *fakeDevice) Reads() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reads
}

func (d *fakeDevice) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

type fakeOpener struct {
	mu      sync.Mutex
	devices []*fakeDevice
	frames  int
	err     error
}

func (o *fakeOpener) Open() (Device, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.err != nil {
		return nil, o.err
	}
	d := &fakeDevice{frames: o.frames}
	o.devices = append(o.devices, d)
	return d, nil
}

func (o *fakeOpener) Opened() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.devices)
}

func (o *fakeOpener) Last() *fakeDevice {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.devices[len(o.devices)-1]
}

type fakeDetector struct {
	mu    sync.Mutex
	lm    *entity.LandmarkSet
	err   error
	calls int
}

func (f *fakeDetector) Detect(_ context.Context, jpeg []byte) (*entity.LandmarkSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(jpeg) == 0 {
		return nil, errors.New("empty frame")
	}
	return f.lm, f.err
}

func (f *fakeDetector) Close() {}

type fakePredictor struct {
	prob  float64
	err   error
	panic bool
	seen  [][]float64
}

func (p *fakePredictor) PredictProba(x []float64) (float64, error) {
	if p.panic {
		panic("boom")
	}
	p.seen = append(p.seen, x)
	return p.prob, p.err
}

// fakeSink tracks when the mirrored key would expire, like Redis would.
type fakeSink struct {
	mu         sync.Mutex
	writes     []entity.DrowsinessState
	refreshes  int
	err        error
	expiresAt  time.Time
	refreshErr error
}

func (s *fakeSink) RefreshSnapshot(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refreshErr != nil {
		err := s.refreshErr
		s.refreshErr = nil
		return err
	}
	if len(s.writes) == 0 || time.Now().After(s.expiresAt) {
		return errors.New("key missing")
	}
	s.refreshes++
	s.expiresAt = time.Now().Add(ttl)
	return nil
}

func (s *fakeSink) Refreshes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshes
}

func (s *fakeSink) Live() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.writes) > 0 && time.Now().Before(s.expiresAt)
}

func (s *fakeSink) SetSnapshot(_ context.Context, key string, st entity.DrowsinessState, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.writes = append(s.writes, st)
	s.expiresAt = time.Now().Add(ttl)
	return nil
}

func (s *fakeSink) Writes() []entity.DrowsinessState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entity.DrowsinessState(nil), s.writes...)
}

func nullLogger() *logrus.Logger {
	logger, _ := test.NewNullLogger()
	return logger
}

// landmarksAt places the twelve eye points at the given pixel positions in a
// size x size frame; every other landmark sits at the origin. size should be
// a power of two so the normalized coordinates are exact.
func landmarksAt(size int, left, right EyePoints) entity.LandmarkSet {
	pts := make([]entity.Point, 478)
	put := func(indices [6]int, eye EyePoints) {
		for i, idx := range indices {
			pts[idx] = entity.Point{
				X: float64(eye[i].X) / float64(size),
				Y: float64(eye[i].Y) / float64(size),
			}
		}
	}
	put(LeftEyeIndices, left)
	put(RightEyeIndices, right)
	return entity.LandmarkSet{Points: pts}
}

// eyeWithEAR builds an eye 40px wide whose lids are `gap` px apart.
func eyeWithEAR(x0, y, gap int) EyePoints {
	half := gap / 2
	return EyePoints{
		image.Pt(x0, y),
		image.Pt(x0+10, y-half),
		image.Pt(x0+30, y-half),
		image.Pt(x0+40, y),
		image.Pt(x0+30, y-half+gap),
		image.Pt(x0+10, y-half+gap),
	}
}

type testRig struct {
	opener   *fakeOpener
	detector *fakeDetector
	model    *fakePredictor
	state    *StateStore
	camera   *CameraManager
	pipeline *Pipeline
	svc      *drowsinessService
}

func newTestRig(t *testing.T, frames int, model Predictor) *testRig {
	t.Helper()

	logger := nullLogger()
	r := &testRig{
		opener:   &fakeOpener{frames: frames},
		detector: &fakeDetector{},
		state:    NewStateStore(),
	}
	if fp, ok := model.(*fakePredictor); ok {
		r.model = fp
	}

	u := utils.New(80)
	r.camera = NewCameraManager(logger, r.opener.Open, r.state, 5, time.Millisecond)
	r.pipeline = NewPipeline(logger, r.detector, NewClassifier(logger, model), r.state, u, false)
	r.svc = NewDrowsinessService(logger, r.camera, r.pipeline, r.state, u, Options{
		StreamInterval: time.Millisecond,
		StateInterval:  5 * time.Millisecond,
	}).(*drowsinessService)

	return r
}
