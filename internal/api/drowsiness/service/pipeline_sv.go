package drowsinessService

import (
	"BlinkRise/internal/entity"
	"BlinkRise/pkg/log"
	"BlinkRise/pkg/utils"
	websocketPkg "BlinkRise/pkg/websocket"
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

var eyeMarker = color.RGBA{R: 0, G: 255, B: 0, A: 255}

// Pipeline turns one raw camera frame into a mirrored display frame and
// publishes the derived DrowsinessState.
type Pipeline struct {
	log          *logrus.Logger
	detector     websocketPkg.IFaceMesh
	classifier   *Classifier
	state        *StateStore
	utils        utils.IUtils
	annotate     bool
	detectorDown atomic.Bool
}

func NewPipeline(
	log *logrus.Logger,
	detector websocketPkg.IFaceMesh,
	classifier *Classifier,
	state *StateStore,
	utils utils.IUtils,
	annotate bool,
) *Pipeline {
	return &Pipeline{
		log:        log,
		detector:   detector,
		classifier: classifier,
		state:      state,
		utils:      utils,
		annotate:   annotate,
	}
}

// Process mirrors frame, runs detection and classification, replaces the
// shared state and returns the mirrored frame.
func (p *Pipeline) Process(ctx context.Context, frame image.Image) image.Image {
	mirrored := Mirror(frame)
	bounds := mirrored.Bounds()

	lm := p.detect(ctx, mirrored)
	if lm == nil {
		p.state.Replace(entity.NoFaceState())
		return mirrored
	}

	left, right, err := EyePointsFromLandmarks(*lm, bounds.Dx(), bounds.Dy())
	if err != nil {
		p.log.WithField("error", err.Error()).Warn("Discarding malformed landmark set")
		p.state.Replace(entity.NoFaceState())
		return mirrored
	}

	ear := (eyeEAR(left) + eyeEAR(right)) / 2
	blink := BlinkFlag(ear)
	result := p.classifier.Classify(ear, blink)

	p.state.Replace(entity.DrowsinessState{
		EAR:         ear,
		Blink:       blink,
		Status:      result.Status,
		Probability: result.Probability,
		AlarmOn:     result.Alarm,
	})

	if p.annotate {
		markEye(mirrored, left)
		markEye(mirrored, right)
	}

	return mirrored
}

// detect returns nil when there is no face or the detector is unreachable.
// Detector outages are logged once per outage, not per frame.
func (p *Pipeline) detect(ctx context.Context, frame *image.RGBA) *entity.LandmarkSet {
	encoded, err := p.utils.EncodeJPEG(frame)
	if err != nil {
		p.log.WithField("error", err.Error()).Warn("Failed to encode frame for detection")
		return nil
	}

	lm, err := p.detector.Detect(ctx, encoded)
	if err != nil {
		if !p.detectorDown.Swap(true) {
			fields := log.Fields{"error": err.Error()}
			if errors.Is(err, websocketPkg.ErrDetectorUnavailable) {
				fields["unavailable"] = true
			}
			p.log.WithFields(fields).Error("Face mesh detection failed, reporting no face")
		}
		return nil
	}

	if p.detectorDown.Swap(false) {
		p.log.Info("Face mesh detection recovered")
	}

	return lm
}

// eyeEAR treats an eye with coincident corners as closed.
func eyeEAR(eye EyePoints) float64 {
	ear, err := ComputeEAR(eye)
	if err != nil {
		return 0
	}
	return ear
}

// Mirror returns a horizontally flipped RGBA copy of src with its origin at 0,0.
func Mirror(src image.Image) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))

	if rgba, ok := src.(*image.RGBA); ok {
		for y := 0; y < h; y++ {
			srcRow := rgba.Pix[rgba.PixOffset(b.Min.X, b.Min.Y+y):]
			dstRow := dst.Pix[dst.PixOffset(0, y):]
			for x := 0; x < w; x++ {
				copy(dstRow[(w-1-x)*4:(w-x)*4], srcRow[x*4:x*4+4])
			}
		}
		return dst
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.Set(w-1-x, y, src.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return dst
}

func markEye(img draw.Image, eye EyePoints) {
	marker := image.NewUniform(eyeMarker)
	for _, pt := range eye {
		r := image.Rect(pt.X-1, pt.Y-1, pt.X+2, pt.Y+2).Intersect(img.Bounds())
		draw.Draw(img, r, marker, image.Point{}, draw.Src)
	}
}
