package drowsinessHandler

import (
	drowsinessService "BlinkRise/internal/api/drowsiness/service"
	"BlinkRise/internal/entity"
	"BlinkRise/internal/middleware"
	"BlinkRise/pkg/utils"
	"context"
	"errors"
	"image"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedDevice serves `frames` good reads and then fails, which ends the
// video stream on its own.
type scriptedDevice struct {
	mu     sync.Mutex
	frames int
	reads  int
}

func (d *scriptedDevice) Read() (image.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reads++
	if d.reads > d.frames {
		return nil, errors.New("device unplugged")
	}
	return image.NewRGBA(image.Rect(0, 0, 16, 16)), nil
}

func (d *scriptedDevice) Close() error { return nil }

// noFaceDetector never finds a face.
type noFaceDetector struct{}

func (noFaceDetector) Detect(context.Context, []byte) (*entity.LandmarkSet, error) { return nil, nil }
func (noFaceDetector) Close() {}

func newServiceApp(t *testing.T, frames int) (*fiber.App, drowsinessService.IDrowsinessService) {
	t.Helper()

	logger, _ := test.NewNullLogger()
	u := utils.New(80)
	state := drowsinessService.NewStateStore()
	// A previous snapshot that the first processed frame must replace.
	state.Replace(entity.DrowsinessState{EAR: 0.3, Status: entity.StatusNonDrowsy, Probability: 0.1})

	open := func() (drowsinessService.Device, error) {
		return &scriptedDevice{frames: frames}, nil
	}
	camera := drowsinessService.NewCameraManager(logger, open, state, 5, time.Millisecond)
	pipeline := drowsinessService.NewPipeline(logger, noFaceDetector{}, drowsinessService.NewClassifier(logger, nil), state, u, false)
	svc := drowsinessService.NewDrowsinessService(logger, camera, pipeline, state, u, drowsinessService.Options{
		StreamInterval: time.Millisecond,
		StateInterval:  5 * time.Millisecond,
	})

	app := fiber.New(fiber.Config{
		JSONEncoder: jsoniter.Marshal,
		JSONDecoder: jsoniter.Unmarshal,
	})
	mw := middleware.New(logger, u, 100, 100)
	app.Use(mw.NewRequestIDMiddleware())
	New(logger, validator.New(), mw, svc).Start(app)

	return app, svc
}

func TestStartThenStreamReportsNoFace(t *testing.T) {
	t.Parallel()

	app, svc := newServiceApp(t, 5+2)

	res, err := app.Test(httptest.NewRequest(http.MethodGet, "/video_feed", nil))
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, res.StatusCode)

	res, err = app.Test(httptest.NewRequest(http.MethodPost, "/camera_control?action=start", nil))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"status": "success", "message": "Camera stream started."}, decode(t, res.Body))
	res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	res, err = app.Test(httptest.NewRequest(http.MethodGet, "/video_feed", nil), -1)
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "multipart/x-mixed-replace; boundary=frame", res.Header.Get(fiber.HeaderContentType))

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(body), "--frame\r\nContent-Type: image/jpeg\r\n\r\n\xff\xd8"))

	assert.Equal(t, entity.NoFaceState(), svc.CurrentState())
	assert.True(t, svc.CameraActive(), "a failed read ends the stream, not the camera")

	res, err = app.Test(httptest.NewRequest(http.MethodPost, "/camera_control?action=stop", nil))
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, entity.VideoOffState(), svc.CurrentState())
}
