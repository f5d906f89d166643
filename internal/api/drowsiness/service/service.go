package drowsinessService

import (
	"BlinkRise/internal/api/drowsiness"
	"BlinkRise/internal/entity"
	"BlinkRise/pkg/utils"
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

type IDrowsinessService interface {
	ControlCamera(ctx context.Context, action string) (*drowsiness.CameraControlResponse, error)
	CameraActive() bool
	StreamFrames(ctx context.Context, w FrameWriter) error
	PushState(ctx context.Context, send func(entity.DrowsinessState) error) error
	CurrentState() entity.DrowsinessState
	MirrorSnapshots(ctx context.Context, sink SnapshotSink)
}

const (
	DefaultStreamInterval = 30 * time.Millisecond
	DefaultStateInterval  = 500 * time.Millisecond
	DefaultSnapshotTTL    = 5 * time.Second
)

type Options struct {
	StreamInterval time.Duration
	StateInterval  time.Duration
	// SnapshotTTL bounds how long a mirrored snapshot survives the process.
	SnapshotTTL time.Duration
}

type drowsinessService struct {
	log      *logrus.Logger
	camera   *CameraManager
	pipeline *Pipeline
	state    *StateStore
	utils    utils.IUtils
	opts     Options
}

func NewDrowsinessService(
	log *logrus.Logger,
	camera *CameraManager,
	pipeline *Pipeline,
	state *StateStore,
	utils utils.IUtils,
	opts Options,
) IDrowsinessService {
	if opts.StreamInterval <= 0 {
		opts.StreamInterval = DefaultStreamInterval
	}
	if opts.StateInterval <= 0 {
		opts.StateInterval = DefaultStateInterval
	}
	if opts.SnapshotTTL <= 0 {
		opts.SnapshotTTL = DefaultSnapshotTTL
	}

	return &drowsinessService{
		log:      log,
		camera:   camera,
		pipeline: pipeline,
		state:    state,
		utils:    utils,
		opts:     opts,
	}
}

// ControlCamera runs a start or stop transition. Errors wrap
// ErrCameraOpenFailed, ErrCameraWarmUpFailed or ErrInvalidAction.
func (s *drowsinessService) ControlCamera(ctx context.Context, action string) (*drowsiness.CameraControlResponse, error) {
	switch action {
	case drowsiness.ActionStart:
		t, err := s.camera.Start(ctx)
		if err != nil {
			return nil, err
		}
		if t == TransitionAlreadyRunning {
			return &drowsiness.CameraControlResponse{Status: drowsiness.ResultInfo, Message: "Camera already running."}, nil
		}
		return &drowsiness.CameraControlResponse{Status: drowsiness.ResultSuccess, Message: "Camera stream started."}, nil

	case drowsiness.ActionStop:
		if s.camera.Stop() == TransitionAlreadyStopped {
			return &drowsiness.CameraControlResponse{Status: drowsiness.ResultInfo, Message: "Camera already stopped or not active."}, nil
		}
		return &drowsiness.CameraControlResponse{Status: drowsiness.ResultSuccess, Message: "Camera stopped and state reset."}, nil

	default:
		return nil, drowsiness.ErrInvalidAction
	}
}

func (s *drowsinessService) CameraActive() bool {
	return s.camera.IsOpen()
}

func (s *drowsinessService) CurrentState() entity.DrowsinessState {
	return s.state.Get()
}
