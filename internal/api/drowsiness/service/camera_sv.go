package drowsinessService

import (
	"BlinkRise/internal/api/drowsiness"
	"BlinkRise/internal/entity"
	"BlinkRise/pkg/log"
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// CameraState is the device lifecycle. CameraOpening only exists while Start
// holds the camera lock, so State never reports it.
type CameraState int

const (
	CameraClosed CameraState = iota
	CameraOpening
	CameraOpen
	CameraFailed
)

func (s CameraState) String() string {
	switch s {
	case CameraClosed:
		return "closed"
	case CameraOpening:
		return "opening"
	case CameraOpen:
		return "open"
	case CameraFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Device is an opened capture device.
type Device interface {
	Read() (image.Image, error)
	Close() error
}

type DeviceOpener func() (Device, error)

type Transition int

const (
	TransitionStarted Transition = iota
	TransitionAlreadyRunning
	TransitionStopped
	TransitionAlreadyStopped
)

// CameraManager owns the capture device. A single mutex serializes Start,
// Stop and Read; frame processing happens outside it.
type CameraManager struct {
	log            *logrus.Logger
	open           DeviceOpener
	state          *StateStore
	warmUpAttempts int
	warmUpDelay    time.Duration

	mu     sync.Mutex
	device Device
	status CameraState
}

func NewCameraManager(
	log *logrus.Logger,
	open DeviceOpener,
	state *StateStore,
	warmUpAttempts int,
	warmUpDelay time.Duration,
) *CameraManager {
	return &CameraManager{
		log:            log,
		open:           open,
		state:          state,
		warmUpAttempts: warmUpAttempts,
		warmUpDelay:    warmUpDelay,
		status:         CameraClosed,
	}
}

// State returns the settled lifecycle state: Closed, Open or Failed.
func (m *CameraManager) State() CameraState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *CameraManager) IsOpen() bool {
	return m.State() == CameraOpen
}

// Start opens the device and runs the warm-up reads. On any failure the
// device is released and the error wraps ErrCameraOpenFailed or
// ErrCameraWarmUpFailed.
func (m *CameraManager) Start(ctx context.Context) (Transition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status == CameraOpen {
		return TransitionAlreadyRunning, nil
	}

	m.status = CameraOpening

	dev, err := m.open()
	if err != nil {
		m.status = CameraFailed
		m.log.WithFields(log.Fields{
			"error": err.Error(),
		}).Error("Failed to open camera device")
		return 0, fmt.Errorf("%w (%v)", drowsiness.ErrCameraOpenFailed, err)
	}

	for attempt := 1; attempt <= m.warmUpAttempts; attempt++ {
		if _, err := dev.Read(); err != nil {
			m.abortWarmUp(dev, attempt, err)
			return 0, fmt.Errorf("%w (attempt %d: %v)", drowsiness.ErrCameraWarmUpFailed, attempt, err)
		}

		if err := wait(ctx, m.warmUpDelay); err != nil {
			m.abortWarmUp(dev, attempt, err)
			return 0, fmt.Errorf("%w (attempt %d: %v)", drowsiness.ErrCameraWarmUpFailed, attempt, err)
		}
	}

	m.device = dev
	m.status = CameraOpen
	m.state.Thaw()
	m.log.WithField("warm_up_reads", m.warmUpAttempts).Info("Camera stream started")

	return TransitionStarted, nil
}

func (m *CameraManager) abortWarmUp(dev Device, attempt int, cause error) {
	if err := dev.Close(); err != nil {
		m.log.Warnf("Error releasing camera after failed warm-up: %v", err)
	}
	m.status = CameraFailed
	m.log.WithFields(log.Fields{
		"attempt": attempt,
		"error":   cause.Error(),
	}).Error("Camera warm-up failed")
}

// Stop releases the device and pins the shared state to Video Off until the
// next successful Start.
func (m *CameraManager) Stop() Transition {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != CameraOpen || m.device == nil {
		m.status = CameraClosed
		return TransitionAlreadyStopped
	}

	if err := m.device.Close(); err != nil {
		m.log.Warnf("Error releasing camera: %v", err)
	}
	m.device = nil
	m.status = CameraClosed
	m.state.Freeze(entity.VideoOffState())

	m.log.Info("Camera stopped and state reset")

	return TransitionStopped
}

// Read returns the next raw frame. It fails with ErrCameraNotActive unless
// the camera is open. A read error leaves the state machine untouched.
func (m *CameraManager) Read() (image.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != CameraOpen || m.device == nil {
		return nil, drowsiness.ErrCameraNotActive
	}

	return m.device.Read()
}

// wait pauses for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
