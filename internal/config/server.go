package config

import (
	"BlinkRise/internal/api/drowsiness"
	drowsinessHandler "BlinkRise/internal/api/drowsiness/handler"
	drowsinessService "BlinkRise/internal/api/drowsiness/service"
	"BlinkRise/internal/middleware"
	"BlinkRise/pkg/redis"
	"BlinkRise/pkg/utils"
	"BlinkRise/pkg/webcam"
	websocketPkg "BlinkRise/pkg/websocket"
	"context"
	"fmt"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"time"
)

type ServerOption func(*Server) error

type Server struct {
	engine      *fiber.App
	cfg         *Config
	log         *logrus.Logger
	middleware  middleware.Middleware
	validator   *validator.Validate
	utils       utils.IUtils
	handlers    []handler
	redisServer redis.IRedis
	faceMesh    websocketPkg.IFaceMesh
	openDevice  drowsinessService.DeviceOpener

	drowsiness   drowsinessService.IDrowsinessService
	cancelMirror context.CancelFunc
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if server.cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if server.faceMesh == nil {
		return nil, fmt.Errorf("face mesh detector is required")
	}
	if server.utils == nil {
		server.utils = utils.New(server.cfg.JPEGQuality)
	}
	if server.openDevice == nil {
		server.openDevice = webcamOpener(server.cfg.CameraIndex)
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

func WithConfig(cfg *Config) ServerOption {
	return func(s *Server) error {
		s.cfg = cfg
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		if s.cfg == nil {
			return fmt.Errorf("config must be set before utils")
		}
		s.utils = utils.New(s.cfg.JPEGQuality)
		return nil
	}
}

// WithRedisServer enables the snapshot mirror. A nil client leaves it off.
func WithRedisServer(redisServer redis.IRedis) ServerOption {
	return func(s *Server) error {
		s.redisServer = redisServer
		return nil
	}
}

func WithFaceMesh(faceMesh websocketPkg.IFaceMesh) ServerOption {
	return func(s *Server) error {
		s.faceMesh = faceMesh
		return nil
	}
}

// WithDeviceOpener replaces the webcam, mainly for tests.
func WithDeviceOpener(open drowsinessService.DeviceOpener) ServerOption {
	return func(s *Server) error {
		s.openDevice = open
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		if s.cfg == nil || s.utils == nil {
			return fmt.Errorf("config and utils must be initialized before middleware")
		}
		s.middleware = middleware.New(s.log, s.utils, s.cfg.RateLimitRPS, s.cfg.RateLimitBurst)
		return nil
	}
}

func webcamOpener(index int) drowsinessService.DeviceOpener {
	return func() (drowsinessService.Device, error) {
		cam, err := webcam.Open(index)
		if err != nil {
			return nil, err
		}
		return cam, nil
	}
}

func (s *Server) RegisterHandler() {
	state := drowsinessService.NewStateStore()
	classifier := drowsinessService.LoadClassifier(s.log, s.cfg.ModelPath)

	camera := drowsinessService.NewCameraManager(s.log, s.openDevice, state, s.cfg.WarmUpAttempts, s.cfg.WarmUpDelay)
	pipeline := drowsinessService.NewPipeline(s.log, s.faceMesh, classifier, state, s.utils, s.cfg.AnnotateEyes)

	s.drowsiness = drowsinessService.NewDrowsinessService(s.log, camera, pipeline, state, s.utils, drowsinessService.Options{
		StreamInterval: s.cfg.StreamInterval,
		StateInterval:  s.cfg.StateInterval,
	})
	drowsinessHandlers := drowsinessHandler.New(s.log, s.validator, s.middleware, s.drowsiness)

	s.handlers = append(s.handlers, drowsinessHandlers)
}

// Mount installs the middleware chain and routes. Run calls it; tests use it
// to drive the app without a listener.
func (s *Server) Mount() {
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(middleware.LoggerConfig())

	for _, h := range s.handlers {
		h.Start(s.engine)
	}
}

func (s *Server) Run() error {
	s.Mount()

	if s.redisServer != nil {
		var ctx context.Context
		ctx, s.cancelMirror = context.WithCancel(context.Background())
		go s.drowsiness.MirrorSnapshots(ctx, s.redisServer)
	}

	return s.engine.Listen(fmt.Sprintf(":%s", s.cfg.AppPort))
}

// Shutdown releases the camera first so open video streams end, then stops
// the HTTP server and the background mirror.
func (s *Server) Shutdown(timeout time.Duration) error {
	if s.drowsiness != nil {
		if _, err := s.drowsiness.ControlCamera(context.Background(), drowsiness.ActionStop); err != nil {
			s.log.Warnf("Error stopping camera: %v", err)
		}
		s.log.WithField("state", s.drowsiness.CurrentState()).Info("Final drowsiness state")
	}

	if s.cancelMirror != nil {
		s.cancelMirror()
	}

	return s.engine.ShutdownWithTimeout(timeout)
}
