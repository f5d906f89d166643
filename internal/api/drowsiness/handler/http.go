package drowsinessHandler

import (
	drowsinessService "BlinkRise/internal/api/drowsiness/service"
	"BlinkRise/internal/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

type DrowsinessHandler struct {
	log               *logrus.Logger
	validator         *validator.Validate
	middleware        middleware.Middleware
	drowsinessService drowsinessService.IDrowsinessService
}

func New(
	log *logrus.Logger,
	validator *validator.Validate,
	middleware middleware.Middleware,
	ds drowsinessService.IDrowsinessService,
) *DrowsinessHandler {
	return &DrowsinessHandler{
		drowsinessService: ds,
		log:               log,
		validator:         validator,
		middleware:        middleware,
	}
}

func (h *DrowsinessHandler) Start(srv fiber.Router) {
	wsMiddleware := func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}

	srv.Get("/", h.Welcome)
	srv.Post("/camera_control", h.middleware.NewRateLimiter, h.CameraControl)
	srv.Get("/video_feed", h.VideoFeed)

	srv.Use("/ws", wsMiddleware)
	srv.Get("/ws/drowsiness", websocket.New(h.handleStateWebSocket))
}
