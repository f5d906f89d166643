package drowsinessHandler

import (
	"BlinkRise/internal/api/drowsiness"
	contextPkg "BlinkRise/pkg/context"
	"BlinkRise/pkg/handlerUtil"
	"BlinkRise/pkg/log"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/net/context"
	"time"
)

// Start can take a while: opening the device plus the warm-up reads.
const cameraControlTimeout = 15 * time.Second

func (h *DrowsinessHandler) CameraControl(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	base, cancelBase := contextPkg.FromFiberCtx(ctx)
	defer cancelBase()
	c, cancel := context.WithTimeout(base, cameraControlTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	var req drowsiness.CameraControlRequest
	if err := ctx.QueryParser(&req); err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "parse_query")
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"action":     req.Action,
	}).Debug("Processing camera control request")

	resp, err := h.drowsinessService.ControlCamera(c, req.Action)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "camera_"+req.Action)
	}

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"action":     req.Action,
		"status":     resp.Status,
	}).Info(resp.Message)

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, resp)
}

func (h *DrowsinessHandler) Welcome(ctx *fiber.Ctx) error {
	return ctx.JSON(drowsiness.WelcomeResponse{
		Message: drowsiness.WelcomeMessage,
	})
}
