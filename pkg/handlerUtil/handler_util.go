package handlerUtil

import (
	"BlinkRise/internal/api/drowsiness"
	"BlinkRise/pkg/log"
	"BlinkRise/pkg/response"
	"errors"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

type ErrorHandler struct {
	logger *logrus.Logger
}

func New(logger *logrus.Logger) *ErrorHandler {
	return &ErrorHandler{
		logger: logger,
	}
}

func (h *ErrorHandler) Handle(c *fiber.Ctx, requestID string, err error, path string, operation string) error {
	fields := log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
		"operation":  operation,
	}

	// Camera lifecycle errors keep the {status, message} shape of a control response.
	if errors.Is(err, drowsiness.ErrCameraOpenFailed) || errors.Is(err, drowsiness.ErrCameraWarmUpFailed) {
		var respErr *response.Error
		errors.As(err, &respErr)
		h.logger.WithFields(fields).Error("Camera failed to start")
		return c.Status(respErr.Code).JSON(drowsiness.CameraControlResponse{
			Status:  drowsiness.ResultFailed,
			Message: respErr.Error(),
		})
	}

	if errors.Is(err, drowsiness.ErrCameraNotActive) {
		h.logger.WithFields(fields).Warn("Camera not active")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"message": drowsiness.ErrCameraNotActive.Error(),
		})
	}

	if errors.Is(err, drowsiness.ErrInvalidAction) {
		h.logger.WithFields(fields).Warn("Invalid camera action")
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_ACTION",
		})
	}

	var respErr *response.Error
	if errors.As(err, &respErr) {
		fields["code"] = respErr.Code
		h.logger.WithFields(fields).Warn("Operation failed with error response")
		return c.Status(respErr.Code).JSON(fiber.Map{"error": respErr.Error()})
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		h.logger.WithFields(fields).Warn("Request rejected")
		return c.Status(fiberErr.Code).JSON(ErrorResponse{Error: fiberErr.Message})
	}

	traceID := log.ErrorWithTraceID(fields, "Unexpected error")

	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Error:   "An unexpected error occurred",
		Details: "trace_id: " + traceID,
	})
}

func (h *ErrorHandler) HandleValidationError(c *fiber.Ctx, requestID string, err error, path string) error {
	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
	}).Warn("Validation failed")

	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "Validation failed: " + err.Error(),
		"code":  "VALIDATION_ERROR",
	})
}

func (h *ErrorHandler) HandleSuccess(c *fiber.Ctx, statusCode int, data interface{}) error {
	if data == nil {
		return c.SendStatus(statusCode)
	}
	return c.Status(statusCode).JSON(data)
}
