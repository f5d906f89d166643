package drowsiness

import (
	"BlinkRise/pkg/response"
	"net/http"
)

var (
	ErrCameraOpenFailed   = response.NewError(http.StatusInternalServerError, "Failed to open camera device.")
	ErrCameraWarmUpFailed = response.NewError(http.StatusInternalServerError, "Failed to warm up camera.")
	ErrCameraNotActive    = response.NewError(http.StatusServiceUnavailable, "Camera not active or unavailable. Please start it first via /camera_control?action=start.")
	ErrInvalidAction      = response.NewError(http.StatusBadRequest, "action must be one of: start, stop")
)
