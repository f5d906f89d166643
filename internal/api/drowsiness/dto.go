package drowsiness

const (
	ActionStart = "start"
	ActionStop  = "stop"

	ResultSuccess = "success"
	ResultInfo    = "info"
	ResultFailed  = "failed"
)

type CameraControlRequest struct {
	Action string `query:"action" validate:"required,oneof=start stop"`
}

type CameraControlResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type WelcomeResponse struct {
	Message string `json:"message"`
}

const WelcomeMessage = "Welcome to BlinkRise-A Drowsiness Detection System"
