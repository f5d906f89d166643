package entity

const (
	StatusNoFace          = "No Face"
	StatusVideoOff        = "Video Off"
	StatusDrowsy          = "Drowsy"
	StatusNonDrowsy       = "Non_Drowsy"
	StatusPredictionError = "Prediction Error"
	StatusEyesClosedNoMdl = "Eyes Closed (No Model)"
	StatusEyesOpenNoMdl   = "Eyes Open (No Model)"
)

// DrowsinessState is the latest per-frame snapshot pushed to subscribers.
type DrowsinessState struct {
	EAR         float64 `json:"ear"`
	Blink       int     `json:"blink"`
	Status      string  `json:"status"`
	Probability float64 `json:"probability"`
	AlarmOn     bool    `json:"alarm_on"`
}

func NoFaceState() DrowsinessState {
	return DrowsinessState{Status: StatusNoFace}
}

func VideoOffState() DrowsinessState {
	return DrowsinessState{Status: StatusVideoOff}
}

// Point is a landmark coordinate normalized to [0,1] image space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// LandmarkSet holds the face-mesh points of one face, indexed by mesh index.
type LandmarkSet struct {
	Points []Point `json:"landmarks"`
}

type FaceMeshResult struct {
	Faces []LandmarkSet `json:"faces"`
	Error string        `json:"error,omitempty"`
}
