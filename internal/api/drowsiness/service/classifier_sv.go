package drowsinessService

import (
	"BlinkRise/internal/entity"
	"BlinkRise/pkg/log"
	"BlinkRise/pkg/svm"
	"fmt"

	"github.com/sirupsen/logrus"
)

// DrowsyThreshold is the probability above which a frame counts as drowsy.
const DrowsyThreshold = 0.6

// FeatureNames is the column order the classifier was trained on.
var FeatureNames = []string{"EAR", "Blink"}

type Features struct {
	EAR   float64
	Blink int
}

func (f Features) Vector() []float64 {
	return []float64{f.EAR, float64(f.Blink)}
}

// Predictor returns P(drowsy) for a feature vector ordered as FeatureNames.
type Predictor interface {
	PredictProba(x []float64) (float64, error)
}

type PredictionKind int

const (
	PredictionOK PredictionKind = iota
	PredictionModelUnavailable
	PredictionInferenceError
)

type Prediction struct {
	Kind        PredictionKind
	Probability float64
	Err         error
}

type Classification struct {
	Status      string
	Probability float64
	Alarm       bool
}

type Classifier struct {
	log   *logrus.Logger
	model Predictor
}

// NewClassifier wraps model; a nil model puts the classifier in no-model mode.
func NewClassifier(log *logrus.Logger, model Predictor) *Classifier {
	return &Classifier{log: log, model: model}
}

// LoadClassifier reads the artifact at path once. Any failure is logged and
// the classifier stays in no-model mode for the life of the process.
func LoadClassifier(logger *logrus.Logger, path string) *Classifier {
	model, err := svm.Load(path, FeatureNames)
	if err != nil {
		logger.WithFields(log.Fields{
			"path":  path,
			"error": err.Error(),
		}).Error("Failed to load SVM model, running without model")
		return NewClassifier(logger, nil)
	}

	logger.WithField("path", path).Info("SVM model loaded successfully")
	return NewClassifier(logger, model)
}

func (c *Classifier) HasModel() bool {
	return c.model != nil
}

func (c *Classifier) predict(f Features) (p Prediction) {
	if c.model == nil {
		return Prediction{Kind: PredictionModelUnavailable}
	}

	defer func() {
		if r := recover(); r != nil {
			p = Prediction{Kind: PredictionInferenceError, Err: fmt.Errorf("predictor panic: %v", r)}
		}
	}()

	prob, err := c.model.PredictProba(f.Vector())
	if err != nil {
		return Prediction{Kind: PredictionInferenceError, Err: err}
	}
	if prob < 0 || prob > 1 {
		return Prediction{Kind: PredictionInferenceError, Err: fmt.Errorf("probability %v out of range", prob)}
	}

	return Prediction{Kind: PredictionOK, Probability: prob}
}

// Classify maps a frame's EAR and blink flag to a status. It never fails.
func (c *Classifier) Classify(ear float64, blink int) Classification {
	pred := c.predict(Features{EAR: ear, Blink: blink})

	switch pred.Kind {
	case PredictionOK:
		status := entity.StatusNonDrowsy
		if pred.Probability > DrowsyThreshold {
			status = entity.StatusDrowsy
		}
		return Classification{
			Status:      status,
			Probability: pred.Probability,
			Alarm:       status == entity.StatusDrowsy,
		}

	case PredictionInferenceError:
		c.log.WithFields(log.Fields{
			"ear":   ear,
			"blink": blink,
			"error": pred.Err.Error(),
		}).Error("SVM prediction failed")
		return Classification{Status: entity.StatusPredictionError}

	default:
		status := entity.StatusEyesOpenNoMdl
		if ear < EARThreshold {
			status = entity.StatusEyesClosedNoMdl
		}
		return Classification{Status: status}
	}
}
