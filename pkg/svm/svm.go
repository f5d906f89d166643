// Package svm loads a two-class support vector classifier exported as JSON
// and evaluates Platt-scaled probabilities for it.
package svm

import (
	"errors"
	"fmt"
	"math"
	"os"
	"slices"

	jsoniter "github.com/json-iterator/go"
	"gonum.org/v1/gonum/floats"
)

const (
	KernelLinear = "linear"
	KernelRBF    = "rbf"
)

var (
	ErrInvalidArtifact = errors.New("invalid svm artifact")
	ErrFeatureMismatch = errors.New("artifact feature names do not match")
	ErrInputSize       = errors.New("input vector has wrong length")
	ErrNonFinite       = errors.New("non-finite value")
)

// Artifact is the on-disk form of a trained classifier. Field names follow
// the attributes of a fitted scikit-learn SVC with probability=True.
type Artifact struct {
	FeatureNames   []string    `json:"feature_names"`
	Kernel         string      `json:"kernel"`
	Gamma          float64     `json:"gamma"`
	SupportVectors [][]float64 `json:"support_vectors"`
	DualCoef       []float64   `json:"dual_coef"`
	Intercept      float64     `json:"intercept"`
	ProbA          float64     `json:"prob_a"`
	ProbB          float64     `json:"prob_b"`
	Scaler         *Scaler     `json:"scaler,omitempty"`
}

// Scaler mirrors a StandardScaler applied before the SVC.
type Scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

type Model struct {
	artifact  Artifact
	nFeatures int
}

// Load reads the artifact at path and checks that it was trained on exactly
// the given feature names, in order.
func Load(path string, featureNames []string) (*Model, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read svm artifact %s: %w", path, err)
	}

	return Parse(raw, featureNames)
}

func Parse(raw []byte, featureNames []string) (*Model, error) {
	var a Artifact
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}

	if !slices.Equal(a.FeatureNames, featureNames) {
		return nil, fmt.Errorf("%w: got %v, want %v", ErrFeatureMismatch, a.FeatureNames, featureNames)
	}
	if err := a.validate(); err != nil {
		return nil, err
	}

	return &Model{artifact: a, nFeatures: len(featureNames)}, nil
}

func (a *Artifact) validate() error {
	n := len(a.FeatureNames)

	switch a.Kernel {
	case KernelLinear:
	case KernelRBF:
		if a.Gamma <= 0 {
			return fmt.Errorf("%w: rbf kernel needs gamma > 0", ErrInvalidArtifact)
		}
	default:
		return fmt.Errorf("%w: unsupported kernel %q", ErrInvalidArtifact, a.Kernel)
	}

	if len(a.SupportVectors) == 0 {
		return fmt.Errorf("%w: no support vectors", ErrInvalidArtifact)
	}
	if len(a.SupportVectors) != len(a.DualCoef) {
		return fmt.Errorf("%w: %d support vectors but %d dual coefficients",
			ErrInvalidArtifact, len(a.SupportVectors), len(a.DualCoef))
	}
	for i, sv := range a.SupportVectors {
		if len(sv) != n {
			return fmt.Errorf("%w: support vector %d has %d values, want %d", ErrInvalidArtifact, i, len(sv), n)
		}
	}

	if a.Scaler != nil && (len(a.Scaler.Mean) != n || len(a.Scaler.Scale) != n) {
		return fmt.Errorf("%w: scaler size does not match %d features", ErrInvalidArtifact, n)
	}

	return nil
}

func (m *Model) FeatureNames() []string {
	return slices.Clone(m.artifact.FeatureNames)
}

// Decision returns the signed distance of x from the separating surface.
func (m *Model) Decision(x []float64) (float64, error) {
	if len(x) != m.nFeatures {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrInputSize, len(x), m.nFeatures)
	}
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("%w in input %v", ErrNonFinite, x)
		}
	}

	in := m.scale(x)

	d := m.artifact.Intercept
	for i, sv := range m.artifact.SupportVectors {
		d += m.artifact.DualCoef[i] * m.kernel(in, sv)
	}

	return d, nil
}

// PredictProba returns P(positive class | x) using the artifact's Platt
// coefficients.
func (m *Model) PredictProba(x []float64) (float64, error) {
	d, err := m.Decision(x)
	if err != nil {
		return 0, err
	}

	p := 1 / (1 + math.Exp(m.artifact.ProbA*d+m.artifact.ProbB))
	if math.IsNaN(p) {
		return 0, fmt.Errorf("%w probability for decision %v", ErrNonFinite, d)
	}

	return p, nil
}

func (m *Model) scale(x []float64) []float64 {
	out := slices.Clone(x)
	s := m.artifact.Scaler
	if s == nil {
		return out
	}

	floats.Sub(out, s.Mean)
	for i, sc := range s.Scale {
		if sc != 0 {
			out[i] /= sc
		}
	}

	return out
}

func (m *Model) kernel(x, sv []float64) float64 {
	if m.artifact.Kernel == KernelRBF {
		d := floats.Distance(x, sv, 2)
		return math.Exp(-m.artifact.Gamma * d * d)
	}
	return floats.Dot(x, sv)
}
