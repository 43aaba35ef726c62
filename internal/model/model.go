// Package model implements the Model Manager: loads a single binary
// fraud classifier from a weights file at startup and scores feature
// vectors against it, falling back to a rule-based score whenever the
// model is unavailable.
//
// No third-party classifier implementation in the example pack exposes
// a pre-trained gradient-boosted model in a form a Go process can load
// without a matching training pipeline, so the loaded artifact here is
// a serialized linear scorer (weights + bias, scored through a logistic
// link) rather than a full GBM. See the design notes for the reasoning.
package model

import (
	"encoding/json"
	"math"
	"os"
	"sync"

	"github.com/dygsom/fraud-api/internal/features"
)

// Confidence bands, keyed off distance from the 0.5 decision boundary.
const (
	ConfidenceLow    = "LOW"
	ConfidenceMedium = "MEDIUM"
	ConfidenceHigh   = "HIGH"
)

// Prediction is the Model Manager's output contract.
type Prediction struct {
	Probability float64 `json:"probability"`
	Prediction  int     `json:"prediction"`
	Confidence  string  `json:"confidence"`
	ModelUsed   bool    `json:"model_used"`
}

// weights is the on-disk artifact format: one coefficient per entry in
// features.Names, in the same order, plus an intercept.
type weights struct {
	Bias         float64            `json:"bias"`
	Coefficients map[string]float64 `json:"coefficients"`
}

// Manager holds the loaded classifier, if any. It is immutable after
// construction; picking up a new model artifact requires a redeploy.
type Manager struct {
	mu     sync.RWMutex
	loaded bool
	bias   float64
	coefs  []float64 // aligned with features.Names
}

// New loads the model artifact at path. A missing, unreadable, or
// malformed file is not an error: the Manager falls back to the
// rule-based score and predict() reports model_used=false.
func New(path string) *Manager {
	m := &Manager{}
	if path == "" {
		return m
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return m
	}

	var w weights
	if err := json.Unmarshal(raw, &w); err != nil {
		return m
	}

	coefs := make([]float64, len(features.Names))
	for i, name := range features.Names {
		coefs[i] = w.Coefficients[name]
	}

	m.mu.Lock()
	m.bias = w.Bias
	m.coefs = coefs
	m.loaded = true
	m.mu.Unlock()
	return m
}

// Loaded reports whether a model artifact was successfully loaded.
func (m *Manager) Loaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loaded
}

// Predict scores a feature vector. When no model is loaded, or the
// vector's length doesn't match the model's input contract, it falls
// back to the rule-based score.
func (m *Manager) Predict(vec features.Vector) Prediction {
	m.mu.RLock()
	loaded := m.loaded
	coefs := m.coefs
	bias := m.bias
	m.mu.RUnlock()

	if !loaded || len(vec) != len(coefs) {
		return fallback(vec)
	}

	z := bias
	for i, c := range coefs {
		z += c * vec[i]
	}
	probability := sigmoid(z)

	prediction := 0
	if probability >= 0.5 {
		prediction = 1
	}

	return Prediction{
		Probability: round4(probability),
		Prediction:  prediction,
		Confidence:  confidenceFor(probability),
		ModelUsed:   true,
	}
}

func confidenceFor(probability float64) string {
	distance := math.Abs(probability - 0.5)
	switch {
	case distance >= 0.4:
		return ConfidenceHigh
	case distance >= 0.2:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// fallback implements the rule-based score used whenever the model is
// missing, fails to load, or its prediction can't be trusted: point
// additions for known risk signals, capped at 100 and divided by 100.
func fallback(vec features.Vector) Prediction {
	at := indexer(vec)

	score := 0.0
	switch {
	case at("is_very_high_value") == 1:
		score += 30
	case at("is_high_value") == 1:
		score += 15
	}
	if at("is_night") == 1 {
		score += 10
	}
	if at("is_weekend") == 1 {
		score += 5
	}
	if at("is_disposable_email") == 1 {
		score += 25
	}
	if at("amount_rounded") == 1 {
		score += 10
	}

	tx24h := at("velocity_customer_tx_count_24h")
	switch {
	case tx24h > 10:
		score += 20
	case tx24h > 5:
		score += 10
	}

	if score > 100 {
		score = 100
	}
	probability := score / 100

	prediction := 0
	if probability >= 0.7 {
		prediction = 1
	}

	return Prediction{
		Probability: round4(probability),
		Prediction:  prediction,
		Confidence:  ConfidenceLow,
		ModelUsed:   false,
	}
}

// indexer returns a lookup closure over vec by feature name, so the
// fallback rules read the same way the feature list is documented.
func indexer(vec features.Vector) func(name string) float64 {
	index := make(map[string]int, len(features.Names))
	for i, name := range features.Names {
		index[name] = i
	}
	return func(name string) float64 {
		i, ok := index[name]
		if !ok || i >= len(vec) {
			return 0
		}
		return vec[i]
	}
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

func round4(f float64) float64 {
	return math.Round(f*10000) / 10000
}
