package model

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dygsom/fraud-api/internal/features"
)

func zeroVector() features.Vector {
	return make(features.Vector, len(features.Names))
}

func setFeature(vec features.Vector, name string, value float64) {
	for i, n := range features.Names {
		if n == name {
			vec[i] = value
			return
		}
	}
}

func TestNew_NoPathFallsBackUnloaded(t *testing.T) {
	m := New("")
	assert.False(t, m.Loaded())
}

func TestNew_MissingFileFallsBackUnloaded(t *testing.T) {
	m := New(filepath.Join(t.TempDir(), "does-not-exist.json"))
	assert.False(t, m.Loaded())
}

func TestNew_MalformedFileFallsBackUnloaded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	m := New(path)
	assert.False(t, m.Loaded())
}

func TestNew_LoadsValidArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.json")
	w := weights{Bias: -1, Coefficients: map[string]float64{"amount": 0.002}}
	raw, err := json.Marshal(w)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	m := New(path)
	assert.True(t, m.Loaded())
}

func TestPredict_FallbackScenario_ModelFileAbsent(t *testing.T) {
	// Mirrors the model-fallback end-to-end scenario: amount=7500 and a
	// tempmail.com email, with no model loaded. Rule-based score adds
	// 30 (very-high-value) + 25 (disposable email) = 55.
	m := New("")
	vec := zeroVector()
	setFeature(vec, "is_very_high_value", 1)
	setFeature(vec, "is_disposable_email", 1)

	pred := m.Predict(vec)

	assert.False(t, pred.ModelUsed)
	assert.GreaterOrEqual(t, pred.Probability, 0.55)
	assert.Equal(t, ConfidenceLow, pred.Confidence)
}

func TestPredict_FallbackCapsAtOne(t *testing.T) {
	m := New("")
	vec := zeroVector()
	setFeature(vec, "is_very_high_value", 1)
	setFeature(vec, "is_night", 1)
	setFeature(vec, "is_weekend", 1)
	setFeature(vec, "is_disposable_email", 1)
	setFeature(vec, "amount_rounded", 1)
	setFeature(vec, "velocity_customer_tx_count_24h", 20)

	pred := m.Predict(vec)

	assert.LessOrEqual(t, pred.Probability, 1.0)
	assert.Equal(t, 1, pred.Prediction)
}

func TestPredict_FallbackLowRiskVector(t *testing.T) {
	m := New("")
	pred := m.Predict(zeroVector())

	assert.Equal(t, 0.0, pred.Probability)
	assert.Equal(t, 0, pred.Prediction)
	assert.False(t, pred.ModelUsed)
}

func TestPredict_UsesLoadedModelWhenVectorLengthMatches(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.json")
	coefs := make(map[string]float64, len(features.Names))
	coefs["amount"] = 0.01
	w := weights{Bias: -5, Coefficients: coefs}
	raw, err := json.Marshal(w)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	m := New(path)
	require.True(t, m.Loaded())

	vec := zeroVector()
	setFeature(vec, "amount", 10000)

	pred := m.Predict(vec)

	assert.True(t, pred.ModelUsed)
	assert.GreaterOrEqual(t, pred.Probability, 0.0)
	assert.LessOrEqual(t, pred.Probability, 1.0)
}

func TestPredict_MismatchedVectorLengthFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.json")
	w := weights{Bias: 0, Coefficients: map[string]float64{"amount": 1}}
	raw, err := json.Marshal(w)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	m := New(path)
	require.True(t, m.Loaded())

	shortVec := features.Vector{1, 2, 3}
	pred := m.Predict(shortVec)

	assert.False(t, pred.ModelUsed)
}

func TestConfidenceFor_Bands(t *testing.T) {
	assert.Equal(t, ConfidenceHigh, confidenceFor(0.95))
	assert.Equal(t, ConfidenceHigh, confidenceFor(0.05))
	assert.Equal(t, ConfidenceMedium, confidenceFor(0.75))
	assert.Equal(t, ConfidenceLow, confidenceFor(0.55))
}
