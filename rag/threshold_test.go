package rag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClassifyComplexity(t *testing.T) {
	tests := []struct {
		question string
		want     Complexity
	}{
		{"What is the capital of France?", ComplexitySimple},
		{"Who invented the telephone?", ComplexitySimple},
		{"How many moons does Jupiter have?", ComplexitySimple},
		{"How much caffeine is in green tea?", ComplexitySimple},
		{"How does a refrigerator keep food cold?", ComplexityModerate},
		{"Why is the sky blue?", ComplexityModerate},
		// One marker from each of several categories in a short question
		// still lands on the category math, not per-phrase accumulation.
		{"Compare and contrast the difference between frogs and toads", ComplexityModerate},
		{"Explain the water cycle", ComplexityComplex},
		{"Why does inflation impact savings?", ComplexityComplex},
		{"Analyze the relationship between interest rates and inflation", ComplexityComplex},
		{"Evaluate the implications of rising CO2 levels on ocean acidification and the downstream effects on coral reef ecosystems over the next fifty years", ComplexityComplex},
	}
	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyComplexity(tt.question))
		})
	}
}

func TestClassifyComplexityLongQuestion(t *testing.T) {
	// No marker phrases, but length alone pushes past moderate.
	long := "one two three four five six seven eight nine ten eleven twelve thirteen fourteen fifteen sixteen seventeen eighteen nineteen twenty twentyone twentytwo twentythree twentyfour twentyfive twentysix twentyseven twentyeight twentynine thirty thirtyone"
	assert.Equal(t, ComplexityComplex, ClassifyComplexity(long))
}

func TestThresholdProfileFor(t *testing.T) {
	simple := ThresholdProfileFor(ComplexitySimple)
	assert.Equal(t, 0.80, simple.Threshold)
	assert.Equal(t, 0.85, simple.Confidence)
	assert.Equal(t, 5, simple.RetrievalCount)

	moderate := ThresholdProfileFor(ComplexityModerate)
	assert.Equal(t, 0.70, moderate.Threshold)
	assert.Equal(t, 8, moderate.RetrievalCount)

	complexP := ThresholdProfileFor(ComplexityComplex)
	assert.Equal(t, 0.55, complexP.Threshold)
	assert.Equal(t, 12, complexP.RetrievalCount)
}

func TestAdjustThresholdByContext(t *testing.T) {
	assert.InDelta(t, 0.55, AdjustThresholdByContext(0.70, 2), 1e-9)
	assert.InDelta(t, 0.60, AdjustThresholdByContext(0.70, 4), 1e-9)
	assert.InDelta(t, 0.70, AdjustThresholdByContext(0.70, 10), 1e-9)
	assert.InDelta(t, 0.75, AdjustThresholdByContext(0.70, 25), 1e-9)

	// Floors and ceilings hold.
	assert.InDelta(t, 0.50, AdjustThresholdByContext(0.55, 1), 1e-9)
	assert.InDelta(t, 0.95, AdjustThresholdByContext(0.94, 30), 1e-9)
}

func TestAdjustThresholdByConfidence(t *testing.T) {
	assert.InDelta(t, 0.80, AdjustThresholdByConfidence(0.70, 0.3), 1e-9)
	assert.InDelta(t, 0.70, AdjustThresholdByConfidence(0.70, 0.6), 1e-9)
	assert.InDelta(t, 0.65, AdjustThresholdByConfidence(0.70, 0.9), 1e-9)

	assert.InDelta(t, 0.95, AdjustThresholdByConfidence(0.93, 0.2), 1e-9)
	assert.InDelta(t, 0.50, AdjustThresholdByConfidence(0.52, 0.95), 1e-9)
}

func TestThresholdSelectorHeuristicPath(t *testing.T) {
	sel := NewThresholdSelector(DefaultThresholdSelectorConfig(), nil, nil, zap.NewNop())
	profile := sel.Select(context.Background(), "What is the capital of France?")
	assert.Equal(t, ComplexitySimple, profile.Complexity)
	assert.Equal(t, 0.80, profile.Threshold)
	assert.Equal(t, 5, profile.RetrievalCount)
}

func TestThresholdSelectorLLMOverride(t *testing.T) {
	provider := &scriptedProvider{replies: []string{"complex"}}
	cfg := DefaultThresholdSelectorConfig()
	cfg.UseLLM = true
	sel := NewThresholdSelector(cfg, provider, nil, zap.NewNop())

	profile := sel.Select(context.Background(), "What is the capital of France?")
	assert.Equal(t, ComplexityComplex, profile.Complexity)
	assert.Equal(t, 1, provider.calls)
}

func TestThresholdSelectorLLMFailureFallsBack(t *testing.T) {
	provider := &scriptedProvider{err: assert.AnError}
	cfg := DefaultThresholdSelectorConfig()
	cfg.UseLLM = true
	sel := NewThresholdSelector(cfg, provider, nil, zap.NewNop())

	profile := sel.Select(context.Background(), "What is the capital of France?")
	assert.Equal(t, ComplexitySimple, profile.Complexity)
}

type fixedLearned struct {
	value float64
	ok    bool
}

func (f fixedLearned) LearnedThreshold(context.Context, Complexity) (float64, bool, error) {
	return f.value, f.ok, nil
}

func TestThresholdSelectorLearnedOverride(t *testing.T) {
	sel := NewThresholdSelector(DefaultThresholdSelectorConfig(), nil, fixedLearned{value: 0.62, ok: true}, zap.NewNop())
	profile := sel.Select(context.Background(), "What is the capital of France?")
	require.Equal(t, ComplexitySimple, profile.Complexity)
	assert.InDelta(t, 0.62, profile.Threshold, 1e-9)
}
