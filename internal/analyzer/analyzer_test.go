package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeResult(t *testing.T) {
	raw := []byte(`{
		"model": "plan-review-v2",
		"total_score": 74.5,
		"max_possible_score": 100,
		"is_eligible": true,
		"confidence_score": 0.9,
		"summary": "Solid plan with a weak go-to-market section.",
		"criteria_results": [{"name": "market", "score": 12}],
		"recommendations": ["Sharpen the pricing model."],
		"processing_time": 41.2
	}`)

	res, err := DecodeResult(raw)
	require.NoError(t, err)

	assert.Equal(t, "plan-review-v2", res.Model)
	assert.Equal(t, 74.5, res.TotalScore)
	assert.True(t, res.Eligible)
	require.NotNil(t, res.Confidence)
	assert.Equal(t, 0.9, *res.Confidence)
	assert.JSONEq(t, `[{"name": "market", "score": 12}]`, string(res.Criteria))
}

func TestDecodeResultRejectsNonJSON(t *testing.T) {
	_, err := DecodeResult([]byte("INFO loading model...\n{\"model\": \"x\"}"))
	assert.Error(t, err)
}

func TestDecodeResultRequiresModel(t *testing.T) {
	_, err := DecodeResult([]byte(`{"total_score": 10}`))
	assert.Error(t, err)
}

func TestFailureError(t *testing.T) {
	f := &Failure{ExitCode: 3, Stderr: "pdf is encrypted"}
	assert.Contains(t, f.Error(), "code 3")
	assert.Contains(t, f.Error(), "pdf is encrypted")
}
