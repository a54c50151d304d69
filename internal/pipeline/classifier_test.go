package pipeline

import (
	"testing"

	apperrors "github.com/echolist/backend-go/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClassificationMatched(t *testing.T) {
	result, err := ParseClassification(`{"predicted_section_name": "Groceries", "section_id": 7}`)
	require.NoError(t, err)
	assert.Equal(t, "Groceries", result.PredictedSectionName)
	require.NotNil(t, result.SectionID)
	assert.Equal(t, uint(7), *result.SectionID)
	assert.Equal(t, 1.0, result.ConfidenceScore)
}

func TestParseClassificationNone(t *testing.T) {
	result, err := ParseClassification(`{"predicted_section_name": "None", "section_id": null}`)
	require.NoError(t, err)
	assert.Equal(t, "None", result.PredictedSectionName)
	assert.Nil(t, result.SectionID)
	assert.Equal(t, 0.0, result.ConfidenceScore)
}

// None 时即使模型违规附带了ID也要丢弃
func TestParseClassificationNoneDropsID(t *testing.T) {
	result, err := ParseClassification(`{"predicted_section_name": "None", "section_id": 3}`)
	require.NoError(t, err)
	assert.Nil(t, result.SectionID)
	assert.Equal(t, 0.0, result.ConfidenceScore)
}

func TestParseClassificationCodeFence(t *testing.T) {
	raw := "```json\n{\"predicted_section_name\": \"Work\", \"section_id\": 2}\n```"
	result, err := ParseClassification(raw)
	require.NoError(t, err)
	assert.Equal(t, "Work", result.PredictedSectionName)
	assert.Equal(t, 1.0, result.ConfidenceScore)
}

func TestParseClassificationMalformed(t *testing.T) {
	cases := []string{
		"not json at all",
		`{"predicted_section_name": "Work"`,
		`{"section_id": 2}`,
		`{"predicted_section_name": "Work", "section_id": 2, "extra": true}`,
		"",
	}
	for _, raw := range cases {
		result, err := ParseClassification(raw)
		require.Error(t, err, "input %q", raw)
		assert.Nil(t, result)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidationFailed), "input %q", raw)
	}
}

// 置信度只有两个取值
func TestParseClassificationConfidenceBinary(t *testing.T) {
	matched, err := ParseClassification(`{"predicted_section_name": "A", "section_id": 1}`)
	require.NoError(t, err)
	none, err2 := ParseClassification(`{"predicted_section_name": "None", "section_id": null}`)
	require.NoError(t, err2)

	assert.Contains(t, []float64{0.0, 1.0}, matched.ConfidenceScore)
	assert.Contains(t, []float64{0.0, 1.0}, none.ConfidenceScore)
	assert.NotEqual(t, matched.ConfidenceScore, none.ConfidenceScore)
}
