package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuality(t *testing.T) {
	q, err := ParseQuality(" HIGH ")
	require.NoError(t, err)
	assert.Equal(t, QualityHigh, q)

	q, err = ParseQuality("low")
	require.NoError(t, err)
	assert.Equal(t, QualityLow, q)

	_, err = ParseQuality("1080p")
	assert.Error(t, err)
}

func TestQualitySequence(t *testing.T) {
	assert.Equal(t, [2]Quality{QualityLow, QualityHigh}, QualityLow.Sequence())
	assert.Equal(t, [2]Quality{QualityHigh, QualityLow}, QualityHigh.Sequence())
	assert.Equal(t, QualityLow, QualityLow.Opposite().Opposite())
}
