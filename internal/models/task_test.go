package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePriority(t *testing.T) {
	for _, known := range []string{PriorityLow, PriorityMedium, PriorityHigh} {
		assert.Equal(t, known, NormalizePriority(known))
	}
	assert.Equal(t, PriorityMedium, NormalizePriority(""))
	assert.Equal(t, PriorityMedium, NormalizePriority("URGENT"))
	assert.Equal(t, PriorityMedium, NormalizePriority("High"), "labels are case-sensitive")
}

func TestNormalizeCadence(t *testing.T) {
	for _, known := range []string{CadenceDaily, CadenceWeekly, CadenceMonthly} {
		assert.Equal(t, known, NormalizeCadence(known))
	}
	assert.Equal(t, CadenceDaily, NormalizeCadence(""))
	assert.Equal(t, CadenceDaily, NormalizeCadence("quarterly"))
}
