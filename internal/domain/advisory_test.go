package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify_BoundaryExactness(t *testing.T) {
	tests := []struct {
		value    int
		expected Category
	}{
		{0, CategoryGood},
		{50, CategoryGood},
		{51, CategoryModerate},
		{100, CategoryModerate},
		{101, CategoryUnhealthySensitive},
		{150, CategoryUnhealthySensitive},
		{151, CategoryUnhealthy},
		{200, CategoryUnhealthy},
		{201, CategoryVeryUnhealthy},
		{300, CategoryVeryUnhealthy},
		{301, CategoryHazardous},
		{500, CategoryHazardous},
		{9999, CategoryHazardous},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, Classify(tt.value), "AQI %d", tt.value)
	}
}

func TestAdvisoryFor_AllCategoriesCovered(t *testing.T) {
	categories := []Category{
		CategoryGood,
		CategoryModerate,
		CategoryUnhealthySensitive,
		CategoryUnhealthy,
		CategoryVeryUnhealthy,
		CategoryHazardous,
	}

	for _, c := range categories {
		assert.NotEmpty(t, AdvisoryFor(c), "category %s", c)
	}
}
