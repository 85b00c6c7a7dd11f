package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimatePrice(t *testing.T) {
	tests := []struct {
		acres    float64
		want     int64
		wantSize float64
	}{
		{acres: 6, want: 97200, wantSize: 0.9},
		{acres: 3, want: 54000, wantSize: 1.0},
		{acres: 4, want: 72000, wantSize: 1.0},
		{acres: 5, want: 90000, wantSize: 1.0},
		{acres: 0.37, want: 6660, wantSize: 1.0},
	}

	for _, tt := range tests {
		pricing := EstimatePrice(tt.acres)
		assert.Equal(t, tt.want, pricing.EstimatedPrice, "acres=%v", tt.acres)
		assert.Equal(t, tt.wantSize, pricing.SizeMultiplier)
		assert.Equal(t, 1.2, pricing.LocationMultiplier)
		assert.Equal(t, 15000.0, pricing.BasePricePerAcre)
		assert.True(t, pricing.Synthetic)
	}
}

func TestEstimatePrice_PricePerAcre(t *testing.T) {
	assert.Equal(t, 16200.0, EstimatePrice(6).PricePerAcre)
	assert.Equal(t, 0.0, EstimatePrice(0).PricePerAcre)
}

func TestBuildCampaign_Deterministic(t *testing.T) {
	a := BuildCampaign(sampleRecord())
	b := BuildCampaign(sampleRecord())

	assert.Equal(t, a, b)
	assert.Len(t, a.BuyerProfiles, 3)
	assert.NotEmpty(t, a.Channels)
	assert.Positive(t, a.EstimatedLeads)
	assert.True(t, a.Synthetic)
	for _, profile := range a.BuyerProfiles {
		assert.NotEmpty(t, profile.Type)
		assert.NotEmpty(t, profile.Description)
		assert.Positive(t, profile.MatchScore)
	}
}
