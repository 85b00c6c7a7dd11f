package services

import (
	"math"

	"github.com/stwalsh4118/acreage/internal/models"
)

// Synthetic pricing constants. The estimate is a placeholder heuristic.
const (
	BasePricePerAcre      = 15000.0
	LargeParcelAcres      = 5.0
	LargeParcelMultiplier = 0.9
	LocationMultiplier    = 1.2
)

// EstimatePrice computes the synthetic price analysis for a parcel:
// round(15000 × acres × size × 1.2), where size is 0.9 above 5 acres.
func EstimatePrice(acres float64) models.PricingAnalysis {
	size := 1.0
	if acres > LargeParcelAcres {
		size = LargeParcelMultiplier
	}

	estimate := math.Round(BasePricePerAcre * acres * size * LocationMultiplier)

	var perAcre float64
	if acres > 0 {
		perAcre = math.Round(estimate/acres*100) / 100
	}

	return models.PricingAnalysis{
		EstimatedPrice:     int64(estimate),
		BasePricePerAcre:   BasePricePerAcre,
		SizeMultiplier:     size,
		LocationMultiplier: LocationMultiplier,
		PricePerAcre:       perAcre,
		Synthetic:          true,
	}
}

// estimatedLeads is the static lead count reported by every campaign.
const estimatedLeads = 24

// BuildCampaign returns the synthetic marketing campaign. The payload is
// static and does not depend on the record.
func BuildCampaign(models.PropertyRecord) models.CampaignAnalysis {
	return models.CampaignAnalysis{
		BuyerProfiles: []models.BuyerProfile{
			{
				Type:        "Land Investor",
				Description: "Buyers holding acreage for long-term appreciation",
				MatchScore:  92,
			},
			{
				Type:        "Residential Developer",
				Description: "Builders looking for parcels suited to subdivision",
				MatchScore:  85,
			},
			{
				Type:        "Homesteader",
				Description: "Families seeking room to build a primary residence",
				MatchScore:  78,
			},
		},
		Channels: []string{
			"Land marketplaces",
			"Social media ads",
			"Email campaigns",
			"Investor networks",
		},
		EstimatedLeads: estimatedLeads,
		Synthetic:      true,
	}
}
