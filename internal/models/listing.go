package models

import (
	"encoding/json"
	"time"
)

// StepID identifies one stage of the listing generation pipeline.
type StepID string

// Pipeline stages in execution order.
const (
	StepPropertyData      StepID = "property-data"
	StepSatelliteImagery  StepID = "satellite-imagery"
	StepContentGeneration StepID = "content-generation"
	StepPriceAnalysis     StepID = "price-analysis"
	StepBuyerMatching     StepID = "buyer-matching"
)

// StepOrder lists every stage in the order a run executes them.
var StepOrder = []StepID{
	StepPropertyData,
	StepSatelliteImagery,
	StepContentGeneration,
	StepPriceAnalysis,
	StepBuyerMatching,
}

// StepStatus is the lifecycle state of a GenerationStep.
type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepProcessing StepStatus = "processing"
	StepCompleted  StepStatus = "completed"
	StepError      StepStatus = "error"
)

// GenerationStep is one stage of a run as shown to the caller.
type GenerationStep struct {
	Result      interface{} `json:"result,omitempty"`
	ID          StepID      `json:"id"`
	Label       string      `json:"label"`
	Description string      `json:"description"`
	Status      StepStatus  `json:"status"`
	Error       string      `json:"error,omitempty"`
}

// RunStatus is the overall outcome of a generation run.
type RunStatus string

const (
	RunPending          RunStatus = "pending"
	RunRunning          RunStatus = "running"
	RunCompleted        RunStatus = "completed"
	RunFailed           RunStatus = "failed"
	RunPurchaseRequired RunStatus = "purchase_required"
)

// RunSnapshot is an immutable view of a run after a transition.
type RunSnapshot struct {
	RunID      string           `json:"run_id"`
	Status     RunStatus        `json:"status"`
	FailedStep StepID           `json:"failed_step,omitempty"`
	Error      string           `json:"error,omitempty"`
	Charged    bool             `json:"charged"`
	Steps      []GenerationStep `json:"steps"`
}

// ImageAnalysis is the satellite-imagery stage result.
type ImageAnalysis struct {
	Images    []string `json:"images"`
	Quality   string   `json:"quality"`
	Reason    string   `json:"reason,omitempty"`
	ZoomLevel int      `json:"zoom_level"`
	CenterLat float64  `json:"center_lat"`
	CenterLng float64  `json:"center_lng"`
}

// ListingContent is the content-generation stage result.
type ListingContent struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Source      string `json:"source"`
}

// PricingAnalysis is the price-analysis stage result.
// Synthetic is always true: the estimate is a fixed heuristic, not a valuation.
type PricingAnalysis struct {
	EstimatedPrice     int64   `json:"estimated_price"`
	BasePricePerAcre   float64 `json:"base_price_per_acre"`
	SizeMultiplier     float64 `json:"size_multiplier"`
	LocationMultiplier float64 `json:"location_multiplier"`
	PricePerAcre       float64 `json:"price_per_acre"`
	Synthetic          bool    `json:"synthetic"`
}

// BuyerProfile is one buyer archetype in a marketing campaign.
type BuyerProfile struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	MatchScore  int    `json:"match_score"`
}

// CampaignAnalysis is the buyer-matching stage result.
type CampaignAnalysis struct {
	BuyerProfiles  []BuyerProfile `json:"buyer_profiles"`
	Channels       []string       `json:"channels"`
	EstimatedLeads int            `json:"estimated_leads"`
	Synthetic      bool           `json:"synthetic"`
}

// AIAnalysis bundles the stage-specific analyses of a listing.
type AIAnalysis struct {
	ImageAnalysis     ImageAnalysis    `json:"image_analysis"`
	PricingAnalysis   PricingAnalysis  `json:"pricing_analysis"`
	MarketingCampaign CampaignAnalysis `json:"marketing_campaign"`
}

// CompositeListing is the assembled output of a successful run.
// Price shadows PropertyRecord.Price with the price-analysis estimate.
type CompositeListing struct {
	PropertyRecord
	GeneratedAt time.Time  `json:"generated_at"`
	RunID       string     `json:"run_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Images      []string   `json:"images"`
	AIAnalysis  AIAnalysis `json:"ai_analysis"`
	Price       float64    `json:"price"`
}

// ListingSummary is a stored listing as shown in a user's history.
type ListingSummary struct {
	GeneratedAt time.Time `json:"generated_at"`
	RunID       string    `json:"run_id"`
	ParcelID    string    `json:"parcel_id"`
	Title       string    `json:"title"`
	State       string    `json:"state"`
	Price       float64   `json:"price"`
	Acreage     float64   `json:"acreage"`
}

// StoredListing is a stored listing with the CompositeListing it was saved
// from, kept as the raw JSON that was written.
type StoredListing struct {
	ListingSummary
	Listing json.RawMessage `json:"listing"`
}
