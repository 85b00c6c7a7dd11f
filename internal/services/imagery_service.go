package services

import (
	"context"

	"github.com/stwalsh4118/acreage/internal/clients/imagery"
	"github.com/stwalsh4118/acreage/internal/logger"
	"github.com/stwalsh4118/acreage/internal/metrics"
	"github.com/stwalsh4118/acreage/internal/models"
)

// Imagery quality labels.
const (
	ImageryQualityHigh     = "high"
	ImageryQualityDegraded = "degraded"
)

// ImageryProvider returns aerial image references for a parcel.
type ImageryProvider interface {
	Generate(ctx context.Context, req imagery.Request) ([]string, error)
}

// ImageryService produces the satellite-imagery step result.
type ImageryService interface {
	// Analyze never fails. Missing location, provider errors and empty
	// answers all yield an empty image list with degraded quality.
	Analyze(ctx context.Context, record models.PropertyRecord) models.ImageAnalysis
}

type imageryService struct {
	provider ImageryProvider
	log      *logger.Logger
}

// NewImageryService creates an ImageryService. A nil provider always degrades.
func NewImageryService(provider ImageryProvider, log *logger.Logger) ImageryService {
	return &imageryService{provider: provider, log: log}
}

func (s *imageryService) Analyze(ctx context.Context, record models.PropertyRecord) models.ImageAnalysis {
	analysis := models.ImageAnalysis{
		Images:    []string{},
		Quality:   ImageryQualityDegraded,
		ZoomLevel: ZoomForAcreage(record.Acreage),
		CenterLat: record.Latitude,
		CenterLng: record.Longitude,
	}

	if !record.HasLocation() || record.Acreage <= 0 {
		return s.degrade(analysis, record, "no_location")
	}
	if s.provider == nil {
		return s.degrade(analysis, record, "disabled")
	}

	images, err := s.provider.Generate(ctx, imagery.Request{
		WKT:       record.WKT,
		Center:    imagery.Center{Lat: record.Latitude, Lng: record.Longitude},
		Acreage:   record.Acreage,
		ZoomLevel: analysis.ZoomLevel,
	})
	if err != nil {
		s.log.Warn("Imagery provider failed", logger.Fields{
			"parcel_id": record.ParcelID,
			"error":     err.Error(),
		})
		return s.degrade(analysis, record, "provider_error")
	}
	if len(images) == 0 {
		return s.degrade(analysis, record, "empty")
	}

	analysis.Images = images
	analysis.Quality = ImageryQualityHigh
	return analysis
}

func (s *imageryService) degrade(analysis models.ImageAnalysis, record models.PropertyRecord, reason string) models.ImageAnalysis {
	s.log.Debug("Imagery degraded", logger.Fields{
		"parcel_id": record.ParcelID,
		"reason":    reason,
	})
	metrics.ImageryDegraded.WithLabelValues(reason).Inc()
	analysis.Reason = reason
	return analysis
}

// ZoomForAcreage picks a map zoom level that frames a parcel of the given size.
func ZoomForAcreage(acres float64) int {
	switch {
	case acres < 1:
		return 19
	case acres < 5:
		return 18
	case acres < 20:
		return 17
	case acres < 100:
		return 16
	default:
		return 15
	}
}
