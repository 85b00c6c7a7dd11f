package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stwalsh4118/acreage/internal/clients/parcels"
	"github.com/stwalsh4118/acreage/internal/geo"
	"github.com/stwalsh4118/acreage/internal/logger"
	"github.com/stwalsh4118/acreage/internal/models"
)

// Service-level errors
var (
	ErrValidation     = errors.New("validation error")
	ErrParcelNotFound = errors.New("parcel not found")
	ErrInvalidParcel  = errors.New("parcel has no usable acreage")
)

// ParcelRegistry is the remote parcel lookup used by ParcelService.
type ParcelRegistry interface {
	Lookup(ctx context.Context, parcelID string, region parcels.Region) (*parcels.Parcel, error)
}

// RegionConfig is the region applied when a request omits state or county.
type RegionConfig struct {
	State  string
	County string
}

// ParcelService defines the interface for parcel business logic operations.
type ParcelService interface {
	// FetchPropertyRecord looks up a parcel and normalizes it into a PropertyRecord.
	// Empty state or county fall back to the service's RegionConfig.
	// Returns ErrValidation if parcelID is blank (no request is made).
	// Returns ErrParcelNotFound if the registry has no matching parcel.
	// Returns ErrInvalidParcel if the parcel carries no positive acreage.
	// Returns error for registry failures.
	FetchPropertyRecord(ctx context.Context, parcelID, state, county string) (*models.PropertyRecord, error)
}

// parcelService is the concrete implementation of ParcelService.
type parcelService struct {
	registry ParcelRegistry
	region   RegionConfig
	log      *logger.Logger
}

// NewParcelService creates a new instance of ParcelService.
func NewParcelService(registry ParcelRegistry, region RegionConfig, log *logger.Logger) ParcelService {
	return &parcelService{
		registry: registry,
		region:   region,
		log:      log,
	}
}

// FetchPropertyRecord validates the identifier, queries the registry once,
// and maps registry responses into business-level errors.
func (s *parcelService) FetchPropertyRecord(ctx context.Context, parcelID, state, county string) (*models.PropertyRecord, error) {
	parcelID = strings.TrimSpace(parcelID)
	if parcelID == "" {
		s.log.Warn("Empty parcel identifier provided", nil)
		return nil, fmt.Errorf("%w: parcel identifier is required", ErrValidation)
	}

	region := s.resolveRegion(state, county)
	fields := logger.Fields{
		"parcel_id": parcelID,
		"region":    region.String(),
	}

	s.log.Info("Fetching parcel from registry", fields)

	parcel, err := s.registry.Lookup(ctx, parcelID, region)
	if err != nil {
		s.log.Error("Failed to fetch parcel from registry", err, fields)
		return nil, fmt.Errorf("failed to fetch parcel: %w", err)
	}

	// Registry returns nil, nil when no parcel matched
	if parcel == nil {
		s.log.Debug("No parcel found in registry", fields)
		return nil, fmt.Errorf("%w: %s in %s", ErrParcelNotFound, parcelID, region.String())
	}

	record, err := s.normalize(parcelID, region, parcel)
	if err != nil {
		s.log.Warn("Parcel rejected during normalization", logger.Fields{
			"parcel_id": parcelID,
			"error":     err.Error(),
		})
		return nil, err
	}

	s.log.Info("Parcel fetched", logger.Fields{
		"parcel_id":    record.ParcelID,
		"acreage":      record.Acreage,
		"has_geometry": record.Geometry != nil,
		"has_location": record.HasLocation(),
	})

	return record, nil
}

func (s *parcelService) resolveRegion(state, county string) parcels.Region {
	state = strings.TrimSpace(state)
	if state == "" {
		state = s.region.State
	}
	county = strings.TrimSpace(county)
	if county == "" {
		county = s.region.County
	}
	return parcels.Region{State: strings.ToUpper(state), County: county}
}

// normalize builds a fully populated PropertyRecord from a registry parcel.
func (s *parcelService) normalize(parcelID string, region parcels.Region, p *parcels.Parcel) (*models.PropertyRecord, error) {
	acreage := p.AcreageCalc
	if !acreage.Valid || acreage.Value <= 0 {
		acreage = p.AcreageDeeded
	}
	if !acreage.Valid || acreage.Value <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidParcel, parcelID)
	}

	record := &models.PropertyRecord{
		ParcelID: firstNonEmpty(p.ParcelID, parcelID),
		Acreage:  acreage.Value,
		Address:  AbbreviateAddress(p.Address),
		City:     ProperCase(p.City),
		County:   ProperCase(firstNonEmpty(p.County, region.County)),
		State:    strings.ToUpper(firstNonEmpty(p.State, region.State)),
		Zip:      strings.TrimSpace(p.Zip),
		WKT:      strings.TrimSpace(p.WKT),
		Zoning:   firstNonEmpty(p.Zoning, p.LandUseClass, models.DefaultZoning),
	}
	if record.Address == "" {
		record.Address = models.AddressUnavailable
	}
	if p.CountyID.Valid {
		id := int(p.CountyID.Value)
		record.CountyID = &id
	}

	s.resolveLocation(record, p)

	return record, nil
}

// resolveLocation applies the geometry resolution order: the WKT centroid,
// then the registry's own coordinates, then the zero sentinel.
func (s *parcelService) resolveLocation(record *models.PropertyRecord, p *parcels.Parcel) {
	if record.WKT != "" {
		geometry, err := geo.ParseWKT(record.WKT)
		if err == nil {
			var center geo.Point
			center, err = geo.Centroid(geometry)
			if err == nil {
				record.Geometry = geometry
				record.Latitude = center.Lat
				record.Longitude = center.Lng
				return
			}
		}
		s.log.Warn("Unusable parcel geometry, falling back to registry coordinates", logger.Fields{
			"parcel_id": record.ParcelID,
			"error":     err.Error(),
		})
	}

	if p.Latitude.Valid && p.Longitude.Valid {
		record.Latitude = p.Latitude.Value
		record.Longitude = p.Longitude.Value
		return
	}

	s.log.Debug("Parcel has no resolvable location", logger.Fields{
		"parcel_id": record.ParcelID,
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
