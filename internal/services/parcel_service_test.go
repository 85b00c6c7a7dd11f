package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/acreage/internal/clients/parcels"
	"github.com/stwalsh4118/acreage/internal/config"
	"github.com/stwalsh4118/acreage/internal/logger"
	"github.com/stwalsh4118/acreage/internal/models"
)

// MockParcelRegistry is a mock implementation of ParcelRegistry for testing
type MockParcelRegistry struct {
	mock.Mock
}

func (m *MockParcelRegistry) Lookup(ctx context.Context, parcelID string, region parcels.Region) (*parcels.Parcel, error) {
	args := m.Called(ctx, parcelID, region)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	parcel, ok := args.Get(0).(*parcels.Parcel)
	if !ok {
		return nil, args.Error(1)
	}
	return parcel, args.Error(1)
}

var defaultRegion = RegionConfig{State: config.DefaultParcelState, County: config.DefaultParcelCounty}

var laRegion = parcels.Region{State: "CA", County: "Los Angeles"}

func num(v float64) parcels.FlexFloat {
	return parcels.FlexFloat{Value: v, Valid: true}
}

func newParcelService(registry ParcelRegistry) ParcelService {
	return NewParcelService(registry, defaultRegion, logger.New("test"))
}

func TestFetchPropertyRecord_Success(t *testing.T) {
	// Arrange
	registry := new(MockParcelRegistry)
	service := newParcelService(registry)
	ctx := context.Background()

	registry.On("Lookup", ctx, "0123-456-789", laRegion).Return(&parcels.Parcel{
		ParcelID:    "0123-456-789",
		Address:     "123 MAIN STREET",
		City:        "los angeles",
		County:      "LOS ANGELES",
		State:       "CA",
		Zip:         "90012",
		WKT:         "POLYGON((-118.3 34.0, -118.2 34.0, -118.2 34.1, -118.3 34.1, -118.3 34.0))",
		Zoning:      "R1",
		CountyID:    num(37),
		AcreageCalc: num(4),
		Latitude:    num(1),
		Longitude:   num(2),
	}, nil)

	// Act
	record, err := service.FetchPropertyRecord(ctx, "0123-456-789", "", "")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "0123-456-789", record.ParcelID)
	assert.Equal(t, "123 Main St", record.Address)
	assert.Equal(t, "Los Angeles", record.City)
	assert.Equal(t, "Los Angeles", record.County)
	assert.Equal(t, "CA", record.State)
	assert.Equal(t, "90012", record.Zip)
	assert.Equal(t, "R1", record.Zoning)
	assert.Equal(t, 4.0, record.Acreage)
	assert.Equal(t, 0.0, record.Price)
	require.NotNil(t, record.CountyID)
	assert.Equal(t, 37, *record.CountyID)

	// Centroid of the WKT wins over the registry coordinates
	require.NotNil(t, record.Geometry)
	assert.Equal(t, "Polygon", record.Geometry.GeometryType())
	assert.InDelta(t, 34.05, record.Latitude, 1e-9)
	assert.InDelta(t, -118.25, record.Longitude, 1e-9)

	registry.AssertExpectations(t)
}

func TestFetchPropertyRecord_EmptyParcelID(t *testing.T) {
	registry := new(MockParcelRegistry)
	service := newParcelService(registry)

	for _, id := range []string{"", "   "} {
		record, err := service.FetchPropertyRecord(context.Background(), id, "CA", "Los Angeles")
		assert.Nil(t, record)
		assert.ErrorIs(t, err, ErrValidation)
	}

	registry.AssertNotCalled(t, "Lookup", mock.Anything, mock.Anything, mock.Anything)
}

func TestFetchPropertyRecord_NotFound(t *testing.T) {
	registry := new(MockParcelRegistry)
	service := newParcelService(registry)
	ctx := context.Background()

	// Registry returns nil, nil when no parcel found
	registry.On("Lookup", ctx, "missing", laRegion).Return(nil, nil)

	record, err := service.FetchPropertyRecord(ctx, "missing", "", "")

	assert.Nil(t, record)
	assert.ErrorIs(t, err, ErrParcelNotFound)
	registry.AssertExpectations(t)
}

func TestFetchPropertyRecord_RegistryError(t *testing.T) {
	registry := new(MockParcelRegistry)
	service := newParcelService(registry)
	ctx := context.Background()
	upstream := errors.New("connection refused")

	registry.On("Lookup", ctx, "p-1", laRegion).Return(nil, upstream)

	_, err := service.FetchPropertyRecord(ctx, "p-1", "", "")

	require.Error(t, err)
	assert.ErrorIs(t, err, upstream)
	assert.NotErrorIs(t, err, ErrParcelNotFound)
}

func TestFetchPropertyRecord_ExplicitRegion(t *testing.T) {
	registry := new(MockParcelRegistry)
	service := newParcelService(registry)
	ctx := context.Background()
	region := parcels.Region{State: "TX", County: "Travis"}

	registry.On("Lookup", ctx, "p-2", region).Return(&parcels.Parcel{AcreageDeeded: num(12.5)}, nil)

	record, err := service.FetchPropertyRecord(ctx, "p-2", "tx", "Travis")

	require.NoError(t, err)
	assert.Equal(t, "TX", record.State)
	assert.Equal(t, "Travis", record.County)
	assert.Equal(t, 12.5, record.Acreage)
	registry.AssertExpectations(t)
}

func TestFetchPropertyRecord_Defaults(t *testing.T) {
	registry := new(MockParcelRegistry)
	service := newParcelService(registry)
	ctx := context.Background()

	registry.On("Lookup", ctx, "p-3", laRegion).Return(&parcels.Parcel{AcreageCalc: num(1.5)}, nil)

	record, err := service.FetchPropertyRecord(ctx, "p-3", "", "")

	require.NoError(t, err)
	assert.Equal(t, "p-3", record.ParcelID)
	assert.Equal(t, models.AddressUnavailable, record.Address)
	assert.Equal(t, models.DefaultZoning, record.Zoning)
	assert.Equal(t, "CA", record.State)
	assert.Equal(t, "Los Angeles", record.County)
	assert.Nil(t, record.CountyID)
	assert.Empty(t, record.WKT)
}

func TestFetchPropertyRecord_MissingGeometryDegrades(t *testing.T) {
	registry := new(MockParcelRegistry)
	service := newParcelService(registry)
	ctx := context.Background()

	registry.On("Lookup", ctx, "p-4", laRegion).Return(&parcels.Parcel{AcreageCalc: num(2)}, nil)

	record, err := service.FetchPropertyRecord(ctx, "p-4", "", "")

	require.NoError(t, err)
	assert.Nil(t, record.Geometry)
	assert.Equal(t, 0.0, record.Latitude)
	assert.Equal(t, 0.0, record.Longitude)
	assert.False(t, record.HasLocation())
}

func TestFetchPropertyRecord_BadWKTFallsBackToCoordinates(t *testing.T) {
	registry := new(MockParcelRegistry)
	service := newParcelService(registry)
	ctx := context.Background()

	registry.On("Lookup", ctx, "p-5", laRegion).Return(&parcels.Parcel{
		AcreageCalc: num(2),
		WKT:         "POLYGON((not a polygon",
		Latitude:    num(34.2),
		Longitude:   num(-118.4),
	}, nil)

	record, err := service.FetchPropertyRecord(ctx, "p-5", "", "")

	require.NoError(t, err)
	assert.Nil(t, record.Geometry)
	assert.Equal(t, 34.2, record.Latitude)
	assert.Equal(t, -118.4, record.Longitude)
}

func TestFetchPropertyRecord_HalfCoordinatesIgnored(t *testing.T) {
	registry := new(MockParcelRegistry)
	service := newParcelService(registry)
	ctx := context.Background()

	registry.On("Lookup", ctx, "p-6", laRegion).Return(&parcels.Parcel{
		AcreageCalc: num(2),
		Latitude:    num(34.2),
	}, nil)

	record, err := service.FetchPropertyRecord(ctx, "p-6", "", "")

	require.NoError(t, err)
	assert.Equal(t, 0.0, record.Latitude)
	assert.Equal(t, 0.0, record.Longitude)
}

func TestFetchPropertyRecord_NoAcreage(t *testing.T) {
	registry := new(MockParcelRegistry)
	service := newParcelService(registry)
	ctx := context.Background()

	registry.On("Lookup", ctx, "p-7", laRegion).Return(&parcels.Parcel{AcreageCalc: num(0)}, nil)

	record, err := service.FetchPropertyRecord(ctx, "p-7", "", "")

	assert.Nil(t, record)
	assert.ErrorIs(t, err, ErrInvalidParcel)
}
