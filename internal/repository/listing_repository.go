package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/stwalsh4118/acreage/internal/database"
	"github.com/stwalsh4118/acreage/internal/models"
)

// ListingRepository stores listings handed over by successful generation runs.
type ListingRepository interface {
	// Save inserts the listing generated for userID.
	// Saving the same run twice is a no-op.
	Save(ctx context.Context, userID string, listing *models.CompositeListing) error

	// Get returns the listing saved by run runID for userID.
	// Returns nil, nil if the run has no listing or belongs to another user.
	Get(ctx context.Context, userID, runID string) (*models.StoredListing, error)

	// ListByUser returns the user's most recent listings, newest first.
	// Returns an empty slice if the user has none.
	ListByUser(ctx context.Context, userID string, limit int) ([]models.ListingSummary, error)
}

// MaxListResults caps ListByUser regardless of the requested limit.
const MaxListResults = 50

// listingRepository is the pgx implementation of ListingRepository.
type listingRepository struct {
	db database.Querier
}

// NewListingRepository creates a new instance of ListingRepository.
func NewListingRepository(db database.Querier) ListingRepository {
	return &listingRepository{db: db}
}

// Save writes the listing row. The full listing is kept as JSONB next to the
// columns used for lookups, and the boundary as GeoJSON.
func (r *listingRepository) Save(ctx context.Context, userID string, listing *models.CompositeListing) error {
	if listing == nil {
		return fmt.Errorf("listing is nil")
	}

	payload, err := json.Marshal(listing)
	if err != nil {
		return fmt.Errorf("failed to encode listing %s: %w", listing.RunID, err)
	}

	geometry, err := models.GeometryValue(listing.Geometry)
	if err != nil {
		return fmt.Errorf("failed to encode geometry for listing %s: %w", listing.RunID, err)
	}

	query := `
		INSERT INTO generated_listings (
			run_id,
			user_id,
			parcel_id,
			title,
			price,
			acreage,
			state,
			geometry,
			payload,
			generated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (run_id) DO NOTHING
	`

	_, err = r.db.Exec(ctx, query,
		listing.RunID,
		userID,
		listing.ParcelID,
		listing.Title,
		listing.Price,
		listing.Acreage,
		listing.State,
		geometry,
		payload,
		listing.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert listing %s: %w", listing.RunID, err)
	}

	return nil
}

// Get reads one listing including its stored payload.
func (r *listingRepository) Get(ctx context.Context, userID, runID string) (*models.StoredListing, error) {
	query := `
		SELECT
			run_id,
			parcel_id,
			title,
			state,
			price,
			acreage,
			generated_at,
			payload
		FROM generated_listings
		WHERE run_id = $1 AND user_id = $2
	`

	var listing models.StoredListing
	var payload []byte

	err := r.db.QueryRow(ctx, query, runID, userID).Scan(
		&listing.RunID,
		&listing.ParcelID,
		&listing.Title,
		&listing.State,
		&listing.Price,
		&listing.Acreage,
		&listing.GeneratedAt,
		&payload,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query listing %s: %w", runID, err)
	}

	listing.Listing = json.RawMessage(payload)
	return &listing, nil
}

// ListByUser reads listing summaries without their payloads.
func (r *listingRepository) ListByUser(ctx context.Context, userID string, limit int) ([]models.ListingSummary, error) {
	if limit <= 0 || limit > MaxListResults {
		limit = MaxListResults
	}

	query := `
		SELECT
			run_id,
			parcel_id,
			title,
			state,
			price,
			acreage,
			generated_at
		FROM generated_listings
		WHERE user_id = $1
		ORDER BY generated_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query listings for user %s: %w", userID, err)
	}
	defer rows.Close()

	results := []models.ListingSummary{}
	for rows.Next() {
		var summary models.ListingSummary
		if err := rows.Scan(
			&summary.RunID,
			&summary.ParcelID,
			&summary.Title,
			&summary.State,
			&summary.Price,
			&summary.Acreage,
			&summary.GeneratedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan listing row: %w", err)
		}
		results = append(results, summary)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating listing rows: %w", err)
	}

	return results, nil
}
