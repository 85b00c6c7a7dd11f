package repository

import (
	"context"
	"fmt"

	"github.com/stwalsh4118/acreage/internal/database"
)

// CreditRepository defines access to the remote credit store.
type CreditRepository interface {
	// GetUserCredits returns the user's current balance.
	// Users without a credits row have a balance of 0.
	GetUserCredits(ctx context.Context, userID string) (int, error)

	// ConsumeAIListingCredit decrements the balance by one if it is positive.
	// Returns false, nil when no credit was available.
	// The check and the decrement happen in a single conditional UPDATE
	// inside the database function, so concurrent callers cannot overdraw.
	ConsumeAIListingCredit(ctx context.Context, userID, propertyID string) (bool, error)
}

// creditRepository is the pgx implementation of CreditRepository.
type creditRepository struct {
	db database.Querier
}

// NewCreditRepository creates a new instance of CreditRepository.
func NewCreditRepository(db database.Querier) CreditRepository {
	return &creditRepository{db: db}
}

// GetUserCredits calls the get_user_credits database function.
func (r *creditRepository) GetUserCredits(ctx context.Context, userID string) (int, error) {
	var credits int
	err := r.db.QueryRow(ctx, `SELECT get_user_credits($1)`, userID).Scan(&credits)
	if err != nil {
		return 0, fmt.Errorf("failed to query credits for user %s: %w", userID, err)
	}
	return credits, nil
}

// ConsumeAIListingCredit calls the consume_ai_listing_credit database function.
// An empty propertyID is stored as NULL in the audit log.
func (r *creditRepository) ConsumeAIListingCredit(ctx context.Context, userID, propertyID string) (bool, error) {
	var consumed bool
	err := r.db.QueryRow(ctx,
		`SELECT consume_ai_listing_credit($1, NULLIF($2, ''))`,
		userID, propertyID,
	).Scan(&consumed)
	if err != nil {
		return false, fmt.Errorf("failed to consume credit for user %s: %w", userID, err)
	}
	return consumed, nil
}
