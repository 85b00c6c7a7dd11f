package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/stwalsh4118/acreage/internal/logger"
	"github.com/stwalsh4118/acreage/internal/metrics"
	"github.com/stwalsh4118/acreage/internal/repository"
	"golang.org/x/sync/singleflight"
)

// Credit gate errors
var (
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrAuthentication      = errors.New("authentication required")
	ErrCheckoutUnavailable = errors.New("checkout is not configured")
)

// The last fetched balance is kept per user for HasCredits. Entries expire
// and the least recently used are evicted, so the cache stays bounded.
const (
	balanceCacheSize = 10000
	balanceCacheTTL  = 10 * time.Minute
)

// CheckoutProvider creates hosted checkout sessions for buying credits.
type CheckoutProvider interface {
	CreateSession(ctx context.Context, userID, successURL, cancelURL string) (string, error)
}

// CreditService defines the credit gate in front of listing generation.
type CreditService interface {
	// GetBalance fetches the user's balance from the credit store.
	// Returns 0 for an empty userID or a failed lookup; failures are logged.
	GetBalance(ctx context.Context, userID string) int

	// HasCredits reports whether the most recently fetched balance is positive.
	HasCredits(userID string) bool

	// ConsumeCredit charges one credit. The store performs the check and the
	// decrement atomically; this service holds no lock around the call.
	// Returns ErrAuthentication without a user and ErrInsufficientCredits when
	// the store reports no credit was available. On success the balance is
	// refreshed before returning.
	ConsumeCredit(ctx context.Context, userID, propertyID string) error

	// Refresh re-fetches the balance, ignoring any fetch already in flight.
	Refresh(ctx context.Context, userID string) int

	// StartCheckout returns the URL of a checkout session for buying credits.
	StartCheckout(ctx context.Context, userID, successURL, cancelURL string) (string, error)
}

type creditService struct {
	repo     repository.CreditRepository
	checkout CheckoutProvider
	log      *logger.Logger

	balances *expirable.LRU[string, int]
	fetches  singleflight.Group
}

// NewCreditService creates a CreditService. checkout may be nil, in which
// case StartCheckout returns ErrCheckoutUnavailable.
func NewCreditService(repo repository.CreditRepository, checkout CheckoutProvider, log *logger.Logger) CreditService {
	return &creditService{
		repo:     repo,
		checkout: checkout,
		log:      log,
		balances: expirable.NewLRU[string, int](balanceCacheSize, nil, balanceCacheTTL),
	}
}

func (s *creditService) GetBalance(ctx context.Context, userID string) int {
	if userID == "" {
		return 0
	}

	// Concurrent callers for the same user share one lookup
	v, _, _ := s.fetches.Do(userID, func() (interface{}, error) {
		return s.fetch(ctx, userID), nil
	})

	balance, ok := v.(int)
	if !ok {
		return 0
	}
	return balance
}

func (s *creditService) Refresh(ctx context.Context, userID string) int {
	if userID == "" {
		return 0
	}
	s.fetches.Forget(userID)
	return s.GetBalance(ctx, userID)
}

// fetch loads the balance and records it as the latest observed value.
func (s *creditService) fetch(ctx context.Context, userID string) int {
	balance, err := s.repo.GetUserCredits(ctx, userID)
	if err != nil {
		s.log.Error("Failed to fetch credit balance", err, logger.Fields{
			"user_id": userID,
		})
		balance = 0
	}
	if balance < 0 {
		balance = 0
	}

	s.balances.Add(userID, balance)
	return balance
}

func (s *creditService) HasCredits(userID string) bool {
	balance, ok := s.balances.Get(userID)
	return ok && balance > 0
}

func (s *creditService) ConsumeCredit(ctx context.Context, userID, propertyID string) error {
	if userID == "" {
		return ErrAuthentication
	}

	consumed, err := s.repo.ConsumeAIListingCredit(ctx, userID, propertyID)
	if err != nil {
		metrics.CreditConsumes.WithLabelValues("error").Inc()
		s.log.Error("Failed to consume credit", err, logger.Fields{
			"user_id":     userID,
			"property_id": propertyID,
		})
		return fmt.Errorf("failed to consume credit: %w", err)
	}

	if !consumed {
		metrics.CreditConsumes.WithLabelValues("insufficient").Inc()
		s.balances.Add(userID, 0)
		s.log.Info("Credit consume rejected, no balance", logger.Fields{
			"user_id": userID,
		})
		return ErrInsufficientCredits
	}

	metrics.CreditConsumes.WithLabelValues("consumed").Inc()
	balance := s.Refresh(ctx, userID)

	s.log.Info("Credit consumed", logger.Fields{
		"user_id":     userID,
		"property_id": propertyID,
		"balance":     balance,
	})
	return nil
}

func (s *creditService) StartCheckout(ctx context.Context, userID, successURL, cancelURL string) (string, error) {
	if userID == "" {
		return "", ErrAuthentication
	}
	if strings.TrimSpace(successURL) == "" || strings.TrimSpace(cancelURL) == "" {
		return "", fmt.Errorf("%w: success and cancel URLs are required", ErrValidation)
	}
	if s.checkout == nil {
		return "", ErrCheckoutUnavailable
	}

	url, err := s.checkout.CreateSession(ctx, userID, successURL, cancelURL)
	if err != nil {
		s.log.Error("Failed to create checkout session", err, logger.Fields{
			"user_id": userID,
		})
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}

	s.log.Info("Checkout session created", logger.Fields{"user_id": userID})
	return url, nil
}
