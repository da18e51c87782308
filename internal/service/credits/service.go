package credits

//go:generate $MOCKGEN -source=service.go -destination=mocks/service_mock.go

import (
	"context"
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/artfusion-app/artfusion-cli/internal/client/backend"
	"github.com/artfusion-app/artfusion-cli/internal/logger"
	"github.com/artfusion-app/artfusion-cli/internal/service/session"
)

const (
	// pageSize is the number of transactions fetched per history page.
	pageSize = 20

	// pageCacheSize bounds how many history pages are kept in memory.
	pageCacheSize = 16
)

// Static error definitions for better error handling.
var (
	// ErrSessionNotReady is returned when the session has not finished
	// initializing yet.
	ErrSessionNotReady = errors.New("session is not initialized yet")

	// ErrNotAuthenticated is returned for credit operations without an
	// authenticated session.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrBalanceUnknown is returned when no balance has ever been observed.
	ErrBalanceUnknown = errors.New("credit balance is not known yet")

	// ErrInvalidPage is returned for a negative history page.
	ErrInvalidPage = errors.New("history page cannot be negative")
)

// Service exposes the credit balance and transaction history.
type Service interface {
	// Balance returns the current credit balance. The session profile is
	// authoritative; the last observed value serves as a fallback.
	Balance(ctx context.Context) (int64, error)
	// Transactions returns one page of the credit history, newest first.
	// Pages are cached, so paging back does not refetch.
	Transactions(ctx context.Context, page int) ([]*backend.CreditTransaction, error)
	// InvalidateCache drops the cached balance and history pages.
	InvalidateCache()
}

// ServiceImpl implements Service.
type ServiceImpl struct {
	session session.Service
	client  backend.Client

	mu           sync.Mutex
	lastBalance  int64
	balanceKnown bool

	pages *lru.Cache[int, []*backend.CreditTransaction]
}

// NewService creates a new credit service over the given session.
func NewService(sessionService session.Service, client backend.Client) (*ServiceImpl, error) {
	pages, err := lru.New[int, []*backend.CreditTransaction](pageCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create page cache: %w", err)
	}

	return &ServiceImpl{
		session: sessionService,
		client:  client,
		pages:   pages,
	}, nil
}

// Balance returns the current credit balance.
func (s *ServiceImpl) Balance(_ context.Context) (int64, error) {
	if !s.session.IsInitialized() {
		return 0, ErrSessionNotReady
	}

	// The session profile always wins over the cached value.
	if user := s.session.CurrentUser(); user != nil && user.Credits != nil {
		s.mu.Lock()
		s.lastBalance = user.Credits.Balance
		s.balanceKnown = true
		s.mu.Unlock()

		return user.Credits.Balance, nil
	}

	if s.session.CurrentState() != session.StateAuthenticated {
		return 0, ErrNotAuthenticated
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.balanceKnown {
		return 0, ErrBalanceUnknown
	}

	return s.lastBalance, nil
}

// Transactions returns one page of the credit history.
func (s *ServiceImpl) Transactions(ctx context.Context, page int) ([]*backend.CreditTransaction, error) {
	if !s.session.IsInitialized() {
		return nil, ErrSessionNotReady
	}

	if s.session.CurrentState() != session.StateAuthenticated {
		return nil, ErrNotAuthenticated
	}

	if page < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidPage, page)
	}

	if cached, ok := s.pages.Get(page); ok {
		logger.Debugf(ctx, "Serving credit history page %d from cache", page)

		return cached, nil
	}

	transactions, err := s.client.GetCreditTransactions(ctx, page*pageSize, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch credit history: %w", err)
	}

	s.pages.Add(page, transactions)

	return transactions, nil
}

// InvalidateCache drops the cached balance and history pages.
func (s *ServiceImpl) InvalidateCache() {
	s.mu.Lock()
	s.balanceKnown = false
	s.lastBalance = 0
	s.mu.Unlock()

	s.pages.Purge()
}
