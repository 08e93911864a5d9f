package cache

import (
	"context"

	"go.uber.org/zap"

	"github.com/relaydesk/ticket-relay/internal/domain"
	"github.com/relaydesk/ticket-relay/internal/observability"
	"github.com/relaydesk/ticket-relay/internal/repository"
	apperrors "github.com/relaydesk/ticket-relay/pkg/util"
)

// CachedStore fronts a TicketStore with a TicketCache. Reads fill the cache;
// writes go to the store first and then drop the affected entry.
type CachedStore struct {
	repository.TicketStore
	cache   TicketCache
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewCachedStore wraps store. A nil cache disables caching.
func NewCachedStore(store repository.TicketStore, c TicketCache, logger *zap.Logger, metrics *observability.Metrics) *CachedStore {
	if c == nil {
		c = Noop{}
	}
	return &CachedStore{
		TicketStore: store,
		cache:       c,
		logger:      logger.With(zap.String("component", "ticket_cache")),
		metrics:     metrics,
	}
}

func (s *CachedStore) CreateTicket(ctx context.Context, ticket *domain.Ticket) error {
	if err := s.TicketStore.CreateTicket(ctx, ticket); err != nil {
		return err
	}
	s.cache.Put(ticket)
	return nil
}

func (s *CachedStore) GetTicket(ctx context.Context, id int64) (*domain.Ticket, error) {
	if t, ok := s.cache.Get(id); ok {
		return t, nil
	}
	t, err := s.TicketStore.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Put(t)
	return t, nil
}

func (s *CachedStore) FindTicket(ctx context.Context, threadTS string) (*domain.Ticket, error) {
	if t, ok := s.cache.GetByThread(threadTS); ok {
		return t, nil
	}
	t, err := s.TicketStore.FindTicket(ctx, threadTS)
	if err != nil {
		return nil, err
	}
	s.cache.Put(t)
	return t, nil
}

func (s *CachedStore) UpdateQuestion(ctx context.Context, id int64, question string) error {
	err := s.TicketStore.UpdateQuestion(ctx, id, question)
	s.cache.Invalidate(id)
	if apperrors.IsNotFound(err) {
		s.anomaly("question update on absent ticket", id)
	}
	return err
}

func (s *CachedStore) SetStatus(ctx context.Context, id int64, status domain.TicketStatus) (bool, error) {
	ok, err := s.TicketStore.SetStatus(ctx, id, status)
	s.cache.Invalidate(id)
	if err == nil && !ok {
		s.anomaly("status change on absent ticket", id)
	}
	return ok, err
}

func (s *CachedStore) SetClaimant(ctx context.Context, id int64, actorID string) (bool, error) {
	ok, err := s.TicketStore.SetClaimant(ctx, id, actorID)
	s.cache.Invalidate(id)
	return ok, err
}

func (s *CachedStore) UpdateMessageBody(ctx context.Context, ts, body string) (int64, error) {
	return s.TicketStore.UpdateMessageBody(ctx, ts, body)
}

func (s *CachedStore) anomaly(msg string, id int64) {
	s.metrics.Inc(observability.CounterStoreAnomalies)
	s.logger.Error(msg, zap.Int64("ticket_id", id), observability.Urgent())
	s.cache.Invalidate(id)
}
