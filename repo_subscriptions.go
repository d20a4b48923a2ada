package vidcore

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Subscriptions owns the directed follow edges. One row per
// (subscriber, channel) pair; Subscribe is idempotent, Unsubscribe
// destroys the edge.
type Subscriptions interface {
	Subscribe(ctx context.Context, subscriberID, channelID uuid.UUID) error
	Unsubscribe(ctx context.Context, subscriberID, channelID uuid.UUID) error
	IsSubscribed(ctx context.Context, subscriberID, channelID uuid.UUID) (bool, error)
}

type subscriptions struct {
	db *bun.DB
}

var _ Subscriptions = (*subscriptions)(nil)

func NewSubscriptionsRepository(db *bun.DB) Subscriptions {
	return &subscriptions{db: db}
}

// Subscribe is idempotent: the insert lands on the unique
// (subscriber_id, channel_id) pair and an existing edge is left as is,
// racing subscribers included.
func (s *subscriptions) Subscribe(ctx context.Context, subscriberID, channelID uuid.UUID) error {
	edge := &SubscriptionEdge{
		ID:           uuid.New(),
		SubscriberID: subscriberID,
		ChannelID:    channelID,
	}

	if _, err := s.db.NewInsert().
		Model(edge).
		On("CONFLICT DO NOTHING").
		Exec(ctx); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to create subscription")
	}

	return nil
}

func (s *subscriptions) Unsubscribe(ctx context.Context, subscriberID, channelID uuid.UUID) error {
	if _, err := s.db.NewDelete().
		Model((*SubscriptionEdge)(nil)).
		Where("subscriber_id = ?", subscriberID).
		Where("channel_id = ?", channelID).
		Exec(ctx); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to remove subscription")
	}

	return nil
}

func (s *subscriptions) IsSubscribed(ctx context.Context, subscriberID, channelID uuid.UUID) (bool, error) {
	exists, err := s.db.NewSelect().
		Model((*SubscriptionEdge)(nil)).
		Where("subscriber_id = ?", subscriberID).
		Where("channel_id = ?", channelID).
		Exists(ctx)
	if err != nil {
		return false, errors.Wrap(err, errors.CategoryInternal, "subscription lookup failed")
	}

	return exists, nil
}
