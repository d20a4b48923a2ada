package vidcore

import (
	"context"

	"github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RelationshipGraphEngine derives per-viewer computed views from the
// relational store: channel profiles with subscription aggregates and
// the denormalized watch-history projection. It is read only and
// stateless per call; each query runs inside one transaction so callers
// never observe partial results.
type RelationshipGraphEngine struct {
	repo   RepositoryManager
	logger Logger
}

func NewRelationshipGraphEngine(repo RepositoryManager) *RelationshipGraphEngine {
	return &RelationshipGraphEngine{
		repo:   repo,
		logger: defLogger{},
	}
}

func (e *RelationshipGraphEngine) WithLogger(logger Logger) *RelationshipGraphEngine {
	if logger != nil {
		e.logger = logger
	}
	return e
}

// ChannelProfile resolves a channel by handle (case insensitive) and
// computes its subscriber aggregates plus the viewer's own subscription
// flag. A nil viewer (uuid.Nil) always reads isSubscribed=false.
func (e *RelationshipGraphEngine) ChannelProfile(ctx context.Context, viewerID uuid.UUID, handle string) (*ChannelProfile, error) {
	var profile *ChannelProfile

	err := e.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		target := &Account{}

		err := tx.NewSelect().
			Model(target).
			ExcludeColumn("password_hash", "refresh_token").
			Where("lower(?TableAlias.handle) = lower(?)", handle).
			Limit(1).
			Scan(ctx)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrChannelNotFound
			}
			return errors.Wrap(err, errors.CategoryInternal, "channel lookup failed")
		}

		subscribers, err := tx.NewSelect().
			Model((*SubscriptionEdge)(nil)).
			Where("channel_id = ?", target.ID).
			Count(ctx)
		if err != nil {
			return errors.Wrap(err, errors.CategoryInternal, "subscriber count failed")
		}

		subscribedTo, err := tx.NewSelect().
			Model((*SubscriptionEdge)(nil)).
			Where("subscriber_id = ?", target.ID).
			Count(ctx)
		if err != nil {
			return errors.Wrap(err, errors.CategoryInternal, "subscription count failed")
		}

		isSubscribed := false
		if viewerID != uuid.Nil {
			isSubscribed, err = tx.NewSelect().
				Model((*SubscriptionEdge)(nil)).
				Where("channel_id = ?", target.ID).
				Where("subscriber_id = ?", viewerID).
				Exists(ctx)
			if err != nil {
				return errors.Wrap(err, errors.CategoryInternal, "subscription flag failed")
			}
		}

		profile = &ChannelProfile{
			DisplayName:       target.DisplayName,
			Handle:            target.Handle,
			Email:             target.Email,
			Avatar:            target.Avatar,
			CoverImage:        target.CoverImage,
			SubscribersCount:  subscribers,
			SubscribedToCount: subscribedTo,
			IsSubscribed:      isSubscribed,
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return profile, nil
}

type watchHistoryRow struct {
	VideoID     uuid.UUID `bun:"video_id"`
	Title       string    `bun:"title"`
	MediaFile   string    `bun:"media_file"`
	Thumbnail   string    `bun:"thumbnail"`
	Duration    float64   `bun:"duration"`
	OwnerName   *string   `bun:"owner_name"`
	OwnerHandle *string   `bun:"owner_handle"`
	OwnerAvatar *string   `bun:"owner_avatar"`
}

// WatchHistory projects the viewer's watch events through the video and
// owner relations. The result mirrors the stored watch order. A deleted
// video drops its row; a missing owner yields a nil Owner, never a
// one-element list. No history is an empty slice, not an error.
func (e *RelationshipGraphEngine) WatchHistory(ctx context.Context, viewerID uuid.UUID) ([]WatchHistoryEntry, error) {
	entries := []WatchHistoryEntry{}

	err := e.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		rows := []watchHistoryRow{}

		err := tx.NewSelect().
			TableExpr("watch_history AS wh").
			ColumnExpr("vid.id AS video_id").
			ColumnExpr("vid.title AS title").
			ColumnExpr("vid.media_file AS media_file").
			ColumnExpr("vid.thumbnail AS thumbnail").
			ColumnExpr("vid.duration AS duration").
			ColumnExpr("own.display_name AS owner_name").
			ColumnExpr("own.handle AS owner_handle").
			ColumnExpr("own.avatar AS owner_avatar").
			Join("JOIN videos AS vid ON vid.id = wh.video_id").
			Join("LEFT JOIN accounts AS own ON own.id = vid.owner_id").
			Where("wh.account_id = ?", viewerID).
			OrderExpr("wh.id ASC").
			Scan(ctx, &rows)
		if err != nil {
			return errors.Wrap(err, errors.CategoryInternal, "watch history query failed")
		}

		for _, row := range rows {
			entry := WatchHistoryEntry{
				VideoID:   row.VideoID,
				Title:     row.Title,
				MediaFile: row.MediaFile,
				Thumbnail: row.Thumbnail,
				Duration:  row.Duration,
			}

			if row.OwnerHandle != nil {
				owner := &VideoOwner{Handle: *row.OwnerHandle}
				if row.OwnerName != nil {
					owner.DisplayName = *row.OwnerName
				}
				if row.OwnerAvatar != nil {
					owner.Avatar = *row.OwnerAvatar
				}
				entry.Owner = owner
			}

			entries = append(entries, entry)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}
