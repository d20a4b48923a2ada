package vidcore

import (
	"context"

	"github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Videos manages the video records the watch-history projection joins
// against.
type Videos interface {
	repository.Repository[*Video]

	Publish(ctx context.Context, video *Video) (*Video, error)
	GetVideo(ctx context.Context, id uuid.UUID) (*Video, error)
	Remove(ctx context.Context, id uuid.UUID) error
}

type videos struct {
	repository.Repository[*Video]
	db *bun.DB
}

var _ Videos = (*videos)(nil)

func NewVideosRepository(db *bun.DB) Videos {
	repo := repository.NewRepository[*Video](db, repository.ModelHandlers[*Video]{
		NewRecord: func() *Video { return &Video{} },
		GetID: func(v *Video) uuid.UUID {
			if v == nil {
				return uuid.Nil
			}
			return v.ID
		},
		SetID: func(v *Video, id uuid.UUID) {
			if v != nil {
				v.ID = id
			}
		},
	})

	return &videos{
		Repository: repo,
		db:         db,
	}
}

func (v *videos) Publish(ctx context.Context, video *Video) (*Video, error) {
	if video.ID == uuid.Nil {
		video.ID = uuid.New()
	}

	created, err := v.Repository.Create(ctx, video)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to publish video")
	}

	return created, nil
}

func (v *videos) GetVideo(ctx context.Context, id uuid.UUID) (*Video, error) {
	record := &Video{}

	err := v.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, errors.New("video not found", errors.CategoryNotFound).
				WithCode(errors.CodeNotFound)
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "video lookup failed")
	}

	return record, nil
}

func (v *videos) Remove(ctx context.Context, id uuid.UUID) error {
	if _, err := v.db.NewDelete().
		Model((*Video)(nil)).
		Where("id = ?", id).
		Exec(ctx); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to remove video")
	}

	return nil
}
