package vidcore

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SelectSanitized restricts an account read to columns safe for callers
// outside the session authority.
func SelectSanitized() repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.ExcludeColumn("password_hash", "refresh_token")
	}
}

// Accounts is the account directory. Reads returned to callers outside
// the session authority must apply SelectSanitized; the rotation path
// needs the stored refresh token and reads the full row.
type Accounts interface {
	repository.Repository[*Account]

	GetByHandleOrEmail(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*Account, error)
	GetByAccountID(ctx context.Context, id uuid.UUID, criteria ...repository.SelectCriteria) (*Account, error)

	Register(ctx context.Context, account *Account) (*Account, error)

	UpdateRefreshToken(ctx context.Context, id uuid.UUID, token *string) error
	RotateRefreshToken(ctx context.Context, id uuid.UUID, current, next string) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error

	RecordView(ctx context.Context, accountID, videoID uuid.UUID) error
}

type accounts struct {
	repository.Repository[*Account]
	db *bun.DB
}

var (
	_ Accounts                        = (*accounts)(nil)
	_ repository.Repository[*Account] = (*accounts)(nil)
)

func NewAccountsRepository(db *bun.DB) Accounts {
	repo := repository.NewRepository[*Account](db, repository.ModelHandlers[*Account]{
		NewRecord: func() *Account { return &Account{} },
		GetID: func(a *Account) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Account, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "handle"
		},
	})

	return &accounts{
		Repository: repo,
		db:         db,
	}
}

// GetByHandleOrEmail resolves an account by its handle or email address,
// case insensitively.
func (a *accounts) GetByHandleOrEmail(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*Account, error) {
	needle := strings.ToLower(strings.TrimSpace(identifier))
	if needle == "" {
		return nil, ErrAccountNotFound
	}

	record := &Account{}
	q := a.db.NewSelect().Model(record)

	for _, c := range criteria {
		q.Apply(c)
	}

	err := q.
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("lower(?TableAlias.handle) = ?", needle).
				WhereOr("lower(?TableAlias.email) = ?", needle)
		}).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "account lookup failed")
	}

	return record, nil
}

func (a *accounts) GetByAccountID(ctx context.Context, id uuid.UUID, criteria ...repository.SelectCriteria) (*Account, error) {
	record := &Account{}
	q := a.db.NewSelect().Model(record)

	for _, c := range criteria {
		q.Apply(c)
	}

	err := q.
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "account lookup failed")
	}

	return record, nil
}

// Register creates the account, normalizing handle and email first.
// A duplicate handle or email yields ErrAccountExists.
func (a *accounts) Register(ctx context.Context, account *Account) (*Account, error) {
	account.NormalizeIdentifiers()

	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}

	taken, err := a.db.NewSelect().
		Model((*Account)(nil)).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("?TableAlias.handle = ?", account.Handle).
				WhereOr("?TableAlias.email = ?", account.Email)
		}).
		Exists(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "registration lookup failed")
	}

	if taken {
		return nil, ErrAccountExists
	}

	created, err := a.Repository.Create(ctx, account)
	if err != nil {
		// the unique constraints back the pre-check under races
		if isUniqueViolation(err) {
			return nil, ErrAccountExists
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to create account")
	}

	return created, nil
}

// isUniqueViolation matches the driver-reported constraint errors for
// sqlite ("UNIQUE constraint failed") and postgres ("duplicate key value
// violates unique constraint").
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

// UpdateRefreshToken unconditionally overwrites the stored refresh token
// in a single statement; nil clears it. Overwrite is the invalidation
// point for whatever value was stored before.
func (a *accounts) UpdateRefreshToken(ctx context.Context, id uuid.UUID, token *string) error {
	res, err := a.db.NewUpdate().
		Model((*Account)(nil)).
		Set("refresh_token = ?", token).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to update refresh token")
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to read update result")
	}

	if rows == 0 {
		return ErrAccountNotFound
	}

	return nil
}

// RotateRefreshToken is the compare-and-swap at the heart of rotation:
// the stored token is replaced only when it still equals current, in one
// conditional statement. Zero affected rows means the incoming value is
// stale, including the race where another rotation already won.
func (a *accounts) RotateRefreshToken(ctx context.Context, id uuid.UUID, current, next string) error {
	res, err := a.db.NewUpdate().
		Model((*Account)(nil)).
		Set("refresh_token = ?", next).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Where("refresh_token = ?", current).
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to rotate refresh token")
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to read rotation result")
	}

	if rows == 0 {
		return ErrStaleRefreshToken
	}

	return nil
}

func (a *accounts) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	res, err := a.db.NewUpdate().
		Model((*Account)(nil)).
		Set("password_hash = ?", hash).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to update password hash")
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to read update result")
	}

	if rows == 0 {
		return ErrAccountNotFound
	}

	return nil
}

// RecordView appends a watch event. Duplicates are allowed; the
// autoincrement id preserves insertion order.
func (a *accounts) RecordView(ctx context.Context, accountID, videoID uuid.UUID) error {
	event := &WatchEvent{
		AccountID: accountID,
		VideoID:   videoID,
	}

	if _, err := a.db.NewInsert().Model(event).Exec(ctx); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to record watch event")
	}

	return nil
}
