package vidcore

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// SessionAuthority orchestrates login, rotation and revocation. It owns
// the single-valid-refresh-token invariant: every successful login or
// refresh replaces the stored refresh token, making any older value
// worthless.
type SessionAuthority struct {
	accounts Accounts
	signer   *CredentialSigner
	logger   Logger
	activity ActivitySink
}

func NewSessionAuthority(accounts Accounts, signer *CredentialSigner) *SessionAuthority {
	return &SessionAuthority{
		accounts: accounts,
		signer:   signer,
		logger:   defLogger{},
		activity: noopActivitySink{},
	}
}

func (s *SessionAuthority) WithLogger(logger Logger) *SessionAuthority {
	if logger != nil {
		s.logger = logger
	}
	return s
}

func (s *SessionAuthority) WithActivitySink(sink ActivitySink) *SessionAuthority {
	s.activity = normalizeActivitySink(sink)
	return s
}

// recordActivity never fails the calling operation; a broken sink is a
// logging problem, not an authentication problem.
func (s *SessionAuthority) recordActivity(ctx context.Context, event ActivityEvent) {
	event.OccurredAt = time.Now()
	if err := s.activity.Record(ctx, event); err != nil {
		s.logger.Error("activity sink failed", "event", string(event.EventType), "error", err)
	}
}

// Login verifies the password and issues a fresh token pair. The stored
// refresh token is overwritten unconditionally, which is the point where
// any prior refresh credential for the account dies.
func (s *SessionAuthority) Login(ctx context.Context, identifier, password string) (*TokenPair, *Account, error) {
	account, err := s.accounts.GetByHandleOrEmail(ctx, identifier)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, nil, ErrAccountNotFound
		}
		s.logger.Error("login lookup failed", "error", err)
		return nil, nil, errors.Wrap(err, errors.CategoryInternal, "login failed")
	}

	if err := ComparePasswordAndHash(password, account.PasswordHash); err != nil {
		s.recordActivity(ctx, ActivityEvent{
			EventType:  ActivityEventLoginFailure,
			AccountID:  account.ID,
			Identifier: identifier,
		})
		return nil, nil, ErrInvalidCredentials
	}

	pair, err := s.mintPair(account)
	if err != nil {
		return nil, nil, err
	}

	if err := s.accounts.UpdateRefreshToken(ctx, account.ID, &pair.RefreshToken); err != nil {
		s.logger.Error("login failed to persist refresh token", "error", err)
		return nil, nil, errors.Wrap(err, errors.CategoryInternal, "login failed")
	}

	s.recordActivity(ctx, ActivityEvent{
		EventType:  ActivityEventLoginSuccess,
		AccountID:  account.ID,
		Identifier: identifier,
	})

	return pair, account.Sanitized(), nil
}

// Refresh exchanges a live refresh credential for a new pair. The
// incoming value is compared byte for byte against the stored one by the
// directory's compare-and-swap, so of two racing refreshes exactly one
// wins and the loser sees ErrStaleRefreshToken.
func (s *SessionAuthority) Refresh(ctx context.Context, raw string) (*TokenPair, error) {
	claims, err := s.signer.VerifyRefresh(raw)
	if err != nil {
		return nil, err
	}

	subject, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}

	account, err := s.accounts.GetByAccountID(ctx, subject)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrStaleRefreshToken
		}
		s.logger.Error("refresh lookup failed", "error", err)
		return nil, errors.Wrap(err, errors.CategoryInternal, "refresh failed")
	}

	pair, err := s.mintPair(account)
	if err != nil {
		return nil, err
	}

	// rotation on use: the swap both validates the incoming token and
	// retires it in a single conditional write
	if err := s.accounts.RotateRefreshToken(ctx, account.ID, raw, pair.RefreshToken); err != nil {
		if errors.Is(err, ErrStaleRefreshToken) {
			s.recordActivity(ctx, ActivityEvent{
				EventType: ActivityEventRefreshReplayed,
				AccountID: account.ID,
			})
			return nil, ErrStaleRefreshToken
		}
		s.logger.Error("refresh rotation failed", "error", err)
		return nil, errors.Wrap(err, errors.CategoryInternal, "refresh failed")
	}

	s.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventRefreshRotated,
		AccountID: account.ID,
	})

	return pair, nil
}

// Logout clears the stored refresh token. No credential issued before
// logout can pass the rotation comparison again.
func (s *SessionAuthority) Logout(ctx context.Context, id uuid.UUID) error {
	if err := s.accounts.UpdateRefreshToken(ctx, id, nil); err != nil {
		if errors.IsNotFound(err) {
			return ErrAccountNotFound
		}
		s.logger.Error("logout failed", "error", err)
		return errors.Wrap(err, errors.CategoryInternal, "logout failed")
	}

	s.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventLogout,
		AccountID: id,
	})

	return nil
}

// ChangePassword re-verifies the current password before replacing the
// hash. The stored refresh token is cleared as well: a password change
// forces every outstanding session to re-authenticate.
func (s *SessionAuthority) ChangePassword(ctx context.Context, id uuid.UUID, oldPassword, newPassword string) error {
	account, err := s.accounts.GetByAccountID(ctx, id)
	if err != nil {
		if errors.IsNotFound(err) {
			return ErrAccountNotFound
		}
		s.logger.Error("change password lookup failed", "error", err)
		return errors.Wrap(err, errors.CategoryInternal, "change password failed")
	}

	if err := ComparePasswordAndHash(oldPassword, account.PasswordHash); err != nil {
		return ErrInvalidOldPassword
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}

	if err := s.accounts.UpdatePasswordHash(ctx, account.ID, hash); err != nil {
		s.logger.Error("change password update failed", "error", err)
		return errors.Wrap(err, errors.CategoryInternal, "change password failed")
	}

	if err := s.accounts.UpdateRefreshToken(ctx, account.ID, nil); err != nil {
		s.logger.Error("change password failed to revoke sessions", "error", err)
		return errors.Wrap(err, errors.CategoryInternal, "change password failed")
	}

	s.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventPasswordChanged,
		AccountID: account.ID,
	})

	return nil
}

func (s *SessionAuthority) mintPair(account *Account) (*TokenPair, error) {
	access, err := s.signer.MintAccess(account)
	if err != nil {
		s.logger.Error("failed to mint access token", "error", err)
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to mint credentials")
	}

	refresh, err := s.signer.MintRefresh(account.ID)
	if err != nil {
		s.logger.Error("failed to mint refresh token", "error", err)
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to mint credentials")
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}
