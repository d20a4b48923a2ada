package vidcore_test

import (
	"context"
	"sync"
	"testing"

	vidcore "github.com/burhanfaheem3697/vidcore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAuthority(t *testing.T) (*vidcore.SessionAuthority, vidcore.Accounts, func()) {
	t.Helper()

	db, cleanup := setupTestDB(t)

	repo := vidcore.NewAccountsRepository(db)
	signer := vidcore.NewCredentialSigner(testSignerConfig())

	return vidcore.NewSessionAuthority(repo, signer), repo, cleanup
}

func TestSessionAuthorityLogin(t *testing.T) {
	authority, repo, cleanup := setupAuthority(t)
	defer cleanup()

	ctx := context.Background()
	account := seedAccount(t, repo, "alice")

	pair, logged, err := authority.Login(ctx, "ALICE", "pw123-secret")
	require.NoError(t, err)
	require.NotNil(t, pair)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)

	// returned profile carries no secrets
	assert.Equal(t, account.ID, logged.ID)
	assert.Empty(t, logged.PasswordHash)
	assert.Nil(t, logged.RefreshToken)

	// the freshly minted refresh token is the one on record
	stored, err := repo.GetByAccountID(ctx, account.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.RefreshToken)
	assert.Equal(t, pair.RefreshToken, *stored.RefreshToken)
}

func TestSessionAuthorityLoginRejections(t *testing.T) {
	authority, repo, cleanup := setupAuthority(t)
	defer cleanup()

	ctx := context.Background()
	seedAccount(t, repo, "alice")

	_, _, err := authority.Login(ctx, "alice", "wrong-password")
	assert.ErrorIs(t, err, vidcore.ErrInvalidCredentials)

	_, _, err = authority.Login(ctx, "nobody", "pw123-secret")
	assert.ErrorIs(t, err, vidcore.ErrAccountNotFound)
}

func TestSessionAuthorityRefreshRotation(t *testing.T) {
	authority, repo, cleanup := setupAuthority(t)
	defer cleanup()

	ctx := context.Background()
	seedAccount(t, repo, "alice")

	pair, _, err := authority.Login(ctx, "alice", "pw123-secret")
	require.NoError(t, err)

	second, err := authority.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, second.RefreshToken)

	// replaying the consumed token fails
	_, err = authority.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, vidcore.ErrStaleRefreshToken)

	// the replacement still works
	third, err := authority.Refresh(ctx, second.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, second.RefreshToken, third.RefreshToken)
}

func TestSessionAuthorityRefreshRejectsGarbage(t *testing.T) {
	authority, _, cleanup := setupAuthority(t)
	defer cleanup()

	_, err := authority.Refresh(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, vidcore.ErrInvalidToken)
}

func TestSessionAuthorityRefreshAfterLogout(t *testing.T) {
	authority, repo, cleanup := setupAuthority(t)
	defer cleanup()

	ctx := context.Background()
	account := seedAccount(t, repo, "alice")

	pair, _, err := authority.Login(ctx, "alice", "pw123-secret")
	require.NoError(t, err)

	require.NoError(t, authority.Logout(ctx, account.ID))

	stored, err := repo.GetByAccountID(ctx, account.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.RefreshToken)

	_, err = authority.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, vidcore.ErrStaleRefreshToken)
}

func TestSessionAuthorityRefreshUnknownSubject(t *testing.T) {
	authority, _, cleanup := setupAuthority(t)
	defer cleanup()

	signer := vidcore.NewCredentialSigner(testSignerConfig())

	// valid signature, but the subject was never registered
	raw, err := signer.MintRefresh(uuid.New())
	require.NoError(t, err)

	_, err = authority.Refresh(context.Background(), raw)
	assert.ErrorIs(t, err, vidcore.ErrStaleRefreshToken)
}

func TestSessionAuthorityConcurrentRefresh(t *testing.T) {
	authority, repo, cleanup := setupAuthority(t)
	defer cleanup()

	ctx := context.Background()
	seedAccount(t, repo, "alice")

	pair, _, err := authority.Login(ctx, "alice", "pw123-secret")
	require.NoError(t, err)

	const attempts = 4

	var wg sync.WaitGroup
	results := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = authority.Refresh(ctx, pair.RefreshToken)
		}(i)
	}

	wg.Wait()

	winners := 0
	for _, err := range results {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, vidcore.ErrStaleRefreshToken)
		}
	}

	assert.Equal(t, 1, winners, "a refresh token is good for exactly one rotation")
}

func TestSessionAuthorityActivityEvents(t *testing.T) {
	authority, repo, cleanup := setupAuthority(t)
	defer cleanup()

	ctx := context.Background()
	account := seedAccount(t, repo, "alice")

	var events []vidcore.ActivityEvent
	authority.WithActivitySink(vidcore.ActivitySinkFunc(func(_ context.Context, event vidcore.ActivityEvent) error {
		events = append(events, event)
		return nil
	}))

	_, _, err := authority.Login(ctx, "alice", "bad-password")
	require.Error(t, err)

	pair, _, err := authority.Login(ctx, "alice", "pw123-secret")
	require.NoError(t, err)

	_, err = authority.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)

	// replay of the consumed token is an audit-worthy event
	_, err = authority.Refresh(ctx, pair.RefreshToken)
	require.Error(t, err)

	require.NoError(t, authority.Logout(ctx, account.ID))

	var types []vidcore.ActivityEventType
	for _, event := range events {
		types = append(types, event.EventType)
		assert.Equal(t, account.ID, event.AccountID)
		assert.False(t, event.OccurredAt.IsZero())
	}

	assert.Equal(t, []vidcore.ActivityEventType{
		vidcore.ActivityEventLoginFailure,
		vidcore.ActivityEventLoginSuccess,
		vidcore.ActivityEventRefreshRotated,
		vidcore.ActivityEventRefreshReplayed,
		vidcore.ActivityEventLogout,
	}, types)
}

func TestSessionAuthorityChangePassword(t *testing.T) {
	authority, repo, cleanup := setupAuthority(t)
	defer cleanup()

	ctx := context.Background()
	account := seedAccount(t, repo, "alice")

	err := authority.ChangePassword(ctx, account.ID, "wrong-old", "n3wSecret!")
	assert.ErrorIs(t, err, vidcore.ErrInvalidOldPassword)

	pair, _, err := authority.Login(ctx, "alice", "pw123-secret")
	require.NoError(t, err)

	require.NoError(t, authority.ChangePassword(ctx, account.ID, "pw123-secret", "n3wSecret!"))

	// existing sessions are revoked
	_, err = authority.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, vidcore.ErrStaleRefreshToken)

	_, _, err = authority.Login(ctx, "alice", "pw123-secret")
	assert.ErrorIs(t, err, vidcore.ErrInvalidCredentials)

	_, _, err = authority.Login(ctx, "alice", "n3wSecret!")
	require.NoError(t, err)
}
