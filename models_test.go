package vidcore_test

import (
	"testing"

	vidcore "github.com/burhanfaheem3697/vidcore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountNormalizeIdentifiers(t *testing.T) {
	account := &vidcore.Account{
		Handle: "  Alice ",
		Email:  " Alice@Example.COM ",
	}

	account.NormalizeIdentifiers()

	assert.Equal(t, "alice", account.Handle)
	assert.Equal(t, "alice@example.com", account.Email)
}

func TestAccountSanitized(t *testing.T) {
	token := "refresh-token"
	account := &vidcore.Account{
		Handle:       "alice",
		PasswordHash: "hash",
		RefreshToken: &token,
	}

	clean := account.Sanitized()
	require.NotNil(t, clean)
	assert.Empty(t, clean.PasswordHash)
	assert.Nil(t, clean.RefreshToken)

	// the original is untouched
	assert.Equal(t, "hash", account.PasswordHash)
	require.NotNil(t, account.RefreshToken)

	var missing *vidcore.Account
	assert.Nil(t, missing.Sanitized())
}
