package vidcore_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	vidcore "github.com/burhanfaheem3697/vidcore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "github.com/mattn/go-sqlite3"
)

const (
	sqliteCreateAccounts = `CREATE TABLE accounts (
    id TEXT NOT NULL PRIMARY KEY,
    handle TEXT NOT NULL UNIQUE,
    email TEXT NOT NULL UNIQUE,
    display_name TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    avatar TEXT NOT NULL,
    cover_image TEXT,
    refresh_token TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP
);`
	sqliteCreateVideos = `CREATE TABLE videos (
    id TEXT NOT NULL PRIMARY KEY,
    owner_id TEXT NOT NULL,
    title TEXT NOT NULL,
    media_file TEXT NOT NULL,
    thumbnail TEXT,
    duration REAL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP
);`
	sqliteCreateSubscriptions = `CREATE TABLE subscriptions (
    id TEXT NOT NULL PRIMARY KEY,
    subscriber_id TEXT NOT NULL,
    channel_id TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    CONSTRAINT uq_subscriptions_pair UNIQUE (subscriber_id, channel_id)
);`
	sqliteCreateWatchHistory = `CREATE TABLE watch_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    account_id TEXT NOT NULL,
    video_id TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);`
)

func setupTestDB(t *testing.T) (*bun.DB, func()) {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	bunDB := bun.NewDB(db, sqlitedialect.New())

	for _, ddl := range []string{
		sqliteCreateAccounts,
		sqliteCreateVideos,
		sqliteCreateSubscriptions,
		sqliteCreateWatchHistory,
	} {
		_, err = bunDB.Exec(ddl)
		require.NoError(t, err)
	}

	cleanup := func() {
		_ = bunDB.Close()
		_ = db.Close()
	}

	return bunDB, cleanup
}

// testPasswordHash is shared across seeded accounts so each test pays
// the bcrypt cost once.
var testPasswordHash string

func passwordHash(t *testing.T) string {
	t.Helper()
	if testPasswordHash == "" {
		h, err := vidcore.HashPassword("pw123-secret")
		require.NoError(t, err)
		testPasswordHash = h
	}
	return testPasswordHash
}

func seedAccount(t *testing.T, repo vidcore.Accounts, handle string) *vidcore.Account {
	t.Helper()

	account, err := repo.Register(context.Background(), &vidcore.Account{
		Handle:       handle,
		Email:        handle + "@example.com",
		DisplayName:  "User " + handle,
		PasswordHash: passwordHash(t),
		Avatar:       "https://cdn.example.com/" + handle + ".png",
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, account.ID)

	return account
}

func testSignerConfig() vidcore.SignerConfig {
	return vidcore.SignerConfig{
		AccessTokenSecret:  "access-secret-for-tests",
		RefreshTokenSecret: "refresh-secret-for-tests",
		AccessTokenTTL:     15 * time.Minute,
		RefreshTokenTTL:    10 * 24 * time.Hour,
	}
}
