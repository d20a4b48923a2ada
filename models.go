package vidcore

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Account is one registered identity. Handle and Email are case
// normalized to lowercase and unique across all accounts. RefreshToken
// holds the single currently valid refresh credential; writing a new
// value invalidates whatever was stored before.
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:acc"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Handle        string     `bun:"handle,notnull,unique" json:"handle,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	DisplayName   string     `bun:"display_name,notnull" json:"display_name,omitempty"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	Avatar        string     `bun:"avatar,notnull" json:"avatar,omitempty"`
	CoverImage    string     `bun:"cover_image" json:"cover_image,omitempty"`
	RefreshToken  *string    `bun:"refresh_token,nullzero" json:"-"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// NormalizeIdentifiers lowercases handle and email in place.
func (a *Account) NormalizeIdentifiers() *Account {
	a.Handle = strings.ToLower(strings.TrimSpace(a.Handle))
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
	return a
}

// Sanitized returns a copy safe to hand outside the session authority:
// no password hash, no refresh token.
func (a *Account) Sanitized() *Account {
	if a == nil {
		return nil
	}
	clone := *a
	clone.PasswordHash = ""
	clone.RefreshToken = nil
	return &clone
}

// Video is the minimal video record the watch-history projection joins
// against.
type Video struct {
	bun.BaseModel `bun:"table:videos,alias:vid"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	OwnerID       uuid.UUID  `bun:"owner_id,notnull,type:uuid" json:"owner_id,omitempty"`
	Title         string     `bun:"title,notnull" json:"title,omitempty"`
	MediaFile     string     `bun:"media_file,notnull" json:"media_file,omitempty"`
	Thumbnail     string     `bun:"thumbnail" json:"thumbnail,omitempty"`
	Duration      float64    `bun:"duration" json:"duration,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// SubscriptionEdge is a directed follow relationship, unique per ordered
// (subscriber, channel) pair.
type SubscriptionEdge struct {
	bun.BaseModel `bun:"table:subscriptions,alias:sub"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	SubscriberID  uuid.UUID  `bun:"subscriber_id,notnull,type:uuid" json:"subscriber_id,omitempty"`
	ChannelID     uuid.UUID  `bun:"channel_id,notnull,type:uuid" json:"channel_id,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// WatchEvent records one watched video. Position increases per account;
// the same video may appear more than once. Insertion order is the watch
// order, so readers wanting recency must write newest entries last and
// reverse on their side.
type WatchEvent struct {
	bun.BaseModel `bun:"table:watch_history,alias:wh"`
	ID            int64      `bun:"id,pk,autoincrement" json:"id,omitempty"`
	AccountID     uuid.UUID  `bun:"account_id,notnull,type:uuid" json:"account_id,omitempty"`
	VideoID       uuid.UUID  `bun:"video_id,notnull,type:uuid" json:"video_id,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// ChannelProfile is the aggregate view of one channel as seen by a
// specific viewer.
type ChannelProfile struct {
	DisplayName       string `json:"display_name"`
	Handle            string `json:"handle"`
	Email             string `json:"email"`
	Avatar            string `json:"avatar"`
	CoverImage        string `json:"cover_image,omitempty"`
	SubscribersCount  int    `json:"subscribers_count"`
	SubscribedToCount int    `json:"subscribed_to_count"`
	IsSubscribed      bool   `json:"is_subscribed"`
}

// VideoOwner is the slice of the owning account the watch-history
// projection exposes.
type VideoOwner struct {
	DisplayName string `json:"display_name"`
	Handle      string `json:"handle"`
	Avatar      string `json:"avatar"`
}

// WatchHistoryEntry joins one watched video with its owner. Owner is nil
// when the owning account no longer exists.
type WatchHistoryEntry struct {
	VideoID   uuid.UUID   `json:"video_id"`
	Title     string      `json:"title"`
	MediaFile string      `json:"media_file"`
	Thumbnail string      `json:"thumbnail,omitempty"`
	Duration  float64     `json:"duration,omitempty"`
	Owner     *VideoOwner `json:"owner"`
}

// TokenPair is one access+refresh issuance.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
