package vidcore

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

// Config holds the signing and cookie options the credential components
// consume. Both token classes carry their own secret and lifetime; the
// refresh secret must never verify an access credential.
type Config interface {
	GetAccessTokenSecret() string
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenSecret() string
	GetRefreshTokenTTL() time.Duration
	GetAccessCookieName() string
	GetRefreshCookieName() string
	GetAuthScheme() string
	GetIssuer() string
}

// SignerConfig is the concrete Config used at startup.
type SignerConfig struct {
	AccessTokenSecret  string        `json:"access_token_secret"`
	AccessTokenTTL     time.Duration `json:"access_token_ttl"`
	RefreshTokenSecret string        `json:"refresh_token_secret"`
	RefreshTokenTTL    time.Duration `json:"refresh_token_ttl"`
	AccessCookieName   string        `json:"access_cookie_name"`
	RefreshCookieName  string        `json:"refresh_cookie_name"`
	AuthScheme         string        `json:"auth_scheme"`
	Issuer             string        `json:"issuer"`
}

// Validate runs validation rules before first use.
func (c SignerConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.AccessTokenSecret, validation.Required),
		validation.Field(&c.RefreshTokenSecret,
			validation.Required,
			validation.By(validateDistinctSecret(c.AccessTokenSecret)),
		),
		validation.Field(&c.AccessTokenTTL, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.RefreshTokenTTL, validation.Required, validation.Min(time.Second)),
	)
}

func validateDistinctSecret(access string) validation.RuleFunc {
	return func(value any) error {
		if s, ok := value.(string); ok && s == access {
			return errors.New("refresh token secret must differ from the access token secret")
		}
		return nil
	}
}

func (c SignerConfig) GetAccessTokenSecret() string { return c.AccessTokenSecret }

func (c SignerConfig) GetAccessTokenTTL() time.Duration {
	if c.AccessTokenTTL <= 0 {
		return 15 * time.Minute
	}
	return c.AccessTokenTTL
}

func (c SignerConfig) GetRefreshTokenSecret() string { return c.RefreshTokenSecret }

func (c SignerConfig) GetRefreshTokenTTL() time.Duration {
	if c.RefreshTokenTTL <= 0 {
		return 10 * 24 * time.Hour
	}
	return c.RefreshTokenTTL
}

func (c SignerConfig) GetAccessCookieName() string {
	if c.AccessCookieName == "" {
		return "accessToken"
	}
	return c.AccessCookieName
}

func (c SignerConfig) GetRefreshCookieName() string {
	if c.RefreshCookieName == "" {
		return "refreshToken"
	}
	return c.RefreshCookieName
}

func (c SignerConfig) GetAuthScheme() string {
	if c.AuthScheme == "" {
		return "Bearer"
	}
	return c.AuthScheme
}

func (c SignerConfig) GetIssuer() string { return c.Issuer }
