package vidcore

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// AccessClaims is the fixed claim set carried by a short-lived access
// credential.
type AccessClaims struct {
	jwt.RegisteredClaims
	Email       string `json:"email,omitempty"`
	Handle      string `json:"handle,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// RefreshClaims is the fixed claim set carried by a long-lived refresh
// credential: subject only.
type RefreshClaims struct {
	jwt.RegisteredClaims
}

// CredentialSigner mints and verifies both credential classes. Each
// class has its own secret and lifetime; a token signed with one secret
// will never verify against the other.
type CredentialSigner struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	logger        Logger
}

// NewCredentialSigner creates a signer from the given configuration.
func NewCredentialSigner(cfg Config) *CredentialSigner {
	return &CredentialSigner{
		accessSecret:  []byte(cfg.GetAccessTokenSecret()),
		refreshSecret: []byte(cfg.GetRefreshTokenSecret()),
		accessTTL:     cfg.GetAccessTokenTTL(),
		refreshTTL:    cfg.GetRefreshTokenTTL(),
		issuer:        cfg.GetIssuer(),
		logger:        defLogger{},
	}
}

func (s *CredentialSigner) WithLogger(logger Logger) *CredentialSigner {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// MintAccess issues an access credential for the account.
func (s *CredentialSigner) MintAccess(account *Account) (string, error) {
	if account == nil {
		return "", errors.New("account must not be nil", errors.CategoryInternal)
	}

	claims := &AccessClaims{
		RegisteredClaims: s.registeredClaims(account.ID, s.accessTTL),
		Email:            account.Email,
		Handle:           account.Handle,
		DisplayName:      account.DisplayName,
	}

	return s.sign(claims, s.accessSecret)
}

// MintRefresh issues a refresh credential for the subject. Every mint
// carries a fresh token ID, so two rotations within the same second
// still produce distinct values.
func (s *CredentialSigner) MintRefresh(subject uuid.UUID) (string, error) {
	claims := &RefreshClaims{
		RegisteredClaims: s.registeredClaims(subject, s.refreshTTL),
	}

	return s.sign(claims, s.refreshSecret)
}

// VerifyAccess validates an access credential and returns its claims.
func (s *CredentialSigner) VerifyAccess(raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := s.verify(raw, claims, s.accessSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyRefresh validates a refresh credential and returns its claims.
func (s *CredentialSigner) VerifyRefresh(raw string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := s.verify(raw, claims, s.refreshSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *CredentialSigner) registeredClaims(subject uuid.UUID, ttl time.Duration) jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    s.issuer,
		Subject:   subject.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (s *CredentialSigner) sign(claims jwt.Claims, secret []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(secret)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign token")
	}

	return signed, nil
}

// verify fails closed: parse errors, signature mismatches, and expired
// tokens all come back as ErrInvalidToken. The underlying reason is
// logged, never returned.
func (s *CredentialSigner) verify(raw string, claims jwt.Claims, secret []byte) error {
	parserOptions := make([]jwt.ParserOption, 0, 1)
	if s.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			s.logger.Error("signer encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	}, parserOptions...)

	if err != nil {
		s.logger.Debug("token verification failed", "error", err)
		return ErrInvalidToken
	}

	if !token.Valid {
		return ErrInvalidToken
	}

	return nil
}
