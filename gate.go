package vidcore

import (
	"strings"

	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// ContextKeyIdentity is the router locals key the gate stores the
// authenticated identity under.
const ContextKeyIdentity = "identity"

// AuthGate verifies the bearer credential on a request and resolves it
// to a sanitized identity. The cookie is checked before the
// Authorization header.
type AuthGate struct {
	signer   *CredentialSigner
	accounts Accounts
	cfg      Config
	logger   Logger

	// ErrorHandler renders authentication failures. Every failure is
	// presented as the same unauthorized response; the cause stays in
	// the logs.
	ErrorHandler func(c router.Context, err error) error
}

func NewAuthGate(signer *CredentialSigner, accounts Accounts, cfg Config) *AuthGate {
	g := &AuthGate{
		signer:   signer,
		accounts: accounts,
		cfg:      cfg,
		logger:   defLogger{},
	}

	g.ErrorHandler = g.defaultErrorHandler

	return g
}

func (g *AuthGate) WithLogger(logger Logger) *AuthGate {
	if logger != nil {
		g.logger = logger
	}
	return g
}

// Authenticate extracts and verifies the access credential, then
// resolves the subject to a sanitized identity.
func (g *AuthGate) Authenticate(c router.Context) (Identity, error) {
	raw := g.extractToken(c)
	if raw == "" {
		return nil, ErrMissingToken
	}

	claims, err := g.signer.VerifyAccess(raw)
	if err != nil {
		return nil, err
	}

	subject, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}

	account, err := g.accounts.GetByAccountID(c.Context(), subject, SelectSanitized())
	if err != nil {
		g.logger.Debug("gate could not resolve subject", "subject", claims.Subject)
		return nil, ErrStaleSubject
	}

	return &accountIdentity{account: account}, nil
}

// Protected wraps a handler, rejecting requests that do not carry a
// valid access credential and exposing the identity via locals.
func (g *AuthGate) Protected() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			identity, err := g.Authenticate(c)
			if err != nil {
				return g.ErrorHandler(c, err)
			}

			c.Locals(ContextKeyIdentity, identity)

			return next(c)
		}
	}
}

// IdentityFromContext returns the identity a Protected middleware stored
// on the request.
func IdentityFromContext(c router.Context) (Identity, error) {
	val := c.Locals(ContextKeyIdentity)
	if val == nil {
		return nil, ErrMissingToken
	}

	identity, ok := val.(Identity)
	if !ok {
		return nil, ErrInvalidToken
	}

	return identity, nil
}

func (g *AuthGate) extractToken(c router.Context) string {
	if token := c.Cookies(g.cfg.GetAccessCookieName()); token != "" {
		return token
	}

	header := c.GetString(router.HeaderAuthorization, "")
	scheme := g.cfg.GetAuthScheme()

	l := len(scheme)
	if len(header) > l+1 && strings.EqualFold(header[:l], scheme) {
		return strings.TrimSpace(header[l:])
	}

	return ""
}

func (g *AuthGate) defaultErrorHandler(c router.Context, err error) error {
	g.logger.Info("request rejected", "error", err)

	// one body for every failure mode, so responses cannot distinguish
	// missing from forged from expired credentials
	return c.JSON(router.StatusUnauthorized, map[string]string{
		"error": "unauthorized",
	})
}

type accountIdentity struct {
	account *Account
}

var _ Identity = (*accountIdentity)(nil)

func (i *accountIdentity) ID() uuid.UUID       { return i.account.ID }
func (i *accountIdentity) Handle() string      { return i.account.Handle }
func (i *accountIdentity) Email() string       { return i.account.Email }
func (i *accountIdentity) DisplayName() string { return i.account.DisplayName }
