package vidcore

import (
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// RouteRegistrar captures the router methods used by the controller.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Delete(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// SessionController exposes the credential lifecycle and profile reads
// as a JSON API. Both credentials ride back to the client as
// httpOnly+secure cookies; the refresh endpoint also accepts the token
// in the request body for non-browser clients.
type SessionController struct {
	Logger    Logger
	Authority *SessionAuthority
	Gate      *AuthGate
	Graph     *RelationshipGraphEngine
	Repo      RepositoryManager
	Media     MediaStore
	cfg       Config
}

type SessionControllerOption func(*SessionController) *SessionController

func NewSessionController(cfg Config, opts ...SessionControllerOption) *SessionController {
	c := &SessionController{
		Logger: defLogger{},
		cfg:    cfg,
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Authority == nil {
		panic("Missing SessionAuthority in session controller...")
	}

	if c.Gate == nil {
		panic("Missing AuthGate in session controller...")
	}

	if c.Graph == nil {
		panic("Missing RelationshipGraphEngine in session controller...")
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in session controller...")
	}

	return c
}

func WithControllerAuthority(authority *SessionAuthority) SessionControllerOption {
	return func(c *SessionController) *SessionController {
		c.Authority = authority
		return c
	}
}

func WithControllerGate(gate *AuthGate) SessionControllerOption {
	return func(c *SessionController) *SessionController {
		c.Gate = gate
		return c
	}
}

func WithControllerGraph(graph *RelationshipGraphEngine) SessionControllerOption {
	return func(c *SessionController) *SessionController {
		c.Graph = graph
		return c
	}
}

func WithControllerRepo(repo RepositoryManager) SessionControllerOption {
	return func(c *SessionController) *SessionController {
		c.Repo = repo
		return c
	}
}

func WithControllerMedia(media MediaStore) SessionControllerOption {
	return func(c *SessionController) *SessionController {
		c.Media = media
		return c
	}
}

func WithControllerLogger(logger Logger) SessionControllerOption {
	return func(c *SessionController) *SessionController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

// RegisterSessionRoutes mounts the API.
func (a *SessionController) RegisterSessionRoutes(group RouteRegistrar) {
	protected := a.Gate.Protected()

	group.Post("/register", a.Register)
	group.Post("/login", a.Login)
	group.Post("/refresh", a.Refresh)
	group.Post("/logout", a.Logout, protected)
	group.Post("/change-password", a.ChangePassword, protected)

	group.Get("/channels/:handle", a.ChannelProfile)
	group.Post("/channels/:handle/subscribe", a.Subscribe, protected)
	group.Delete("/channels/:handle/subscribe", a.Unsubscribe, protected)

	group.Get("/history", a.WatchHistory, protected)
	group.Post("/history/:videoId", a.RecordView, protected)
}

// RegisterPayload is the registration request body.
type RegisterPayload struct {
	Handle      string `form:"handle" json:"handle"`
	Email       string `form:"email" json:"email"`
	DisplayName string `form:"display_name" json:"display_name"`
	Password    string `form:"password" json:"password"`
	AvatarPath  string `form:"avatar_path" json:"avatar_path"`
	CoverPath   string `form:"cover_path" json:"cover_path"`
}

// Validate will run validation rules
func (r RegisterPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Handle, validation.Required, validation.Length(2, 64)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.DisplayName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(&r.AvatarPath, validation.Required),
	)
}

func (a *SessionController) Register(ctx router.Context) error {
	payload := new(RegisterPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.renderError(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "unable to parse payload"))
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
	}

	avatar, coverImage, err := a.resolveMedia(ctx, payload)
	if err != nil {
		return a.renderError(ctx, err)
	}

	hash, err := HashPassword(payload.Password)
	if err != nil {
		return a.renderError(ctx, err)
	}

	account := &Account{
		Handle:       payload.Handle,
		Email:        payload.Email,
		DisplayName:  payload.DisplayName,
		PasswordHash: hash,
		Avatar:       avatar,
		CoverImage:   coverImage,
	}

	created, err := a.Repo.Accounts().Register(ctx.Context(), account)
	if err != nil {
		return a.renderError(ctx, err)
	}

	return ctx.JSON(http.StatusCreated, map[string]any{
		"account": created.Sanitized(),
	})
}

// LoginPayload is the login request body.
type LoginPayload struct {
	Identifier string `form:"identifier" json:"identifier"`
	Password   string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Identifier, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *SessionController) Login(ctx router.Context) error {
	payload := new(LoginPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.renderError(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "unable to parse payload"))
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
	}

	pair, account, err := a.Authority.Login(ctx.Context(), payload.Identifier, payload.Password)
	if err != nil {
		return a.renderError(ctx, err)
	}

	a.setCredentialCookies(ctx, pair)

	return ctx.JSON(router.StatusOK, map[string]any{
		"account":       account,
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

// RefreshPayload carries the refresh token for clients that do not use
// the cookie.
type RefreshPayload struct {
	RefreshToken string `form:"refresh_token" json:"refresh_token"`
}

func (a *SessionController) Refresh(ctx router.Context) error {
	raw := ctx.Cookies(a.cfg.GetRefreshCookieName())
	if raw == "" {
		payload := new(RefreshPayload)
		if err := ctx.Bind(payload); err == nil {
			raw = payload.RefreshToken
		}
	}

	if raw == "" {
		return a.renderError(ctx, ErrMissingToken)
	}

	pair, err := a.Authority.Refresh(ctx.Context(), raw)
	if err != nil {
		return a.renderError(ctx, err)
	}

	a.setCredentialCookies(ctx, pair)

	return ctx.JSON(router.StatusOK, map[string]any{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

func (a *SessionController) Logout(ctx router.Context) error {
	identity, err := IdentityFromContext(ctx)
	if err != nil {
		return a.renderError(ctx, err)
	}

	if err := a.Authority.Logout(ctx.Context(), identity.ID()); err != nil {
		return a.renderError(ctx, err)
	}

	a.clearCredentialCookies(ctx)

	return ctx.JSON(router.StatusOK, map[string]string{
		"status": "logged out",
	})
}

// ChangePasswordPayload is the password change request body.
type ChangePasswordPayload struct {
	OldPassword string `form:"old_password" json:"old_password"`
	NewPassword string `form:"new_password" json:"new_password"`
}

// Validate will run validation rules
func (r ChangePasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.OldPassword, validation.Required),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(8, 100)),
	)
}

func (a *SessionController) ChangePassword(ctx router.Context) error {
	identity, err := IdentityFromContext(ctx)
	if err != nil {
		return a.renderError(ctx, err)
	}

	payload := new(ChangePasswordPayload)
	if err := ctx.Bind(payload); err != nil {
		return a.renderError(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "unable to parse payload"))
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
	}

	if err := a.Authority.ChangePassword(ctx.Context(), identity.ID(), payload.OldPassword, payload.NewPassword); err != nil {
		return a.renderError(ctx, err)
	}

	a.clearCredentialCookies(ctx)

	return ctx.JSON(router.StatusOK, map[string]string{
		"status": "password changed",
	})
}

// ChannelProfile is readable anonymously; a valid credential upgrades
// the view with the caller's subscription flag.
func (a *SessionController) ChannelProfile(ctx router.Context) error {
	viewerID := uuid.Nil
	if identity, err := a.Gate.Authenticate(ctx); err == nil {
		viewerID = identity.ID()
	}

	profile, err := a.Graph.ChannelProfile(ctx.Context(), viewerID, ctx.Param("handle"))
	if err != nil {
		return a.renderError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"channel": profile,
	})
}

func (a *SessionController) Subscribe(ctx router.Context) error {
	return a.toggleSubscription(ctx, true)
}

func (a *SessionController) Unsubscribe(ctx router.Context) error {
	return a.toggleSubscription(ctx, false)
}

func (a *SessionController) toggleSubscription(ctx router.Context, subscribe bool) error {
	identity, err := IdentityFromContext(ctx)
	if err != nil {
		return a.renderError(ctx, err)
	}

	channel, err := a.Repo.Accounts().GetByHandleOrEmail(ctx.Context(), ctx.Param("handle"), SelectSanitized())
	if err != nil {
		return a.renderError(ctx, ErrChannelNotFound)
	}

	if subscribe {
		err = a.Repo.Subscriptions().Subscribe(ctx.Context(), identity.ID(), channel.ID)
	} else {
		err = a.Repo.Subscriptions().Unsubscribe(ctx.Context(), identity.ID(), channel.ID)
	}
	if err != nil {
		return a.renderError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]bool{
		"subscribed": subscribe,
	})
}

func (a *SessionController) WatchHistory(ctx router.Context) error {
	identity, err := IdentityFromContext(ctx)
	if err != nil {
		return a.renderError(ctx, err)
	}

	entries, err := a.Graph.WatchHistory(ctx.Context(), identity.ID())
	if err != nil {
		return a.renderError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"history": entries,
	})
}

func (a *SessionController) RecordView(ctx router.Context) error {
	identity, err := IdentityFromContext(ctx)
	if err != nil {
		return a.renderError(ctx, err)
	}

	videoID, err := uuid.Parse(ctx.Param("videoId"))
	if err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]string{
			"error": "invalid video id",
		})
	}

	if _, err := a.Repo.Videos().GetVideo(ctx.Context(), videoID); err != nil {
		return a.renderError(ctx, err)
	}

	if err := a.Repo.Accounts().RecordView(ctx.Context(), identity.ID(), videoID); err != nil {
		return a.renderError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]string{
		"status": "recorded",
	})
}

func (a *SessionController) resolveMedia(ctx router.Context, payload *RegisterPayload) (avatar string, cover string, err error) {
	avatar = payload.AvatarPath
	cover = payload.CoverPath

	if a.Media == nil {
		return avatar, cover, nil
	}

	if avatar != "" {
		if avatar, err = a.Media.Upload(ctx.Context(), payload.AvatarPath); err != nil {
			return "", "", goerrors.Wrap(err, goerrors.CategoryInternal, "avatar upload failed")
		}
	}

	if cover != "" {
		if cover, err = a.Media.Upload(ctx.Context(), payload.CoverPath); err != nil {
			return "", "", goerrors.Wrap(err, goerrors.CategoryInternal, "cover upload failed")
		}
	}

	return avatar, cover, nil
}

func (a *SessionController) setCredentialCookies(ctx router.Context, pair *TokenPair) {
	a.setCookie(ctx, a.cfg.GetAccessCookieName(), pair.AccessToken, a.cfg.GetAccessTokenTTL())
	a.setCookie(ctx, a.cfg.GetRefreshCookieName(), pair.RefreshToken, a.cfg.GetRefreshTokenTTL())
}

func (a *SessionController) clearCredentialCookies(ctx router.Context) {
	a.cookieDel(ctx, a.cfg.GetAccessCookieName())
	a.cookieDel(ctx, a.cfg.GetRefreshCookieName())
}

func (a *SessionController) setCookie(c router.Context, name, val string, duration time.Duration) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    val,
		Expires:  time.Now().Add(duration),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *SessionController) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

// renderError maps taxonomy members to HTTP statuses. Token-class
// failures share one opaque unauthorized body; everything else gets a
// human-readable reason.
func (a *SessionController) renderError(ctx router.Context, err error) error {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		a.Logger.Error("unexpected error", "error", err)
		return ctx.JSON(http.StatusInternalServerError, map[string]string{
			"error": "internal error",
		})
	}

	switch rich.TextCode {
	case TextCodeMissingToken, TextCodeInvalidToken, TextCodeStaleRefresh, TextCodeStaleSubject, TextCodeInvalidCreds:
		return ctx.JSON(router.StatusUnauthorized, map[string]string{
			"error": "unauthorized",
		})
	}

	switch rich.Category {
	case goerrors.CategoryConflict:
		return ctx.JSON(http.StatusConflict, map[string]string{
			"error": rich.Message,
		})
	case goerrors.CategoryNotFound:
		return ctx.JSON(http.StatusNotFound, map[string]string{
			"error": rich.Message,
		})
	case goerrors.CategoryAuth:
		return ctx.JSON(router.StatusBadRequest, map[string]string{
			"error": rich.Message,
		})
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return ctx.JSON(router.StatusBadRequest, map[string]string{
			"error": rich.Message,
		})
	default:
		a.Logger.Error("internal error", "error", err)
		return ctx.JSON(http.StatusInternalServerError, map[string]string{
			"error": "internal error",
		})
	}
}
